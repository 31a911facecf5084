package system

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/tui"
	"github.com/julianstephens/rhythm/internal/utils"
)

type TuiCmd struct {
	Date string `arg:"" optional:"" help:"Day to open (YYYY-MM-DD or 'today'). Defaults to today."`
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	d, err := utils.ParseDate(date)
	if err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()

	p := tea.NewProgram(tui.NewModel(ctx.Context(), ctx.Planner, d), tea.WithAltScreen(), tea.WithContext(ctx.Context()))
	_, err = p.Run()
	return err
}
