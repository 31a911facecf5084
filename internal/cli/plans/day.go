package plans

import (
	"errors"
	"fmt"

	"github.com/julianstephens/rhythm/internal/cli"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
)

func noPlan(err error, weekOf string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("no plan for the week of %s, run 'rhythm plan %s' first", weekOf, weekOf)
	}
	return err
}

type DayCmd struct {
	Date string `arg:"" help:"Date to show (YYYY-MM-DD or 'today')." default:"today"`
	JSON bool   `help:"Print the timeline as JSON."`
}

func (c *DayCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	day, err := ctx.Planner.Day(date)
	if err != nil {
		return noPlan(err, date)
	}
	if c.JSON {
		return ctx.PrintJSON(day)
	}
	cli.RenderDay(ctx.Stdout(), day)
	return nil
}

type WeekCmd struct {
	Date string `arg:"" help:"Any date in the week (YYYY-MM-DD or 'today')." default:"today"`
	JSON bool   `help:"Print the plan as JSON."`
}

func (c *WeekCmd) Run(ctx *cli.Context) error {
	weekStart, err := ctx.ResolveWeek(c.Date)
	if err != nil {
		return err
	}
	plan, err := ctx.Planner.Load(weekStart)
	if err != nil {
		return noPlan(err, weekStart)
	}
	if c.JSON {
		return ctx.PrintJSON(plan)
	}
	cli.RenderWeek(ctx.Stdout(), plan)
	return nil
}

// PreviewCmd generates a single day from the current preferences without
// saving it.
type PreviewCmd struct {
	Date string `arg:"" help:"Date to preview (YYYY-MM-DD or 'today')." default:"today"`
	JSON bool   `help:"Print the timeline as JSON."`
}

func (c *PreviewCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	prefs, err := ctx.Preferences()
	if err != nil {
		return err
	}
	day, err := ctx.Aggregator.BuildDay(ctx.Context(), date, prefs)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(day)
	}
	cli.RenderDay(ctx.Stdout(), day)
	return nil
}
