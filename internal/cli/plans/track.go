package plans

import (
	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/utils"
)

// blockRef resolves a block reference on a day that must already be planned.
func blockRef(ctx *cli.Context, dateArg, ref string) (string, string, error) {
	date, err := ctx.ResolveDate(dateArg)
	if err != nil {
		return "", "", err
	}
	day, err := ctx.Planner.Day(date)
	if err != nil {
		return "", "", noPlan(err, date)
	}
	id, err := cli.ResolveBlockID(day, ref)
	if err != nil {
		return "", "", err
	}
	return date, id, nil
}

func titleOf(day models.DailyTimeline, id string) string {
	if i, ok := day.FindBlock(id); ok {
		return day.Blocks[i].Title
	}
	return id
}

type CompleteCmd struct {
	Block string `arg:"" help:"Block id or a unique prefix of it."`
	Date  string `help:"Day holding the block (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *CompleteCmd) Run(ctx *cli.Context) error {
	date, id, err := blockRef(ctx, c.Date, c.Block)
	if err != nil {
		return err
	}
	day, err := ctx.Planner.MarkComplete(ctx.Context(), id, date)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Completed %q\n\n", titleOf(day, id))
	cli.RenderDay(ctx.Stdout(), day)
	return nil
}

type SkipCmd struct {
	Block string `arg:"" help:"Block id or a unique prefix of it."`
	Date  string `help:"Day holding the block (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *SkipCmd) Run(ctx *cli.Context) error {
	date, id, err := blockRef(ctx, c.Date, c.Block)
	if err != nil {
		return err
	}
	day, err := ctx.Planner.Skip(ctx.Context(), id, date)
	if err != nil {
		return err
	}
	ctx.Printf("Skipped %q\n\n", titleOf(day, id))
	cli.RenderDay(ctx.Stdout(), day)
	return nil
}

type RescheduleCmd struct {
	Block string `arg:"" help:"Block id or a unique prefix of it."`
	Start string `arg:"" help:"New start time (HH:MM)."`
	Date  string `help:"Day holding the block (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *RescheduleCmd) Run(ctx *cli.Context) error {
	start, err := utils.ParseClock(c.Start)
	if err != nil {
		return err
	}
	date, id, err := blockRef(ctx, c.Date, c.Block)
	if err != nil {
		return err
	}
	day, err := ctx.Planner.Reschedule(ctx.Context(), id, date, start)
	if err != nil {
		return err
	}
	ctx.Printf("Moved %q to %s\n\n", titleOf(day, id), utils.FormatClock(start))
	cli.RenderDay(ctx.Stdout(), day)
	return nil
}
