package plans

import (
	"errors"
	"fmt"

	"github.com/julianstephens/rhythm/internal/cli"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
)

type PlanCmd struct {
	Date string `arg:"" help:"Any date in the week to plan (YYYY-MM-DD or 'today')." default:"today"`
	Yes  bool   `short:"y" help:"Replace an existing plan without asking."`
	JSON bool   `help:"Print the plan as JSON."`
}

func (c *PlanCmd) Run(ctx *cli.Context) error {
	weekStart, err := ctx.ResolveWeek(c.Date)
	if err != nil {
		return err
	}

	_, err = ctx.Store.GetWeeklyPlan(weekStart)
	switch {
	case err == nil && !c.Yes:
		ok, err := cli.Confirm(
			fmt.Sprintf("Replace the plan for the week of %s?", weekStart),
			"Completed and skipped marks for that week will be lost.",
		)
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Plan generation cancelled.")
			return nil
		}
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return err
	}

	ctx.PerformAutomaticBackup()

	plan, err := ctx.Planner.Regenerate(ctx.Context(), weekStart)
	if err != nil {
		return fmt.Errorf("failed to plan the week of %s: %w", weekStart, err)
	}
	if c.JSON {
		return ctx.PrintJSON(plan)
	}
	cli.RenderWeek(ctx.Stdout(), plan)
	return nil
}
