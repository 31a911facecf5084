package system

import (
	"fmt"

	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/scheduler"
	"github.com/julianstephens/rhythm/internal/validation"
)

// ValidateCmd checks stored plans against the timeline invariants.
type ValidateCmd struct {
	Week string `help:"Only check the week containing this date (YYYY-MM-DD or 'today')."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	var weeks []string
	if c.Week != "" {
		w, err := ctx.ResolveWeek(c.Week)
		if err != nil {
			return err
		}
		weeks = []string{w}
	} else {
		var err error
		if weeks, err = ctx.Store.ListWeekStarts(); err != nil {
			return fmt.Errorf("failed to list weeks: %w", err)
		}
	}
	if len(weeks) == 0 {
		ctx.Println("No plans stored.")
		return nil
	}

	prefs, err := ctx.Preferences()
	if err != nil {
		return err
	}

	validator := validation.New()
	failed := 0
	for _, weekStart := range weeks {
		plan, err := ctx.Store.GetWeeklyPlan(weekStart)
		if err != nil {
			return err
		}
		for i := range plan.Days {
			scheduler.Refresh(&plan.Days[i], prefs.MinFreeBlockMin)
		}
		result := validator.ValidateWeeklyPlan(plan)
		if result.HasConflicts() {
			failed++
			ctx.Printf("Week of %s:\n%s\n", weekStart, result.FormatReport())
			continue
		}
		ctx.Printf("Week of %s: ok\n", weekStart)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d weeks failed validation", failed, len(weeks))
	}
	return nil
}
