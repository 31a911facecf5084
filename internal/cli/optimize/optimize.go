package optimize

import (
	"errors"
	"fmt"

	"github.com/julianstephens/rhythm/internal/cli"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/keyring"
	"github.com/julianstephens/rhythm/internal/logger"
)

type OptimizeCmd struct {
	Date    string `arg:"" help:"Any date in the week to review (YYYY-MM-DD or 'today')." default:"today"`
	Refresh bool   `help:"Ignore cached guidance and ask again."`
	JSON    bool   `help:"Print the guidance as JSON."`
}

func (c *OptimizeCmd) Run(ctx *cli.Context) error {
	weekStart, err := ctx.ResolveWeek(c.Date)
	if err != nil {
		return err
	}
	plan, err := ctx.Planner.Load(weekStart)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("no plan for the week of %s to review", weekStart)
		}
		return err
	}

	client, cache, err := ctx.OpenOptimizer()
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("Failed to close advisory cache", "error", err)
		}
	}()

	if c.Refresh {
		if err := cache.Invalidate(weekStart); err != nil {
			return fmt.Errorf("failed to clear cached guidance: %w", err)
		}
	}

	guidance, err := client.RequestOptimization(ctx.Context(), plan)
	degraded := errors.Is(err, apperrors.ErrSyncUnavailable)
	if err != nil && !degraded {
		return err
	}

	if c.JSON {
		return ctx.PrintJSON(guidance)
	}
	cli.RenderGuidance(ctx.Stdout(), guidance)
	if degraded {
		ctx.Println()
		if ctx.Config.AdvisoryEnabled() {
			ctx.Println("Advisory service unavailable; showing local suggestions only.")
		} else {
			ctx.Println("No advisory API key configured; showing local suggestions only.")
			ctx.Println("Store one with: rhythm secret set " + string(keyring.AdvisoryKey))
		}
	}
	if len(guidance.Suggestions) == 0 && guidance.Insight == "" {
		ctx.Println("✅ Nothing to adjust this week.")
	}
	return nil
}
