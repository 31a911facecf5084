package system

import (
	"errors"
	"fmt"

	"github.com/julianstephens/rhythm/internal/cli"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	remotesync "github.com/julianstephens/rhythm/internal/sync"
)

// SyncCmd pushes locally changed weeks to remote persistence.
type SyncCmd struct {
	Week string `help:"Push only the week containing this date (YYYY-MM-DD or 'today')."`
}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	if !ctx.Config.RemoteEnabled() {
		return fmt.Errorf("%w: no remote connection configured, use 'rhythm secret set remote-connection'", apperrors.ErrSyncUnavailable)
	}
	syncer, closeRemote, err := ctx.OpenSyncer(ctx.Context())
	if err != nil {
		return err
	}
	defer closeRemote()

	if c.Week != "" {
		weekStart, err := ctx.ResolveWeek(c.Week)
		if err != nil {
			return err
		}
		if err := syncer.PushWeek(ctx.Context(), weekStart); err != nil {
			return err
		}
		ctx.Printf("✓ Synced week of %s\n", weekStart)
		return nil
	}

	report, err := syncer.SyncPending(ctx.Context())
	printReport(ctx, report)
	if err != nil && !errors.Is(err, apperrors.ErrSyncUnavailable) {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d week(s) left pending: %w", len(report.Failed), err)
	}
	return nil
}

func printReport(ctx *cli.Context, report remotesync.Report) {
	if len(report.Synced) == 0 && len(report.Failed) == 0 && len(report.Stalled) == 0 {
		ctx.Println("Nothing to sync.")
		return
	}
	for _, w := range report.Synced {
		ctx.Printf("✓ %s\n", w)
	}
	for _, w := range report.Failed {
		ctx.Printf("✗ %s (still pending)\n", w)
	}
	for _, w := range report.Stalled {
		ctx.Printf("✗ %s (gave up, run 'rhythm sync --week %s' to retry)\n", w, w)
	}
}
