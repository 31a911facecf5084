// Package sync pushes locally committed weekly plans to remote persistence.
// Local state stays authoritative; a week that fails to push stays queued
// and is retried later.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/storage"
)

// Remote receives privacy-stripped weekly plans.
type Remote interface {
	PutSnapshot(ctx context.Context, plan models.WeeklyPlan) error
}

// Queue is the local side of the sync: the pending weeks and their plans.
type Queue interface {
	GetWeeklyPlan(weekStart string) (models.WeeklyPlan, error)
	ListPendingSync() ([]storage.PendingSync, error)
	RecordSyncFailure(weekStart string, cause error) error
	MarkSynced(weekStart string, version int64) error
}

type Syncer struct {
	queue       Queue
	remote      Remote
	maxRetries  int
	retryDelay  time.Duration
	maxAttempts int
}

// New returns a Syncer. A nil remote means remote persistence is not
// configured and every push reports ErrSyncUnavailable.
func New(queue Queue, remote Remote) *Syncer {
	return &Syncer{
		queue:      queue,
		remote:     remote,
		maxRetries:  constants.SyncMaxRetries,
		retryDelay:  constants.SyncRetryDelay,
		maxAttempts: constants.SyncMaxAttempts,
	}
}

// Report summarizes one drain of the pending queue. Stalled weeks used up
// their attempts and were not tried.
type Report struct {
	Synced  []string
	Failed  []string
	Stalled []string
}

// SyncPending pushes every queued week that still has attempts left.
// Weeks that fail stay queued with their error recorded; the returned error
// wraps ErrSyncUnavailable when any week failed.
func (s *Syncer) SyncPending(ctx context.Context) (Report, error) {
	var report Report

	pending, err := s.queue.ListPendingSync()
	if err != nil {
		return report, fmt.Errorf("failed to list pending weeks: %w", err)
	}
	if len(pending) == 0 {
		return report, nil
	}

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if p.Attempts >= s.maxAttempts {
			logger.Debug("Skipping stalled week", "week_start", p.WeekStart, "attempts", p.Attempts, "last_error", p.LastError)
			report.Stalled = append(report.Stalled, p.WeekStart)
			continue
		}
		entry := p
		if err := s.push(ctx, p.WeekStart, &entry); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			report.Failed = append(report.Failed, p.WeekStart)
			continue
		}
		report.Synced = append(report.Synced, p.WeekStart)
	}

	logger.Info("Remote sync finished", "synced", len(report.Synced), "failed", len(report.Failed), "stalled", len(report.Stalled))
	if len(report.Failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d weeks could not be pushed", apperrors.ErrSyncUnavailable, len(report.Failed), len(pending))
	}
	return report, nil
}

// PushWeek sends one week's stripped plan, retrying transient failures.
// It ignores the attempt limit.
func (s *Syncer) PushWeek(ctx context.Context, weekStart string) error {
	pending, err := s.queue.ListPendingSync()
	if err != nil {
		return fmt.Errorf("failed to list pending weeks: %w", err)
	}
	for _, p := range pending {
		if p.WeekStart == weekStart {
			return s.push(ctx, weekStart, &p)
		}
	}
	return s.push(ctx, weekStart, nil)
}

// push sends the current plan for weekStart. entry is the queue entry read
// before the plan was loaded, or nil when the week was not queued; only
// that version is cleared afterwards.
func (s *Syncer) push(ctx context.Context, weekStart string, entry *storage.PendingSync) error {
	if s.remote == nil {
		err := fmt.Errorf("%w: remote persistence is not configured", apperrors.ErrSyncUnavailable)
		s.recordFailure(weekStart, err)
		return err
	}

	plan, err := s.queue.GetWeeklyPlan(weekStart)
	if err != nil {
		return fmt.Errorf("failed to load week %s: %w", weekStart, err)
	}
	public := plan.StripPrivate()

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if lastErr = s.remote.PutSnapshot(ctx, public); lastErr == nil {
			break
		}
		logger.Debug("Remote push failed", "week_start", weekStart, "attempt", attempt, "error", lastErr)
		if attempt == s.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}
	}
	if lastErr != nil {
		logger.Warn("Giving up on remote push", "week_start", weekStart, "error", lastErr)
		s.recordFailure(weekStart, lastErr)
		return fmt.Errorf("%w: %v", apperrors.ErrSyncUnavailable, lastErr)
	}

	if entry == nil {
		return nil
	}
	if err := s.queue.MarkSynced(weekStart, entry.Version); err != nil {
		return fmt.Errorf("failed to clear sync queue for %s: %w", weekStart, err)
	}
	return nil
}

func (s *Syncer) recordFailure(weekStart string, cause error) {
	if err := s.queue.RecordSyncFailure(weekStart, cause); err != nil {
		logger.Warn("Failed to record sync failure", "week_start", weekStart, "error", err)
	}
}
