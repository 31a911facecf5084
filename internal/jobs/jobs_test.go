package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/optimizer"
	remotesync "github.com/julianstephens/rhythm/internal/sync"
)

type countingSyncer struct {
	calls int
	err   error
}

func (s *countingSyncer) SyncPending(context.Context) (remotesync.Report, error) {
	s.calls++
	return remotesync.Report{Synced: []string{"2025-06-01"}}, s.err
}

type planMap map[string]models.WeeklyPlan

func (m planMap) GetWeeklyPlan(weekStart string) (models.WeeklyPlan, error) {
	p, ok := m[weekStart]
	if !ok {
		return models.WeeklyPlan{}, apperrors.ErrNotFound
	}
	return p, nil
}

type recordingOptimizer struct {
	weeks []string
}

func (o *recordingOptimizer) RequestOptimization(_ context.Context, plan models.WeeklyPlan) (optimizer.Guidance, error) {
	o.weeks = append(o.weeks, plan.WeekStart)
	return optimizer.Guidance{WeekStart: plan.WeekStart}, nil
}

func TestAddSync_InvalidSchedule(t *testing.T) {
	if err := New().AddSync("every minute", &countingSyncer{}); err == nil {
		t.Error("Expected an error for an invalid cron expression")
	}
	if err := New().AddOptimize("* * *", "UTC", planMap{}, &recordingOptimizer{}); err == nil {
		t.Error("Expected an error for a short cron expression")
	}
}

func TestAddSync_Valid(t *testing.T) {
	r := New()
	if err := r.AddSync("*/15 * * * *", &countingSyncer{}); err != nil {
		t.Fatalf("AddSync failed: %v", err)
	}
	if len(r.cron.Entries()) != 1 {
		t.Errorf("Expected one scheduled entry, got %d", len(r.cron.Entries()))
	}
	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
}

func TestRunSync(t *testing.T) {
	s := &countingSyncer{err: errors.New("offline")}
	New().runSync(s)
	if s.calls != 1 {
		t.Errorf("Expected one sync call, got %d", s.calls)
	}
}

func TestRunOptimize_PreviousWeek(t *testing.T) {
	opt := &recordingOptimizer{}
	r := New()
	// Sunday morning: the week that just ended started on 2025-06-01.
	r.now = func() time.Time { return time.Date(2025, 6, 8, 6, 0, 0, 0, time.UTC) }

	r.runOptimize("UTC", planMap{"2025-06-01": {WeekStart: "2025-06-01"}}, opt)

	if len(opt.weeks) != 1 || opt.weeks[0] != "2025-06-01" {
		t.Errorf("Expected guidance for 2025-06-01, got %v", opt.weeks)
	}
}

func TestRunOptimize_NoPlan(t *testing.T) {
	opt := &recordingOptimizer{}
	r := New()
	r.now = func() time.Time { return time.Date(2025, 6, 8, 6, 0, 0, 0, time.UTC) }

	r.runOptimize("UTC", planMap{}, opt)

	if len(opt.weeks) != 0 {
		t.Errorf("Expected no optimization without a stored plan, got %v", opt.weeks)
	}
}

func TestPreviousWeekStart(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), "2025-06-01"},
		{time.Date(2025, 6, 14, 23, 59, 0, 0, time.UTC), "2025-06-01"},
		{time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), "2025-06-08"},
	}
	for _, tt := range tests {
		got, err := previousWeekStart(tt.now, "UTC")
		if err != nil || got != tt.want {
			t.Errorf("previousWeekStart(%v) = %q, %v; want %q", tt.now, got, err, tt.want)
		}
	}
	if _, err := previousWeekStart(time.Now(), "Nowhere/Invalid"); err == nil {
		t.Error("Expected an error for an invalid timezone")
	}
}
