package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/storage"
	"github.com/julianstephens/rhythm/internal/storage/sqlite"
)

type memQueue struct {
	plans    map[string]models.WeeklyPlan
	pending  map[string]*storage.PendingSync
	order    []string
	failures map[string]string
}

func newMemQueue(plans ...models.WeeklyPlan) *memQueue {
	q := &memQueue{
		plans:    map[string]models.WeeklyPlan{},
		pending:  map[string]*storage.PendingSync{},
		failures: map[string]string{},
	}
	for _, p := range plans {
		q.plans[p.WeekStart] = p
		q.pending[p.WeekStart] = &storage.PendingSync{WeekStart: p.WeekStart, Version: 1}
		q.order = append(q.order, p.WeekStart)
	}
	return q
}

func (q *memQueue) GetWeeklyPlan(weekStart string) (models.WeeklyPlan, error) {
	p, ok := q.plans[weekStart]
	if !ok {
		return models.WeeklyPlan{}, apperrors.ErrNotFound
	}
	return p, nil
}

func (q *memQueue) ListPendingSync() ([]storage.PendingSync, error) {
	var out []storage.PendingSync
	for _, w := range q.order {
		if p, ok := q.pending[w]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (q *memQueue) RecordSyncFailure(weekStart string, cause error) error {
	if p, ok := q.pending[weekStart]; ok {
		p.Attempts++
		p.LastError = cause.Error()
	}
	q.failures[weekStart] = cause.Error()
	return nil
}

func (q *memQueue) MarkSynced(weekStart string, version int64) error {
	if p, ok := q.pending[weekStart]; ok && p.Version == version {
		delete(q.pending, weekStart)
	}
	return nil
}

type fakeRemote struct {
	failFirst int
	failWeek  string
	calls     int
	pushed    []models.WeeklyPlan
}

func (r *fakeRemote) PutSnapshot(_ context.Context, plan models.WeeklyPlan) error {
	r.calls++
	if r.calls <= r.failFirst || plan.WeekStart == r.failWeek {
		return fmt.Errorf("connection refused")
	}
	r.pushed = append(r.pushed, plan)
	return nil
}

func planWithCalendar(weekStart string) models.WeeklyPlan {
	plan := models.WeeklyPlan{WeekStart: weekStart}
	for i := range plan.Days {
		plan.Days[i].Date = fmt.Sprintf("day-%d", i)
		plan.Days[i].Blocks = []models.TimeBlock{
			{ID: "sleep", Type: models.BlockSleep, Title: "Sleep", StartMin: 0, EndMin: 360},
			{ID: "doctor", Type: models.BlockCalendarEvent, Title: "Doctor", StartMin: 600, EndMin: 660, DeviceEventID: "evt-9"},
			{ID: "free", Type: models.BlockFree, Title: "Free", StartMin: 660, EndMin: 1440},
		}
		plan.Days[i].AllDayEvents = []models.AllDayEvent{{Title: "Birthday", DeviceEventID: "evt-10"}}
		plan.Days[i].Conflicts = []models.Conflict{{Type: models.ConflictSleepClipped, Description: "Sleep clipped by Doctor"}}
	}
	return plan
}

func newTestSyncer(q Queue, r Remote) *Syncer {
	s := New(q, r)
	s.retryDelay = 0
	return s
}

func TestPushWeek_StripsPrivateData(t *testing.T) {
	q := newMemQueue(planWithCalendar("2025-06-01"))
	remote := &fakeRemote{}

	if err := newTestSyncer(q, remote).PushWeek(context.Background(), "2025-06-01"); err != nil {
		t.Fatalf("PushWeek failed: %v", err)
	}
	if len(remote.pushed) != 1 {
		t.Fatalf("Expected one push, got %d", len(remote.pushed))
	}
	for _, day := range remote.pushed[0].Days {
		if len(day.AllDayEvents) != 0 || len(day.Conflicts) != 0 {
			t.Errorf("%s: calendar-derived details were sent", day.Date)
		}
		for _, b := range day.Blocks {
			if b.Type == models.BlockCalendarEvent || b.Type == models.BlockFree || b.DeviceEventID != "" {
				t.Errorf("%s: block %s should not leave the device", day.Date, b.ID)
			}
		}
	}
	if _, ok := q.pending["2025-06-01"]; ok {
		t.Errorf("Expected week to be dequeued")
	}

	// The local plan keeps its calendar blocks.
	if len(q.plans["2025-06-01"].Days[0].Blocks) != 3 {
		t.Errorf("Local plan was modified")
	}
}

func TestPushWeek_RetriesTransientFailures(t *testing.T) {
	q := newMemQueue(planWithCalendar("2025-06-01"))
	remote := &fakeRemote{failFirst: 2}

	if err := newTestSyncer(q, remote).PushWeek(context.Background(), "2025-06-01"); err != nil {
		t.Fatalf("Expected third attempt to succeed: %v", err)
	}
	if remote.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", remote.calls)
	}
}

func TestPushWeek_GivesUp(t *testing.T) {
	q := newMemQueue(planWithCalendar("2025-06-01"))
	remote := &fakeRemote{failFirst: 100}

	err := newTestSyncer(q, remote).PushWeek(context.Background(), "2025-06-01")
	if !errors.Is(err, apperrors.ErrSyncUnavailable) {
		t.Fatalf("Expected ErrSyncUnavailable, got %v", err)
	}
	if remote.calls != 3 {
		t.Errorf("Expected retries to stop at 3, got %d", remote.calls)
	}
	p := q.pending["2025-06-01"]
	if p == nil || p.Attempts != 1 || p.LastError == "" {
		t.Errorf("Expected the week to stay queued with the failure recorded, got %+v", p)
	}
}

func TestPushWeek_NoRemote(t *testing.T) {
	q := newMemQueue(planWithCalendar("2025-06-01"))
	err := newTestSyncer(q, nil).PushWeek(context.Background(), "2025-06-01")
	if !errors.Is(err, apperrors.ErrSyncUnavailable) {
		t.Fatalf("Expected ErrSyncUnavailable, got %v", err)
	}
	if _, ok := q.pending["2025-06-01"]; !ok {
		t.Errorf("Expected week to stay queued")
	}
}

func TestSyncPending(t *testing.T) {
	q := newMemQueue(planWithCalendar("2025-06-01"), planWithCalendar("2025-06-08"), planWithCalendar("2025-06-15"))
	remote := &fakeRemote{failWeek: "2025-06-08"}

	report, err := newTestSyncer(q, remote).SyncPending(context.Background())
	if !errors.Is(err, apperrors.ErrSyncUnavailable) {
		t.Errorf("Expected ErrSyncUnavailable for the failed week, got %v", err)
	}
	if len(report.Synced) != 2 || len(report.Failed) != 1 || report.Failed[0] != "2025-06-08" {
		t.Errorf("Unexpected report: %+v", report)
	}
	if len(q.pending) != 1 {
		t.Errorf("Expected only the failed week to remain queued, got %d", len(q.pending))
	}
}

func TestSyncPending_Empty(t *testing.T) {
	report, err := newTestSyncer(newMemQueue(), &fakeRemote{}).SyncPending(context.Background())
	if err != nil || len(report.Synced) != 0 {
		t.Errorf("Expected a no-op, got %+v, %v", report, err)
	}
}

func TestSyncPending_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestSyncer(newMemQueue(planWithCalendar("2025-06-01")), &fakeRemote{}).SyncPending(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSyncPending_SkipsStalledWeeks(t *testing.T) {
	q := newMemQueue(planWithCalendar("2025-06-01"), planWithCalendar("2025-06-08"))
	q.pending["2025-06-01"].Attempts = 10
	remote := &fakeRemote{}

	s := newTestSyncer(q, remote)
	report, err := s.SyncPending(context.Background())
	if err != nil {
		t.Fatalf("SyncPending failed: %v", err)
	}
	if len(report.Stalled) != 1 || report.Stalled[0] != "2025-06-01" {
		t.Errorf("Expected 2025-06-01 to be stalled, got %+v", report)
	}
	if len(report.Synced) != 1 || remote.calls != 1 {
		t.Errorf("Expected only 2025-06-08 to be pushed, got %+v after %d calls", report, remote.calls)
	}

	// An explicit push still goes through.
	if err := s.PushWeek(context.Background(), "2025-06-01"); err != nil {
		t.Fatalf("PushWeek failed: %v", err)
	}
	if _, ok := q.pending["2025-06-01"]; ok {
		t.Errorf("Expected the explicit push to dequeue the week")
	}
}

func TestPushWeek_NotQueued(t *testing.T) {
	q := newMemQueue(planWithCalendar("2025-06-01"))
	delete(q.pending, "2025-06-01")
	remote := &fakeRemote{}

	if err := newTestSyncer(q, remote).PushWeek(context.Background(), "2025-06-01"); err != nil {
		t.Fatalf("PushWeek failed: %v", err)
	}
	if len(remote.pushed) != 1 {
		t.Errorf("Expected the week to be pushed, got %d pushes", len(remote.pushed))
	}
}

// requeueRemote commits a new local state for the week while its push is
// in flight.
type requeueRemote struct {
	store  *sqlite.Store
	pushed int
}

func (r *requeueRemote) PutSnapshot(_ context.Context, plan models.WeeklyPlan) error {
	r.pushed++
	if r.pushed > 1 {
		return nil
	}
	local, err := r.store.GetWeeklyPlan(plan.WeekStart)
	if err != nil {
		return err
	}
	local.Days[0].Blocks[0].Status = models.BlockStatusCompleted
	if err := r.store.SaveWeeklyPlan(local); err != nil {
		return err
	}
	return r.store.MarkSyncPending(plan.WeekStart)
}

func TestSyncPending_KeepsWeekQueuedAfterConcurrentChange(t *testing.T) {
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "rhythm.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer store.Close()

	plan := planWithCalendar("2025-06-01")
	if err := store.SaveWeeklyPlan(plan); err != nil {
		t.Fatalf("SaveWeeklyPlan failed: %v", err)
	}
	if err := store.MarkSyncPending(plan.WeekStart); err != nil {
		t.Fatalf("MarkSyncPending failed: %v", err)
	}

	remote := &requeueRemote{store: store}
	s := newTestSyncer(store, remote)
	if _, err := s.SyncPending(context.Background()); err != nil {
		t.Fatalf("SyncPending failed: %v", err)
	}

	pending, err := store.ListPendingSync()
	if err != nil {
		t.Fatalf("ListPendingSync failed: %v", err)
	}
	if len(pending) != 1 || pending[0].WeekStart != plan.WeekStart {
		t.Fatalf("Expected the change made during the push to stay queued, got %+v", pending)
	}

	// The next drain pushes the newer state and clears the queue.
	if _, err := s.SyncPending(context.Background()); err != nil {
		t.Fatalf("second SyncPending failed: %v", err)
	}
	if pending, _ := store.ListPendingSync(); len(pending) != 0 {
		t.Errorf("Expected an empty queue, got %+v", pending)
	}
	if remote.pushed != 2 {
		t.Errorf("Expected two pushes, got %d", remote.pushed)
	}
}
