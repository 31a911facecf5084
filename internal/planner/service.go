package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/scheduler"
	"github.com/julianstephens/rhythm/internal/utils"
	"github.com/julianstephens/rhythm/internal/validation"
)

// Store is the local persistence the service writes through to.
type Store interface {
	GetPreferences() (models.Preferences, error)
	GetWeeklyPlan(weekStart string) (models.WeeklyPlan, error)
	SaveWeeklyPlan(plan models.WeeklyPlan) error
	MarkSyncPending(weekStart string) error
}

// PlanBuilder generates a full week.
type PlanBuilder interface {
	BuildWeeklyPlan(ctx context.Context, weekStart string, prefs models.Preferences) (models.WeeklyPlan, error)
}

// Service owns the current weekly plan and serializes every change to it.
// Reads return deep copies.
type Service struct {
	mu        sync.Mutex
	store     Store
	builder   PlanBuilder
	validator *validation.Validator

	current *models.WeeklyPlan

	// Per week: regenSeq identifies the newest regeneration and
	// regenerating counts the ones still running.
	regenSeq     map[string]uint64
	regenerating map[string]int
}

func New(store Store, builder PlanBuilder) *Service {
	return &Service{
		store:        store,
		builder:      builder,
		validator:    validation.New(),
		regenSeq:     map[string]uint64{},
		regenerating: map[string]int{},
	}
}

// Current returns a copy of the plan the service holds, if any.
func (s *Service) Current() (models.WeeklyPlan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.WeeklyPlan{}, false
	}
	return s.current.Clone(), true
}

// Load makes the stored plan for weekStart the current plan.
func (s *Service) Load(weekStart string) (models.WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, err := s.planForWeek(weekStart)
	if err != nil {
		return models.WeeklyPlan{}, err
	}
	return plan.Clone(), nil
}

// Day returns a copy of the timeline for date, loading its week if needed.
func (s *Service) Day(date string) (models.DailyTimeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, idx, err := s.planForDate(date)
	if err != nil {
		return models.DailyTimeline{}, err
	}
	return plan.Clone().Days[idx], nil
}

func (s *Service) planForWeek(weekStart string) (*models.WeeklyPlan, error) {
	if s.current != nil && s.current.WeekStart == weekStart {
		return s.current, nil
	}
	plan, err := s.store.GetWeeklyPlan(weekStart)
	if err != nil {
		return nil, err
	}
	prefs, err := s.store.GetPreferences()
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	models.ApplyDefaultPreferences(&prefs)
	// Free blocks are display-only and not stored.
	for i := range plan.Days {
		scheduler.Refresh(&plan.Days[i], prefs.MinFreeBlockMin)
	}
	s.current = &plan
	return s.current, nil
}

func (s *Service) planForDate(date string) (*models.WeeklyPlan, int, error) {
	d, err := utils.ParseDate(date)
	if err != nil {
		return nil, -1, err
	}
	plan, err := s.planForWeek(utils.WeekStart(d).Format(constants.DateFormat))
	if err != nil {
		return nil, -1, err
	}
	idx, err := plan.DayIndex(date)
	if err != nil {
		return nil, -1, fmt.Errorf("%w: %v", apperrors.ErrNotFound, err)
	}
	return plan, idx, nil
}

// MarkComplete moves a scheduled block to completed.
func (s *Service) MarkComplete(ctx context.Context, blockID, date string) (models.DailyTimeline, error) {
	return s.mutate(ctx, date, func(day *models.DailyTimeline, _ models.Preferences) error {
		return setStatus(day, blockID, models.BlockStatusCompleted)
	})
}

// Skip moves a scheduled block to skipped.
func (s *Service) Skip(ctx context.Context, blockID, date string) (models.DailyTimeline, error) {
	return s.mutate(ctx, date, func(day *models.DailyTimeline, _ models.Preferences) error {
		return setStatus(day, blockID, models.BlockStatusSkipped)
	})
}

func setStatus(day *models.DailyTimeline, blockID string, status models.BlockStatus) error {
	i, ok := day.FindBlock(blockID)
	if !ok {
		return fmt.Errorf("%w: block %s on %s", apperrors.ErrNotFound, blockID, day.Date)
	}
	b := &day.Blocks[i]
	if !b.Trackable() {
		return fmt.Errorf("%w: %q is a %s block", apperrors.ErrNotTrackable, b.Title, b.Type)
	}
	if b.IsTerminal() {
		return fmt.Errorf("%w: %q is %s", apperrors.ErrTerminalState, b.Title, b.Status)
	}
	b.Status = status
	return nil
}

// Reschedule moves a flexible block to start at newStart, keeping its
// duration and carrying its trailing buffer along. The move is rejected with
// an *errors.ConflictError when it would overlap any other placed block.
func (s *Service) Reschedule(ctx context.Context, blockID, date string, newStart int) (models.DailyTimeline, error) {
	return s.mutate(ctx, date, func(day *models.DailyTimeline, prefs models.Preferences) error {
		i, ok := day.FindBlock(blockID)
		if !ok {
			return fmt.Errorf("%w: block %s on %s", apperrors.ErrNotFound, blockID, day.Date)
		}
		b := day.Blocks[i]
		switch {
		case b.Type == models.BlockFree || b.Type == models.BlockBuffer || b.IsAnchor():
			return fmt.Errorf("%w: %q is fixed", apperrors.ErrNotMovable, b.Title)
		case b.IsTerminal():
			return fmt.Errorf("%w: %q is %s", apperrors.ErrTerminalState, b.Title, b.Status)
		}

		if prefs.ReschedulePolicy == constants.ReschedulePolicyCap {
			if shift := abs(newStart - b.GeneratedStartMin); shift > b.Flexibility {
				return fmt.Errorf("%w: %q may move at most %d minutes from %s", apperrors.ErrNotMovable,
					b.Title, b.Flexibility, utils.FormatClock(b.GeneratedStartMin))
			}
		}

		bufferIdx := -1
		for j := range day.Blocks {
			if day.Blocks[j].Type == models.BlockBuffer && day.Blocks[j].ParentID == b.ID {
				bufferIdx = j
				break
			}
		}
		newEnd := newStart + b.Duration()
		spanEnd := newEnd
		if bufferIdx >= 0 {
			spanEnd += day.Blocks[bufferIdx].Duration()
		}
		if newStart < 0 || spanEnd > constants.MinutesPerDay {
			return fmt.Errorf("%w: %q would leave the day", apperrors.ErrNotMovable, b.Title)
		}

		moved := models.TimeBlock{StartMin: newStart, EndMin: spanEnd}
		for j, other := range day.Blocks {
			if j == i || j == bufferIdx || other.Type == models.BlockFree {
				continue
			}
			if moved.Overlaps(other) {
				return &apperrors.ConflictError{
					BlockID:        b.ID,
					CompetingID:    other.ID,
					CompetingTitle: other.Title,
					StartMin:       newStart,
					EndMin:         newEnd,
				}
			}
		}

		day.Blocks[i].StartMin = newStart
		day.Blocks[i].EndMin = newEnd
		if bufferIdx >= 0 {
			buf := &day.Blocks[bufferIdx]
			length := buf.Duration()
			buf.StartMin = newEnd
			buf.EndMin = newEnd + length
		}
		return nil
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// mutate applies change to a copy of the day containing date, then
// refreshes the derived state, validates it and writes the whole plan
// through to the store. The held plan is replaced only when every step
// succeeds.
func (s *Service) mutate(ctx context.Context, date string, change func(*models.DailyTimeline, models.Preferences) error) (models.DailyTimeline, error) {
	if err := ctx.Err(); err != nil {
		return models.DailyTimeline{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, idx, err := s.planForDate(date)
	if err != nil {
		return models.DailyTimeline{}, err
	}
	if s.regenerating[plan.WeekStart] > 0 {
		return models.DailyTimeline{}, apperrors.ErrRegenerationInProgress
	}
	prefs, err := s.store.GetPreferences()
	if err != nil {
		return models.DailyTimeline{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	models.ApplyDefaultPreferences(&prefs)

	work := plan.Clone()
	day := &work.Days[idx]
	if err := change(day, prefs); err != nil {
		return models.DailyTimeline{}, err
	}

	scheduler.Refresh(day, prefs.MinFreeBlockMin)
	scheduler.RecomputeStats(&work)
	if result := s.validator.ValidateTimeline(*day); result.HasConflicts() {
		logger.Error("Mutation broke timeline invariants", "date", date, "report", result.FormatReport())
		return models.DailyTimeline{}, result.Err()
	}

	if err := s.commit(work); err != nil {
		return models.DailyTimeline{}, err
	}
	return work.Clone().Days[idx], nil
}

// commit persists plan and makes it current. Callers hold s.mu.
func (s *Service) commit(plan models.WeeklyPlan) error {
	if err := s.store.SaveWeeklyPlan(plan); err != nil {
		return fmt.Errorf("failed to save weekly plan: %w", err)
	}
	if err := s.store.MarkSyncPending(plan.WeekStart); err != nil {
		logger.Warn("Failed to queue remote sync", "week_start", plan.WeekStart, "error", err)
	}
	s.current = &plan
	return nil
}

// Regenerate rebuilds the week from scratch, discarding completion state.
// When regenerations of the same week overlap the newest one wins and older
// ones return errors.ErrRegenerationSuperseded. Mutations of that week are
// rejected while it is being regenerated. Other weeks are unaffected.
func (s *Service) Regenerate(ctx context.Context, weekStart string) (models.WeeklyPlan, error) {
	s.mu.Lock()
	s.regenSeq[weekStart]++
	seq := s.regenSeq[weekStart]
	s.regenerating[weekStart]++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.regenerating[weekStart]--; s.regenerating[weekStart] == 0 {
			delete(s.regenerating, weekStart)
		}
		s.mu.Unlock()
	}()

	prefs, err := s.store.GetPreferences()
	if err != nil {
		return models.WeeklyPlan{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	started := time.Now()
	plan, err := s.builder.BuildWeeklyPlan(ctx, weekStart, prefs)
	if err != nil {
		return models.WeeklyPlan{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.regenSeq[weekStart] {
		logger.Info("Discarding superseded regeneration", "week_start", weekStart)
		return models.WeeklyPlan{}, apperrors.ErrRegenerationSuperseded
	}
	if result := s.validator.ValidateWeeklyPlan(plan); result.HasConflicts() {
		logger.Error("Generated plan broke invariants", "week_start", weekStart, "report", result.FormatReport())
		return models.WeeklyPlan{}, result.Err()
	}
	if err := s.commit(plan); err != nil {
		return models.WeeklyPlan{}, err
	}
	logger.Info("Weekly plan regenerated", "week_start", weekStart, "took", time.Since(started))
	return plan.Clone(), nil
}
