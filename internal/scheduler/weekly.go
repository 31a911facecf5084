package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/utils"
)

// CandidateSupplier produces the flexible block requests for one day.
type CandidateSupplier interface {
	Candidates(ctx context.Context, date time.Time, prefs models.Preferences) ([]models.Candidate, error)
}

// CalendarSupplier produces the fixed calendar blocks and all-day events for
// one day. It returns errors.ErrPermissionDenied when calendar access is
// refused.
type CalendarSupplier interface {
	CalendarBlocks(ctx context.Context, date time.Time) ([]models.TimeBlock, []models.AllDayEvent, error)
}

// Suppliers groups the inputs of a week build. Nil suppliers contribute
// nothing.
type Suppliers struct {
	Workouts CandidateSupplier
	Meals    CandidateSupplier
	Calendar CalendarSupplier
}

// Aggregator assembles weekly plans from seven independent day builds.
type Aggregator struct {
	scheduler *Scheduler
	suppliers Suppliers
	now       func() time.Time
}

func NewAggregator(s *Scheduler, suppliers Suppliers) *Aggregator {
	if s == nil {
		s = New()
	}
	return &Aggregator{scheduler: s, suppliers: suppliers, now: time.Now}
}

type dayInput struct {
	req       models.SchedulingRequest
	conflicts []models.Conflict
	failure   *models.Conflict
}

// BuildWeeklyPlan generates the week beginning at weekStart, which must be a
// Sunday. Supplier I/O happens first and honors ctx; the seven days are then
// built in parallel and folded into the weekly stats once all have finished.
// A day that cannot be built is replaced by an empty placeholder carrying a
// conflict, so the week itself never fails for a single day.
func (a *Aggregator) BuildWeeklyPlan(ctx context.Context, weekStart string, prefs models.Preferences) (models.WeeklyPlan, error) {
	start, loc, err := parseWeekStart(weekStart, prefs.Timezone)
	if err != nil {
		return models.WeeklyPlan{}, err
	}

	inputs := make([]dayInput, constants.DaysPerWeek)
	for i := range inputs {
		day := start.AddDate(0, 0, i)
		in, err := a.gather(ctx, day.In(loc), prefs)
		if err != nil {
			return models.WeeklyPlan{}, err
		}
		inputs[i] = in
	}

	plan := models.WeeklyPlan{WeekStart: weekStart}
	var g errgroup.Group
	for i := range inputs {
		i := i
		g.Go(func() error {
			plan.Days[i] = a.buildDay(inputs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.WeeklyPlan{}, err
	}

	RecomputeStats(&plan)
	plan.GeneratedAt = a.now().UTC()
	logger.Info("Weekly plan built", "week_start", weekStart, "productivity", plan.Stats.ProductivityScore)
	return plan, nil
}

// BuildDay generates one day the way BuildWeeklyPlan does, for previews.
func (a *Aggregator) BuildDay(ctx context.Context, date string, prefs models.Preferences) (models.DailyTimeline, error) {
	loc, err := utils.LoadLocation(prefs.Timezone)
	if err != nil {
		return models.DailyTimeline{}, err
	}
	day, err := utils.ParseDateInLocation(date, loc)
	if err != nil {
		return models.DailyTimeline{}, fmt.Errorf("invalid date: %w", err)
	}
	in, err := a.gather(ctx, day, prefs)
	if err != nil {
		return models.DailyTimeline{}, err
	}
	return a.buildDay(in), nil
}

func parseWeekStart(weekStart, timezone string) (time.Time, *time.Location, error) {
	loc, err := utils.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, nil, err
	}
	start, err := utils.ParseDateInLocation(weekStart, loc)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid week start: %w", err)
	}
	if start.Weekday() != time.Sunday {
		return time.Time{}, nil, fmt.Errorf("week start %s is a %s, not a Sunday", weekStart, start.Weekday())
	}
	return start, loc, nil
}

// gather collects one day's supplier output. Only context cancellation is
// fatal; a refused calendar yields an empty calendar and a note, and any
// other supplier failure marks the day as failed.
func (a *Aggregator) gather(ctx context.Context, day time.Time, prefs models.Preferences) (dayInput, error) {
	date := day.Format(constants.DateFormat)
	in := dayInput{req: models.SchedulingRequest{Date: date, Preferences: prefs}}

	if err := ctx.Err(); err != nil {
		return in, err
	}

	if a.suppliers.Calendar != nil {
		blocks, allDay, err := a.suppliers.Calendar.CalendarBlocks(ctx, day)
		switch {
		case err == nil:
			in.req.Calendar = blocks
			in.req.AllDay = allDay
		case ctx.Err() != nil:
			return in, ctx.Err()
		default:
			if errors.Is(err, apperrors.ErrPermissionDenied) {
				logger.Info("Calendar access denied, planning without it", "date", date)
			} else {
				logger.Warn("Calendar unavailable, planning without it", "date", date, "error", err)
			}
			in.conflicts = append(in.conflicts, models.Conflict{
				Type:        models.ConflictCalendarUnavailable,
				Description: "calendar could not be read: " + err.Error(),
			})
		}
	}

	for _, s := range []struct {
		name     string
		supplier CandidateSupplier
		dst      *[]models.Candidate
	}{
		{"workouts", a.suppliers.Workouts, &in.req.Workouts},
		{"meals", a.suppliers.Meals, &in.req.Meals},
	} {
		if s.supplier == nil {
			continue
		}
		candidates, err := s.supplier.Candidates(ctx, day, prefs)
		if err != nil {
			if ctx.Err() != nil {
				return in, ctx.Err()
			}
			logger.Warn("Supplier failed", "supplier", s.name, "date", date, "error", err)
			in.failure = &models.Conflict{
				Type:        models.ConflictSupplierFailed,
				Description: fmt.Sprintf("%s supplier failed: %v", s.name, err),
			}
			return in, nil
		}
		*s.dst = candidates
	}
	return in, nil
}

func (a *Aggregator) buildDay(in dayInput) models.DailyTimeline {
	if in.failure != nil {
		return placeholderDay(in.req.Date, append(in.conflicts, *in.failure))
	}

	result, err := a.scheduler.Generate(in.req)
	if err != nil {
		logger.Warn("Day could not be generated", "date", in.req.Date, "error", err)
		return placeholderDay(in.req.Date, append(in.conflicts, models.Conflict{
			Type:        models.ConflictInvalidBlock,
			Description: err.Error(),
		}))
	}

	day := result.Timeline
	if len(in.conflicts) > 0 {
		day.Conflicts = append(append([]models.Conflict(nil), in.conflicts...), day.Conflicts...)
	}
	return day
}

// placeholderDay is an empty day: no blocks and the whole day free.
func placeholderDay(date string, conflicts []models.Conflict) models.DailyTimeline {
	return models.DailyTimeline{
		Date:             date,
		Blocks:           []models.TimeBlock{},
		TotalFreeMinutes: constants.MinutesPerDay,
		Conflicts:        conflicts,
	}
}

// RecomputeStats folds the seven days into the plan's weekly stats.
func RecomputeStats(plan *models.WeeklyPlan) {
	var stats models.WeeklyStats
	freeSum, rateSum := 0, 0

	for _, day := range plan.Days {
		freeSum += day.TotalFreeMinutes
		rateSum += day.CompletionRate
		for _, b := range day.Blocks {
			completed := b.Status == models.BlockStatusCompleted
			switch {
			case b.Type == models.BlockWorkout:
				stats.WorkoutsScheduled++
				if completed {
					stats.WorkoutsCompleted++
				}
			case b.IsMeal():
				stats.MealsScheduled++
				if completed {
					stats.MealsCompleted++
				}
			}
		}
	}

	stats.AvgFreeMinutes = float64(freeSum) / constants.DaysPerWeek
	stats.ProductivityScore = int(math.Round(float64(rateSum) / constants.DaysPerWeek))
	plan.Stats = stats
}
