package suppliers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/models"
)

// WorkoutSupplier turns the weekly workout preferences into per-day
// workout candidates.
type WorkoutSupplier struct{}

func NewWorkoutSupplier() *WorkoutSupplier {
	return &WorkoutSupplier{}
}

func (s *WorkoutSupplier) Candidates(_ context.Context, date time.Time, prefs models.Preferences) ([]models.Candidate, error) {
	models.ApplyDefaultPreferences(&prefs)

	count := WorkoutsOn(date.Weekday(), prefs)
	if count == 0 {
		return nil, nil
	}

	start, end, err := prefs.WorkoutWindow.Minutes()
	if err != nil {
		return nil, fmt.Errorf("invalid workout window: %w", err)
	}

	dateStr := date.Format(constants.DateFormat)
	candidates := make([]models.Candidate, 0, count)
	for i := 0; i < count; i++ {
		title := "Workout"
		if count > 1 {
			title = fmt.Sprintf("Workout %d", i+1)
		}
		candidates = append(candidates, models.Candidate{
			ID:          models.BlockID(dateStr, string(models.BlockWorkout), strconv.Itoa(i)),
			Type:        models.BlockWorkout,
			Title:       title,
			DurationMin: prefs.WorkoutDurationMin,
			Priority:    prefs.WorkoutPriority,
			Flexibility: prefs.WorkoutFlexibilityMin,
			WindowStart: start,
			WindowEnd:   end,
			BufferMin:   prefs.BufferAfterWorkoutMin,
		})
	}
	return candidates, nil
}

// WorkoutsOn returns how many workouts fall on the weekday. With explicit
// workout days the first WorkoutsPerWeek of them (Sunday first) get one
// each; otherwise workouts are spread evenly across the week.
func WorkoutsOn(day time.Weekday, prefs models.Preferences) int {
	n := prefs.WorkoutsPerWeek
	if n <= 0 {
		return 0
	}

	if len(prefs.WorkoutDays) > 0 {
		days := append([]time.Weekday(nil), prefs.WorkoutDays...)
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		chosen := 0
		for i, d := range days {
			if i > 0 && d == days[i-1] {
				continue
			}
			if chosen == n {
				break
			}
			chosen++
			if d == day {
				return 1
			}
		}
		return 0
	}

	// Whole rounds first, then the remainder spread across the week.
	count := n / constants.DaysPerWeek
	extra := n % constants.DaysPerWeek
	for i := 0; i < extra; i++ {
		if time.Weekday(i*constants.DaysPerWeek/extra) == day {
			count++
		}
	}
	return count
}
