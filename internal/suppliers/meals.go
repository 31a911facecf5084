package suppliers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/models"
)

// MealSupplier produces the day's meals and, on meal-prep days, a meal-prep
// block.
type MealSupplier struct{}

func NewMealSupplier() *MealSupplier {
	return &MealSupplier{}
}

func (s *MealSupplier) Candidates(_ context.Context, date time.Time, prefs models.Preferences) ([]models.Candidate, error) {
	models.ApplyDefaultPreferences(&prefs)
	dateStr := date.Format(constants.DateFormat)

	var candidates []models.Candidate
	for i := 0; i < prefs.MealsPerDay; i++ {
		window := mealWindow(prefs, i)
		start, end, err := window.Minutes()
		if err != nil {
			return nil, fmt.Errorf("invalid meal window %d: %w", i+1, err)
		}
		candidates = append(candidates, models.Candidate{
			ID:          models.BlockID(dateStr, string(models.BlockMealEating), strconv.Itoa(i)),
			Type:        models.BlockMealEating,
			Title:       mealTitle(i),
			DurationMin: prefs.MealDurationMin,
			Priority:    prefs.MealPriority,
			Flexibility: prefs.MealFlexibilityMin,
			WindowStart: start,
			WindowEnd:   end,
		})
	}

	if prefs.MealPrepDurationMin > 0 && isPrepDay(date.Weekday(), prefs.MealPrepDays) {
		start, end, err := prefs.MealPrepWindow.Minutes()
		if err != nil {
			return nil, fmt.Errorf("invalid meal prep window: %w", err)
		}
		candidates = append(candidates, models.Candidate{
			ID:          models.BlockID(dateStr, string(models.BlockMealPrep)),
			Type:        models.BlockMealPrep,
			Title:       "Meal prep",
			DurationMin: prefs.MealPrepDurationMin,
			Priority:    constants.DefaultMealPrepPriority,
			Flexibility: prefs.MealFlexibilityMin,
			WindowStart: start,
			WindowEnd:   end,
		})
	}
	return candidates, nil
}

// mealWindow returns the configured window for meal i, falling back to the
// default breakfast/lunch/dinner windows and then to the whole day.
func mealWindow(prefs models.Preferences, i int) models.TimeWindow {
	if i < len(prefs.MealWindows) {
		return prefs.MealWindows[i]
	}
	if len(prefs.MealWindows) == 0 && i < len(constants.DefaultMealWindows) {
		w := constants.DefaultMealWindows[i]
		return models.TimeWindow{Start: w[0], End: w[1]}
	}
	return models.TimeWindow{}
}

func mealTitle(i int) string {
	if i < len(constants.DefaultMealTitles) {
		return constants.DefaultMealTitles[i]
	}
	return fmt.Sprintf("Meal %d", i+1)
}

func isPrepDay(day time.Weekday, prepDays []time.Weekday) bool {
	for _, d := range prepDays {
		if d == day {
			return true
		}
	}
	return false
}
