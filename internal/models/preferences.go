package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return utils.ValidateClock(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validator returns the shared validator with the "clock" (HH:MM) tag registered.
func Validator() *validator.Validate {
	return validate
}

// TimeWindow is an allowed time-of-day range in HH:MM format, end exclusive.
type TimeWindow struct {
	Start string `json:"start" yaml:"start" validate:"omitempty,clock"`
	End   string `json:"end" yaml:"end" validate:"omitempty,clock"`
}

func (w TimeWindow) IsZero() bool {
	return w.Start == "" && w.End == ""
}

// Minutes converts the window to minutes from midnight. A zero window covers
// the whole day.
func (w TimeWindow) Minutes() (int, int, error) {
	if w.IsZero() {
		return 0, constants.MinutesPerDay, nil
	}
	start, err := utils.ParseClock(w.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := utils.ParseClock(w.End)
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("window %s-%s must end after it starts", w.Start, w.End)
	}
	return start, end, nil
}

// Preferences are the user's scheduling preferences.
type Preferences struct {
	WakeTime         string `json:"wake_time" yaml:"wake_time" validate:"required,clock"`
	SleepDurationMin int    `json:"sleep_duration_min" yaml:"sleep_duration_min" validate:"min=0,max=1440"`

	MealsPerDay        int          `json:"meals_per_day" yaml:"meals_per_day" validate:"min=0,max=8"`
	MealWindows        []TimeWindow `json:"meal_windows,omitempty" yaml:"meal_windows,omitempty" validate:"dive"`
	MealDurationMin    int          `json:"meal_duration_min" yaml:"meal_duration_min" validate:"min=0,max=240"`
	MealPriority       int          `json:"meal_priority" yaml:"meal_priority" validate:"min=0"`
	MealFlexibilityMin int          `json:"meal_flexibility_min" yaml:"meal_flexibility_min" validate:"min=0"`

	MealPrepDays        []time.Weekday `json:"meal_prep_days,omitempty" yaml:"meal_prep_days,omitempty" validate:"dive,min=0,max=6"`
	MealPrepDurationMin int            `json:"meal_prep_duration_min" yaml:"meal_prep_duration_min" validate:"min=0,max=480"`
	MealPrepWindow      TimeWindow     `json:"meal_prep_window" yaml:"meal_prep_window"`

	WorkoutsPerWeek       int            `json:"workouts_per_week" yaml:"workouts_per_week" validate:"min=0,max=14"`
	WorkoutDays           []time.Weekday `json:"workout_days,omitempty" yaml:"workout_days,omitempty" validate:"dive,min=0,max=6"`
	WorkoutDurationMin    int            `json:"workout_duration_min" yaml:"workout_duration_min" validate:"min=0,max=480"`
	WorkoutWindow         TimeWindow     `json:"workout_window" yaml:"workout_window"`
	WorkoutPriority       int            `json:"workout_priority" yaml:"workout_priority" validate:"min=0"`
	WorkoutFlexibilityMin int            `json:"workout_flexibility_min" yaml:"workout_flexibility_min" validate:"min=0"`
	BufferAfterWorkoutMin int            `json:"buffer_after_workout_min" yaml:"buffer_after_workout_min" validate:"min=0,max=120"`

	MinFreeBlockMin  int    `json:"min_free_block_min" yaml:"min_free_block_min" validate:"min=0,max=240"`
	ReschedulePolicy string `json:"reschedule_policy" yaml:"reschedule_policy" validate:"omitempty,oneof=gate cap"`
	Timezone         string `json:"timezone" yaml:"timezone"`
}

// Validate checks field constraints and cross-field rules.
func (p Preferences) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	for i, w := range p.MealWindows {
		if _, _, err := w.Minutes(); err != nil {
			return fmt.Errorf("invalid meal window %d: %w", i+1, err)
		}
	}
	if _, _, err := p.WorkoutWindow.Minutes(); err != nil {
		return fmt.Errorf("invalid workout window: %w", err)
	}
	if _, _, err := p.MealPrepWindow.Minutes(); err != nil {
		return fmt.Errorf("invalid meal prep window: %w", err)
	}
	if len(p.WorkoutDays) > 0 && len(p.WorkoutDays) < p.WorkoutsPerWeek {
		return fmt.Errorf("workouts_per_week (%d) exceeds the number of workout days (%d)", p.WorkoutsPerWeek, len(p.WorkoutDays))
	}
	if !utils.ValidateTimezone(p.Timezone) {
		return fmt.Errorf("invalid timezone %q", p.Timezone)
	}
	return nil
}

// DefaultPreferences returns the preferences a fresh install starts with:
// three meals a day and no workouts until configured.
func DefaultPreferences() Preferences {
	p := Preferences{MealsPerDay: constants.DefaultMealsPerDay}
	ApplyDefaultPreferences(&p)
	return p
}

// ApplyDefaultPreferences fills zero-valued tunables. Counts (meals per day,
// workouts per week) are left alone since zero means "not configured".
// Priorities start at 1, so a zero priority also receives the default.
func ApplyDefaultPreferences(p *Preferences) {
	if p.WakeTime == "" {
		p.WakeTime = constants.DefaultWakeTime
	}
	if p.SleepDurationMin == 0 {
		p.SleepDurationMin = constants.DefaultSleepDurationMin
	}
	if p.MealDurationMin == 0 {
		p.MealDurationMin = constants.DefaultMealDurationMin
	}
	if p.MealPriority == 0 {
		p.MealPriority = constants.DefaultMealPriority
	}
	if p.MealFlexibilityMin == 0 {
		p.MealFlexibilityMin = constants.DefaultMealFlexibilityMin
	}
	if p.WorkoutDurationMin == 0 {
		p.WorkoutDurationMin = constants.DefaultWorkoutDurationMin
	}
	if p.WorkoutPriority == 0 {
		p.WorkoutPriority = constants.DefaultWorkoutPriority
	}
	if p.WorkoutFlexibilityMin == 0 {
		p.WorkoutFlexibilityMin = constants.DefaultWorkoutFlexibility
	}
	if p.MinFreeBlockMin == 0 {
		p.MinFreeBlockMin = constants.DefaultMinFreeBlockMin
	}
	if p.ReschedulePolicy == "" {
		p.ReschedulePolicy = constants.ReschedulePolicyGate
	}
	if p.Timezone == "" {
		p.Timezone = constants.DefaultTimezone
	}
}
