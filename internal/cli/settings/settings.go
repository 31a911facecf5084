package settings

import (
	"fmt"
	"os"

	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/config"
)

// SettingsCmd shows or updates individual preferences.
type SettingsCmd struct {
	List bool `help:"List current preferences as YAML."`

	WakeTime         *string `help:"Wake time (HH:MM)."`
	SleepDurationMin *int    `help:"Sleep duration in minutes."`
	MealsPerDay      *int    `help:"Meals per day."`
	WorkoutsPerWeek  *int    `help:"Workouts per week."`
	WorkoutDays      *string `help:"Comma-separated workout days (e.g. mon,wed,fri)."`
	WorkoutDuration  *int    `help:"Workout duration in minutes." name:"workout-duration"`
	BufferAfter      *int    `help:"Buffer after each workout in minutes." name:"buffer-after-workout"`
	MealPrepDays     *string `help:"Comma-separated meal prep days."`
	MinFreeBlock     *int    `help:"Shortest gap shown as free time, in minutes." name:"min-free-block"`
	ReschedulePolicy *string `help:"How far blocks may move: gate or cap." enum:"gate,cap" placeholder:"gate|cap"`
	Timezone         *string `help:"IANA timezone used for 'today' and week boundaries."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	prefs, err := ctx.Preferences()
	if err != nil {
		return err
	}

	if c.List {
		return config.WritePreferences(ctx.Stdout(), prefs)
	}

	updated := false
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
			updated = true
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
			updated = true
		}
	}

	set(&prefs.WakeTime, c.WakeTime)
	setInt(&prefs.SleepDurationMin, c.SleepDurationMin)
	setInt(&prefs.MealsPerDay, c.MealsPerDay)
	setInt(&prefs.WorkoutsPerWeek, c.WorkoutsPerWeek)
	setInt(&prefs.WorkoutDurationMin, c.WorkoutDuration)
	setInt(&prefs.BufferAfterWorkoutMin, c.BufferAfter)
	setInt(&prefs.MinFreeBlockMin, c.MinFreeBlock)
	set(&prefs.ReschedulePolicy, c.ReschedulePolicy)
	set(&prefs.Timezone, c.Timezone)
	if c.WorkoutDays != nil {
		days, err := cli.ParseWeekdays(*c.WorkoutDays)
		if err != nil {
			return err
		}
		prefs.WorkoutDays = days
		updated = true
	}
	if c.MealPrepDays != nil {
		days, err := cli.ParseWeekdays(*c.MealPrepDays)
		if err != nil {
			return err
		}
		prefs.MealPrepDays = days
		updated = true
	}

	if !updated {
		ctx.Println("No changes specified. Use --list to view preferences or flags to update them.")
		return nil
	}
	if err := prefs.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.SavePreferences(prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	ctx.Println("Preferences updated. Run 'rhythm plan' to apply them to a week.")
	return nil
}

type PrefsExportCmd struct {
	Path string `arg:"" optional:"" help:"File to write. Defaults to stdout." type:"path"`
}

func (c *PrefsExportCmd) Run(ctx *cli.Context) error {
	prefs, err := ctx.Preferences()
	if err != nil {
		return err
	}
	if c.Path == "" {
		return config.WritePreferences(ctx.Stdout(), prefs)
	}

	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.Path, err)
	}
	if err := config.WritePreferences(f, prefs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ctx.Printf("Preferences written to %s\n", c.Path)
	return nil
}

type PrefsImportCmd struct {
	Path string `arg:"" help:"YAML preferences file." type:"existingfile"`
}

func (c *PrefsImportCmd) Run(ctx *cli.Context) error {
	prefs, err := config.ImportPreferences(c.Path)
	if err != nil {
		return err
	}
	if err := ctx.Store.SavePreferences(prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	ctx.Printf("Imported preferences from %s\n", c.Path)
	return nil
}
