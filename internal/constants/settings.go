package constants

const (
	SettingPreferences = "preferences"

	// Default preference values
	DefaultWakeTime           = "06:00"
	DefaultSleepDurationMin   = 480
	DefaultMealsPerDay        = 3
	DefaultMealDurationMin    = 30
	DefaultMealPriority       = 2
	DefaultMealFlexibilityMin = 30
	DefaultWorkoutDurationMin = 60
	DefaultWorkoutPriority    = 1
	DefaultWorkoutFlexibility = 60
	DefaultMealPrepPriority   = 3
	DefaultMinFreeBlockMin    = 15
	DefaultTimezone           = "Local" // Use system local timezone by default

	// Reschedule policies
	ReschedulePolicyGate = "gate"
	ReschedulePolicyCap  = "cap"
)

// DefaultMealWindows are used when fewer windows than meals are configured.
var DefaultMealWindows = [][2]string{
	{"07:00", "09:00"},
	{"12:00", "14:00"},
	{"18:00", "20:00"},
}

// DefaultMealTitles name the first meals of the day.
var DefaultMealTitles = []string{"Breakfast", "Lunch", "Dinner"}
