package constants

const (
	// History analysis thresholds:
	// - RepeatedSkipThreshold is the number of skips of the same kind of block within
	//   one week that triggers a suggestion.
	// - LowCompletionRate marks days whose completion rate warrants a note.
	// - WorkoutDurationReductionFactor scales the suggested shorter workout.
	RepeatedSkipThreshold          = 3
	LowCompletionRate              = 50
	WorkoutDurationReductionFactor = 0.75
	MinWorkoutDurationMin          = 15 // Minimum suggested workout duration in minutes
)

func init() {
	if WorkoutDurationReductionFactor <= 0 || WorkoutDurationReductionFactor >= 1 {
		panic("WorkoutDurationReductionFactor must be between 0 and 1")
	}
}
