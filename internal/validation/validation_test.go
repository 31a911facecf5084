package validation

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/scheduler"
)

func generatedDay(t *testing.T) models.DailyTimeline {
	t.Helper()
	workout := models.Candidate{
		ID: "workout", Type: models.BlockWorkout, Title: "Workout",
		DurationMin: 60, Priority: 1, Flexibility: 60, WindowStart: 360, WindowEnd: 600, BufferMin: 10,
	}
	result, err := scheduler.New().GenerateTimeline("2025-06-02", models.DefaultPreferences(), []models.Candidate{workout}, nil, nil)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	return result.Timeline
}

func hasConflict(result ValidationResult, typ ConflictType) bool {
	for _, c := range result.Conflicts {
		if c.Type == typ {
			return true
		}
	}
	return false
}

func TestValidateTimeline_Generated(t *testing.T) {
	result := New().ValidateTimeline(generatedDay(t))
	if result.HasConflicts() {
		t.Errorf("Expected a generated day to be valid:\n%s", result.FormatReport())
	}
	if result.Err() != nil {
		t.Errorf("Expected nil error, got %v", result.Err())
	}
}

func TestValidateTimeline_Broken(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(day *models.DailyTimeline)
		want   ConflictType
	}{
		{
			name: "overlap",
			mutate: func(day *models.DailyTimeline) {
				i, _ := day.FindBlock("workout")
				day.Blocks[i].StartMin = 0
			},
			want: ConflictOverlappingBlock,
		},
		{
			name: "out of grid",
			mutate: func(day *models.DailyTimeline) {
				day.Blocks = append(day.Blocks, models.TimeBlock{ID: "late", Type: models.BlockCalendarEvent, StartMin: 1430, EndMin: 1500, Status: models.BlockStatusScheduled})
			},
			want: ConflictOutOfGrid,
		},
		{
			name:   "totals",
			mutate: func(day *models.DailyTimeline) { day.TotalFreeMinutes++ },
			want:   ConflictTotalsMismatch,
		},
		{
			name: "completion rate",
			mutate: func(day *models.DailyTimeline) {
				i, _ := day.FindBlock("workout")
				day.Blocks[i].Status = models.BlockStatusCompleted
			},
			want: ConflictCompletionRate,
		},
		{
			name: "terminal anchor",
			mutate: func(day *models.DailyTimeline) {
				day.Blocks[0].Status = models.BlockStatusSkipped
			},
			want: ConflictInvalidStatus,
		},
		{
			name: "detached buffer",
			mutate: func(day *models.DailyTimeline) {
				for i := range day.Blocks {
					if day.Blocks[i].Type == models.BlockBuffer {
						day.Blocks[i].StartMin += 5
						day.Blocks[i].EndMin += 5
					}
				}
			},
			want: ConflictDetachedBuffer,
		},
		{
			name:   "bad date",
			mutate: func(day *models.DailyTimeline) { day.Date = "June 2" },
			want:   ConflictInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day := generatedDay(t)
			tt.mutate(&day)
			result := New().ValidateTimeline(day)
			if !hasConflict(result, tt.want) {
				t.Errorf("Expected %s conflict, got:\n%s", tt.want, result.FormatReport())
			}
			if !apperrors.IsInvariantViolation(result.Err()) {
				t.Errorf("Expected Err() to be an InvariantViolation")
			}
		})
	}
}

func TestValidateWeeklyPlan(t *testing.T) {
	agg := scheduler.NewAggregator(scheduler.New(), scheduler.Suppliers{})
	plan, err := agg.BuildWeeklyPlan(context.Background(), "2025-06-01", models.DefaultPreferences())
	if err != nil {
		t.Fatalf("BuildWeeklyPlan failed: %v", err)
	}

	v := New()
	if result := v.ValidateWeeklyPlan(plan); result.HasConflicts() {
		t.Fatalf("Expected a built plan to be valid:\n%s", result.FormatReport())
	}

	stale := plan.Clone()
	stale.Stats.WorkoutsCompleted = 3
	if result := v.ValidateWeeklyPlan(stale); !hasConflict(result, ConflictStatsMismatch) {
		t.Errorf("Expected stats mismatch")
	}

	shifted := plan.Clone()
	shifted.Days[2].Date = "2025-06-10"
	if result := v.ValidateWeeklyPlan(shifted); !hasConflict(result, ConflictWeekShape) {
		t.Errorf("Expected week shape conflict")
	}

	monday := plan.Clone()
	monday.WeekStart = "2025-06-02"
	result := v.ValidateWeeklyPlan(monday)
	if !hasConflict(result, ConflictWeekShape) {
		t.Errorf("Expected a non-Sunday week to be rejected")
	}
	if !strings.Contains(result.FormatReport(), "Monday") {
		t.Errorf("Expected report to name the weekday:\n%s", result.FormatReport())
	}
}

func TestFormatReport_Empty(t *testing.T) {
	var result ValidationResult
	if got := result.FormatReport(); got != "No conflicts detected." {
		t.Errorf("Unexpected report: %q", got)
	}
}
