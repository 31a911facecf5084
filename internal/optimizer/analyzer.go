package optimizer

import (
	"fmt"
	"sort"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/utils"
)

// SuggestionType names the kind of change a suggestion proposes.
type SuggestionType string

const (
	SuggestionReduceDuration SuggestionType = "reduce_duration"
	SuggestionShiftWindow    SuggestionType = "shift_window"
	SuggestionReconsider     SuggestionType = "reconsider_block"
	SuggestionLowCompletion  SuggestionType = "low_completion_day"
)

// Suggestion is a locally derived observation about the week.
type Suggestion struct {
	Type           SuggestionType   `json:"type"`
	Title          string           `json:"title"`
	BlockType      models.BlockType `json:"block_type,omitempty"`
	Date           string           `json:"date,omitempty"`
	Reason         string           `json:"reason"`
	CurrentValue   interface{}      `json:"current_value,omitempty"`
	SuggestedValue interface{}      `json:"suggested_value,omitempty"`
}

// HistoryAnalyzer looks for skip and completion patterns in a week.
type HistoryAnalyzer struct {
	skipThreshold int
	lowRate       int
}

func NewHistoryAnalyzer() *HistoryAnalyzer {
	return &HistoryAnalyzer{
		skipThreshold: constants.RepeatedSkipThreshold,
		lowRate:       constants.LowCompletionRate,
	}
}

type blockKey struct {
	typ   models.BlockType
	title string
}

type outcomes struct {
	skipped, completed       int
	skippedStart, doneStart  int
	totalDuration, scheduled int
}

// Analyze returns suggestions ordered by block title, then per-day notes in
// date order.
func (a *HistoryAnalyzer) Analyze(plan models.WeeklyPlan) []Suggestion {
	byBlock := map[blockKey]*outcomes{}
	var dayNotes []Suggestion

	for _, day := range plan.Days {
		trackable := 0
		for _, b := range day.Blocks {
			if !b.Trackable() {
				continue
			}
			trackable++
			k := blockKey{typ: b.Type, title: b.Title}
			o := byBlock[k]
			if o == nil {
				o = &outcomes{}
				byBlock[k] = o
			}
			o.scheduled++
			o.totalDuration += b.Duration()
			switch b.Status {
			case models.BlockStatusSkipped:
				o.skipped++
				o.skippedStart += b.StartMin
			case models.BlockStatusCompleted:
				o.completed++
				o.doneStart += b.StartMin
			}
		}
		if trackable > 0 && day.CompletionRate < a.lowRate {
			dayNotes = append(dayNotes, Suggestion{
				Type:         SuggestionLowCompletion,
				Title:        day.Date,
				Date:         day.Date,
				Reason:       fmt.Sprintf("Only %d%% of planned blocks were completed", day.CompletionRate),
				CurrentValue: day.CompletionRate,
			})
		}
	}

	keys := make([]blockKey, 0, len(byBlock))
	for k := range byBlock {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].title != keys[j].title {
			return keys[i].title < keys[j].title
		}
		return keys[i].typ < keys[j].typ
	})

	var suggestions []Suggestion
	for _, k := range keys {
		suggestions = append(suggestions, a.analyzeBlock(k, byBlock[k])...)
	}
	return append(suggestions, dayNotes...)
}

func (a *HistoryAnalyzer) analyzeBlock(k blockKey, o *outcomes) []Suggestion {
	if o.skipped < a.skipThreshold {
		return nil
	}
	reason := fmt.Sprintf("Skipped %d of %d times this week", o.skipped, o.scheduled)

	var out []Suggestion
	if k.typ == models.BlockWorkout {
		avg := o.totalDuration / o.scheduled
		suggested := int(float64(avg) * constants.WorkoutDurationReductionFactor)
		if suggested < constants.MinWorkoutDurationMin {
			suggested = constants.MinWorkoutDurationMin
		}
		if suggested < avg {
			out = append(out, Suggestion{
				Type:           SuggestionReduceDuration,
				Title:          k.title,
				BlockType:      k.typ,
				Reason:         reason,
				CurrentValue:   map[string]interface{}{"duration_min": avg},
				SuggestedValue: map[string]interface{}{"duration_min": suggested},
			})
		}
	}

	// Completed occurrences at a different time of day hint at a better window.
	if o.completed > 0 {
		skippedAt := o.skippedStart / o.skipped
		doneAt := o.doneStart / o.completed
		if diff := doneAt - skippedAt; diff >= 60 || diff <= -60 {
			out = append(out, Suggestion{
				Type:           SuggestionShiftWindow,
				Title:          k.title,
				BlockType:      k.typ,
				Reason:         fmt.Sprintf("%s; completed occurrences started around %s", reason, utils.FormatClock(doneAt)),
				CurrentValue:   map[string]interface{}{"typical_start": utils.FormatClock(skippedAt)},
				SuggestedValue: map[string]interface{}{"typical_start": utils.FormatClock(doneAt)},
			})
			return out
		}
	}

	if len(out) == 0 {
		out = append(out, Suggestion{
			Type:      SuggestionReconsider,
			Title:     k.title,
			BlockType: k.typ,
			Reason:    reason,
		})
	}
	return out
}
