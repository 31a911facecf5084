package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/scheduler"
	"github.com/julianstephens/rhythm/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictInvalidDate      ConflictType = "invalid_date"
	ConflictOutOfGrid        ConflictType = "out_of_grid"
	ConflictOverlappingBlock ConflictType = "overlapping_blocks"
	ConflictDuplicateID      ConflictType = "duplicate_id"
	ConflictTotalsMismatch   ConflictType = "totals_mismatch"
	ConflictCompletionRate   ConflictType = "completion_rate_mismatch"
	ConflictInvalidStatus    ConflictType = "invalid_status"
	ConflictDetachedBuffer   ConflictType = "detached_buffer"
	ConflictWeekShape        ConflictType = "week_shape"
	ConflictStatsMismatch    ConflictType = "stats_mismatch"
)

// Conflict represents a broken invariant in a timeline or plan
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	BlockIDs    []string // IDs of blocks involved
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Err returns the first conflict as an *errors.InvariantViolation, or nil.
func (vr *ValidationResult) Err() error {
	if !vr.HasConflicts() {
		return nil
	}
	first := vr.Conflicts[0]
	return &apperrors.InvariantViolation{Date: first.Date, Detail: first.Description}
}

func (vr *ValidationResult) add(typ ConflictType, date string, ids []string, format string, args ...interface{}) {
	vr.Conflicts = append(vr.Conflicts, Conflict{
		Type:        typ,
		Description: fmt.Sprintf("%s: ", date) + fmt.Sprintf(format, args...),
		Date:        date,
		BlockIDs:    ids,
	})
}

// Validator checks timelines and weekly plans against the scheduling
// invariants.
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateTimeline checks a single day.
func (v *Validator) ValidateTimeline(day models.DailyTimeline) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	v.checkTimeline(&result, day)
	return result
}

func (v *Validator) checkTimeline(result *ValidationResult, day models.DailyTimeline) {
	date := day.Date
	if _, err := utils.ParseDate(date); err != nil {
		result.add(ConflictInvalidDate, date, nil, "invalid date")
		return
	}

	ids := make(map[string]models.TimeBlock, len(day.Blocks))
	for _, b := range day.Blocks {
		if _, dup := ids[b.ID]; dup {
			result.add(ConflictDuplicateID, date, []string{b.ID}, "block id %s appears more than once", b.ID)
		}
		ids[b.ID] = b

		if b.StartMin < 0 || b.EndMin > constants.MinutesPerDay || b.StartMin >= b.EndMin {
			result.add(ConflictOutOfGrid, date, []string{b.ID}, "%q has invalid range %d-%d", b.Title, b.StartMin, b.EndMin)
		}
		switch b.Status {
		case models.BlockStatusScheduled, models.BlockStatusCompleted, models.BlockStatusSkipped:
		default:
			result.add(ConflictInvalidStatus, date, []string{b.ID}, "%q has unknown status %q", b.Title, b.Status)
		}
		if b.IsTerminal() && !b.Trackable() {
			result.add(ConflictInvalidStatus, date, []string{b.ID}, "%q is %s but cannot be tracked", b.Title, b.Status)
		}
	}

	// O(n²) complexity - acceptable for a single day's blocks
	for i := 0; i < len(day.Blocks); i++ {
		for j := i + 1; j < len(day.Blocks); j++ {
			a, b := day.Blocks[i], day.Blocks[j]
			if !a.Overlaps(b) {
				continue
			}
			// Overlapping calendar events are reported at generation time
			// and kept as-is.
			if a.Type == models.BlockCalendarEvent && b.Type == models.BlockCalendarEvent {
				continue
			}
			result.add(ConflictOverlappingBlock, date, []string{a.ID, b.ID},
				"%s-%s %q overlaps %q", utils.FormatClock(a.StartMin), utils.FormatClock(a.EndMin), a.Title, b.Title)
		}
	}

	for _, b := range day.Blocks {
		if b.Type != models.BlockBuffer || b.ParentID == "" {
			continue
		}
		parent, ok := ids[b.ParentID]
		if !ok || parent.EndMin != b.StartMin {
			result.add(ConflictDetachedBuffer, date, []string{b.ID, b.ParentID}, "buffer %q is not attached to its block", b.Title)
		}
	}

	occupied := scheduler.OccupiedMinutes(day.Blocks)
	if day.TotalScheduledMinutes != occupied || day.TotalFreeMinutes != constants.MinutesPerDay-occupied {
		result.add(ConflictTotalsMismatch, date, nil, "totals %d scheduled / %d free do not match %d occupied minutes",
			day.TotalScheduledMinutes, day.TotalFreeMinutes, occupied)
	}
	if rate := scheduler.CompletionRate(day.Blocks); rate != day.CompletionRate {
		result.add(ConflictCompletionRate, date, nil, "completion rate is %d, expected %d", day.CompletionRate, rate)
	}
}

// ValidateWeeklyPlan checks the week's shape, every day and the stats.
func (v *Validator) ValidateWeeklyPlan(plan models.WeeklyPlan) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	start, err := utils.ParseDate(plan.WeekStart)
	if err != nil {
		result.add(ConflictInvalidDate, plan.WeekStart, nil, "invalid week start")
		return result
	}
	if start.Weekday() != time.Sunday {
		result.add(ConflictWeekShape, plan.WeekStart, nil, "week starts on a %s", start.Weekday())
	}

	for i, day := range plan.Days {
		want := start.AddDate(0, 0, i).Format(constants.DateFormat)
		if day.Date != want {
			result.add(ConflictWeekShape, plan.WeekStart, nil, "day %d is %q, expected %s", i, day.Date, want)
			continue
		}
		v.checkTimeline(&result, day)
	}

	expected := plan
	scheduler.RecomputeStats(&expected)
	if expected.Stats != plan.Stats {
		result.add(ConflictStatsMismatch, plan.WeekStart, nil, "stats %+v do not match the days (%+v)", plan.Stats, expected.Stats)
	}
	return result
}
