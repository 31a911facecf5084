package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/rhythm/internal/constants"
)

type ConflictType string

const (
	ConflictOverlappingAnchors  ConflictType = "overlapping_anchors"
	ConflictSleepClipped        ConflictType = "sleep_clipped"
	ConflictUnplaceable         ConflictType = "unplaceable"
	ConflictOvercommitted       ConflictType = "overcommitted"
	ConflictInvalidBlock        ConflictType = "invalid_block"
	ConflictCalendarUnavailable ConflictType = "calendar_unavailable"
	ConflictSupplierFailed      ConflictType = "supplier_failed"
)

// Conflict is a named placement failure referencing the request involved.
type Conflict struct {
	Type        ConflictType `json:"type"`
	BlockID     string       `json:"block_id,omitempty"`
	Title       string       `json:"title,omitempty"`
	CompetingID string       `json:"competing_id,omitempty"`
	Description string       `json:"description"`
}

type DailyTimeline struct {
	Date                  string        `json:"date"` // YYYY-MM-DD format
	Blocks                []TimeBlock   `json:"blocks"`
	CompletionRate        int           `json:"completion_rate"`
	TotalScheduledMinutes int           `json:"total_scheduled_minutes"`
	TotalFreeMinutes      int           `json:"total_free_minutes"`
	AllDayEvents          []AllDayEvent `json:"all_day_events,omitempty"`
	Conflicts             []Conflict    `json:"conflicts,omitempty"`
}

// FindBlock returns the index of the block with the given id.
func (d *DailyTimeline) FindBlock(id string) (int, bool) {
	for i := range d.Blocks {
		if d.Blocks[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// PlacedBlocks returns every block except synthetic free blocks.
func (d *DailyTimeline) PlacedBlocks() []TimeBlock {
	placed := make([]TimeBlock, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if b.Type != BlockFree {
			placed = append(placed, b)
		}
	}
	return placed
}

type WeeklyStats struct {
	WorkoutsScheduled int     `json:"workouts_scheduled"`
	WorkoutsCompleted int     `json:"workouts_completed"`
	MealsScheduled    int     `json:"meals_scheduled"`
	MealsCompleted    int     `json:"meals_completed"`
	AvgFreeMinutes    float64 `json:"avg_free_minutes"`
	ProductivityScore int     `json:"productivity_score"`
}

// WeeklyPlan always holds exactly seven days, Sunday through Saturday.
type WeeklyPlan struct {
	WeekStart   string                               `json:"week_start"` // YYYY-MM-DD, a Sunday
	Days        [constants.DaysPerWeek]DailyTimeline `json:"days"`
	Stats       WeeklyStats                          `json:"stats"`
	GeneratedAt time.Time                            `json:"generated_at"`
}

// DayIndex returns the position of date within the week.
func (p *WeeklyPlan) DayIndex(date string) (int, error) {
	for i := range p.Days {
		if p.Days[i].Date == date {
			return i, nil
		}
	}
	return -1, fmt.Errorf("date %s is not in the week starting %s", date, p.WeekStart)
}

// Clone returns a deep copy of the plan.
func (p WeeklyPlan) Clone() WeeklyPlan {
	out := p
	for i, day := range p.Days {
		out.Days[i] = day.clone()
	}
	return out
}

func (d DailyTimeline) clone() DailyTimeline {
	out := d
	if d.Blocks != nil {
		out.Blocks = append([]TimeBlock(nil), d.Blocks...)
	}
	if d.AllDayEvents != nil {
		out.AllDayEvents = append([]AllDayEvent(nil), d.AllDayEvents...)
	}
	if d.Conflicts != nil {
		out.Conflicts = append([]Conflict(nil), d.Conflicts...)
	}
	return out
}

// StripPrivate returns a copy of the plan that is safe to send off the
// device: calendar-sourced blocks, device ids, all-day events and conflict
// descriptions (which may quote calendar titles) are removed, as are
// synthetic free blocks. Day totals are recomputed from the remaining
// blocks so calendar time is reported as free.
func (p WeeklyPlan) StripPrivate() WeeklyPlan {
	out := p.Clone()
	for i := range out.Days {
		day := &out.Days[i]
		kept := make([]TimeBlock, 0, len(day.Blocks))
		for _, b := range day.Blocks {
			if b.Type == BlockCalendarEvent || b.Type == BlockFree {
				continue
			}
			b.DeviceEventID = ""
			kept = append(kept, b)
		}
		day.Blocks = kept
		day.AllDayEvents = nil
		day.Conflicts = nil
		day.TotalScheduledMinutes = coveredMinutes(kept)
		day.TotalFreeMinutes = constants.MinutesPerDay - day.TotalScheduledMinutes
	}
	return out
}

// coveredMinutes is the length of the union of the blocks' intervals.
func coveredMinutes(blocks []TimeBlock) int {
	sorted := slices.Clone(blocks)
	slices.SortFunc(sorted, func(a, b TimeBlock) int { return a.StartMin - b.StartMin })
	total, end := 0, 0
	for _, b := range sorted {
		start := max(b.StartMin, end)
		if b.EndMin > start {
			total += b.EndMin - start
			end = b.EndMin
		}
	}
	return total
}

type SchedulingRequest struct {
	Date        string
	Preferences Preferences
	Workouts    []Candidate
	Meals       []Candidate
	Calendar    []TimeBlock
	AllDay      []AllDayEvent
}

type SchedulingResult struct {
	Success   bool          `json:"success"`
	Timeline  DailyTimeline `json:"timeline"`
	Conflicts []Conflict    `json:"conflicts"`
}

// DayHistory summarizes one day's outcomes for the advisory service.
type DayHistory struct {
	Date           string   `json:"date"`
	CompletionRate int      `json:"completion_rate"`
	CompletedIDs   []string `json:"completed_ids"`
	SkippedIDs     []string `json:"skipped_ids"`
}

type CompletionHistory []DayHistory

// History builds the seven-entry completion history for the plan.
func (p *WeeklyPlan) History() CompletionHistory {
	history := make(CompletionHistory, 0, len(p.Days))
	for _, day := range p.Days {
		entry := DayHistory{
			Date:           day.Date,
			CompletionRate: day.CompletionRate,
			CompletedIDs:   []string{},
			SkippedIDs:     []string{},
		}
		for _, b := range day.Blocks {
			switch b.Status {
			case BlockStatusCompleted:
				entry.CompletedIDs = append(entry.CompletedIDs, b.ID)
			case BlockStatusSkipped:
				entry.SkippedIDs = append(entry.SkippedIDs, b.ID)
			}
		}
		history = append(history, entry)
	}
	return history
}
