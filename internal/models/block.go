package models

type BlockType string

const (
	BlockSleep         BlockType = "sleep"
	BlockWorkout       BlockType = "workout"
	BlockMealPrep      BlockType = "meal_prep"
	BlockMealEating    BlockType = "meal_eating"
	BlockCalendarEvent BlockType = "calendar_event"
	BlockBuffer        BlockType = "buffer"
	BlockFree          BlockType = "free"
)

type BlockStatus string

const (
	BlockStatusScheduled BlockStatus = "scheduled"
	BlockStatusCompleted BlockStatus = "completed"
	BlockStatusSkipped   BlockStatus = "skipped"
)

// TimeBlock is a placed interval on the minute-of-day grid. StartMin/EndMin
// form a half-open interval within [0, 1440].
type TimeBlock struct {
	ID                string      `json:"id"`
	Type              BlockType   `json:"type"`
	Title             string      `json:"title"`
	StartMin          int         `json:"start_min"`
	EndMin            int         `json:"end_min"`
	Status            BlockStatus `json:"status"`
	Priority          int         `json:"priority"`
	Flexibility       int         `json:"flexibility"`
	AIGenerated       bool        `json:"ai_generated"`
	DeviceEventID     string      `json:"device_event_id,omitempty"`
	ParentID          string      `json:"parent_id,omitempty"`
	GeneratedStartMin int         `json:"generated_start_min"`
}

func (b TimeBlock) Duration() int {
	return b.EndMin - b.StartMin
}

// IsAnchor reports whether the block must never be moved or dropped.
func (b TimeBlock) IsAnchor() bool {
	return b.Flexibility == 0
}

// IsTerminal reports whether the block has left the scheduled state.
func (b TimeBlock) IsTerminal() bool {
	return b.Status == BlockStatusCompleted || b.Status == BlockStatusSkipped
}

// Trackable reports whether the block counts toward the completion rate.
func (b TimeBlock) Trackable() bool {
	switch b.Type {
	case BlockWorkout, BlockMealPrep, BlockMealEating:
		return b.Flexibility > 0
	default:
		return false
	}
}

// IsMeal reports whether the block is a meal prep or eating block.
func (b TimeBlock) IsMeal() bool {
	return b.Type == BlockMealPrep || b.Type == BlockMealEating
}

// Overlaps reports whether two half-open intervals intersect.
func (b TimeBlock) Overlaps(other TimeBlock) bool {
	return b.StartMin < other.EndMin && other.StartMin < b.EndMin
}

// Candidate is a flexible block request from a supplier. It carries a
// nominal duration and an allowed time-of-day window but no placement.
type Candidate struct {
	ID          string    `json:"id"`
	Type        BlockType `json:"type"`
	Title       string    `json:"title"`
	DurationMin int       `json:"duration_min"`
	Priority    int       `json:"priority"`
	Flexibility int       `json:"flexibility"`
	WindowStart int       `json:"window_start"` // minutes from midnight
	WindowEnd   int       `json:"window_end"`   // minutes from midnight, exclusive
	BufferMin   int       `json:"buffer_min,omitempty"`
	AIGenerated bool      `json:"ai_generated"`
}

// AllDayEvent is a calendar entry that is flagged on the day but never placed
// on the minute grid.
type AllDayEvent struct {
	Title         string `json:"title"`
	DeviceEventID string `json:"device_event_id,omitempty"`
}
