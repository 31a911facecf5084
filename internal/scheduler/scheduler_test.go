package scheduler

import (
	"reflect"
	"testing"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/models"
)

const testDate = "2025-06-02"

func testPrefs() models.Preferences {
	p := models.DefaultPreferences()
	p.WakeTime = "06:00"
	p.SleepDurationMin = 480
	return p
}

func calendarBlock(id, title string, start, end int) models.TimeBlock {
	return models.TimeBlock{
		ID:       id,
		Type:     models.BlockCalendarEvent,
		Title:    title,
		StartMin: start,
		EndMin:   end,
	}
}

func candidate(id string, typ models.BlockType, duration, priority, windowStart, windowEnd int) models.Candidate {
	return models.Candidate{
		ID:          id,
		Type:        typ,
		Title:       id,
		DurationMin: duration,
		Priority:    priority,
		Flexibility: 30,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}
}

func findByID(t *testing.T, day models.DailyTimeline, id string) models.TimeBlock {
	t.Helper()
	i, ok := day.FindBlock(id)
	if !ok {
		t.Fatalf("block %s not found in timeline", id)
	}
	return day.Blocks[i]
}

// assertTimelineInvariants checks the properties every generated day holds.
func assertTimelineInvariants(t *testing.T, day models.DailyTimeline) {
	t.Helper()
	placed := day.PlacedBlocks()
	for i, a := range day.Blocks {
		if a.StartMin < 0 || a.EndMin > constants.MinutesPerDay || a.StartMin >= a.EndMin {
			t.Errorf("block %s has invalid range %d-%d", a.ID, a.StartMin, a.EndMin)
		}
		if i > 0 && day.Blocks[i-1].StartMin > a.StartMin {
			t.Errorf("blocks not sorted at index %d", i)
		}
	}
	for i := range placed {
		for j := i + 1; j < len(placed); j++ {
			a, b := placed[i], placed[j]
			if a.Type == models.BlockCalendarEvent && b.Type == models.BlockCalendarEvent {
				continue
			}
			if a.Overlaps(b) {
				t.Errorf("blocks %s (%s) and %s (%s) overlap", a.ID, a.Type, b.ID, b.Type)
			}
		}
	}
	if day.TotalFreeMinutes+day.TotalScheduledMinutes != constants.MinutesPerDay {
		t.Errorf("free %d + scheduled %d != %d", day.TotalFreeMinutes, day.TotalScheduledMinutes, constants.MinutesPerDay)
	}
}

func TestGenerateTimeline_WorkedExample(t *testing.T) {
	s := New()
	standup := calendarBlock("standup", "Standup", 540, 600)
	workouts := []models.Candidate{candidate("workout", models.BlockWorkout, 60, 1, 360, 540)}
	meals := []models.Candidate{
		candidate("breakfast", models.BlockMealEating, 30, 2, 420, 480),
		candidate("lunch", models.BlockMealEating, 30, 2, 720, 780),
	}

	result, err := s.GenerateTimeline(testDate, testPrefs(), workouts, meals, []models.TimeBlock{standup})
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success, got conflicts: %+v", result.Conflicts)
	}

	day := result.Timeline
	assertTimelineInvariants(t, day)

	tests := []struct {
		id         string
		start, end int
	}{
		{"workout", 360, 420},
		{"breakfast", 420, 450},
		{"standup", 540, 600},
		{"lunch", 720, 750},
	}
	for _, tt := range tests {
		b := findByID(t, day, tt.id)
		if b.StartMin != tt.start || b.EndMin != tt.end {
			t.Errorf("%s placed at %d-%d, want %d-%d", tt.id, b.StartMin, b.EndMin, tt.start, tt.end)
		}
	}

	if got := findByID(t, day, "standup"); got.Title != "Standup" || got.Flexibility != 0 {
		t.Errorf("Standup anchor was modified: %+v", got)
	}
	if day.CompletionRate != 0 {
		t.Errorf("Expected completion rate 0, got %d", day.CompletionRate)
	}
	// Sleep 480 + standup 60 + workout 60 + two meals 60.
	if day.TotalScheduledMinutes != 660 {
		t.Errorf("Expected 660 scheduled minutes, got %d", day.TotalScheduledMinutes)
	}

	freeMinutes := 0
	for _, b := range day.Blocks {
		if b.Type == models.BlockFree {
			freeMinutes += b.Duration()
		}
	}
	if freeMinutes != day.TotalFreeMinutes {
		t.Errorf("Free blocks cover %d minutes, total says %d", freeMinutes, day.TotalFreeMinutes)
	}
}

func TestGenerateTimeline_Deterministic(t *testing.T) {
	s := New()
	calendar := []models.TimeBlock{calendarBlock("a", "Review", 600, 660), calendarBlock("b", "Sync", 900, 930)}
	workouts := []models.Candidate{
		candidate("w1", models.BlockWorkout, 45, 1, 0, 0),
		candidate("w2", models.BlockWorkout, 45, 1, 0, 0),
	}
	meals := []models.Candidate{candidate("m1", models.BlockMealEating, 30, 2, 720, 840)}

	first, err := s.GenerateTimeline(testDate, testPrefs(), workouts, meals, calendar)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	reversed := []models.Candidate{workouts[1], workouts[0]}
	second, err := s.GenerateTimeline(testDate, testPrefs(), reversed, meals, calendar)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results for identical input")
	}
}

func TestGenerateTimeline_NoRequests(t *testing.T) {
	result, err := New().GenerateTimeline(testDate, testPrefs(), nil, nil, nil)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	day := result.Timeline
	assertTimelineInvariants(t, day)

	if !result.Success {
		t.Errorf("Expected success")
	}
	if day.TotalScheduledMinutes != 480 {
		t.Errorf("Expected only sleep to be scheduled, got %d minutes", day.TotalScheduledMinutes)
	}

	var sleep []models.TimeBlock
	for _, b := range day.Blocks {
		if b.Type == models.BlockSleep {
			sleep = append(sleep, b)
		}
	}
	// 22:00-06:00 wraps into a morning and an evening segment.
	if len(sleep) != 2 || sleep[0].StartMin != 0 || sleep[0].EndMin != 360 || sleep[1].StartMin != 1320 || sleep[1].EndMin != 1440 {
		t.Errorf("Unexpected sleep blocks: %+v", sleep)
	}
}

func TestGenerateTimeline_SleepWithoutWrap(t *testing.T) {
	prefs := testPrefs()
	prefs.WakeTime = "09:00"
	prefs.SleepDurationMin = 420

	result, err := New().GenerateTimeline(testDate, prefs, nil, nil, nil)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	for _, b := range result.Timeline.Blocks {
		if b.Type == models.BlockSleep && (b.StartMin != 120 || b.EndMin != 540) {
			t.Errorf("Expected sleep 02:00-09:00, got %d-%d", b.StartMin, b.EndMin)
		}
	}
}

func TestGenerateTimeline_SleepClipped(t *testing.T) {
	early := calendarBlock("flight", "Flight", 300, 420)
	result, err := New().GenerateTimeline(testDate, testPrefs(), nil, nil, []models.TimeBlock{early})
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	assertTimelineInvariants(t, result.Timeline)

	if result.Success {
		t.Errorf("Expected clipped sleep to be reported")
	}
	found := false
	for _, c := range result.Conflicts {
		if c.Type == models.ConflictSleepClipped && c.CompetingID == "flight" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected sleep_clipped conflict naming the flight, got %+v", result.Conflicts)
	}
	for _, b := range result.Timeline.Blocks {
		if b.Type == models.BlockSleep && b.EndMin > 300 && b.StartMin < 420 {
			t.Errorf("Sleep block %d-%d overlaps the calendar event", b.StartMin, b.EndMin)
		}
	}
}

func TestGenerateTimeline_Unplaceable(t *testing.T) {
	workouts := []models.Candidate{candidate("long", models.BlockWorkout, 120, 1, 360, 420)}
	result, err := New().GenerateTimeline(testDate, testPrefs(), workouts, nil, nil)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	if result.Success {
		t.Fatalf("Expected failure for a candidate longer than its window")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Type != models.ConflictUnplaceable || result.Conflicts[0].BlockID != "long" {
		t.Errorf("Expected one unplaceable conflict, got %+v", result.Conflicts)
	}
	if _, ok := result.Timeline.FindBlock("long"); ok {
		t.Errorf("Unplaceable candidate must not be partially placed")
	}
}

func TestGenerateTimeline_PriorityWins(t *testing.T) {
	// Only one hour fits between the two meetings; the higher priority
	// candidate gets it.
	calendar := []models.TimeBlock{calendarBlock("a", "A", 360, 600), calendarBlock("b", "B", 660, 1320)}
	workouts := []models.Candidate{candidate("workout", models.BlockWorkout, 60, 1, 600, 660)}
	meals := []models.Candidate{candidate("meal", models.BlockMealEating, 60, 2, 600, 660)}

	result, err := New().GenerateTimeline(testDate, testPrefs(), workouts, meals, calendar)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	if _, ok := result.Timeline.FindBlock("workout"); !ok {
		t.Errorf("Expected the priority 1 workout to be placed")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].BlockID != "meal" {
		t.Errorf("Expected the meal to be unplaceable, got %+v", result.Conflicts)
	}
}

func TestGenerateTimeline_Overcommitted(t *testing.T) {
	calendar := []models.TimeBlock{
		calendarBlock("a", "All day", 0, 1440),
		calendarBlock("b", "Morning", 0, 720),
	}
	result, err := New().GenerateTimeline(testDate, testPrefs(), nil, nil, calendar)
	if err != nil {
		t.Fatalf("Overcommitment should not be an error: %v", err)
	}
	if result.Success {
		t.Errorf("Expected success=false")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Type != models.ConflictOvercommitted {
		t.Errorf("Expected an overcommitted conflict, got %+v", result.Conflicts)
	}
	if result.Timeline.TotalFreeMinutes != 0 {
		t.Errorf("Expected no free minutes, got %d", result.Timeline.TotalFreeMinutes)
	}
}

func TestGenerateTimeline_OverlappingAnchors(t *testing.T) {
	calendar := []models.TimeBlock{
		calendarBlock("a", "Planning", 600, 720),
		calendarBlock("b", "Interview", 660, 690),
	}
	result, err := New().GenerateTimeline(testDate, testPrefs(), nil, nil, calendar)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	assertTimelineInvariants(t, result.Timeline)

	for _, id := range []string{"a", "b"} {
		findByID(t, result.Timeline, id)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Type != models.ConflictOverlappingAnchors || result.Conflicts[0].CompetingID != "a" {
		t.Errorf("Expected overlapping_anchors conflict, got %+v", result.Conflicts)
	}
	// The union of the two events is 120 minutes.
	if result.Timeline.TotalScheduledMinutes != 480+120 {
		t.Errorf("Expected 600 scheduled minutes, got %d", result.Timeline.TotalScheduledMinutes)
	}
}

func TestGenerateTimeline_Buffer(t *testing.T) {
	w := candidate("workout", models.BlockWorkout, 60, 1, 360, 540)
	w.BufferMin = 15
	next := candidate("meal", models.BlockMealEating, 30, 2, 360, 540)

	result, err := New().GenerateTimeline(testDate, testPrefs(), []models.Candidate{w}, []models.Candidate{next}, nil)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	assertTimelineInvariants(t, result.Timeline)

	var buffer *models.TimeBlock
	for i, b := range result.Timeline.Blocks {
		if b.Type == models.BlockBuffer {
			buffer = &result.Timeline.Blocks[i]
		}
	}
	if buffer == nil {
		t.Fatalf("Expected a buffer block")
	}
	if buffer.StartMin != 420 || buffer.EndMin != 435 || buffer.ParentID != "workout" {
		t.Errorf("Unexpected buffer: %+v", *buffer)
	}
	if meal := findByID(t, result.Timeline, "meal"); meal.StartMin != 435 {
		t.Errorf("Expected meal after the buffer at 435, got %d", meal.StartMin)
	}
}

func TestGenerateTimeline_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		workouts []models.Candidate
		calendar []models.TimeBlock
	}{
		{
			name: "bad date",
			date: "2025-13-40",
		},
		{
			name:     "zero duration",
			date:     testDate,
			workouts: []models.Candidate{candidate("w", models.BlockWorkout, 0, 1, 0, 1440)},
		},
		{
			name: "anchor candidate",
			date: testDate,
			workouts: []models.Candidate{func() models.Candidate {
				c := candidate("w", models.BlockWorkout, 30, 1, 0, 1440)
				c.Flexibility = 0
				return c
			}()},
		},
		{
			name:     "window outside grid",
			date:     testDate,
			workouts: []models.Candidate{candidate("w", models.BlockWorkout, 30, 1, 1400, 1500)},
		},
		{
			name:     "calendar past midnight",
			date:     testDate,
			calendar: []models.TimeBlock{calendarBlock("c", "Late", 1400, 1500)},
		},
		{
			name:     "duplicate ids",
			date:     testDate,
			workouts: []models.Candidate{candidate("x", models.BlockWorkout, 30, 1, 0, 1440)},
			calendar: []models.TimeBlock{calendarBlock("x", "Dup", 600, 660)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().GenerateTimeline(tt.date, testPrefs(), tt.workouts, nil, tt.calendar)
			if err == nil {
				t.Fatalf("Expected an error")
			}
			if !apperrors.IsInvariantViolation(err) {
				t.Errorf("Expected InvariantViolation, got %T: %v", err, err)
			}
		})
	}
}

func TestGenerate_AllDayEvents(t *testing.T) {
	result, err := New().Generate(models.SchedulingRequest{
		Date:        testDate,
		Preferences: testPrefs(),
		AllDay:      []models.AllDayEvent{{Title: "Holiday"}},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(result.Timeline.AllDayEvents) != 1 || result.Timeline.AllDayEvents[0].Title != "Holiday" {
		t.Errorf("Expected the all-day event to be flagged, got %+v", result.Timeline.AllDayEvents)
	}
	if result.Timeline.TotalScheduledMinutes != 480 {
		t.Errorf("All-day events must not occupy the grid")
	}
}
