package scheduler

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/utils"
)

// Scheduler builds conflict-free daily timelines. It holds no state and is
// safe for concurrent use.
type Scheduler struct{}

func New() *Scheduler {
	return &Scheduler{}
}

// GenerateTimeline places the day's anchors, sleep and flexible candidates on
// the minute grid. Placement failures are reported as conflicts in the
// result; an error is returned only for malformed input, and is always an
// *errors.InvariantViolation.
func (s *Scheduler) GenerateTimeline(date string, prefs models.Preferences, workouts, meals []models.Candidate, calendar []models.TimeBlock) (models.SchedulingResult, error) {
	return s.Generate(models.SchedulingRequest{
		Date:        date,
		Preferences: prefs,
		Workouts:    workouts,
		Meals:       meals,
		Calendar:    calendar,
	})
}

// Generate is GenerateTimeline taking a full request, including all-day
// events to attach to the timeline.
func (s *Scheduler) Generate(req models.SchedulingRequest) (models.SchedulingResult, error) {
	date := req.Date
	result := models.SchedulingResult{
		Timeline:  models.DailyTimeline{Date: date},
		Conflicts: []models.Conflict{},
	}

	if _, err := utils.ParseDate(date); err != nil {
		return result, apperrors.Invariantf(date, "invalid date: %v", err)
	}

	prefs := req.Preferences
	models.ApplyDefaultPreferences(&prefs)
	wake, err := utils.ParseClock(prefs.WakeTime)
	if err != nil {
		return result, apperrors.Invariantf(date, "invalid wake time: %v", err)
	}
	if prefs.SleepDurationMin < 0 || prefs.SleepDurationMin > constants.MinutesPerDay {
		return result, apperrors.Invariantf(date, "sleep duration %d is outside 0-%d", prefs.SleepDurationMin, constants.MinutesPerDay)
	}

	seen := make(map[string]bool)
	calendar, err := checkCalendar(date, req.Calendar, seen)
	if err != nil {
		return result, err
	}
	candidates, err := checkCandidates(date, append(append([]models.Candidate(nil), req.Workouts...), req.Meals...), seen)
	if err != nil {
		return result, err
	}

	timeline := &result.Timeline
	if len(req.AllDay) > 0 {
		timeline.AllDayEvents = append([]models.AllDayEvent(nil), req.AllDay...)
	}

	calendarMinutes := 0
	for _, b := range calendar {
		calendarMinutes += b.Duration()
	}
	if calendarMinutes > constants.MinutesPerDay {
		result.Conflicts = append(result.Conflicts, models.Conflict{
			Type:        models.ConflictOvercommitted,
			Description: fmt.Sprintf("calendar events total %d minutes, more than a day holds", calendarMinutes),
		})
		timeline.Blocks = calendar
		timeline.Conflicts = result.Conflicts
		Refresh(timeline, prefs.MinFreeBlockMin)
		logger.Debug("Day overcommitted", "date", date, "calendar_minutes", calendarMinutes)
		return result, nil
	}

	result.Conflicts = append(result.Conflicts, overlappingAnchors(calendar)...)

	calendarRanges := make([]timeRange, 0, len(calendar))
	for _, b := range calendar {
		calendarRanges = append(calendarRanges, rangeOf(b))
	}

	blocks := append([]models.TimeBlock(nil), calendar...)
	sleepBlocks, sleepConflicts := placeSleep(date, wake, prefs.SleepDurationMin, calendar, calendarRanges)
	blocks = append(blocks, sleepBlocks...)
	result.Conflicts = append(result.Conflicts, sleepConflicts...)

	occupied := make([]timeRange, 0, len(blocks))
	for _, b := range blocks {
		occupied = append(occupied, rangeOf(b))
	}
	free := findFreeRanges(occupied)

	sortCandidates(candidates)
	for _, c := range candidates {
		placed, ok := placeCandidate(c, &free)
		if !ok {
			result.Conflicts = append(result.Conflicts, models.Conflict{
				Type:    models.ConflictUnplaceable,
				BlockID: c.ID,
				Title:   c.Title,
				Description: fmt.Sprintf("no free interval of %d minutes between %s and %s",
					c.DurationMin+c.BufferMin, utils.FormatClock(c.WindowStart), utils.FormatClock(c.WindowEnd)),
			})
			continue
		}
		blocks = append(blocks, placed...)
	}

	timeline.Blocks = blocks
	if len(result.Conflicts) > 0 {
		timeline.Conflicts = result.Conflicts
	}
	Refresh(timeline, prefs.MinFreeBlockMin)

	result.Success = len(result.Conflicts) == 0
	logger.Debug("Timeline generated", "date", date, "blocks", len(timeline.Blocks), "conflicts", len(result.Conflicts))
	return result, nil
}

func checkCalendar(date string, calendar []models.TimeBlock, seen map[string]bool) ([]models.TimeBlock, error) {
	out := make([]models.TimeBlock, 0, len(calendar))
	for _, b := range calendar {
		switch {
		case b.ID == "":
			return nil, apperrors.Invariantf(date, "calendar block %q has no id", b.Title)
		case seen[b.ID]:
			return nil, apperrors.Invariantf(date, "duplicate block id %s", b.ID)
		case b.Type != models.BlockCalendarEvent:
			return nil, apperrors.Invariantf(date, "calendar block %s has type %s", b.ID, b.Type)
		case b.Flexibility != 0:
			return nil, apperrors.Invariantf(date, "calendar block %s must have flexibility 0", b.ID)
		case b.StartMin < 0 || b.EndMin > constants.MinutesPerDay || b.StartMin >= b.EndMin:
			return nil, apperrors.Invariantf(date, "calendar block %s has invalid range %d-%d", b.ID, b.StartMin, b.EndMin)
		}
		seen[b.ID] = true
		if b.Status == "" {
			b.Status = models.BlockStatusScheduled
		}
		b.GeneratedStartMin = b.StartMin
		out = append(out, b)
	}
	return out, nil
}

func checkCandidates(date string, candidates []models.Candidate, seen map[string]bool) ([]models.Candidate, error) {
	out := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		// A zero window means anywhere in the day.
		if c.WindowStart == 0 && c.WindowEnd == 0 {
			c.WindowEnd = constants.MinutesPerDay
		}
		switch {
		case c.ID == "":
			return nil, apperrors.Invariantf(date, "candidate %q has no id", c.Title)
		case seen[c.ID]:
			return nil, apperrors.Invariantf(date, "duplicate block id %s", c.ID)
		case c.Type != models.BlockWorkout && c.Type != models.BlockMealPrep && c.Type != models.BlockMealEating:
			return nil, apperrors.Invariantf(date, "candidate %s has unsupported type %s", c.ID, c.Type)
		case c.DurationMin <= 0 || c.DurationMin > constants.MinutesPerDay:
			return nil, apperrors.Invariantf(date, "candidate %s has invalid duration %d", c.ID, c.DurationMin)
		case c.Flexibility <= 0:
			return nil, apperrors.Invariantf(date, "candidate %s must have positive flexibility", c.ID)
		case c.Priority < 0 || c.BufferMin < 0:
			return nil, apperrors.Invariantf(date, "candidate %s has negative priority or buffer", c.ID)
		case c.WindowStart < 0 || c.WindowEnd > constants.MinutesPerDay || c.WindowStart >= c.WindowEnd:
			return nil, apperrors.Invariantf(date, "candidate %s has invalid window %d-%d", c.ID, c.WindowStart, c.WindowEnd)
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out, nil
}

// overlappingAnchors flags every pair of calendar blocks that intersect.
// Both blocks are kept as-is.
func overlappingAnchors(calendar []models.TimeBlock) []models.Conflict {
	sorted := append([]models.TimeBlock(nil), calendar...)
	sortBlocks(sorted)

	var conflicts []models.Conflict
	for i := range sorted {
		for j := i + 1; j < len(sorted) && sorted[j].StartMin < sorted[i].EndMin; j++ {
			conflicts = append(conflicts, models.Conflict{
				Type:        models.ConflictOverlappingAnchors,
				BlockID:     sorted[j].ID,
				Title:       sorted[j].Title,
				CompetingID: sorted[i].ID,
				Description: fmt.Sprintf("%q overlaps %q", sorted[j].Title, sorted[i].Title),
			})
		}
	}
	return conflicts
}

// sleepRanges returns the night that ends at wake. When it starts before
// midnight the part before midnight lands at the end of the same day.
func sleepRanges(wake, duration int) []timeRange {
	if duration <= 0 {
		return nil
	}
	start := wake - duration
	if start >= 0 {
		return []timeRange{{start: start, end: wake}}
	}
	var ranges []timeRange
	if wake > 0 {
		ranges = append(ranges, timeRange{start: 0, end: wake})
	}
	return append(ranges, timeRange{start: constants.MinutesPerDay + start, end: constants.MinutesPerDay})
}

func placeSleep(date string, wake, duration int, calendar []models.TimeBlock, calendarRanges []timeRange) ([]models.TimeBlock, []models.Conflict) {
	var blocks []models.TimeBlock
	var conflicts []models.Conflict

	for _, segment := range sleepRanges(wake, duration) {
		pieces := subtractRanges(segment, calendarRanges)
		for _, p := range pieces {
			blocks = append(blocks, models.TimeBlock{
				ID:                models.BlockID(date, string(models.BlockSleep), strconv.Itoa(p.start)),
				Type:              models.BlockSleep,
				Title:             "Sleep",
				StartMin:          p.start,
				EndMin:            p.end,
				Status:            models.BlockStatusScheduled,
				GeneratedStartMin: p.start,
			})
		}

		lost := segment.length() - totalLength(pieces)
		if lost == 0 {
			continue
		}
		conflict := models.Conflict{
			Type:        models.ConflictSleepClipped,
			Title:       "Sleep",
			Description: fmt.Sprintf("sleep %s-%s lost %d minutes to calendar events", utils.FormatClock(segment.start), utils.FormatClock(segment.end), lost),
		}
		for _, b := range calendar {
			if b.StartMin < segment.end && segment.start < b.EndMin {
				conflict.CompetingID = b.ID
				break
			}
		}
		conflicts = append(conflicts, conflict)
	}
	return blocks, conflicts
}

// sortCandidates orders candidates by priority, then earliest window, then
// longest duration, with the id as a final tie-break.
func sortCandidates(candidates []models.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.WindowStart != b.WindowStart {
			return a.WindowStart < b.WindowStart
		}
		if a.DurationMin != b.DurationMin {
			return a.DurationMin > b.DurationMin
		}
		return a.ID < b.ID
	})
}

// fitInRange returns the earliest start for c inside r that keeps the block
// within its window and leaves room for its trailing buffer.
func fitInRange(c models.Candidate, r timeRange) (int, bool) {
	start := r.start
	if c.WindowStart > start {
		start = c.WindowStart
	}
	end := start + c.DurationMin
	if end > c.WindowEnd || end+c.BufferMin > r.end {
		return 0, false
	}
	return start, true
}

// placeCandidate puts c in the first free range that fits it and splits that
// range around the placement.
func placeCandidate(c models.Candidate, free *[]timeRange) ([]models.TimeBlock, bool) {
	ranges := *free
	for i, r := range ranges {
		start, ok := fitInRange(c, r)
		if !ok {
			continue
		}
		end := start + c.DurationMin
		used := end + c.BufferMin

		var split []timeRange
		if r.start < start {
			split = append(split, timeRange{start: r.start, end: start})
		}
		if used < r.end {
			split = append(split, timeRange{start: used, end: r.end})
		}
		rest := append([]timeRange(nil), ranges[i+1:]...)
		*free = append(append(ranges[:i], split...), rest...)

		placed := []models.TimeBlock{{
			ID:                c.ID,
			Type:              c.Type,
			Title:             c.Title,
			StartMin:          start,
			EndMin:            end,
			Status:            models.BlockStatusScheduled,
			Priority:          c.Priority,
			Flexibility:       c.Flexibility,
			AIGenerated:       c.AIGenerated,
			GeneratedStartMin: start,
		}}
		if c.BufferMin > 0 {
			placed = append(placed, BufferFor(placed[0], c.BufferMin))
		}
		return placed, true
	}
	return nil, false
}

// BufferFor builds the buffer block that trails parent.
func BufferFor(parent models.TimeBlock, minutes int) models.TimeBlock {
	return models.TimeBlock{
		ID:                models.BlockID(parent.ID, string(models.BlockBuffer)),
		Type:              models.BlockBuffer,
		Title:             "Buffer after " + parent.Title,
		StartMin:          parent.EndMin,
		EndMin:            parent.EndMin + minutes,
		Status:            models.BlockStatusScheduled,
		Priority:          parent.Priority,
		Flexibility:       parent.Flexibility,
		ParentID:          parent.ID,
		GeneratedStartMin: parent.EndMin,
	}
}
