package suppliers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/models"
)

// CalendarEvent is one entry read from the device calendar.
type CalendarEvent struct {
	Title         string    `yaml:"title" json:"title"`
	Start         time.Time `yaml:"start" json:"start"`
	End           time.Time `yaml:"end" json:"end"`
	AllDay        bool      `yaml:"all_day" json:"all_day"`
	DeviceEventID string    `yaml:"id" json:"id"`
}

// CalendarSource reads device calendar events overlapping [from, to).
// Implementations return errors.ErrPermissionDenied when access is refused.
type CalendarSource interface {
	Events(ctx context.Context, from, to time.Time) ([]CalendarEvent, error)
}

type calendarFile struct {
	Events []CalendarEvent `yaml:"events"`
}

// FileCalendar reads a YAML export of the device calendar:
//
//	events:
//	  - title: Standup
//	    start: 2025-06-02T09:00:00-07:00
//	    end: 2025-06-02T09:15:00-07:00
//	    id: 4F1C-22
type FileCalendar struct {
	Path string
}

func NewFileCalendar(path string) *FileCalendar {
	return &FileCalendar{Path: path}
}

func (c *FileCalendar) Events(ctx context.Context, from, to time.Time) ([]CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrPermissionDenied, c.Path)
		}
		return nil, fmt.Errorf("failed to read calendar file: %w", err)
	}

	var file calendarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse calendar file: %w", err)
	}

	var events []CalendarEvent
	for _, ev := range file.Events {
		if ev.AllDay {
			day := time.Date(ev.Start.Year(), ev.Start.Month(), ev.Start.Day(), 0, 0, 0, 0, from.Location())
			if !day.Before(from) && day.Before(to) {
				events = append(events, ev)
			}
			continue
		}
		if ev.Start.Before(to) && ev.End.After(from) {
			events = append(events, ev)
		}
	}
	return events, nil
}

// CalendarAdapter converts calendar events into fixed blocks on the minute
// grid of a single day.
type CalendarAdapter struct {
	source CalendarSource
}

func NewCalendarAdapter(source CalendarSource) *CalendarAdapter {
	return &CalendarAdapter{source: source}
}

// CalendarBlocks returns the day's timed events clipped to the day, and its
// all-day events separately. date must be midnight in the user's location.
func (a *CalendarAdapter) CalendarBlocks(ctx context.Context, date time.Time) ([]models.TimeBlock, []models.AllDayEvent, error) {
	from := date
	to := date.AddDate(0, 0, 1)

	events, err := a.source.Events(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}

	dateStr := date.Format(constants.DateFormat)
	var blocks []models.TimeBlock
	var allDay []models.AllDayEvent
	seen := make(map[string]bool)
	for _, ev := range events {
		if ev.AllDay {
			allDay = append(allDay, models.AllDayEvent{Title: ev.Title, DeviceEventID: ev.DeviceEventID})
			continue
		}

		start, end := minuteOfDay(ev.Start, from, to), minuteOfDay(ev.End, from, to)
		if end <= start {
			continue
		}
		key := ev.DeviceEventID
		if key == "" {
			key = ev.Title
		}
		id := models.BlockID(dateStr, string(models.BlockCalendarEvent), key, ev.Start.UTC().Format(time.RFC3339))
		if seen[id] {
			continue
		}
		seen[id] = true
		blocks = append(blocks, models.TimeBlock{
			ID:                id,
			Type:              models.BlockCalendarEvent,
			Title:             ev.Title,
			StartMin:          start,
			EndMin:            end,
			Status:            models.BlockStatusScheduled,
			DeviceEventID:     ev.DeviceEventID,
			GeneratedStartMin: start,
		})
	}

	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].StartMin != blocks[j].StartMin {
			return blocks[i].StartMin < blocks[j].StartMin
		}
		return blocks[i].ID < blocks[j].ID
	})
	return blocks, allDay, nil
}

// minuteOfDay maps t onto the wall-clock grid of the day [from, to),
// clamping instants outside the day to its edges.
func minuteOfDay(t, from, to time.Time) int {
	if !t.After(from) {
		return 0
	}
	if !t.Before(to) {
		return constants.MinutesPerDay
	}
	local := t.In(from.Location())
	return local.Hour()*60 + local.Minute()
}
