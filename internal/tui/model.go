package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/tui/components/blocks"
	"github.com/julianstephens/rhythm/internal/tui/components/plan"
	"github.com/julianstephens/rhythm/internal/utils"
)

type SessionState int

const (
	StateDay SessionState = iota
	StateWeek
)

// Planner is the subset of the planner service the tracker drives.
type Planner interface {
	Day(date string) (models.DailyTimeline, error)
	Load(weekStart string) (models.WeeklyPlan, error)
	MarkComplete(ctx context.Context, blockID, date string) (models.DailyTimeline, error)
	Skip(ctx context.Context, blockID, date string) (models.DailyTimeline, error)
}

type dayLoadedMsg struct {
	date string
	day  models.DailyTimeline
	err  error
}

type weekLoadedMsg struct {
	plan models.WeeklyPlan
	err  error
}

type trackedMsg struct {
	day    models.DailyTimeline
	status string
	err    error
}

type Model struct {
	ctx     context.Context
	planner Planner
	today   time.Time
	date    time.Time

	state     SessionState
	keys      KeyMap
	help      help.Model
	blocks    blocks.Model
	weekModel plan.Model

	day      *models.DailyTimeline
	status   string
	err      error
	quitting bool
	width    int
	height   int
}

// NewModel opens the tracker on date, which should already be in the
// planning timezone.
func NewModel(ctx context.Context, planner Planner, date time.Time) Model {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return Model{
		ctx:       ctx,
		planner:   planner,
		today:     date,
		date:      date,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		blocks:    blocks.New(80, 20),
		weekModel: plan.New(80, 20),
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadDay()
}

func (m Model) dateString() string {
	return m.date.Format(constants.DateFormat)
}

func (m Model) loadDay() tea.Cmd {
	date := m.dateString()
	return func() tea.Msg {
		day, err := m.planner.Day(date)
		return dayLoadedMsg{date: date, day: day, err: err}
	}
}

func (m Model) loadWeek() tea.Cmd {
	weekStart := utils.WeekStart(m.date).Format(constants.DateFormat)
	return func() tea.Msg {
		p, err := m.planner.Load(weekStart)
		return weekLoadedMsg{plan: p, err: err}
	}
}

func (m Model) track(blockID string, skip bool) tea.Cmd {
	date := m.dateString()
	return func() tea.Msg {
		var (
			day models.DailyTimeline
			err error
		)
		verb := "Completed"
		if skip {
			verb = "Skipped"
			day, err = m.planner.Skip(m.ctx, blockID, date)
		} else {
			day, err = m.planner.MarkComplete(m.ctx, blockID, date)
		}
		if err != nil {
			return trackedMsg{err: err}
		}
		title := blockID
		for _, b := range day.Blocks {
			if b.ID == blockID {
				title = b.Title
				break
			}
		}
		return trackedMsg{day: day, status: verb + " " + title}
	}
}
