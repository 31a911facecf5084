package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/tui/components/blocks"
)

// Rows taken by the tabs, status line and help.
const chromeHeight = 6

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h := max(msg.Height-chromeHeight, 1)
		m.blocks.SetSize(msg.Width-4, h)
		m.weekModel.SetSize(msg.Width-4, h)
		return m, nil

	case dayLoadedMsg:
		if msg.date != m.dateString() {
			return m, nil
		}
		if msg.err != nil {
			m.day = nil
			m.err = msg.err
			m.blocks.SetDay(models.DailyTimeline{})
			return m, nil
		}
		m.err = nil
		m.day = &msg.day
		m.blocks.SetDay(msg.day)
		return m, nil

	case weekLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.weekModel.SetPlan(nil, "")
			return m, nil
		}
		m.err = nil
		m.weekModel.SetPlan(&msg.plan, m.dateString())
		return m, nil

	case trackedMsg:
		if msg.err != nil {
			m.status = ""
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		m.day = &msg.day
		m.blocks.SetDay(msg.day)
		return m, nil

	case blocks.CompleteMsg:
		return m, m.track(msg.ID, false)

	case blocks.SkipMsg:
		return m, m.track(msg.ID, true)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			if m.state == StateDay {
				m.state = StateWeek
				return m, m.loadWeek()
			}
			m.state = StateDay
			return m, m.loadDay()
		case key.Matches(msg, m.keys.PrevDay):
			return m.moveTo(m.date.AddDate(0, 0, -1))
		case key.Matches(msg, m.keys.NextDay):
			return m.moveTo(m.date.AddDate(0, 0, 1))
		case key.Matches(msg, m.keys.Today):
			return m.moveTo(m.today)
		case key.Matches(msg, m.keys.Reload):
			return m.moveTo(m.date)
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateDay:
		m.blocks, cmd = m.blocks.Update(msg)
	case StateWeek:
		m.weekModel, cmd = m.weekModel.Update(msg)
	}
	return m, cmd
}

func (m Model) moveTo(date time.Time) (tea.Model, tea.Cmd) {
	m.date = date
	m.status = ""
	m.err = nil
	if m.state == StateWeek {
		return m, m.loadWeek()
	}
	return m, m.loadDay()
}
