package tui

import (
	"errors"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/julianstephens/rhythm/internal/errors"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateDay:
		if m.day == nil && errors.Is(m.err, apperrors.ErrNotFound) {
			content = "No plan for " + m.dateString() + ". Run 'rhythm plan' to generate one."
		} else {
			content = m.blocks.View()
		}
	case StateWeek:
		content = m.weekModel.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		docStyle.Render(content),
		m.viewStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{m.date.Format("Mon Jan 2"), "Week"} {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	switch {
	case m.err != nil && !errors.Is(m.err, apperrors.ErrNotFound):
		return errorStyle.Render(apperrors.Format(m.err))
	case m.status != "":
		return statusStyle.Render(m.status)
	}
	return ""
}
