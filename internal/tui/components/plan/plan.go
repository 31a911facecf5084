package plan

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/utils"
)

var (
	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Width(14)

	selectedStyle = dateStyle.
			Foreground(lipgloss.Color("205"))

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Model is a scrollable summary of one week.
type Model struct {
	viewport viewport.Model
	Plan     *models.WeeklyPlan
	selected string
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Plan == nil {
		return "No plan for this week. Run 'rhythm plan' to generate one."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.render()
}

// SetPlan shows plan with the day for selected highlighted.
func (m *Model) SetPlan(plan *models.WeeklyPlan, selected string) {
	m.Plan = plan
	m.selected = selected
	m.render()
}

func (m *Model) render() {
	if m.Plan == nil {
		m.viewport.SetContent("")
		return
	}

	var b strings.Builder
	for _, day := range m.Plan.Days {
		label := day.Date
		if d, err := utils.ParseDate(day.Date); err == nil {
			label = d.Format("Mon Jan 2")
		}
		style := dateStyle
		if day.Date == m.selected {
			style = selectedStyle
		}
		fmt.Fprintf(&b, "%s %s\n", style.Render(label), statStyle.Render(fmt.Sprintf(
			"%3d%% complete  %s scheduled  %s free",
			day.CompletionRate,
			minutes(day.TotalScheduledMinutes),
			minutes(day.TotalFreeMinutes),
		)))
	}

	s := m.Plan.Stats
	fmt.Fprintf(&b, "\nWorkouts %d/%d  Meals %d/%d  Productivity %d\n",
		s.WorkoutsCompleted, s.WorkoutsScheduled, s.MealsCompleted, s.MealsScheduled, s.ProductivityScore)
	m.viewport.SetContent(b.String())
}

func minutes(n int) string {
	return fmt.Sprintf("%dh%02dm", n/60, n%60)
}
