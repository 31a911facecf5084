package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/optimizer"
	"github.com/julianstephens/rhythm/internal/utils"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	skippedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Strikethrough(true)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Width(10)

	blockColors = map[models.BlockType]lipgloss.Color{
		models.BlockSleep:         lipgloss.Color("62"),
		models.BlockWorkout:       lipgloss.Color("196"),
		models.BlockMealPrep:      lipgloss.Color("178"),
		models.BlockMealEating:    lipgloss.Color("214"),
		models.BlockCalendarEvent: lipgloss.Color("39"),
		models.BlockBuffer:        lipgloss.Color("244"),
		models.BlockFree:          lipgloss.Color("240"),
	}
)

func blockStyle(t models.BlockType) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(blockColors[t]).Width(16)
}

func statusMark(b models.TimeBlock) string {
	if !b.Trackable() {
		return "  "
	}
	switch b.Status {
	case models.BlockStatusCompleted:
		return doneStyle.Render("✓ ")
	case models.BlockStatusSkipped:
		return skippedStyle.Render("✗ ")
	default:
		return "• "
	}
}

// RenderDay writes a day's timeline, one block per line.
func RenderDay(w io.Writer, day models.DailyTimeline) {
	title := day.Date
	if d, err := utils.ParseDate(day.Date); err == nil {
		title = d.Format("Monday, Jan 2 2006")
	}
	fmt.Fprintln(w, headerStyle.Render(title))

	for _, ev := range day.AllDayEvents {
		fmt.Fprintf(w, "  %s %s\n", blockStyle(models.BlockCalendarEvent).Render("all day"), ev.Title)
	}

	for _, b := range day.Blocks {
		span := fmt.Sprintf("%s–%s", utils.FormatClock(b.StartMin), utils.FormatClock(b.EndMin))
		label := b.Title
		if b.Type == models.BlockFree {
			label = mutedStyle.Render(fmt.Sprintf("free (%dm)", b.Duration()))
		} else if b.Status == models.BlockStatusSkipped {
			label = skippedStyle.Render(label)
		}
		id := ""
		if b.Type != models.BlockFree {
			id = shortID(b.ID)
		}
		fmt.Fprintf(w, "  %s  %s%s %s %s\n", span, statusMark(b), blockStyle(b.Type).Render(string(b.Type)), idStyle.Render(id), label)
	}

	fmt.Fprintf(w, "  %s\n", mutedStyle.Render(fmt.Sprintf("%d%% complete · %dm scheduled · %dm free",
		day.CompletionRate, day.TotalScheduledMinutes, day.TotalFreeMinutes)))

	for _, c := range day.Conflicts {
		fmt.Fprintf(w, "  %s\n", warningStyle.Render(fmt.Sprintf("⚠ %s: %s", c.Type, c.Description)))
	}
}

// RenderWeek writes every day of plan followed by the weekly stats.
func RenderWeek(w io.Writer, plan models.WeeklyPlan) {
	fmt.Fprintln(w, headerStyle.Render("Week of "+plan.WeekStart))
	fmt.Fprintln(w)
	for _, day := range plan.Days {
		RenderDay(w, day)
		fmt.Fprintln(w)
	}
	RenderStats(w, plan.Stats)
	if !plan.GeneratedAt.IsZero() {
		fmt.Fprintln(w, mutedStyle.Render("Generated "+plan.GeneratedAt.Local().Format(time.RFC1123)))
	}
}

func RenderStats(w io.Writer, s models.WeeklyStats) {
	fmt.Fprintf(w, "Workouts: %d/%d  Meals: %d/%d  Avg free: %.0fm  Productivity: %d\n",
		s.WorkoutsCompleted, s.WorkoutsScheduled, s.MealsCompleted, s.MealsScheduled, s.AvgFreeMinutes, s.ProductivityScore)
}

// RenderGuidance writes advisory guidance and local suggestions.
func RenderGuidance(w io.Writer, g optimizer.Guidance) {
	fmt.Fprintln(w, headerStyle.Render("Guidance for the week of "+g.WeekStart))
	if g.Insight != "" {
		fmt.Fprintf(w, "\n%s\n", g.Insight)
	}
	if g.HabitTip != "" {
		fmt.Fprintf(w, "\nTip: %s\n", g.HabitTip)
	}
	if len(g.Suggestions) > 0 {
		fmt.Fprintln(w)
		for i, s := range g.Suggestions {
			fmt.Fprintf(w, "%d. %s\n", i+1, describeSuggestion(s))
			fmt.Fprintf(w, "   %s\n", mutedStyle.Render(s.Reason))
		}
	}
	if g.Cached {
		fmt.Fprintln(w, mutedStyle.Render("\n(cached)"))
	}
}

func describeSuggestion(s optimizer.Suggestion) string {
	switch s.Type {
	case optimizer.SuggestionReduceDuration:
		return fmt.Sprintf("Shorten %q to %v minutes", s.Title, suggested(s, "duration_min"))
	case optimizer.SuggestionShiftWindow:
		return fmt.Sprintf("Move %q toward %v", s.Title, suggested(s, "typical_start"))
	case optimizer.SuggestionReconsider:
		return fmt.Sprintf("Reconsider %q", s.Title)
	case optimizer.SuggestionLowCompletion:
		return fmt.Sprintf("Lighten %s", s.Date)
	default:
		return strings.TrimSpace(s.Title)
	}
}

func suggested(s optimizer.Suggestion, key string) interface{} {
	if m, ok := s.SuggestedValue.(map[string]interface{}); ok {
		return m[key]
	}
	return s.SuggestedValue
}

// shortID abbreviates a block id for display. Commands accept any unique
// prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
