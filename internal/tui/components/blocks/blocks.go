package blocks

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/utils"
)

// CompleteMsg asks the parent to mark a block completed.
type CompleteMsg struct {
	ID string
}

// SkipMsg asks the parent to mark a block skipped.
type SkipMsg struct {
	ID string
}

type Item struct {
	Block models.TimeBlock
}

func (i Item) Title() string {
	b := i.Block
	mark := " "
	switch b.Status {
	case models.BlockStatusCompleted:
		mark = "✓"
	case models.BlockStatusSkipped:
		mark = "✗"
	}
	if b.Type == models.BlockFree {
		return fmt.Sprintf("%s–%s %s free (%dm)", utils.FormatClock(b.StartMin), utils.FormatClock(b.EndMin), mark, b.Duration())
	}
	return fmt.Sprintf("%s–%s %s %s", utils.FormatClock(b.StartMin), utils.FormatClock(b.EndMin), mark, b.Title)
}

func (i Item) Description() string {
	desc := string(i.Block.Type)
	if i.Block.Trackable() {
		desc += " | " + string(i.Block.Status)
	}
	return desc
}

func (i Item) FilterValue() string { return i.Block.Title }

type KeyMap struct {
	Complete key.Binding
	Skip     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "complete"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Complete, keys.Skip}
	}
	return Model{list: l, keys: keys}
}

// SetDay replaces the listed blocks, keeping the cursor where it was.
func (m *Model) SetDay(day models.DailyTimeline) {
	idx := m.list.Index()
	items := make([]list.Item, len(day.Blocks))
	for i, b := range day.Blocks {
		items[i] = Item{Block: b}
	}
	m.list.SetItems(items)
	if idx < len(items) {
		m.list.Select(idx)
	}
}

func (m Model) Selected() (models.TimeBlock, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i.Block, ok
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.Complete):
			if b, ok := m.Selected(); ok {
				return m, func() tea.Msg { return CompleteMsg{ID: b.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Skip):
			if b, ok := m.Selected(); ok {
				return m, func() tea.Msg { return SkipMsg{ID: b.ID} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  Nothing planned for this day."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
