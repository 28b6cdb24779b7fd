package ui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/texwatch/internal/emoji"
	"github.com/yildizm/texwatch/internal/render"
)

// ActionConfig is the item that shows the configuration instead of running
// a tool
const ActionConfig = "config"

// Item is one entry of the action menu
type Item struct {
	Label  string
	Icon   string // emoji key
	Action string // runner action name or ActionConfig
}

// DefaultItems returns the actions offered after a run. engine names the
// typesetting program; with latexmk the first entry reruns latexmk instead.
func DefaultItems(engine string, latexmk bool) []Item {
	first := Item{Label: "Re-Run " + engine, Icon: "document", Action: "typeset"}
	if latexmk {
		first = Item{Label: "Re-Run latexmk", Icon: "driver", Action: "latexmk"}
	}
	return []Item{
		first,
		{Label: "Run BibTeX", Icon: "tool", Action: "bibtex"},
		{Label: "Run Makeindex", Icon: "tool", Action: "index"},
		{Label: "Clean up", Icon: "clean", Action: "clean"},
		{Label: "View PDF", Icon: "viewer", Action: "view"},
		{Label: "Show configuration", Icon: "help", Action: ActionConfig},
	}
}

// PickerModel is a bubbletea model listing the follow-up actions of a run
type PickerModel struct {
	title   string
	summary string
	items   []Item

	selected int
	chosen   *Item
	quitting bool

	titleStyle    lipgloss.Style
	summaryStyle  lipgloss.Style
	itemStyle     lipgloss.Style
	selectedStyle lipgloss.Style
	helpStyle     lipgloss.Style
	borderColor   lipgloss.AdaptiveColor
}

// NewPickerModel creates a picker; summary is shown under the title
func NewPickerModel(title, summary string, items []Item, theme render.Theme) *PickerModel {
	return &PickerModel{
		title:   title,
		summary: summary,
		items:   items,

		titleStyle:    lipgloss.NewStyle().Foreground(theme.Primary).Bold(true),
		summaryStyle:  lipgloss.NewStyle().Foreground(theme.Muted),
		itemStyle:     lipgloss.NewStyle().Foreground(theme.Muted),
		selectedStyle: lipgloss.NewStyle().Foreground(theme.Primary).Bold(true),
		helpStyle:     lipgloss.NewStyle().Foreground(theme.Muted).Italic(true),
		borderColor:   theme.Primary,
	}
}

// Init implements tea.Model
func (m *PickerModel) Init() tea.Cmd {
	return nil
}

// Update handles navigation and selection
func (m *PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j", "tab":
		if m.selected < len(m.items)-1 {
			m.selected++
		}
	case "enter", " ":
		return m.choose(m.selected)
	default:
		// quick keys 1-9
		if n, err := strconv.Atoi(key.String()); err == nil && n >= 1 && n <= len(m.items) {
			return m.choose(n - 1)
		}
	}
	return m, nil
}

func (m *PickerModel) choose(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.items) {
		return m, nil
	}
	m.selected = i
	item := m.items[i]
	m.chosen = &item
	return m, tea.Quit
}

// View renders the menu
func (m *PickerModel) View() string {
	if m.quitting || m.chosen != nil {
		return ""
	}

	lines := make([]string, 0, len(m.items))
	for i, item := range m.items {
		text := fmt.Sprintf("%d. %s %s", i+1, emoji.GetEmoji(item.Icon), item.Label)
		if i == m.selected {
			lines = append(lines, m.selectedStyle.Render("> "+text))
		} else {
			lines = append(lines, m.itemStyle.Render("  "+text))
		}
	}

	parts := []string{m.titleStyle.Render(m.title)}
	if m.summary != "" {
		parts = append(parts, m.summaryStyle.Render(m.summary))
	}
	parts = append(parts,
		"",
		strings.Join(lines, "\n"),
		"",
		m.helpStyle.Render("up/down or j/k to move, enter or 1-"+strconv.Itoa(len(m.items))+" to run, q to quit"),
	)

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.borderColor).
		Padding(0, 2)

	return border.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)) + "\n"
}

// Chosen returns the selected item, or false when the menu was dismissed
func (m *PickerModel) Chosen() (Item, bool) {
	if m.chosen == nil {
		return Item{}, false
	}
	return *m.chosen, true
}

// Pick shows the menu on out and waits for a choice
func Pick(ctx context.Context, in io.Reader, out io.Writer, model *PickerModel) (Item, bool, error) {
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return Item{}, false, fmt.Errorf("action menu: %w", err)
	}
	picked, ok := final.(*PickerModel)
	if !ok {
		return Item{}, false, nil
	}
	item, chosen := picked.Chosen()
	return item, chosen, nil
}
