package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/texwatch/internal/emoji"
	"github.com/yildizm/texwatch/internal/render"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *PickerModel, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(key(k))
	}
	return cmd
}

func TestDefaultItems(t *testing.T) {
	items := DefaultItems("xelatex", false)
	if len(items) != 6 {
		t.Fatalf("got %d items, want 6", len(items))
	}
	if items[0].Label != "Re-Run xelatex" || items[0].Action != "typeset" {
		t.Errorf("first item = %+v", items[0])
	}
	if items[len(items)-1].Action != ActionConfig {
		t.Errorf("last item = %+v, want the configuration", items[len(items)-1])
	}

	mk := DefaultItems("pdflatex", true)
	if mk[0].Action != "latexmk" {
		t.Errorf("latexmk first item = %+v", mk[0])
	}
}

func TestPickerNavigation(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		want   string
		chosen bool
	}{
		{"enter picks first", []string{"enter"}, "typeset", true},
		{"down then enter", []string{"down", "down", "enter"}, "index", true},
		{"j and k", []string{"j", "j", "k", "enter"}, "bibtex", true},
		{"up stops at top", []string{"up", "up", "enter"}, "typeset", true},
		{"down stops at bottom", []string{"down", "down", "down", "down", "down", "down", "down", "enter"}, ActionConfig, true},
		{"quick key", []string{"4"}, "clean", true},
		{"quick key out of range", []string{"9", "enter"}, "typeset", true},
		{"quit", []string{"q"}, "", false},
		{"escape", []string{"down", "esc"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPickerModel("main.tex", "", DefaultItems("pdflatex", false), render.DefaultTheme)
			cmd := press(m, tt.keys...)

			item, ok := m.Chosen()
			if ok != tt.chosen {
				t.Fatalf("Chosen() ok = %v, want %v", ok, tt.chosen)
			}
			if item.Action != tt.want {
				t.Errorf("Chosen() = %q, want %q", item.Action, tt.want)
			}
			if cmd == nil {
				t.Fatal("final key did not return a command")
			}
			if _, quit := cmd().(tea.QuitMsg); !quit {
				t.Error("final key did not quit the program")
			}
		})
	}
}

func TestPickerView(t *testing.T) {
	emoji.SetEmojiDisabled(true)
	defer emoji.SetEmojiDisabled(false)

	m := NewPickerModel("main.tex", "Found 1 errors, and 0 warnings in 1 runs", DefaultItems("pdflatex", false), render.MinimalTheme)
	press(m, "down")
	view := m.View()

	for _, want := range []string{
		"main.tex",
		"Found 1 errors",
		"1. [TEX] Re-Run pdflatex",
		"> 2. [RUN] Run BibTeX",
		"6. [?] Show configuration",
		"q to quit",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	press(m, "q")
	if v := m.View(); v != "" {
		t.Errorf("view after quit = %q, want empty", v)
	}
}

func TestIsTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Error("a regular file reported as a terminal")
	}
	if IsTerminal(nil) {
		t.Error("nil reported as a terminal")
	}
	if w := Width(f, 80); w != 80 {
		t.Errorf("Width() = %d, want the fallback", w)
	}
}
