package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/texwatch/internal/emoji"
	"github.com/yildizm/texwatch/internal/link"
	"github.com/yildizm/texwatch/internal/parser"
)

// textRenderer writes a terminal report with one line per record
type textRenderer struct {
	out    *errWriter
	linker *link.Linker
	opts   Options
	styles *Styles
	depth  int
}

func newText(out *errWriter, linker *link.Linker, opts Options) *textRenderer {
	r := lipgloss.NewRenderer(out)
	if opts.Color {
		r.SetColorProfile(termenv.ANSI256)
	}
	theme, _ := ThemeByName(opts.Theme)
	return &textRenderer{
		out:    out,
		linker: linker,
		opts:   opts,
		styles: NewStyles(r, theme),
	}
}

// paint applies style unless colours are off
func (t *textRenderer) paint(style lipgloss.Style, s string) string {
	if !t.opts.Color || IsColorDisabled() {
		return s
	}
	return style.Render(s)
}

func (t *textRenderer) Begin(title string) {
	if t.opts.Rerun {
		t.out.println(t.paint(t.styles.Muted, strings.Repeat("-", 40)))
	}
	if title == "" {
		return
	}
	t.out.println(t.paint(t.styles.Header, emoji.GetEmoji("document")+" "+title))
}

func (t *textRenderer) Emit(rec parser.Record) {
	switch rec.Kind {
	case parser.KindFile:
		t.line(t.styles.Muted, "file", rec.Message)
	case parser.KindInclude:
		if t.opts.Verbose {
			t.line(t.styles.Muted, "include", rec.Message)
		}
	case parser.KindToolStart:
		t.line(t.styles.Header, "tool", rec.Message)
		t.depth++
	case parser.KindToolEnd:
		if t.depth > 0 {
			t.depth--
		}
	case parser.KindTranscript:
		t.line(t.styles.Muted, "info", rec.Message+t.linkSuffix(rec))
	case parser.KindDriver:
		t.line(t.styles.Muted, "driver", rec.Message)
	case parser.KindRunSummary:
		t.line(t.styles.Info, "pass", fmt.Sprintf("Run %d: %s", rec.Run, rec.Message))
	case parser.KindView:
		msg := "PDF ready: " + rec.Path
		if rec.Open {
			msg = "Opening " + rec.Path
		}
		t.line(t.styles.Success, "viewer", msg)
	default:
		t.message(rec)
	}
}

func (t *textRenderer) message(rec parser.Record) {
	style, key := t.severityStyle(rec.Severity)
	msg := rec.Message
	if rec.File != "" && rec.Line > 0 {
		msg = fmt.Sprintf("%s:%d: %s", rec.File, rec.Line, msg)
	}
	if rec.Severity == parser.SeverityInfo && rec.Kind == parser.KindMessage {
		t.out.println(t.indent() + msg)
	} else {
		t.line(style, key, msg+t.linkSuffix(rec))
	}
	for _, d := range rec.Detail {
		t.out.println(t.indent() + "    " + t.paint(t.styles.Muted, d))
	}
}

func (t *textRenderer) severityStyle(sev parser.Severity) (lipgloss.Style, string) {
	switch sev {
	case parser.SeverityWarning:
		return t.styles.Warning, "warning"
	case parser.SeverityBoxWarning:
		return t.styles.Box, "box"
	case parser.SeverityError:
		return t.styles.Error, "error"
	case parser.SeverityFatal, parser.SeverityBadRun:
		return t.styles.Fatal, "fatal"
	default:
		return t.styles.Info, "info"
	}
}

func (t *textRenderer) line(style lipgloss.Style, key, msg string) {
	t.out.println(t.indent() + t.paint(style, emoji.GetEmoji(key)) + " " + msg)
}

func (t *textRenderer) linkSuffix(rec parser.Record) string {
	if rec.Path == "" {
		return ""
	}
	return " " + t.paint(t.styles.Link, t.linker.Link(rec.Path, rec.Line))
}

func (t *textRenderer) indent() string {
	return strings.Repeat("  ", t.depth)
}

func (t *textRenderer) Summary(s Summary) {
	t.depth = 0
	if !s.Show {
		if s.Runs > 0 {
			t.line(t.styles.Success, "success", fmt.Sprintf("No errors or warnings in %d runs", s.Runs))
		}
		return
	}

	opts := termfmt.DefaultOptions()
	opts.Color = t.opts.Color
	opts.Emoji = !emoji.IsEmojiDisabled()

	items := []termfmt.TreeItem{
		{Label: "Errors", Value: fmt.Sprintf("%d", s.Errors)},
		{Label: "Warnings", Value: fmt.Sprintf("%d", s.Warnings)},
		{Label: "Box warnings", Value: fmt.Sprintf("%d", s.BoxWarnings)},
		{Label: "Runs", Value: fmt.Sprintf("%d", s.Runs)},
	}
	if s.Fatal {
		items = append(items, termfmt.TreeItem{Label: "Fatal", Value: "the last tool stopped before finishing"})
	}
	if s.Aborted {
		items = append(items, termfmt.TreeItem{Label: "Aborted", Value: "remaining build stages were skipped"})
	}
	if line := s.StatusLine(); line != "" {
		items = append(items, termfmt.TreeItem{Label: "Status", Value: line})
	}
	items[len(items)-1].Last = true

	style := t.styles.Warning
	if s.Errors > 0 || s.Fatal {
		style = t.styles.Error
	}
	t.out.println("")
	t.out.println(t.paint(style, emoji.GetEmoji("summary")+" "+s.Line()))
	t.out.println(termfmt.TreeViewWithOptions(items, opts))
}

func (t *textRenderer) Footer(f Footer) {
	actions := []string{"typeset", "bibtex", "index", "clean"}
	if f.Latexmk {
		actions[0] = "latexmk"
	}
	view := "view"
	if f.External {
		view = "view (" + f.Viewer + ")"
	}
	actions = append(actions, view)
	t.out.println(t.paint(t.styles.Muted, emoji.GetEmoji("help")+" next: texwatch "+strings.Join(actions, " | ")))
}

func (t *textRenderer) Close() error {
	return t.out.err
}
