package render

import (
	"fmt"
	"net/url"

	"golang.org/x/net/html"

	"github.com/yildizm/texwatch/internal/link"
	"github.com/yildizm/texwatch/internal/parser"
)

// htmlRenderer writes the fragment shown in the editor's output pane
type htmlRenderer struct {
	out      *errWriter
	linker   *link.Linker
	rerun    bool
	open     int
	begun    bool
	finished bool
}

func newHTML(out *errWriter, linker *link.Linker, rerun bool) *htmlRenderer {
	return &htmlRenderer{out: out, linker: linker, rerun: rerun}
}

func (h *htmlRenderer) Begin(title string) {
	h.begun = true
	if h.rerun {
		h.out.println("<hr>")
	}
	if title != "" {
		h.out.printf("<h2>%s</h2>\n", html.EscapeString(title))
	}
	h.out.println(`<div id="commandOutput"><div id="preText">`)
}

func (h *htmlRenderer) Emit(rec parser.Record) {
	switch rec.Kind {
	case parser.KindFile:
		h.out.printf("<h4>%s</h4>\n", html.EscapeString(rec.Message))
	case parser.KindInclude:
		h.out.printf("<ul><li>%s</li></ul>\n", html.EscapeString(rec.Message))
	case parser.KindToolStart:
		class := "bibtex"
		if rec.Tool == parser.ToolLatex {
			class = "latex"
		}
		h.out.printf("<div class=\"%s\">\n", class)
		if class == "latex" {
			h.out.println("<hr>")
		}
		h.out.printf("<h3>%s</h3>\n", html.EscapeString(rec.Message))
		h.open++
	case parser.KindToolEnd:
		if h.open > 0 {
			h.out.println("</div>")
			h.open--
		}
	case parser.KindTranscript:
		h.out.printf("<p>Complete transcript is in %s</p>\n", h.anchor(rec.Path, rec.Line, rec.File))
	case parser.KindDriver:
		h.out.printf("<p class=\"ltxmk\">%s</p>\n", html.EscapeString(rec.Message))
	case parser.KindRunSummary:
		h.out.println("<hr />")
		h.out.printf("<p>%d Errors %d Warnings in this run.</p>\n", rec.Errors, rec.Warnings)
	case parser.KindView:
		h.view(rec)
	default:
		h.message(rec)
	}
}

func (h *htmlRenderer) message(rec parser.Record) {
	class := severityClass(rec.Severity)
	msg := html.EscapeString(rec.Message)

	switch {
	case rec.HasLocation() && rec.Severity == parser.SeverityError:
		loc := fmt.Sprintf("%s:%d", rec.File, rec.Line)
		h.out.printf("<p class=\"%s\">%s %s", class, h.anchor(rec.Path, rec.Line, loc), msg)
	case rec.Path != "":
		h.out.printf("<p class=\"%s\">%s", class, h.anchor(rec.Path, rec.Line, rec.Message))
	default:
		h.out.printf("<p class=\"%s\">%s", class, msg)
	}
	for _, d := range rec.Detail {
		h.out.printf("\n<pre>    %s</pre>", html.EscapeString(d))
	}
	h.out.println("</p>")
}

// view links to the PDF; a record marked open jumps there right away
func (h *htmlRenderer) view(rec parser.Record) {
	target := fileURL(rec.Path)
	if rec.Open {
		h.out.printf("<script type=\"text/javascript\">window.location=%q;</script>\n", target)
	}
	h.out.printf("<p class=\"info\"><a href=\"%s\">%s</a></p>\n", html.EscapeString(target), html.EscapeString(rec.Message))
}

func (h *htmlRenderer) anchor(path string, line int, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(h.linker.Link(path, line)), html.EscapeString(text))
}

func severityClass(sev parser.Severity) string {
	switch sev {
	case parser.SeverityWarning:
		return "warning"
	case parser.SeverityBoxWarning:
		return "fmtWarning"
	case parser.SeverityError, parser.SeverityFatal, parser.SeverityBadRun:
		return "error"
	default:
		return "info"
	}
}

// fileURL is the editor's URL for opening a local file
func fileURL(path string) string {
	u := url.URL{Scheme: "tm-file", Path: path}
	return u.String()
}

func (h *htmlRenderer) Summary(s Summary) {
	h.closeTools()
	if s.Show {
		h.out.printf("<p class=\"info\">%s</p>\n", html.EscapeString(s.Line()))
		if line := s.StatusLine(); line != "" {
			class := "info"
			if s.Status < 0 {
				class = "error"
			}
			h.out.printf("<p class=\"%s\">%s</p>\n", class, html.EscapeString(line))
		}
	}
	if s.Aborted {
		h.out.println(`<p class="warning">Remaining build stages were skipped after a fatal error</p>`)
	}
	h.finish()
}

func (h *htmlRenderer) Footer(f Footer) {
	h.finish()
	h.out.println(`<div id="texActions">`)
	h.button("Re-Run "+f.Engine, "runLatex()")
	h.button("Run BibTeX", "runBibtex()")
	h.button("Run Makeindex", "runMakeIndex()")
	h.button("Clean up", "runClean()")
	if f.External {
		h.button("View in "+f.Viewer, "runView()")
	} else {
		h.out.printf("<input type=\"button\" value=\"view in %s\" onclick=\"window.location='%s'\" />\n",
			html.EscapeString(f.Viewer), html.EscapeString(fileURL(f.PDF)))
	}
	h.button("Preferences…", "runConfig()")
	h.out.println("<p>")
	h.out.println(`<input type="checkbox" id="hv_warn" name="fmtWarnings" onclick="makeFmtWarnVisible(); return false" />`)
	h.out.println(`<label for="hv_warn">Show hbox,vbox Warnings </label>`)
	if f.Latexmk {
		h.out.println(`<input type="checkbox" id="ltxmk_warn" name="ltxmkWarnings" onclick="makeLatexmkVisible(); return false" />`)
		h.out.println(`<label for="ltxmk_warn">Show Latexmk.pl Messages </label>`)
	}
	h.out.println("</p>")
	h.out.println("</div>")
}

func (h *htmlRenderer) button(label, call string) {
	h.out.printf("<input type=\"button\" value=\"%s\" onclick=\"%s; return false\" />\n", html.EscapeString(label), call)
}

func (h *htmlRenderer) closeTools() {
	for ; h.open > 0; h.open-- {
		h.out.println("</div>")
	}
}

// finish closes the output divs opened by Begin, once
func (h *htmlRenderer) finish() {
	h.closeTools()
	if h.begun && !h.finished {
		h.out.println("</div></div>")
		h.finished = true
	}
}

func (h *htmlRenderer) Close() error {
	h.finish()
	return h.out.err
}
