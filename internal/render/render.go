package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yildizm/texwatch/internal/link"
	"github.com/yildizm/texwatch/internal/parser"
)

// Output formats
const (
	FormatText = "text"
	FormatHTML = "html"
	FormatJSON = "json"
)

// Formats lists the supported output formats
var Formats = []string{FormatText, FormatHTML, FormatJSON}

// ErrUnknownFormat is returned by New for an unsupported format
var ErrUnknownFormat = errors.New("unknown output format")

// Renderer turns the record stream of a run into a report. Records arrive
// through Emit while the tools run; Summary, Footer and Close follow once
// the run is over.
type Renderer interface {
	parser.Sink

	// Begin opens the report
	Begin(title string)

	// Summary writes the totals of the run
	Summary(s Summary)

	// Footer writes the follow-up actions
	Footer(f Footer)

	// Close finishes the report and returns the first write error
	Close() error
}

// Summary is what the report says about a finished run
type Summary struct {
	Errors      int  `json:"errors"`
	Warnings    int  `json:"warnings"`
	BoxWarnings int  `json:"box_warnings"`
	Runs        int  `json:"runs"`
	Fatal       bool `json:"fatal"`
	Aborted     bool `json:"aborted"`

	// Command and Status describe the last tool run
	Command string `json:"command,omitempty"`
	Status  int    `json:"status"`

	// Show is false for runs with nothing worth reporting
	Show bool `json:"-"`
}

// Line is the sentence every format uses for the totals
func (s Summary) Line() string {
	return fmt.Sprintf("Found %d errors, and %d warnings in %d runs", s.Errors, s.Warnings, s.Runs)
}

// StatusLine describes the exit status of the last tool, if it failed
func (s Summary) StatusLine() string {
	switch {
	case s.Status > 0:
		return fmt.Sprintf("%s exited with status %d", s.Command, s.Status)
	case s.Status < 0:
		return fmt.Sprintf("%s exited with error code %d", s.Command, s.Status)
	default:
		return ""
	}
}

// Footer describes the actions offered after a run
type Footer struct {
	Engine   string
	Viewer   string
	External bool

	// PDF is the absolute path of the document's PDF
	PDF string

	Latexmk bool
}

// Options configure a renderer
type Options struct {
	Color   bool
	Verbose bool

	// Theme names the colour theme of the text format
	Theme string

	LinkScheme link.Scheme

	// Rerun separates the report from the one before it in the same pane
	Rerun bool
}

// New creates the renderer for format writing to w
func New(format string, w io.Writer, opts Options) (Renderer, error) {
	linker, err := link.New(opts.LinkScheme, "")
	if err != nil {
		return nil, err
	}
	out := &errWriter{w: w}

	switch strings.ToLower(format) {
	case "", FormatText:
		return newText(out, linker, opts), nil
	case FormatHTML:
		return newHTML(out, linker, opts.Rerun), nil
	case FormatJSON:
		return newJSON(out), nil
	default:
		return nil, fmt.Errorf("%w: %s (must be one of: %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
	}
}

// errWriter keeps the first write error so renderers can write freely and
// report once in Close
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

func (e *errWriter) printf(format string, args ...interface{}) {
	fmt.Fprintf(e, format, args...)
}

func (e *errWriter) println(s string) {
	_, _ = io.WriteString(e, s+"\n")
}

// Multi fans a report out to several renderers
type Multi []Renderer

func (m Multi) Begin(title string) {
	for _, r := range m {
		r.Begin(title)
	}
}

func (m Multi) Emit(rec parser.Record) {
	for _, r := range m {
		r.Emit(rec)
	}
}

func (m Multi) Summary(s Summary) {
	for _, r := range m {
		r.Summary(s)
	}
}

func (m Multi) Footer(f Footer) {
	for _, r := range m {
		r.Footer(f)
	}
}

// Close closes every renderer and returns the first error
func (m Multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
