// Package history keeps the records of the last run of a document as JSON
// lines next to it, so the report can be shown again without typesetting.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yildizm/go-logparser"

	"github.com/yildizm/texwatch/internal/parser"
	"github.com/yildizm/texwatch/internal/render"
)

// Suffix is appended to the document's base name
const Suffix = ".texwatch.jsonl"

const (
	kindBegin   = "begin"
	kindSummary = "summary"
)

// ErrNoHistory is returned by Load when the document was never run
var ErrNoHistory = errors.New("no recorded run")

// PathFor returns the history file of the document dir/base
func PathFor(dir, base string) string {
	return filepath.Join(dir, base+Suffix)
}

// Writer records one run. It implements render.Renderer so it can sit next
// to the visible report.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
	now func() time.Time
	err error
}

// Create truncates path and starts a new run
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating history file: %w", err)
	}
	return &Writer{f: f, enc: json.NewEncoder(f), now: time.Now}, nil
}

func (w *Writer) write(e interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil || w.err != nil {
		return
	}
	if err := w.enc.Encode(e); err != nil {
		w.err = fmt.Errorf("writing history: %w", err)
	}
}

// Begin records the title of the run
func (w *Writer) Begin(title string) {
	w.write(render.Entry{Level: parser.SeverityInfo.String(), Msg: title, Kind: kindBegin}.Stamped(w.now()))
}

// Emit records one record
func (w *Writer) Emit(rec parser.Record) {
	w.write(recordEntry{Entry: render.NewEntry(rec).Stamped(w.now()), Severity: rec.Severity.String()})
}

// Summary records the totals of the run
func (w *Writer) Summary(s render.Summary) {
	w.write(summaryEntry{
		Entry: render.Entry{
			Level:    parser.SeverityInfo.String(),
			Msg:      s.Line(),
			Kind:     kindSummary,
			Errors:   s.Errors,
			Warnings: s.Warnings,
			Run:      s.Runs,
		}.Stamped(w.now()),
		BoxWarnings: s.BoxWarnings,
		Fatal:       s.Fatal,
		Aborted:     s.Aborted,
		Command:     s.Command,
		Status:      s.Status,
	})
}

// Footer is not part of the history
func (w *Writer) Footer(render.Footer) {}

// Close flushes the file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return w.err
	}
	if err := w.f.Close(); err != nil && w.err == nil {
		w.err = fmt.Errorf("closing history: %w", err)
	}
	w.f = nil
	return w.err
}

var _ render.Renderer = (*Writer)(nil)

// recordEntry repeats the level under its own key; log parsers normalise
// "level" and would lose the box warning class
type recordEntry struct {
	render.Entry
	Severity string `json:"severity"`
}

type summaryEntry struct {
	render.Entry
	BoxWarnings int    `json:"box_warnings,omitempty"`
	Fatal       bool   `json:"fatal,omitempty"`
	Aborted     bool   `json:"aborted,omitempty"`
	Command     string `json:"command,omitempty"`
	Status      int    `json:"status,omitempty"`
}

// Run is a recorded run read back from disk
type Run struct {
	Title   string
	Time    time.Time
	Records []parser.Record
	Summary render.Summary

	// Complete is false when the run was interrupted before its summary
	// was written; Summary is then recomputed from the records
	Complete bool
}

// Load reads the history file at path
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoHistory, path)
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}
	run := &Run{}
	if strings.TrimSpace(string(data)) == "" {
		return run, nil
	}

	p := logparser.NewWithFormat(logparser.FormatJSON)
	entries, err := p.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}

	for i := range entries {
		e := &entries[i]
		switch kind := fieldString(e.Fields, "kind"); kind {
		case kindBegin:
			run.Title = message(e)
			run.Time = e.Timestamp
		case kindSummary:
			run.Summary = summaryFrom(e)
			run.Complete = true
		default:
			run.Records = append(run.Records, recordFrom(e))
		}
	}
	if !run.Complete {
		run.Summary = Tally(run.Records)
	}
	run.Summary.Show = run.Summary.Status != 0 || run.Summary.Errors > 0 || run.Summary.Warnings > 0 || run.Summary.Fatal
	return run, nil
}

// Tally recomputes the totals of a run from its records. Each latex
// transcript counts as one run; messages from texwatch itself are not
// counted.
func Tally(records []parser.Record) render.Summary {
	var s render.Summary
	for _, rec := range records {
		switch rec.Kind {
		case parser.KindTranscript:
			if rec.Tool == parser.ToolLatex {
				s.Runs++
			}
			continue
		case parser.KindMessage:
		default:
			continue
		}
		switch rec.Severity {
		case parser.SeverityError:
			s.Errors++
		case parser.SeverityWarning:
			s.Warnings++
		case parser.SeverityBoxWarning:
			s.BoxWarnings++
		case parser.SeverityFatal, parser.SeverityBadRun:
			s.Fatal = true
		}
	}
	return s
}

func recordFrom(e *logparser.LogEntry) parser.Record {
	entry := render.Entry{
		Level:    fieldString(e.Fields, "severity"),
		Msg:      message(e),
		Tool:     fieldString(e.Fields, "tool"),
		Kind:     fieldString(e.Fields, "kind"),
		File:     fieldString(e.Fields, "file"),
		Line:     fieldInt(e.Fields, "line"),
		Path:     fieldString(e.Fields, "path"),
		Detail:   fieldStrings(e.Fields, "detail"),
		Run:      fieldInt(e.Fields, "run"),
		Errors:   fieldInt(e.Fields, "errors"),
		Warnings: fieldInt(e.Fields, "warnings"),
		Open:     fieldBool(e.Fields, "open"),
	}
	if entry.Level == "" {
		entry.Level = e.Level
	}
	return entry.Record()
}

func summaryFrom(e *logparser.LogEntry) render.Summary {
	return render.Summary{
		Errors:      fieldInt(e.Fields, "errors"),
		Warnings:    fieldInt(e.Fields, "warnings"),
		BoxWarnings: fieldInt(e.Fields, "box_warnings"),
		Runs:        fieldInt(e.Fields, "run"),
		Fatal:       fieldBool(e.Fields, "fatal"),
		Aborted:     fieldBool(e.Fields, "aborted"),
		Command:     fieldString(e.Fields, "command"),
		Status:      fieldInt(e.Fields, "status"),
	}
}

// message prefers the parsed message and falls back to the raw field
func message(e *logparser.LogEntry) string {
	if e.Message != "" {
		return e.Message
	}
	return fieldString(e.Fields, "msg")
}

func fieldString(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func fieldInt(fields map[string]interface{}, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		var n int
		if _, err := fmt.Sscan(v, &n); err == nil {
			return n
		}
	}
	return 0
}

func fieldBool(fields map[string]interface{}, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

func fieldStrings(fields map[string]interface{}, key string) []string {
	switch v := fields[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return v
	}
	return nil
}
