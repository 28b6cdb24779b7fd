package render

import (
	"encoding/json"
	"time"

	"github.com/yildizm/texwatch/internal/parser"
)

// Entry is the JSON form of a record, one object per line. The run history
// uses the same shape with Time set.
type Entry struct {
	Time     string   `json:"time,omitempty"`
	Level    string   `json:"level"`
	Msg      string   `json:"msg"`
	Tool     string   `json:"tool,omitempty"`
	Kind     string   `json:"kind"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Path     string   `json:"path,omitempty"`
	Detail   []string `json:"detail,omitempty"`
	Run      int      `json:"run,omitempty"`
	Errors   int      `json:"errors,omitempty"`
	Warnings int      `json:"warnings,omitempty"`
	Open     bool     `json:"open,omitempty"`
}

// NewEntry converts a record
func NewEntry(rec parser.Record) Entry {
	return Entry{
		Level:    rec.Severity.String(),
		Msg:      rec.Message,
		Tool:     string(rec.Tool),
		Kind:     rec.Kind.String(),
		File:     rec.File,
		Line:     rec.Line,
		Path:     rec.Path,
		Detail:   rec.Detail,
		Run:      rec.Run,
		Errors:   rec.Errors,
		Warnings: rec.Warnings,
		Open:     rec.Open,
	}
}

// Stamped returns a copy of e carrying t in RFC 3339 form
func (e Entry) Stamped(t time.Time) Entry {
	e.Time = t.Format(time.RFC3339Nano)
	return e
}

// Record converts the entry back
func (e Entry) Record() parser.Record {
	return parser.Record{
		Kind:     parser.ParseKind(e.Kind),
		Severity: parser.ParseSeverity(e.Level),
		Tool:     parser.Tool(e.Tool),
		Message:  e.Msg,
		File:     e.File,
		Line:     e.Line,
		Path:     e.Path,
		Detail:   e.Detail,
		Run:      e.Run,
		Errors:   e.Errors,
		Warnings: e.Warnings,
		Open:     e.Open,
	}
}

// jsonRenderer writes JSON lines for other programs
type jsonRenderer struct {
	out *errWriter
	enc *json.Encoder
}

func newJSON(out *errWriter) *jsonRenderer {
	return &jsonRenderer{out: out, enc: json.NewEncoder(out)}
}

func (j *jsonRenderer) write(v interface{}) {
	// the first failure is kept by errWriter
	_ = j.enc.Encode(v)
}

func (j *jsonRenderer) Begin(title string) {
	j.write(Entry{Level: parser.SeverityInfo.String(), Msg: title, Kind: "begin"})
}

func (j *jsonRenderer) Emit(rec parser.Record) {
	j.write(NewEntry(rec))
}

func (j *jsonRenderer) Summary(s Summary) {
	j.write(struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
		Kind  string `json:"kind"`
		Summary
	}{
		Level:   parser.SeverityInfo.String(),
		Msg:     s.Line(),
		Kind:    "summary",
		Summary: s,
	})
}

// Footer has no JSON form; consumers offer their own actions
func (j *jsonRenderer) Footer(Footer) {}

func (j *jsonRenderer) Close() error {
	return j.out.err
}
