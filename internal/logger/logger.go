package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// DebugChecker reports whether debug output is enabled
type DebugChecker interface {
	IsDebug() bool
}

// Logger writes component-tagged diagnostics to stderr. Debug and Info lines
// only appear when the checker says so; Warn and Error always do.
type Logger struct {
	component string
	checker   DebugChecker
	fields    []Field
	out       *output
}

// output is shared by loggers derived from one another
type output struct {
	mu sync.Mutex
	w  io.Writer
}

// Field is a key-value pair appended to a log line
type Field struct {
	Key   string
	Value interface{}
}

// New creates a logger for component
func New(component string, checker DebugChecker) *Logger {
	return &Logger{
		component: component,
		checker:   checker,
		out:       &output{w: os.Stderr},
	}
}

// NewWithCallback creates a logger whose debug state is read from check on
// every call, so flags parsed after construction still apply
func NewWithCallback(component string, check func() bool) *Logger {
	return New(component, callbackChecker(check))
}

// Discard returns a logger that writes nowhere
func Discard() *Logger {
	l := New("", nil)
	l.out.w = io.Discard
	return l
}

type callbackChecker func() bool

func (c callbackChecker) IsDebug() bool {
	return c != nil && c()
}

// WithComponent derives a logger for another component sharing the output
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component: component,
		checker:   l.checker,
		fields:    l.fields,
		out:       l.out,
	}
}

// With derives a logger that appends fields to every line
func (l *Logger) With(fields ...Field) *Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{
		component: l.component,
		checker:   l.checker,
		fields:    merged,
		out:       l.out,
	}
}

// SetOutput redirects the logger and everything derived from it
func (l *Logger) SetOutput(w io.Writer) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.w = w
}

func (l *Logger) enabled() bool {
	return l.checker != nil && l.checker.IsDebug()
}

// Debug logs only when debug output is on
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.enabled() {
		l.log("DEBUG", msg, nil, args...)
	}
}

// Info logs only when debug output is on
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.enabled() {
		l.log("INFO", msg, nil, args...)
	}
}

// Warn always logs
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log("WARN", msg, nil, args...)
}

// Error always logs
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log("ERROR", msg, nil, args...)
}

// DebugWithFields logs a debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields []Field, args ...interface{}) {
	if l.enabled() {
		l.log("DEBUG", msg, fields, args...)
	}
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	if l.enabled() {
		l.log("INFO", msg, fields, args...)
	}
}

// WarnWithFields logs a warning with structured fields
func (l *Logger) WarnWithFields(msg string, fields []Field, args ...interface{}) {
	l.log("WARN", msg, fields, args...)
}

func (l *Logger) log(level, msg string, fields []Field, args ...interface{}) {
	component := l.component
	if component == "" {
		component = "main"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s [%s] ", time.Now().Format("15:04:05.000"), level, component)
	if len(args) > 0 {
		fmt.Fprintf(&b, msg, args...)
	} else {
		b.WriteString(msg)
	}

	all := append(append([]Field(nil), l.fields...), fields...)
	if len(all) > 0 {
		parts := make([]string, 0, len(all))
		for _, f := range all {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, " "))
	}
	b.WriteByte('\n')

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	// nowhere left to report a failed write
	_, _ = io.WriteString(l.out.w, b.String())
}

// F builds a field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func Tool(name string) Field {
	return Field{Key: "tool", Value: name}
}

func File(path string) Field {
	return Field{Key: "file", Value: path}
}

func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d.Round(time.Millisecond)}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}
