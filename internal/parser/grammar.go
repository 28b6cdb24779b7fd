package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Grammar runs one tool's rule table over a stream and keeps the state of
// that run: the file stack, the termination flags and the counters.
type Grammar struct {
	tool    Tool
	def     Definition
	factory Factory
	rules   []Rule
	in      *LineReader
	sink    Sink
	opts    Options

	files       []string
	done        bool
	fatal       bool
	badRun      bool
	nestedFatal bool
	errors      int
	warnings    int
	boxWarnings int
	runs        int
	logFile     string
}

// Parse consumes logical lines until the stream ends or a handler marks the
// grammar done. A stream that ends without a termination marker is a bad run.
func (g *Grammar) Parse() Result {
	for !g.done {
		line, ok := g.in.Next()
		if !ok {
			break
		}
		g.Consume(line)
	}
	if !g.done {
		switch {
		case g.opts.EOFIsClean:
			g.done = true
		case g.badRun:
			// a nested grammar already reported the cut-off stream
		default:
			g.reportBadRun()
		}
	}
	return g.Result()
}

// Consume dispatches one logical line to the first matching rule
func (g *Grammar) Consume(line string) {
	for _, rule := range g.rules {
		m := rule.Pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rule.Handle(g, m, line)
		return
	}
	if g.opts.Verbose && strings.TrimSpace(line) != "" {
		g.emit(Record{Severity: SeverityInfo, Message: line})
	}
}

// Result snapshots the counters and flags
func (g *Grammar) Result() Result {
	return Result{
		Tool:        g.tool,
		Fatal:       g.fatal,
		BadRun:      g.badRun,
		NestedFatal: g.nestedFatal,
		Errors:      g.errors,
		Warnings:    g.warnings,
		BoxWarnings: g.boxWarnings,
		Runs:        g.runs,
		LogFile:     g.logFile,
	}
}

// Tool returns the identity of the grammar
func (g *Grammar) Tool() Tool {
	return g.tool
}

// Done reports whether a termination rule or a fatal condition ended the run
func (g *Grammar) Done() bool {
	return g.done
}

// CurrentFile is the top of the file stack
func (g *Grammar) CurrentFile() string {
	if len(g.files) == 0 {
		return g.opts.FileName
	}
	return g.files[len(g.files)-1]
}

// Info emits line as an info record
func (g *Grammar) Info(line string) {
	g.emit(Record{Severity: SeverityInfo, Message: line})
}

// Warning emits and counts a warning without location
func (g *Grammar) Warning(line string) {
	g.warnings++
	g.emit(Record{Severity: SeverityWarning, Message: line})
}

// WarningAt emits and counts a warning that points at file:line
func (g *Grammar) WarningAt(file string, line int, msg string, detail ...string) {
	g.warnings++
	g.emit(g.located(SeverityWarning, file, line, msg, detail))
}

// BoxWarning emits a layout warning; it has its own counter
func (g *Grammar) BoxWarning(line string) {
	g.boxWarnings++
	g.emit(Record{Severity: SeverityBoxWarning, Message: line})
}

// Error emits and counts an error without location
func (g *Grammar) Error(line string, detail ...string) {
	g.errors++
	g.emit(Record{Severity: SeverityError, Message: line, Detail: detail})
}

// ErrorAt emits and counts an error that points at file:line
func (g *Grammar) ErrorAt(file string, line int, msg string, detail ...string) {
	g.errors++
	g.emit(g.located(SeverityError, file, line, msg, detail))
}

// Fatal emits a fatal record and stops this grammar's scan loop
func (g *Grammar) Fatal(line string, detail ...string) {
	g.fatal = true
	g.done = true
	g.emit(Record{Severity: SeverityFatal, Message: line, Detail: detail})
}

// Finish marks clean termination
func (g *Grammar) Finish() {
	g.done = true
}

// Emit forwards a record built by a handler, stamping the tool
func (g *Grammar) Emit(rec Record) {
	g.emit(rec)
}

// ReadDetail reads the next physical line for handlers that consume the
// lines following a match
func (g *Grammar) ReadDetail() (string, bool) {
	return g.in.ReadRaw()
}

// EnterFile makes file the current file. Reopening a file already on the
// stack pops back to it, since TeX does not reliably report closes.
func (g *Grammar) EnterFile(file string) {
	file = cleanFile(file)
	for i := len(g.files) - 1; i >= 0; i-- {
		if g.files[i] == file {
			g.files = g.files[:i+1]
			return
		}
	}
	g.files = append(g.files, file)
}

// SetLogFile records where the tool wrote its transcript
func (g *Grammar) SetLogFile(file string) {
	g.logFile = file
}

// NewRun closes a driver pass: the finished pass is summarised and the
// per-pass counters start again from zero.
func (g *Grammar) NewRun() {
	if g.runs > 0 {
		g.emit(Record{
			Kind:     KindRunSummary,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%d errors, %d warnings in this run", g.errors, g.warnings),
			Run:      g.runs,
			Errors:   g.errors,
			Warnings: g.warnings,
		})
	}
	g.errors = 0
	g.warnings = 0
	g.boxWarnings = 0
	g.runs++
}

// RunNested hands the shared stream to the grammar of tool until that
// grammar terminates, then folds its counters into g.
func (g *Grammar) RunNested(tool Tool) (Result, error) {
	child, err := g.factory.NewGrammar(tool, g.in, g.sink, g.nestedOptions())
	if err != nil {
		return Result{}, err
	}
	res := child.Parse()
	g.errors += res.Errors
	g.warnings += res.Warnings
	g.boxWarnings += res.BoxWarnings
	if res.Failed() {
		g.nestedFatal = true
	}
	if res.BadRun {
		g.fatal = true
		g.badRun = true
	}
	g.emit(Record{Kind: KindToolEnd, Severity: SeverityInfo, Message: string(tool)})
	return res, nil
}

func (g *Grammar) nestedOptions() Options {
	opts := g.opts
	opts.EOFIsClean = false
	return opts
}

func (g *Grammar) reportBadRun() {
	g.fatal = true
	g.badRun = true
	logFile := g.expectedLogFile()
	rec := Record{
		Severity: SeverityBadRun,
		Message:  fmt.Sprintf("%s stopped without finishing its run", g.tool),
	}
	if logFile != "" {
		rec.Message = fmt.Sprintf("A fatal error occurred, log file is in %s", logFile)
		rec.File = logFile
		rec.Line = 1
		rec.Path = g.absPath(logFile)
	}
	g.emit(rec)
}

func (g *Grammar) expectedLogFile() string {
	if g.logFile != "" {
		return g.logFile
	}
	if g.def.LogExt == "" || g.opts.FileName == "" {
		return ""
	}
	base := filepath.Base(g.opts.FileName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + g.def.LogExt
}

func (g *Grammar) located(sev Severity, file string, line int, msg string, detail []string) Record {
	file = cleanFile(file)
	return Record{
		Severity: sev,
		Message:  msg,
		File:     file,
		Line:     line,
		Path:     g.absPath(file),
		Detail:   detail,
	}
}

func (g *Grammar) absPath(file string) string {
	if file == "" || filepath.IsAbs(file) || g.opts.Dir == "" {
		return file
	}
	return filepath.Join(g.opts.Dir, file)
}

func (g *Grammar) emit(rec Record) {
	if rec.Tool == "" {
		rec.Tool = g.tool
	}
	if g.sink != nil {
		g.sink.Emit(rec)
	}
}

// Classify is the generic behaviour for tools without a dedicated grammar:
// lines naming an error or a warning are counted as such, the rest is info.
func Classify(g *Grammar, _ []string, line string) {
	switch {
	case errorWord.MatchString(line):
		g.Error(line)
	case warningWord.MatchString(line):
		g.Warning(line)
	case strings.TrimSpace(line) != "":
		g.Info(line)
	}
}

var (
	errorWord   = regexp.MustCompile(`(?i)\berror\b`)
	warningWord = regexp.MustCompile(`(?i)\bwarning\b`)
)

// atoi converts a captured line number; unparsable numbers become 0
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func cleanFile(file string) string {
	file = strings.Trim(strings.TrimSpace(file), `"`)
	if file == "" {
		return ""
	}
	return filepath.Clean(file)
}
