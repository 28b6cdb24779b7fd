package parser

import (
	"strings"
)

// Severity classifies a record emitted by a grammar
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityBoxWarning
	SeverityError
	SeverityFatal
	SeverityBadRun
)

// Tool identifies which program produced a stream
type Tool string

const (
	ToolLatex     Tool = "latex"
	ToolBibtex    Tool = "bibtex"
	ToolMakeindex Tool = "makeindex"
	ToolLatexmk   Tool = "latexmk"
	ToolChktex    Tool = "chktex"
)

// Kind distinguishes plain messages from structural records
type Kind int

const (
	KindMessage    Kind = iota
	KindFile            // a new source file is being processed
	KindInclude         // a font/package file was loaded
	KindToolStart       // a nested tool banner was seen
	KindToolEnd         // the nested tool finished
	KindTranscript      // the tool reported where its log was written
	KindDriver          // a latexmk notice
	KindRunSummary      // totals of a finished latexmk pass
	KindNotice          // a message from texwatch itself, never counted
	KindView            // the PDF is ready at Path
)

// Record is one classified piece of tool output
type Record struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Tool     Tool     `json:"tool"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Path     string   `json:"path,omitempty"`
	Detail   []string `json:"detail,omitempty"`

	// Set on KindRunSummary only
	Run      int `json:"run,omitempty"`
	Errors   int `json:"errors,omitempty"`
	Warnings int `json:"warnings,omitempty"`

	// Set on KindView when the caller should show the PDF right away
	Open bool `json:"open,omitempty"`
}

// HasLocation reports whether the record points at a file line
func (r Record) HasLocation() bool {
	return r.Path != "" && r.Line > 0
}

// Result is what a grammar returns once its stream is finished
type Result struct {
	Tool        Tool   `json:"tool"`
	Fatal       bool   `json:"fatal"`
	BadRun      bool   `json:"bad_run"`
	NestedFatal bool   `json:"nested_fatal"`
	Errors      int    `json:"errors"`
	Warnings    int    `json:"warnings"`
	BoxWarnings int    `json:"box_warnings"`
	Runs        int    `json:"runs"`
	LogFile     string `json:"log_file,omitempty"`
}

// Failed reports whether this grammar or one it drove stopped abnormally
func (r Result) Failed() bool {
	return r.Fatal || r.NestedFatal
}

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARN"
	case SeverityBoxWarning:
		return "BOX"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	case SeverityBadRun:
		return "BADRUN"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity parses a level name as written by String or by common loggers
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WARN", "WARNING":
		return SeverityWarning
	case "BOX", "BOXWARNING":
		return SeverityBoxWarning
	case "ERROR", "ERR":
		return SeverityError
	case "FATAL":
		return SeverityFatal
	case "BADRUN":
		return SeverityBadRun
	default:
		return SeverityInfo
	}
}

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindInclude:
		return "include"
	case KindToolStart:
		return "tool_start"
	case KindToolEnd:
		return "tool_end"
	case KindTranscript:
		return "transcript"
	case KindDriver:
		return "driver"
	case KindRunSummary:
		return "run_summary"
	case KindNotice:
		return "notice"
	case KindView:
		return "view"
	default:
		return "message"
	}
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) Kind {
	for k := KindMessage; k <= KindView; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindMessage
}
