package parser

import (
	"regexp"
)

// Sink receives records as soon as a grammar classifies them
type Sink interface {
	Emit(rec Record)
}

// SinkFunc is an adapter to allow functions to be used as a Sink
type SinkFunc func(rec Record)

// Emit calls f(rec)
func (f SinkFunc) Emit(rec Record) {
	f(rec)
}

// MultiSink fans every record out to several sinks in order
type MultiSink []Sink

// Emit forwards rec to each sink
func (m MultiSink) Emit(rec Record) {
	for _, s := range m {
		if s != nil {
			s.Emit(rec)
		}
	}
}

// Handler reacts to a matched line. m holds the submatches of the rule's
// pattern, m[0] being the whole match.
type Handler func(g *Grammar, m []string, line string)

// Rule pairs a pattern with the handler that runs on the first match
type Rule struct {
	Pattern *regexp.Regexp
	Handle  Handler
}

// NewRule compiles pattern and panics if it is invalid; rule tables are
// static so a bad pattern is a programming error.
func NewRule(pattern string, h Handler) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Handle: h}
}

// Options configure a grammar for one invocation
type Options struct {
	// Verbose echoes unmatched lines as info records
	Verbose bool

	// WrapWidth is the tool's hard wrap column including the newline
	WrapWidth int

	// FileName is the document being processed, relative to Dir
	FileName string

	// Dir is the working directory used to build absolute record paths
	Dir string

	// EOFIsClean treats the end of the stream as clean termination. Set
	// for tools run directly whose output carries no closing banner.
	EOFIsClean bool
}
