package runner

import (
	"strings"
	"time"

	"github.com/yildizm/texwatch/internal/engine"
	"github.com/yildizm/texwatch/internal/parser"
)

// Invocation is one child-process execution and what its grammar made of it
type Invocation struct {
	Name     string
	Args     []string
	Dir      string
	Tool     parser.Tool
	ExitCode int
	Result   parser.Result
	Duration time.Duration
}

// CommandLine renders the invocation for messages
func (i *Invocation) CommandLine() string {
	return strings.TrimSpace(i.Name + " " + strings.Join(i.Args, " "))
}

// RunState is everything one top-level command learned. It is owned by the
// caller of Supervisor.Run and never shared.
type RunState struct {
	Action   Action
	Document *engine.Document
	Engine   string
	Synctex  bool
	Packages engine.Packages
	Viewer   string

	Runs        int
	Errors      int
	Warnings    int
	BoxWarnings int
	Fatal       bool

	// Aborted is set when a fatal stage cut the build schedule short
	Aborted bool

	// ToolStatus is the exit status of the last tool run
	ToolStatus  int
	LastCommand string

	Invocations []*Invocation
	Version     string
	ExitStatus  int
}

// fold adds an invocation's counts to the totals, exactly once per
// invocation. Box warnings only join the warning total when countBox is set.
func (s *RunState) fold(inv *Invocation, countBox bool) {
	res := inv.Result
	s.Invocations = append(s.Invocations, inv)
	s.Errors += res.Errors
	s.Warnings += res.Warnings
	s.BoxWarnings += res.BoxWarnings
	if countBox {
		s.Warnings += res.BoxWarnings
	}
	if res.Failed() {
		s.Fatal = true
	}
	switch {
	case inv.Tool == parser.ToolLatexmk:
		s.Runs += res.Runs
	case inv.Tool == parser.ToolLatex:
		s.Runs++
	}
	s.ToolStatus = inv.ExitCode
	s.LastCommand = inv.CommandLine()
}

// Clean reports a run without errors or fatal stops
func (s *RunState) Clean() bool {
	return s.Errors == 0 && !s.Fatal
}

// HasIssues reports whether the summary line is worth printing
func (s *RunState) HasIssues() bool {
	return s.ToolStatus != 0 || s.Errors > 0 || s.Warnings > 0 || s.Fatal
}
