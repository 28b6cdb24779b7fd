package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yildizm/texwatch/internal/logger"
)

// DefaultEngine is used when nothing in the document or config picks one
const DefaultEngine = "pdflatex"

// ErrEngineNotFound is returned when the chosen engine is not on PATH
var ErrEngineNotFound = errors.New("typesetting engine not found")

var (
	latexIndicators   = []string{"pstricks", "xyling", "pst-asr", "OTtablx", "epsfig"}
	xelatexIndicators = []string{"xunicode", "fontspec"}
	baseOptions       = []string{"-interaction=nonstopmode", "-file-line-error-style"}
)

// LookPathFunc finds an executable, like exec.LookPath
type LookPathFunc func(file string) (string, error)

// OutputFunc runs a command and returns its combined output
type OutputFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CombinedOutput is the OutputFunc backed by os/exec
func CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Choose picks the engine without checking that it exists. The TS-program
// directive wins; then packages that need DVI output force latex and
// packages that need unicode fonts force xelatex; then configured.
func Choose(d Directives, pkgs Packages, configured string) string {
	switch {
	case d[DirectiveProgram] != "":
		return d[DirectiveProgram]
	case pkgs.Uses(latexIndicators...):
		return "latex"
	case pkgs.Uses(xelatexIndicators...):
		return "xelatex"
	case configured != "":
		return configured
	default:
		return DefaultEngine
	}
}

// Selector chooses an engine and checks that it can be executed
type Selector struct {
	configured string
	lookPath   LookPathFunc
	run        OutputFunc
	log        *logger.Logger
}

// NewSelector creates a selector; nil functions default to os/exec
func NewSelector(configured string, lookPath LookPathFunc, run OutputFunc, log *logger.Logger) *Selector {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if run == nil {
		run = CombinedOutput
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Selector{configured: configured, lookPath: lookPath, run: run, log: log}
}

// Select returns the engine for the document
func (s *Selector) Select(d Directives, pkgs Packages) (string, error) {
	engine := Choose(d, pkgs, s.configured)
	if _, err := s.lookPath(engine); err != nil {
		return "", fmt.Errorf("%w: %s: you need to install LaTeX or set up your PATH", ErrEngineNotFound, engine)
	}
	s.log.Debug("engine = %s", engine)
	return engine, nil
}

// SupportsSynctex asks the engine whether it knows -synctex
func (s *Selector) SupportsSynctex(ctx context.Context, engine string) bool {
	// help output matters here, not the exit status
	out, _ := s.run(ctx, engine, "--help")
	return bytes.Contains(out, []byte("synctex"))
}

// Version returns the first line of the engine's --version output
func (s *Selector) Version(ctx context.Context, engine string) (string, error) {
	out, err := s.run(ctx, engine, "--version")
	if err != nil && len(out) == 0 {
		return "", fmt.Errorf("%s --version: %w", engine, err)
	}
	line, _, _ := bufio.NewReader(bytes.NewReader(out)).ReadLine()
	return string(line), nil
}

// Options builds the engine arguments: non-stop mode with file:line errors,
// synctex when available, then the TS-options directive or, failing that,
// the configured options
func Options(d Directives, configured string, synctex bool) []string {
	opts := append([]string(nil), baseOptions...)
	if synctex {
		opts = append(opts, "-synctex=1")
	}
	extra := configured
	if v, ok := d[DirectiveOptions]; ok {
		extra = v
	}
	return append(opts, strings.Fields(extra)...)
}

// TexInputs extends a TEXINPUTS value so TeX also searches support, keeping
// the default search path when TEXINPUTS was unset
func TexInputs(current, support string) string {
	if support == "" {
		return current
	}
	prefix := ".::"
	if current != "" {
		prefix = current + ":"
	}
	return prefix + strings.TrimRight(support, "/") + "/tex//"
}
