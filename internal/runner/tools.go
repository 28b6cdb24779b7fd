package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yildizm/texwatch/internal/engine"
	"github.com/yildizm/texwatch/internal/logger"
	"github.com/yildizm/texwatch/internal/parser"
)

// makeindexCommand finds \makeindex and \makeindex[name] outside comments
var makeindexCommand = regexp.MustCompile(`(?:[^%]|^)\\makeindex(?:\[(\w+)\])?`)

// cleanExtensions are the artifacts clean removes next to the document
var cleanExtensions = []string{
	"aux", "bbl", "blg", "idx", "ind", "ilg", "log", "out", "toc", "lof",
	"lot", "fls", "fdb_latexmk", "synctex.gz", "pdfsync", "dvi", "ps",
	"nav", "snm", "vrb", "bcf", "run.xml",
}

// runTool starts cmd, lets the grammar of tool read its output and folds
// the result into st. Whatever the grammar leaves unread is drained so the
// child never blocks on a full pipe.
func (s *Supervisor) runTool(ctx context.Context, st *RunState, tool parser.Tool, cmd Command, eofClean bool) (*Invocation, error) {
	cmd.Dir = st.Document.Dir
	cmd.Env = s.toolEnv()
	inv := &Invocation{Name: cmd.Name, Args: cmd.Args, Dir: cmd.Dir, Tool: tool}

	log := s.log.With(logger.Tool(string(tool)))
	log.Info("running %s", inv.CommandLine())
	start := time.Now()

	proc, err := s.starter.Start(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}

	lr := parser.NewLineReader(proc.Output(), s.cfg.Build.WrapWidth)
	g, err := s.factory.NewGrammar(tool, lr, s.sink, s.grammarOptions(st, eofClean))
	if err != nil {
		lr.Drain()
		_, _ = proc.Wait()
		return nil, err
	}
	inv.Result = g.Parse()
	lr.Drain()
	if err := lr.Err(); err != nil {
		log.Warn("reading output: %v", err)
	}

	inv.ExitCode, err = proc.Wait()
	inv.Duration = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", cmd.Name, err)
	}

	st.fold(inv, s.cfg.Build.CountBoxWarnings)
	log.DebugWithFields("finished", []logger.Field{
		logger.F("exit", inv.ExitCode),
		logger.F("errors", inv.Result.Errors),
		logger.F("warnings", inv.Result.Warnings),
		logger.Duration(inv.Duration),
	})
	if inv.ExitCode != 0 && !inv.Result.Failed() && inv.Result.Errors == 0 {
		s.warnNotice(fmt.Sprintf("%s exited with status %d", cmd.Name, inv.ExitCode))
	}
	return inv, nil
}

// runQuiet runs a helper whose output nobody parses
func (s *Supervisor) runQuiet(ctx context.Context, cmd Command) error {
	if cmd.Env == nil {
		cmd.Env = s.toolEnv()
	}
	proc, err := s.starter.Start(ctx, cmd)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, proc.Output())
	code, err := proc.Wait()
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%s exited with status %d", cmd.Name, code)
	}
	return nil
}

func (s *Supervisor) grammarOptions(st *RunState, eofClean bool) parser.Options {
	return parser.Options{
		Verbose:    s.cfg.Build.Verbose,
		WrapWidth:  s.cfg.Build.WrapWidth,
		FileName:   st.Document.Name,
		Dir:        st.Document.Dir,
		EOFIsClean: eofClean,
	}
}

// toolEnv is the child environment with TEXINPUTS extended by the support
// directory
func (s *Supervisor) toolEnv() []string {
	env := append([]string(nil), s.env...)
	support := s.cfg.Engine.SupportDir
	if support == "" {
		return env
	}
	const key = "TEXINPUTS="
	current := ""
	out := env[:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, key) {
			current = strings.TrimPrefix(kv, key)
			continue
		}
		out = append(out, kv)
	}
	return append(out, key+engine.TexInputs(current, support))
}

func (s *Supervisor) runEngine(ctx context.Context, st *RunState) (*Invocation, error) {
	args := engine.Options(st.Document.Directives, s.cfg.Engine.Options, st.Synctex)
	args = append(args, st.Document.Name)
	return s.runTool(ctx, st, parser.ToolLatex, Command{Name: st.Engine, Args: args}, false)
}

// typeset is one engine pass; plain latex output is converted to PDF
func (s *Supervisor) typeset(ctx context.Context, st *RunState) error {
	inv, err := s.runEngine(ctx, st)
	if err != nil {
		return err
	}
	if st.Engine == "latex" && !inv.Result.Failed() {
		s.convertDVI(ctx, st)
	}
	return nil
}

func (s *Supervisor) convertDVI(ctx context.Context, st *RunState) {
	ps := st.Document.Output("ps")
	steps := []Command{
		{Name: "dvips", Args: []string{st.Document.Output("dvi"), "-o", ps}},
		{Name: "ps2pdf", Args: []string{ps}},
	}
	for _, cmd := range steps {
		cmd.Dir = st.Document.Dir
		if err := s.runQuiet(ctx, cmd); err != nil {
			s.warnNotice(fmt.Sprintf("Converting to PDF failed: %v", err))
			return
		}
	}
}

// build is the fixed schedule engine, bibtex, makeindex when an index was
// written, then two more engine passes. A failed stage ends the schedule
// when abort_on_fatal is set.
func (s *Supervisor) build(ctx context.Context, st *RunState) error {
	inv, err := s.runEngine(ctx, st)
	if err != nil {
		return err
	}
	if s.stop(st, inv.Result.Failed()) {
		return nil
	}

	failed, err := s.bibtex(ctx, st)
	if err != nil {
		return err
	}
	if s.stop(st, failed) {
		return nil
	}

	if _, err := os.Stat(st.Document.OutputPath("idx")); err == nil {
		failed, err = s.makeindex(ctx, st)
		if err != nil {
			return err
		}
		if s.stop(st, failed) {
			return nil
		}
	}

	for pass := 0; pass < 2; pass++ {
		inv, err = s.runEngine(ctx, st)
		if err != nil {
			return err
		}
		if s.stop(st, inv.Result.Failed()) {
			return nil
		}
	}
	return nil
}

func (s *Supervisor) stop(st *RunState, failed bool) bool {
	if !failed || !s.cfg.Build.AbortOnFatal {
		return false
	}
	st.Aborted = true
	s.warnNotice("Stopping the build after a fatal error")
	return true
}

// bibtex runs on the document's aux file and on every bu<n>.aux that
// bibunits leaves behind
func (s *Supervisor) bibtex(ctx context.Context, st *RunState) (bool, error) {
	auxFiles, err := findAuxFiles(st.Document.Dir, st.Document.Base)
	if err != nil {
		return false, err
	}
	if len(auxFiles) == 0 {
		s.warnNotice(fmt.Sprintf("No aux file found for %s, typeset the document first", st.Document.Name))
		return false, nil
	}

	failed := false
	for _, aux := range auxFiles {
		s.notice("Processing: " + aux)
		inv, err := s.runTool(ctx, st, parser.ToolBibtex, Command{Name: "bibtex", Args: []string{aux}}, true)
		if err != nil {
			return failed, err
		}
		failed = failed || inv.Result.Failed()
	}
	return failed, nil
}

func findAuxFiles(dir, base string) ([]string, error) {
	pattern := regexp.MustCompile(`^(?:` + regexp.QuoteMeta(base) + `\.aux|bu\d+\.aux)$`)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var found []string
	for _, e := range entries {
		if !e.IsDir() && pattern.MatchString(e.Name()) {
			found = append(found, e.Name())
		}
	}
	sort.Strings(found)
	return found, nil
}

// makeindex processes every named index declared in the document and the
// default one
func (s *Supervisor) makeindex(ctx context.Context, st *RunState) (bool, error) {
	indexes, err := findIndexes(st.Document)
	if err != nil {
		return false, inputError(err)
	}

	failed := false
	for _, idx := range indexes {
		inv, err := s.runTool(ctx, st, parser.ToolMakeindex, Command{Name: "makeindex", Args: []string{idx}}, false)
		if err != nil {
			return failed, err
		}
		failed = failed || inv.Result.Failed()
	}
	return failed, nil
}

func findIndexes(doc *engine.Document) ([]string, error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, err
	}
	var indexes []string
	for _, m := range makeindexCommand.FindAllStringSubmatch(string(data), -1) {
		if m[1] != "" {
			indexes = append(indexes, m[1]+".idx")
		}
	}
	return append(indexes, doc.Output("idx")), nil
}

// latexmk drives the whole build through a temporary rc file that points
// latexmk at the selected engine
func (s *Supervisor) latexmk(ctx context.Context, st *RunState) error {
	opts := engine.Options(st.Document.Directives, s.cfg.Engine.Options, st.Synctex)
	rc, err := engine.WriteLatexmkRC("", st.Engine, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(rc); err != nil && !os.IsNotExist(err) {
			s.log.Warn("removing %s: %v", rc, err)
		}
	}()

	cmd := Command{Name: "latexmk", Args: engine.LatexmkArgs(st.Engine, rc, st.Document.Name)}
	_, err = s.runTool(ctx, st, parser.ToolLatexmk, cmd, false)
	return err
}

func (s *Supervisor) chktex(ctx context.Context, st *RunState) error {
	_, err := s.runTool(ctx, st, parser.ToolChktex, Command{Name: "chktex", Args: []string{st.Document.Name}}, false)
	return err
}

// clean removes auxiliary files of the document, bibunits aux files
// included. The PDF is kept.
func (s *Supervisor) clean(st *RunState) error {
	doc := st.Document
	targets := make([]string, 0, len(cleanExtensions))
	for _, ext := range cleanExtensions {
		targets = append(targets, doc.Output(ext))
	}
	bu, err := filepath.Glob(filepath.Join(doc.Dir, "bu*.aux"))
	if err != nil {
		return err
	}
	for _, path := range bu {
		targets = append(targets, filepath.Base(path))
	}

	removed := 0
	for _, name := range targets {
		err := os.Remove(filepath.Join(doc.Dir, name))
		switch {
		case err == nil:
			removed++
			s.log.Debug("removed %s", name)
		case os.IsNotExist(err):
		default:
			return fmt.Errorf("cleaning %s: %w", name, err)
		}
	}
	s.notice(fmt.Sprintf("Removed %d auxiliary files", removed))
	return nil
}
