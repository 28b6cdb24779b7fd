package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yildizm/texwatch/internal/config"
	"github.com/yildizm/texwatch/internal/engine"
	"github.com/yildizm/texwatch/internal/parser"
)

const (
	latexClean = "This is pdfTeX, Version 3.141592653-2.6-1.40.25\n" +
		"(./main.tex\n" +
		"Output written on main.pdf (1 page, 1234 bytes).\n" +
		"Transcript written on main.log.\n"

	latexWarning = "This is pdfTeX, Version 3.141592653-2.6-1.40.25\n" +
		"(./main.tex\n" +
		"LaTeX Warning: Citation `knuth' on page 1 undefined on input line 5.\n" +
		"Transcript written on main.log.\n"

	latexError = "This is pdfTeX, Version 3.141592653-2.6-1.40.25\n" +
		"(./main.tex\n" +
		"./main.tex:12: Undefined control sequence.\n" +
		"Transcript written on main.log.\n"

	latexEmergency = "This is pdfTeX, Version 3.141592653-2.6-1.40.25\n" +
		"(./main.tex\n" +
		"./main.tex:3: Emergency stop.\n"

	bibtexOutput = "This is BibTeX, Version 0.99d (TeX Live 2024)\n" +
		"The style file: plain.bst\n" +
		"Database file #1: refs.bib\n" +
		"Warning--I didn't find a database entry for \"knuth\"\n" +
		"(There was 1 warning)\n"

	makeindexOutput = "This is makeindex, version 2.17 [TeX Live 2024] (kpathsea + Thai support).\n" +
		"Scanning input file main.idx....done (3 entries accepted, 0 rejected).\n" +
		"Transcript written in main.ilg.\n"
)

type script struct {
	output string
	code   int
}

type fakeProcess struct {
	out     *strings.Reader
	code    int
	waitErr error
}

func (p *fakeProcess) Output() io.Reader  { return p.out }
func (p *fakeProcess) Wait() (int, error) { return p.code, p.waitErr }

// fakeStarter replays canned output per command name. Scripts queued under
// the same name are used in order, the last one repeats.
type fakeStarter struct {
	mu       sync.Mutex
	scripts  map[string][]script
	started  []Command
	launched []Command
	onStart  func(Command)
	startErr map[string]error
	waitErr  map[string]error
}

func newFakeStarter() *fakeStarter {
	return &fakeStarter{scripts: make(map[string][]script)}
}

func (f *fakeStarter) script(name, output string, code int) *fakeStarter {
	f.scripts[name] = append(f.scripts[name], script{output: output, code: code})
	return f
}

func (f *fakeStarter) Start(_ context.Context, cmd Command) (Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.started = append(f.started, cmd)
	if f.onStart != nil {
		f.onStart(cmd)
	}
	if err := f.startErr[cmd.Name]; err != nil {
		return nil, err
	}
	queue := f.scripts[cmd.Name]
	if len(queue) == 0 {
		return &fakeProcess{out: strings.NewReader(""), waitErr: f.waitErr[cmd.Name]}, nil
	}
	sc := queue[0]
	if len(queue) > 1 {
		f.scripts[cmd.Name] = queue[1:]
	}
	return &fakeProcess{out: strings.NewReader(sc.output), code: sc.code, waitErr: f.waitErr[cmd.Name]}, nil
}

func (f *fakeStarter) Launch(_ context.Context, cmd Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.launched = append(f.launched, cmd)
	return nil
}

func (f *fakeStarter) names() []string {
	var out []string
	for _, c := range f.started {
		out = append(out, strings.TrimSpace(c.Name+" "+lastArg(c.Args)))
	}
	return out
}

func lastArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[len(args)-1]
}

type recorder struct {
	records []parser.Record
}

func (r *recorder) Emit(rec parser.Record) {
	r.records = append(r.records, rec)
}

func (r *recorder) ofKind(kind parser.Kind) []parser.Record {
	var out []parser.Record
	for _, rec := range r.records {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func newDocument(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "main.tex")
	writeFile(t, path, content)
	return dir, path
}

type fixture struct {
	cfg     *config.Config
	starter *fakeStarter
	sink    *recorder
	help    string
	env     []string
}

func newFixture() *fixture {
	return &fixture{
		cfg:     config.DefaultConfig(),
		starter: newFakeStarter(),
		sink:    &recorder{},
		help:    "Usage: pdftex [OPTION]... \n-synctex=NUMBER  generate SyncTeX data for previewers\n",
		env:     []string{"HOME=/home/test"},
	}
}

func (f *fixture) supervisor() *Supervisor {
	return New(Options{
		Config:   f.cfg,
		Sink:     f.sink,
		Starter:  f.starter,
		LookPath: func(name string) (string, error) { return "/usr/bin/" + name, nil },
		Output: func(_ context.Context, name string, args ...string) ([]byte, error) {
			if len(args) > 0 && args[0] == "--version" {
				return []byte("pdfTeX 3.141592653-2.6-1.40.25 (TeX Live 2024)\nkpathsea version 6.4.0\n"), nil
			}
			return []byte(f.help), nil
		},
		Env: f.env,
	})
}

func (f *fixture) run(t *testing.T, action Action, file string) (*RunState, error) {
	t.Helper()
	return f.supervisor().Run(context.Background(), Request{Action: action, File: file})
}

func TestTypesetFoldsCountsAndShowsPDF(t *testing.T) {
	_, path := newDocument(t, "\\documentclass{article}\n\\begin{document}\nx\n\\end{document}\n")
	f := newFixture()
	f.starter.script("pdflatex", latexWarning, 0)

	st, err := f.run(t, ActionTypeset, path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if st.Engine != "pdflatex" || !st.Synctex {
		t.Errorf("engine = %s synctex = %v, want pdflatex with synctex", st.Engine, st.Synctex)
	}
	if st.Runs != 1 || st.Errors != 0 || st.Warnings != 1 {
		t.Errorf("runs/errors/warnings = %d/%d/%d, want 1/0/1", st.Runs, st.Errors, st.Warnings)
	}

	args := f.starter.started[0].Args
	if args[0] != "-interaction=nonstopmode" || lastArg(args) != "main.tex" {
		t.Errorf("engine args = %v", args)
	}
	if !contains(args, "-synctex=1") {
		t.Errorf("engine args %v lack -synctex=1", args)
	}

	views := f.sink.ofKind(parser.KindView)
	if len(views) != 1 {
		t.Fatalf("got %d view records, want 1", len(views))
	}
	if views[0].Open {
		t.Error("view opened although warnings remain and the log window is kept")
	}
	if views[0].Path != filepath.Join(st.Document.Dir, "main.pdf") {
		t.Errorf("view path = %q", views[0].Path)
	}
	if st.ExitStatus != ExitOK {
		t.Errorf("exit status = %d, want %d", st.ExitStatus, ExitOK)
	}
}

func TestTypesetWithErrorsSkipsViewer(t *testing.T) {
	_, path := newDocument(t, "\\begin{document}\n")
	f := newFixture()
	f.starter.script("pdflatex", latexError, 1)

	st, err := f.run(t, ActionTypeset, path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if st.Errors != 1 {
		t.Errorf("errors = %d, want 1", st.Errors)
	}
	if st.ToolStatus != 1 {
		t.Errorf("tool status = %d, want 1", st.ToolStatus)
	}
	if n := len(f.sink.ofKind(parser.KindView)); n != 0 {
		t.Errorf("got %d view records after a failed run", n)
	}
}

func TestBuildSchedule(t *testing.T) {
	dir, path := newDocument(t, "\\makeindex\n\\begin{document}\n")
	writeFile(t, filepath.Join(dir, "main.aux"), "")
	writeFile(t, filepath.Join(dir, "bu1.aux"), "")
	writeFile(t, filepath.Join(dir, "other.aux"), "")
	writeFile(t, filepath.Join(dir, "main.idx"), "")

	f := newFixture()
	f.starter.
		script("pdflatex", latexClean, 0).
		script("bibtex", bibtexOutput, 0).
		script("makeindex", makeindexOutput, 0)

	st, err := f.run(t, ActionBuild, path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"pdflatex main.tex",
		"bibtex bu1.aux",
		"bibtex main.aux",
		"makeindex main.idx",
		"pdflatex main.tex",
		"pdflatex main.tex",
	}
	if got := f.starter.names(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("schedule = %q, want %q", got, want)
	}
	if st.Runs != 3 {
		t.Errorf("runs = %d, want 3", st.Runs)
	}
	// one missing citation per bibtex invocation
	if st.Warnings != 2 {
		t.Errorf("warnings = %d, want 2", st.Warnings)
	}
	if st.Aborted || st.Fatal {
		t.Errorf("aborted = %v fatal = %v on a clean build", st.Aborted, st.Fatal)
	}
}

func TestBuildAbortsOnFatal(t *testing.T) {
	tests := []struct {
		name      string
		abort     bool
		wantRuns  int
		wantAbort bool
	}{
		{"abort", true, 1, true},
		{"keep going", false, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, path := newDocument(t, "\\begin{document}\n")
			f := newFixture()
			f.cfg.Build.AbortOnFatal = tt.abort
			f.starter.script("pdflatex", latexEmergency, 1)

			st, err := f.run(t, ActionBuild, path)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !st.Fatal {
				t.Error("fatal not set after an emergency stop")
			}
			if st.Aborted != tt.wantAbort {
				t.Errorf("aborted = %v, want %v", st.Aborted, tt.wantAbort)
			}
			if len(f.starter.started) != tt.wantRuns {
				t.Errorf("started %q, want %d engine runs", f.starter.names(), tt.wantRuns)
			}
		})
	}
}

func TestBibtexWithoutAuxFile(t *testing.T) {
	_, path := newDocument(t, "\\begin{document}\n")
	f := newFixture()

	if _, err := f.run(t, ActionBibtex, path); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(f.starter.started) != 0 {
		t.Errorf("started %q without an aux file", f.starter.names())
	}
	notices := f.sink.ofKind(parser.KindNotice)
	if len(notices) == 0 || !strings.Contains(notices[0].Message, "No aux file") {
		t.Errorf("notices = %+v", notices)
	}
}

func TestMakeindexNamedIndexes(t *testing.T) {
	_, path := newDocument(t, "\\makeindex[names]\n%\\makeindex[hidden]\n\\makeindex\n\\begin{document}\n")
	f := newFixture()
	f.starter.script("makeindex", makeindexOutput, 0)

	if _, err := f.run(t, ActionIndex, path); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "makeindex names.idx|makeindex main.idx"
	if got := strings.Join(f.starter.names(), "|"); got != want {
		t.Errorf("makeindex runs = %q, want %q", got, want)
	}
}

func TestLatexmkReportsLastPassAndRemovesRCFile(t *testing.T) {
	_, path := newDocument(t, "\\begin{document}\n")
	output := "Latexmk: This is Latexmk, John Collins\n" +
		"Run number 1 of rule 'pdflatex'\n" +
		latexError +
		"Run number 2 of rule 'pdflatex'\n" +
		latexClean +
		"Latexmk: All targets (main.pdf) are up-to-date\n"

	f := newFixture()
	f.starter.script("latexmk", output, 0)
	var rc, rcContent string
	f.starter.onStart = func(cmd Command) {
		rc = cmd.Args[len(cmd.Args)-2]
		data, err := os.ReadFile(rc)
		if err == nil {
			rcContent = string(data)
		}
	}

	st, err := f.run(t, ActionLatexmk, path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	args := f.starter.started[0].Args
	if args[0] != "-pdf" || !contains(args, "-f") || lastArg(args) != "main.tex" {
		t.Errorf("latexmk args = %v", args)
	}
	if !strings.Contains(rcContent, "$pdflatex = 'pdflatex ") {
		t.Errorf("rc file content = %q", rcContent)
	}
	if _, err := os.Stat(rc); !os.IsNotExist(err) {
		t.Errorf("rc file %s still exists (err = %v)", rc, err)
	}
	if st.Runs != 2 {
		t.Errorf("runs = %d, want 2", st.Runs)
	}
	if st.Errors != 0 {
		t.Errorf("errors = %d, want the last pass count 0", st.Errors)
	}
	if n := len(f.sink.ofKind(parser.KindRunSummary)); n != 1 {
		t.Errorf("got %d run summaries, want 1", n)
	}
}

func TestLatexmkRemovesRCFileOnError(t *testing.T) {
	errBroken := errors.New("broken pipe")
	tests := []struct {
		name  string
		setup func(f *fakeStarter)
	}{
		{"start fails", func(f *fakeStarter) { f.startErr = map[string]error{"latexmk": errBroken} }},
		{"wait fails", func(f *fakeStarter) { f.waitErr = map[string]error{"latexmk": errBroken} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, path := newDocument(t, "\\begin{document}\n")
			f := newFixture()
			f.starter.script("latexmk", "Latexmk: All targets (main.pdf) are up-to-date\n", 0)
			tt.setup(f.starter)
			var rc string
			f.starter.onStart = func(cmd Command) {
				rc = cmd.Args[len(cmd.Args)-2]
				if _, err := os.Stat(rc); err != nil {
					t.Errorf("rc file missing while latexmk starts: %v", err)
				}
			}

			_, err := f.run(t, ActionLatexmk, path)
			if !errors.Is(err, errBroken) {
				t.Fatalf("Run() error = %v, want %v", err, errBroken)
			}
			if rc == "" {
				t.Fatal("latexmk was never started")
			}
			if _, err := os.Stat(rc); !os.IsNotExist(err) {
				t.Errorf("rc file %s still exists (err = %v)", rc, err)
			}
		})
	}
}

func TestUseLatexmkReplacesTypeset(t *testing.T) {
	_, path := newDocument(t, "\\begin{document}\n")
	f := newFixture()
	f.cfg.Build.UseLatexmk = true
	f.starter.script("latexmk", "Latexmk: All targets (main.pdf) are up-to-date\n", 0)

	if _, err := f.run(t, ActionTypeset, path); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := f.starter.started[0].Name; got != "latexmk" {
		t.Errorf("started %s, want latexmk", got)
	}
}

func TestPlainLatexConvertsToPDF(t *testing.T) {
	tests := []struct {
		name      string
		dvipsCode int
		want      []string
		notice    bool
	}{
		{"converted", 0, []string{"latex main.tex", "dvips main.ps", "ps2pdf main.ps"}, false},
		{"dvips fails", 1, []string{"latex main.tex", "dvips main.ps"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, path := newDocument(t, "\\usepackage{pstricks}\n\\begin{document}\n")
			f := newFixture()
			f.starter.script("latex", latexClean, 0)
			f.starter.script("dvips", "", tt.dvipsCode)

			st, err := f.run(t, ActionTypeset, path)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if st.Engine != "latex" {
				t.Fatalf("engine = %s, want latex", st.Engine)
			}

			got := f.starter.names()
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("started %v, want %v", got, tt.want)
			}

			failed := false
			for _, rec := range f.sink.records {
				if strings.Contains(rec.Message, "Converting to PDF failed") {
					failed = true
				}
			}
			if failed != tt.notice {
				t.Errorf("conversion notice = %v, want %v", failed, tt.notice)
			}
		})
	}
}

func TestExternalViewerDismissesPanel(t *testing.T) {
	_, path := newDocument(t, "\\begin{document}\n")
	f := newFixture()
	f.cfg.Viewer.Name = "Skim"
	f.cfg.Viewer.KeepLogWindow = false
	f.starter.script("pdflatex", latexClean, 0)

	st, err := f.run(t, ActionTypeset, path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if st.ExitStatus != ExitDismiss {
		t.Errorf("exit status = %d, want %d", st.ExitStatus, ExitDismiss)
	}
	if got := f.starter.started[len(f.starter.started)-1].Name; got != "osascript" {
		t.Errorf("last command = %s, want the osascript refresh", got)
	}
	if len(f.starter.launched) != 0 {
		t.Errorf("launched %v although the refresh succeeded", f.starter.launched)
	}
}

func TestExternalViewerLaunchedWhenRefreshFails(t *testing.T) {
	_, path := newDocument(t, "\\begin{document}\n")
	f := newFixture()
	f.cfg.Viewer.Name = "Skim"
	f.starter.script("osascript", "", 1)

	if _, err := f.run(t, ActionView, path); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(f.starter.launched) != 1 || f.starter.launched[0].Name != "open" {
		t.Fatalf("launched = %v, want open -a Skim", f.starter.launched)
	}
	if pdf := lastArg(f.starter.launched[0].Args); filepath.Base(pdf) != "main.pdf" {
		t.Errorf("launched for %s", pdf)
	}
}

func TestSync(t *testing.T) {
	_, path := newDocument(t, "\\begin{document}\n")

	t.Run("unsupported", func(t *testing.T) {
		f := newFixture()
		f.help = "Usage: pdftex [OPTION]...\n"
		_, err := f.run(t, ActionSync, path)
		if !errors.Is(err, ErrSyncUnsupported) {
			t.Fatalf("Run() error = %v, want ErrSyncUnsupported", err)
		}
		if code := ExitCode(err); code != ExitSyncUnsupported {
			t.Errorf("ExitCode() = %d, want %d", code, ExitSyncUnsupported)
		}
	})

	t.Run("zathura", func(t *testing.T) {
		f := newFixture()
		f.cfg.Viewer.Name = "zathura"
		_, err := f.supervisor().Run(context.Background(), Request{Action: ActionSync, File: path, Line: 7})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.starter.launched) != 1 {
			t.Fatalf("launched = %v", f.starter.launched)
		}
		args := f.starter.launched[0].Args
		if args[0] != "--synctex-forward" || !strings.HasPrefix(args[1], "7:1:") {
			t.Errorf("sync args = %v", args)
		}
	})
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.tex")
	b := filepath.Join(dir, "b.tex")
	writeFile(t, a, "%!TEX root = b.tex\n")
	writeFile(t, b, "%!TEX root = a.tex\n")

	tests := []struct {
		name     string
		file     string
		wantErr  error
		wantCode int
	}{
		{"missing file", filepath.Join(dir, "missing.tex"), ErrInputNotFound, ExitFailure},
		{"no file", "", ErrInputNotFound, ExitFailure},
		{"root cycle", a, engine.ErrRootCycle, ExitRootCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.run(t, ActionTypeset, tt.file)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if code := ExitCode(err); code != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d", code, tt.wantCode)
			}
			if len(f.starter.started) != 0 {
				t.Errorf("started %q", f.starter.names())
			}
		})
	}
}

func TestEngineVersion(t *testing.T) {
	_, path := newDocument(t, "\\begin{document}\n")
	f := newFixture()

	st, err := f.run(t, ActionVersion, path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if st.Version != "pdfTeX 3.141592653-2.6-1.40.25 (TeX Live 2024)" {
		t.Errorf("version = %q", st.Version)
	}
	if len(f.starter.started) != 0 {
		t.Errorf("version started %q", f.starter.names())
	}
}

func TestClean(t *testing.T) {
	dir, path := newDocument(t, "\\begin{document}\n")
	for _, name := range []string{"main.aux", "main.log", "main.synctex.gz", "bu2.aux", "main.pdf", "notes.txt"} {
		writeFile(t, filepath.Join(dir, name), "x")
	}
	f := newFixture()

	if _, err := f.run(t, ActionClean, path); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{"main.aux", "main.log", "main.synctex.gz", "bu2.aux"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s was not removed", name)
		}
	}
	for _, name := range []string{"main.tex", "main.pdf", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s was removed: %v", name, err)
		}
	}
	notices := f.sink.ofKind(parser.KindNotice)
	if len(notices) != 1 || notices[0].Message != "Removed 4 auxiliary files" {
		t.Errorf("notices = %+v", notices)
	}
}

func TestSupportDirExtendsTexinputs(t *testing.T) {
	_, path := newDocument(t, "\\begin{document}\n")
	f := newFixture()
	f.cfg.Engine.SupportDir = "/opt/texwatch/support/"
	f.env = []string{"TEXINPUTS=/my/styles", "HOME=/home/test"}
	f.starter.script("pdflatex", latexClean, 0)

	if _, err := f.run(t, ActionTypeset, path); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	env := f.starter.started[0].Env
	want := "TEXINPUTS=/my/styles:/opt/texwatch/support/tex//"
	if !contains(env, want) || !contains(env, "HOME=/home/test") {
		t.Errorf("env = %v, want %s", env, want)
	}
	if len(env) != 2 {
		t.Errorf("env = %v, want TEXINPUTS replaced", env)
	}
}

func TestNoExtensionNotice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper")
	writeFile(t, path, "\\begin{document}\n")
	f := newFixture()
	f.starter.script("pdflatex", latexClean, 0)

	if _, err := f.run(t, ActionTypeset, path); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	notices := f.sink.ofKind(parser.KindNotice)
	if len(notices) == 0 || !strings.Contains(notices[0].Message, "no extension") {
		t.Errorf("notices = %+v", notices)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"typeset", ActionTypeset, false},
		{"latex", ActionTypeset, false},
		{"BUILD", ActionBuild, false},
		{"engine-version", ActionVersion, false},
		{"publish", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAction(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
