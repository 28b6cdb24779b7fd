package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yildizm/texwatch/internal/config"
	"github.com/yildizm/texwatch/internal/engine"
	"github.com/yildizm/texwatch/internal/logger"
	"github.com/yildizm/texwatch/internal/parser"
)

// Options wire a Supervisor to its collaborators. Only Config is required.
type Options struct {
	Config  *config.Config
	Sink    parser.Sink
	Starter Starter
	Factory parser.Factory

	// LookPath and Output are handed to the engine selector
	LookPath engine.LookPathFunc
	Output   engine.OutputFunc

	Logger *logger.Logger

	// Env is the environment children start from; nil means os.Environ()
	Env []string
}

// Request is one top-level command
type Request struct {
	Action Action

	// File is the file being edited
	File string

	// Master overrides the file to typeset; the config's master is used
	// when empty
	Master string

	// Line is the source line a sync request starts from
	Line int
}

// Supervisor runs tool invocations one at a time, feeds their output to the
// matching grammar and folds the results into a RunState
type Supervisor struct {
	cfg      *config.Config
	sink     parser.Sink
	starter  Starter
	factory  parser.Factory
	selector *engine.Selector
	log      *logger.Logger
	env      []string
}

// New creates a supervisor
func New(opts Options) *Supervisor {
	s := &Supervisor{
		cfg:     opts.Config,
		sink:    opts.Sink,
		starter: opts.Starter,
		factory: opts.Factory,
		log:     opts.Logger,
		env:     opts.Env,
	}
	if s.cfg == nil {
		s.cfg = config.DefaultConfig()
	}
	if s.starter == nil {
		s.starter = ExecStarter{}
	}
	if s.factory == nil {
		s.factory = parser.DefaultFactory
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.env == nil {
		s.env = os.Environ()
	}
	s.selector = engine.NewSelector(s.cfg.Engine.Name, opts.LookPath, opts.Output, s.log.WithComponent("engine"))
	return s
}

// Run executes req. The returned state is valid even when err is not nil,
// as far as the run got.
func (s *Supervisor) Run(ctx context.Context, req Request) (*RunState, error) {
	st := &RunState{Action: req.Action, Viewer: s.cfg.Viewer.Name}

	if req.File == "" {
		return st, fmt.Errorf("%w: no file given and TM_FILEPATH is not set", ErrInputNotFound)
	}
	master := req.Master
	if master == "" {
		master = s.cfg.Build.Master
	}

	doc, err := engine.Locate(req.File, master)
	if err != nil {
		return st, inputError(err)
	}
	st.Document = doc
	s.log.Debug("typesetting %s in %s", doc.Name, doc.Dir)

	pkgs, skipped, err := engine.FindPackages(doc.Dir, doc.Name)
	if err != nil {
		return st, inputError(err)
	}
	for _, inc := range skipped {
		s.warnNotice(fmt.Sprintf("Could not open %s to check for packages", inc))
	}
	st.Packages = pkgs
	s.log.Debug("packages = %s", strings.Join(pkgs, ", "))

	st.Engine, err = s.selector.Select(doc.Directives, pkgs)
	if err != nil {
		return st, err
	}
	st.Synctex = s.selector.SupportsSynctex(ctx, st.Engine)

	if req.Action == ActionVersion {
		st.Version, err = s.selector.Version(ctx, st.Engine)
		return st, err
	}

	if !doc.HasExtension() {
		s.warnNotice("Latex file has no extension. See log for errors/warnings")
	}
	if st.Synctex && pkgs.Uses("pdfsync") {
		s.warnNotice(fmt.Sprintf("%s supports synctex but you have included pdfsync. You can safely remove \\usepackage{pdfsync}", st.Engine))
	}

	action := req.Action
	if action == ActionTypeset && s.cfg.Build.UseLatexmk {
		action = ActionLatexmk
	}

	err = s.dispatch(ctx, st, action, req)
	if err == nil && action.typesets() && s.cfg.Viewer.AutoView && st.Clean() {
		if verr := s.showPDF(ctx, st); verr != nil {
			s.errorNotice(fmt.Sprintf("error opening viewer: %v", verr))
		}
	}
	st.ExitStatus = s.exitStatus(st)
	return st, err
}

func (s *Supervisor) dispatch(ctx context.Context, st *RunState, action Action, req Request) error {
	switch action {
	case ActionTypeset:
		return s.typeset(ctx, st)
	case ActionBuild:
		return s.build(ctx, st)
	case ActionBibtex:
		_, err := s.bibtex(ctx, st)
		return err
	case ActionIndex:
		_, err := s.makeindex(ctx, st)
		return err
	case ActionLatexmk:
		return s.latexmk(ctx, st)
	case ActionChktex:
		return s.chktex(ctx, st)
	case ActionView:
		return s.showPDF(ctx, st)
	case ActionSync:
		source, err := filepath.Abs(req.File)
		if err != nil {
			source = req.File
		}
		return s.syncPDF(ctx, st, source, req.Line)
	case ActionClean:
		return s.clean(st)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// exitStatus tells the host whether the results panel can go away: only
// when nothing needs reading and the PDF is shown somewhere else
func (s *Supervisor) exitStatus(st *RunState) int {
	if !s.cfg.Viewer.KeepLogWindow && st.Clean() && s.cfg.ExternalViewer() {
		return ExitDismiss
	}
	return ExitOK
}

// ExitCode maps an error returned by Run to a process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, engine.ErrRootCycle):
		return ExitRootCycle
	case errors.Is(err, ErrSyncUnsupported):
		return ExitSyncUnsupported
	default:
		return ExitFailure
	}
}

func inputError(err error) error {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrInputNotFound, err)
	}
	return err
}

func (s *Supervisor) emit(rec parser.Record) {
	if s.sink != nil {
		s.sink.Emit(rec)
	}
}

func (s *Supervisor) notice(msg string) {
	s.emit(parser.Record{Kind: parser.KindNotice, Severity: parser.SeverityInfo, Message: msg})
}

func (s *Supervisor) warnNotice(msg string) {
	s.emit(parser.Record{Kind: parser.KindNotice, Severity: parser.SeverityWarning, Message: msg})
}

func (s *Supervisor) errorNotice(msg string) {
	s.emit(parser.Record{Kind: parser.KindNotice, Severity: parser.SeverityError, Message: msg})
}

func viewRecord(pdf string, open bool) parser.Record {
	return parser.Record{
		Kind:     parser.KindView,
		Severity: parser.SeverityInfo,
		Message:  "Click Here to View",
		File:     filepath.Base(pdf),
		Path:     pdf,
		Open:     open,
	}
}
