package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yildizm/texwatch/internal/config"
	"github.com/yildizm/texwatch/internal/engine"
	"github.com/yildizm/texwatch/internal/history"
	"github.com/yildizm/texwatch/internal/link"
	"github.com/yildizm/texwatch/internal/parser"
	"github.com/yildizm/texwatch/internal/render"
	"github.com/yildizm/texwatch/internal/runner"
	"github.com/yildizm/texwatch/internal/ui"
)

type actionCommand struct {
	action  runner.Action
	use     string
	aliases []string
	short   string
}

// actionCommands are the subcommands handed to the supervisor
var actionCommands = []actionCommand{
	{runner.ActionTypeset, "typeset", []string{"latex"}, "Typeset the document once"},
	{runner.ActionBuild, "build", nil, "Typeset, run BibTeX and makeindex, then typeset twice more"},
	{runner.ActionBibtex, "bibtex", nil, "Run BibTeX on every aux file of the document"},
	{runner.ActionIndex, "index", []string{"makeindex"}, "Run makeindex on the document's indexes"},
	{runner.ActionLatexmk, "latexmk", nil, "Let latexmk bring the document up to date"},
	{runner.ActionChktex, "chktex", nil, "Check the document's style with chktex"},
	{runner.ActionView, "view", nil, "Show the PDF in the configured viewer"},
	{runner.ActionSync, "sync", nil, "Show the PDF position of a source line"},
	{runner.ActionClean, "clean", nil, "Remove auxiliary files"},
	{runner.ActionVersion, "engine-version", nil, "Print the version of the typesetting engine"},
}

func (a *app) newActionCommand(c actionCommand) *cobra.Command {
	var line int

	cmd := &cobra.Command{
		Use:     c.use + " [file]",
		Aliases: c.aliases,
		Short:   c.short,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := a.request(c.action, args)
			if c.action == runner.ActionSync {
				req.Line = line
				if req.Line == 0 {
					req.Line, _ = strconv.Atoi(a.getenv("TM_LINE_NUMBER"))
				}
			}
			return a.execute(cmd.Context(), req)
		},
	}

	if c.action == runner.ActionSync {
		cmd.Flags().IntVarP(&line, "line", "l", 0, "source line to show (default $TM_LINE_NUMBER)")
	}
	return cmd
}

// request builds a supervisor request from the arguments and the editor's
// environment
func (a *app) request(action runner.Action, args []string) runner.Request {
	req := runner.Request{
		Action: action,
		File:   a.getenv("TM_FILEPATH"),
		Master: a.getenv("TM_LATEX_MASTER"),
	}
	if len(args) > 0 {
		req.File = args[0]
	}
	return req
}

// execute runs one top-level request and, when asked, the follow-up
// actions picked from the menu
func (a *app) execute(ctx context.Context, req runner.Request) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	first := a.firstRun || cfg.Output.Format != render.FormatHTML
	st, err := a.runOnce(ctx, cfg, req, first)
	if err != nil {
		return err
	}

	if a.interactive && req.Action != runner.ActionVersion && cfg.Output.Format == render.FormatText && a.terminal() {
		if st, err = a.offerActions(ctx, cfg, req, st); err != nil {
			return err
		}
	}

	if st.ExitStatus != runner.ExitOK {
		return &ExitError{Code: st.ExitStatus}
	}
	return nil
}

// runOnce runs req and reports it. first is false for reports that follow
// another one in the same output.
func (a *app) runOnce(ctx context.Context, cfg *config.Config, req runner.Request, first bool) (*runner.RunState, error) {
	if req.Action == runner.ActionVersion {
		st, err := a.supervisor(cfg, nil).Run(ctx, req)
		if err != nil {
			return st, err
		}
		fmt.Fprintln(a.stdout, st.Version)
		return st, nil
	}

	r, err := render.New(cfg.Output.Format, a.stdout, a.renderOptions(cfg, !first))
	if err != nil {
		return nil, &ExitError{Code: runner.ExitFailure, Err: err}
	}
	report := render.Multi{r}

	title := ""
	if doc, err := a.locate(cfg, req); err == nil {
		title = doc.Name
		if cfg.Build.History && recordsHistory(req.Action) {
			if w, err := history.Create(history.PathFor(doc.Dir, doc.Base)); err != nil {
				a.log.Warn("run history disabled: %v", err)
			} else {
				report = append(report, w)
			}
		}
	}

	report.Begin(title)
	st, runErr := a.supervisor(cfg, report).Run(ctx, req)
	if runErr != nil {
		report.Emit(parser.Record{Kind: parser.KindNotice, Severity: parser.SeverityError, Message: runErr.Error()})
	}
	report.Summary(summaryOf(st))
	if first {
		report.Footer(footerOf(cfg, st))
	}
	if err := report.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("writing report: %w", err)
	}
	return st, runErr
}

func (a *app) supervisor(cfg *config.Config, sink parser.Sink) *runner.Supervisor {
	return runner.New(runner.Options{
		Config:   cfg,
		Sink:     sink,
		Starter:  a.starter,
		LookPath: a.lookPath,
		Output:   a.output,
		Logger:   a.log.WithComponent("runner"),
	})
}

// locate resolves the document a request typesets
func (a *app) locate(cfg *config.Config, req runner.Request) (*engine.Document, error) {
	if req.File == "" {
		return nil, runner.ErrInputNotFound
	}
	master := req.Master
	if master == "" {
		master = cfg.Build.Master
	}
	return engine.Locate(req.File, master)
}

// recordsHistory reports whether an action's report is worth keeping
func recordsHistory(action runner.Action) bool {
	switch action {
	case runner.ActionTypeset, runner.ActionBuild, runner.ActionBibtex,
		runner.ActionIndex, runner.ActionLatexmk, runner.ActionChktex:
		return true
	}
	return false
}

func (a *app) renderOptions(cfg *config.Config, rerun bool) render.Options {
	return render.Options{
		Color:      a.useColor(cfg),
		Verbose:    cfg.Build.Verbose,
		Theme:      cfg.Output.Theme,
		LinkScheme: link.Scheme(cfg.Output.LinkScheme),
		Rerun:      rerun,
	}
}

// useColor resolves the auto colour mode against the output stream
func (a *app) useColor(cfg *config.Config) bool {
	switch cfg.Output.ColorMode {
	case "always":
		return true
	case "never":
		return false
	}
	if render.IsColorDisabled() {
		return false
	}
	f, ok := a.stdout.(*os.File)
	return ok && ui.IsTerminal(f)
}

func summaryOf(st *runner.RunState) render.Summary {
	if st == nil {
		return render.Summary{}
	}
	return render.Summary{
		Errors:      st.Errors,
		Warnings:    st.Warnings,
		BoxWarnings: st.BoxWarnings,
		Runs:        st.Runs,
		Fatal:       st.Fatal,
		Aborted:     st.Aborted,
		Command:     st.LastCommand,
		Status:      st.ToolStatus,
		Show:        st.HasIssues(),
	}
}

func footerOf(cfg *config.Config, st *runner.RunState) render.Footer {
	f := render.Footer{
		Engine:   cfg.Engine.Name,
		Viewer:   cfg.Viewer.Name,
		External: cfg.ExternalViewer(),
		Latexmk:  cfg.Build.UseLatexmk,
	}
	if st != nil {
		if st.Engine != "" {
			f.Engine = st.Engine
		}
		if st.Document != nil {
			f.PDF = st.Document.OutputPath("pdf")
		}
	}
	return f
}

// offerActions shows the action menu until it is dismissed, running each
// picked action as a new report
func (a *app) offerActions(ctx context.Context, cfg *config.Config, req runner.Request, st *runner.RunState) (*runner.RunState, error) {
	theme, _ := render.ThemeByName(cfg.Output.Theme)
	for {
		engineName := cfg.Engine.Name
		title := req.File
		if st != nil && st.Engine != "" {
			engineName = st.Engine
		}
		if st != nil && st.Document != nil {
			title = st.Document.Name
		}

		model := ui.NewPickerModel(title, summaryOf(st).Line(), ui.DefaultItems(engineName, cfg.Build.UseLatexmk), theme)
		item, ok, err := ui.Pick(ctx, a.stdin, a.stdout, model)
		if err != nil || !ok {
			return st, err
		}

		if item.Action == ui.ActionConfig {
			data, err := config.Marshal(cfg, "yaml")
			if err != nil {
				return st, err
			}
			fmt.Fprint(a.stdout, string(data))
			continue
		}

		action, err := runner.ParseAction(item.Action)
		if err != nil {
			return st, err
		}
		req.Action = action
		if st, err = a.runOnce(ctx, cfg, req, false); err != nil {
			return st, err
		}
	}
}
