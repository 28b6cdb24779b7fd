package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/yildizm/texwatch/internal/history"
	"github.com/yildizm/texwatch/internal/render"
	"github.com/yildizm/texwatch/internal/runner"
)

func (a *app) newLastCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "last [file]",
		Short: "Show the report of the last run again",
		Long: `Read the run history kept next to the document and render it again in the
chosen output format, without running any tool.

The history is written by typeset, build, bibtex, index, latexmk and chktex
while build.history is on. An interrupted run is shown as far as it got.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLast(args)
		},
	}
}

func (a *app) runLast(args []string) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	req := a.request(runner.ActionTypeset, args)
	doc, err := a.locate(cfg, req)
	if err != nil {
		return err
	}

	run, err := history.Load(history.PathFor(doc.Dir, doc.Base))
	if err != nil {
		if errors.Is(err, history.ErrNoHistory) {
			return &ExitError{Code: runner.ExitFailure, Err: errors.New("no recorded run for " + doc.Name + ", typeset it first")}
		}
		return err
	}
	if !run.Complete {
		a.log.Warn("the last run of %s did not finish", doc.Name)
	}

	r, err := render.New(cfg.Output.Format, a.stdout, a.renderOptions(cfg, false))
	if err != nil {
		return &ExitError{Code: runner.ExitFailure, Err: err}
	}

	title := run.Title
	if !run.Time.IsZero() {
		title += " (" + run.Time.Local().Format("2006-01-02 15:04:05") + ")"
	}
	r.Begin(title)
	for _, rec := range run.Records {
		r.Emit(rec)
	}
	r.Summary(run.Summary)
	return r.Close()
}
