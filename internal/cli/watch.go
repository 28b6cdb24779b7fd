package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yildizm/texwatch/internal/emoji"
	"github.com/yildizm/texwatch/internal/runner"
	"github.com/yildizm/texwatch/internal/watch"
)

func (a *app) newWatchCommand() *cobra.Command {
	var actionName string

	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Typeset again whenever the document changes",
		Long: `Run an action once, then watch the document's directory and run it again
whenever a source file changes. Bursts of changes are folded into one run.
Build outputs such as .aux, .log and .pdf files never trigger a run.
Press Ctrl+C to stop watching.

Examples:
  texwatch watch thesis.tex
  texwatch watch --action build thesis.tex`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd.Context(), actionName, args)
		},
	}

	cmd.Flags().StringVarP(&actionName, "action", "a", "", "action to rerun (default watch.action, typeset or latexmk)")

	return cmd
}

func (a *app) runWatch(parent context.Context, actionName string, args []string) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if actionName == "" {
		actionName = cfg.DefaultAction()
	}
	action, err := runner.ParseAction(actionName)
	if err != nil {
		return &ExitError{Code: runner.ExitFailure, Err: err}
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		select {
		case sig := <-signals:
			a.log.Info("received %s, stopping", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	req := a.request(action, args)
	st, err := a.runOnce(ctx, cfg, req, true)
	if st == nil || st.Document == nil {
		return err
	}
	if err != nil {
		a.log.Warn("%s failed: %v", action, err)
	}

	w, err := watch.New(watch.Options{
		Root:       st.Document.Dir,
		Extensions: cfg.Watch.Extensions,
		Debounce:   cfg.Watch.Debounce,
		Log:        a.log.WithComponent("watch"),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			a.log.Warn("failed to close watcher: %v", err)
		}
	}()

	fmt.Fprintf(a.stderr, "%s Watching %s for changes to %s (press Ctrl+C to stop)\n",
		emoji.GetEmoji("watch"), st.Document.Dir, strings.Join(cfg.Watch.Extensions, " "))

	return w.Run(ctx, func(ctx context.Context, changed []string) {
		names := make([]string, 0, len(changed))
		for _, path := range changed {
			names = append(names, filepath.Base(path))
		}
		a.log.Debug("changed: %s", strings.Join(names, ", "))

		if _, err := a.runOnce(ctx, cfg, req, false); err != nil && ctx.Err() == nil {
			a.log.Warn("%s failed: %v", action, err)
		}
	})
}
