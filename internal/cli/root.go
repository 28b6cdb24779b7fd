package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/yildizm/texwatch/internal/config"
	"github.com/yildizm/texwatch/internal/emoji"
	"github.com/yildizm/texwatch/internal/engine"
	"github.com/yildizm/texwatch/internal/logger"
	"github.com/yildizm/texwatch/internal/runner"
	"github.com/yildizm/texwatch/internal/ui"
)

// app holds what every command shares: streams, process hooks, global flags
// and the configuration once it is loaded
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	starter  runner.Starter
	lookPath engine.LookPathFunc
	output   engine.OutputFunc
	terminal func() bool

	// global flags
	cfgFile     string
	verbose     bool
	debug       bool
	noColor     bool
	noEmoji     bool
	outputFmt   string
	firstRun    bool
	interactive bool

	cfg *config.Config
	log *logger.Logger
}

func newApp() *app {
	a := &app{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		getenv:   os.Getenv,
		starter:  runner.ExecStarter{},
		lookPath: exec.LookPath,
		output:   engine.CombinedOutput,
		terminal: ui.Interactive,
	}
	a.log = logger.NewWithCallback("texwatch", a.isDebug)
	return a
}

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	return newApp().rootCommand(version, commit, date)
}

func (a *app) rootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "texwatch",
		Short: "Typeset LaTeX documents and report what the tools said",
		Long: `texwatch runs LaTeX, BibTeX, makeindex, latexmk and chktex on a document and
turns their output into a report of errors, warnings and clickable locations.

The file to work on is the positional argument or $TM_FILEPATH. A "%!TEX root"
directive, the build.master setting or $TM_LATEX_MASTER picks the file that is
actually typeset. Reports are written as text, as an HTML fragment for an editor
output pane, or as JSON lines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				a.noEmoji = true
			}
			emoji.SetEmojiDisabled(a.noEmoji)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "echo tool output no rule classified")
	flags.BoolVar(&a.debug, "debug", false, "log what texwatch decides and runs")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&a.noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	flags.StringVarP(&a.outputFmt, "output", "o", "", "output format (text, html, json)")
	flags.BoolVar(&a.firstRun, "first-run", false, "first report in the output pane: no separator, show the action buttons")
	flags.BoolVarP(&a.interactive, "interactive", "i", false, "offer follow-up actions after the run")

	a.log.SetOutput(a.stderr)
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	for _, c := range actionCommands {
		rootCmd.AddCommand(a.newActionCommand(c))
	}
	rootCmd.AddCommand(a.newWatchCommand())
	rootCmd.AddCommand(a.newLastCommand())
	rootCmd.AddCommand(a.newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "texwatch %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func (a *app) isDebug() bool {
	return a.debug || (a.cfg != nil && a.cfg.Debug)
}

// config loads the configuration once and applies the global flags on top
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg, err := config.NewLoader().LoadConfig(a.cfgFile)
	if err != nil {
		return nil, &ExitError{Code: runner.ExitFailure, Err: err}
	}
	if a.verbose {
		cfg.Build.Verbose = true
	}
	if a.debug {
		cfg.Debug = true
	}
	if a.outputFmt != "" {
		cfg.Output.Format = a.outputFmt
	}
	if a.noColor {
		cfg.Output.ColorMode = "never"
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ExitError{Code: runner.ExitFailure, Err: err}
	}

	a.cfg = cfg
	a.log.Debug("configuration loaded (engine=%s, viewer=%s, format=%s)", cfg.Engine.Name, cfg.Viewer.Name, cfg.Output.Format)
	return cfg, nil
}
