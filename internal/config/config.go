package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the complete application configuration. A loaded Config is
// treated as an immutable snapshot for the duration of a run.
type Config struct {
	Version string       `yaml:"version" toml:"version" json:"version"`
	Engine  EngineConfig `yaml:"engine" toml:"engine" json:"engine"`
	Build   BuildConfig  `yaml:"build" toml:"build" json:"build"`
	Viewer  ViewerConfig `yaml:"viewer" toml:"viewer" json:"viewer"`
	Output  OutputConfig `yaml:"output" toml:"output" json:"output"`
	Watch   WatchConfig  `yaml:"watch" toml:"watch" json:"watch"`
	Debug   bool         `yaml:"debug" toml:"debug" json:"debug"`
}

// EngineConfig configures the typesetting engine
type EngineConfig struct {
	Name       string `yaml:"name" toml:"name" json:"name"`                      // pdflatex|xelatex|lualatex|latex|...
	Options    string `yaml:"options" toml:"options" json:"options"`             // appended after the fixed options
	SupportDir string `yaml:"support_dir" toml:"support_dir" json:"support_dir"` // added to TEXINPUTS as <dir>/tex//
}

// BuildConfig configures how a document is built
type BuildConfig struct {
	UseLatexmk       bool   `yaml:"use_latexmk" toml:"use_latexmk" json:"use_latexmk"`
	Master           string `yaml:"master" toml:"master" json:"master"`
	Verbose          bool   `yaml:"verbose" toml:"verbose" json:"verbose"` // echo unclassified tool output
	AbortOnFatal     bool   `yaml:"abort_on_fatal" toml:"abort_on_fatal" json:"abort_on_fatal"`
	CountBoxWarnings bool   `yaml:"count_box_warnings" toml:"count_box_warnings" json:"count_box_warnings"`
	WrapWidth        int    `yaml:"wrap_width" toml:"wrap_width" json:"wrap_width"`
	History          bool   `yaml:"history" toml:"history" json:"history"`
}

// ViewerConfig configures the PDF viewer
type ViewerConfig struct {
	Name          string `yaml:"name" toml:"name" json:"name"`
	AutoView      bool   `yaml:"auto_view" toml:"auto_view" json:"auto_view"`
	KeepLogWindow bool   `yaml:"keep_log_window" toml:"keep_log_window" json:"keep_log_window"`
}

// OutputConfig configures the rendered report
type OutputConfig struct {
	Format     string `yaml:"format" toml:"format" json:"format"`                // text|html|json
	ColorMode  string `yaml:"color_mode" toml:"color_mode" json:"color_mode"`    // auto|always|never
	LinkScheme string `yaml:"link_scheme" toml:"link_scheme" json:"link_scheme"` // txmt|file
	Theme      string `yaml:"theme" toml:"theme" json:"theme"`                   // default|high-contrast|minimal
}

// WatchConfig configures watch mode
type WatchConfig struct {
	Action     string        `yaml:"action" toml:"action" json:"action"`
	Debounce   time.Duration `yaml:"debounce" toml:"debounce" json:"debounce"`
	Extensions []string      `yaml:"extensions" toml:"extensions" json:"extensions"`
}

// DefaultViewer keeps the PDF inside the editor's output pane
const DefaultViewer = "TextMate"

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Engine: EngineConfig{
			Name:    "pdflatex",
			Options: "",
		},
		Build: BuildConfig{
			UseLatexmk:       false,
			Verbose:          false,
			AbortOnFatal:     true,
			CountBoxWarnings: false,
			WrapWidth:        80,
			History:          true,
		},
		Viewer: ViewerConfig{
			Name:          DefaultViewer,
			AutoView:      true,
			KeepLogWindow: true,
		},
		Output: OutputConfig{
			Format:     "text",
			ColorMode:  "auto",
			LinkScheme: "txmt",
			Theme:      "default",
		},
		Watch: WatchConfig{
			Action:     "",
			Debounce:   300 * time.Millisecond,
			Extensions: []string{".tex", ".bib", ".sty", ".cls"},
		},
		Debug: false,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateEngineConfig(); err != nil {
		return err
	}
	if err := c.validateBuildConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	if err := c.validateWatchConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngineConfig() error {
	if strings.TrimSpace(c.Engine.Name) == "" {
		return fmt.Errorf("engine name must not be empty")
	}
	if strings.ContainsAny(c.Engine.Name, " \t/") {
		return fmt.Errorf("invalid engine name: %q (must be a program name)", c.Engine.Name)
	}
	return nil
}

func (c *Config) validateBuildConfig() error {
	if c.Build.WrapWidth < 0 {
		return fmt.Errorf("wrap_width must be non-negative")
	}
	return nil
}

func (c *Config) validateOutputConfig() error {
	if c.Output.Format != "" {
		validFormats := map[string]bool{
			"text": true,
			"html": true,
			"json": true,
		}
		if !validFormats[c.Output.Format] {
			return fmt.Errorf("invalid output format: %s (must be one of: text, html, json)", c.Output.Format)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	if c.Output.LinkScheme != "" && c.Output.LinkScheme != "txmt" && c.Output.LinkScheme != "file" {
		return fmt.Errorf("invalid link scheme: %s (must be one of: txmt, file)", c.Output.LinkScheme)
	}
	if c.Output.Theme != "" {
		validThemes := map[string]bool{
			"default":       true,
			"high-contrast": true,
			"minimal":       true,
		}
		if !validThemes[c.Output.Theme] {
			return fmt.Errorf("invalid theme: %s (must be one of: default, high-contrast, minimal)", c.Output.Theme)
		}
	}
	return nil
}

func (c *Config) validateWatchConfig() error {
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch debounce must be non-negative")
	}
	for _, ext := range c.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("invalid watch extension: %q (must start with a dot)", ext)
		}
	}
	return nil
}

// DefaultAction is the action watch mode reruns when none is configured
func (c *Config) DefaultAction() string {
	if c.Watch.Action != "" {
		return c.Watch.Action
	}
	if c.Build.UseLatexmk {
		return "latexmk"
	}
	return "typeset"
}

// ExternalViewer reports whether the PDF is shown outside the editor
func (c *Config) ExternalViewer() bool {
	return c.Viewer.Name != "" && c.Viewer.Name != DefaultViewer
}
