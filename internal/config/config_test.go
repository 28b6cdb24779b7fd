package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", cfg.Version)
	}
	if cfg.Engine.Name != "pdflatex" {
		t.Errorf("Expected engine pdflatex, got %s", cfg.Engine.Name)
	}
	if cfg.Engine.Options != "" {
		t.Errorf("Expected no engine options, got %q", cfg.Engine.Options)
	}
	if !cfg.Viewer.AutoView || !cfg.Viewer.KeepLogWindow {
		t.Error("Expected auto_view and keep_log_window to default to true")
	}
	if cfg.Viewer.Name != "TextMate" {
		t.Errorf("Expected viewer TextMate, got %s", cfg.Viewer.Name)
	}
	if cfg.Build.UseLatexmk || cfg.Build.Verbose || cfg.Debug {
		t.Error("Expected use_latexmk, verbose and debug to default to false")
	}
	if !cfg.Build.AbortOnFatal || cfg.Build.CountBoxWarnings {
		t.Error("Expected abort_on_fatal on and count_box_warnings off")
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("Expected 300ms debounce, got %v", cfg.Watch.Debounce)
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func(mutate func(*Config)) *Config {
		cfg := DefaultConfig()
		mutate(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "empty engine",
			config:  valid(func(c *Config) { c.Engine.Name = " " }),
			wantErr: true,
			errMsg:  "engine name must not be empty",
		},
		{
			name:    "engine with arguments",
			config:  valid(func(c *Config) { c.Engine.Name = "pdflatex -shell-escape" }),
			wantErr: true,
			errMsg:  `invalid engine name: "pdflatex -shell-escape" (must be a program name)`,
		},
		{
			name:    "invalid output format",
			config:  valid(func(c *Config) { c.Output.Format = "markdown" }),
			wantErr: true,
			errMsg:  "invalid output format: markdown (must be one of: text, html, json)",
		},
		{
			name:    "invalid color mode",
			config:  valid(func(c *Config) { c.Output.ColorMode = "sometimes" }),
			wantErr: true,
			errMsg:  "invalid color mode: sometimes (must be one of: auto, always, never)",
		},
		{
			name:    "invalid link scheme",
			config:  valid(func(c *Config) { c.Output.LinkScheme = "vscode" }),
			wantErr: true,
			errMsg:  "invalid link scheme: vscode (must be one of: txmt, file)",
		},
		{
			name:    "negative wrap width",
			config:  valid(func(c *Config) { c.Build.WrapWidth = -1 }),
			wantErr: true,
			errMsg:  "wrap_width must be non-negative",
		},
		{
			name:    "negative debounce",
			config:  valid(func(c *Config) { c.Watch.Debounce = -time.Second }),
			wantErr: true,
			errMsg:  "watch debounce must be non-negative",
		},
		{
			name:    "extension without dot",
			config:  valid(func(c *Config) { c.Watch.Extensions = []string{"tex"} }),
			wantErr: true,
			errMsg:  `invalid watch extension: "tex" (must start with a dot)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Errorf("Validate() error = %q, want %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestDefaultAction(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.DefaultAction(); got != "typeset" {
		t.Errorf("DefaultAction() = %s, want typeset", got)
	}
	cfg.Build.UseLatexmk = true
	if got := cfg.DefaultAction(); got != "latexmk" {
		t.Errorf("DefaultAction() with latexmk = %s", got)
	}
	cfg.Watch.Action = "build"
	if got := cfg.DefaultAction(); got != "build" {
		t.Errorf("DefaultAction() with explicit action = %s", got)
	}
}

func TestExternalViewer(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ExternalViewer() {
		t.Error("TextMate is not an external viewer")
	}
	cfg.Viewer.Name = "Skim"
	if !cfg.ExternalViewer() {
		t.Error("Skim is an external viewer")
	}
}
