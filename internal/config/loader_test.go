package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}
	if len(loader.configPaths) != 5 {
		t.Errorf("Expected 5 config paths, got %d", len(loader.configPaths))
	}
}

func quietLoader(paths ...string) *Loader {
	return &Loader{configPaths: paths, warn: func(string, ...interface{}) {}}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := quietLoader().LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	if cfg.Engine.Name != "pdflatex" {
		t.Errorf("Expected default engine pdflatex, got %s", cfg.Engine.Name)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Expected default output format text, got %s", cfg.Output.Format)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "texwatch.yaml")
	configContent := `engine:
  name: xelatex
  options: "-shell-escape"
viewer:
  name: Skim
  auto_view: false
watch:
  debounce: 1s
  extensions: [".tex", ".bib"]
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg, err := NewLoader().LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config from file: %v", err)
	}

	if cfg.Engine.Name != "xelatex" || cfg.Engine.Options != "-shell-escape" {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Viewer.Name != "Skim" || cfg.Viewer.AutoView {
		t.Errorf("Viewer = %+v", cfg.Viewer)
	}
	if !cfg.Viewer.KeepLogWindow {
		t.Error("keep_log_window missing from file should keep its default")
	}
	if cfg.Watch.Debounce != time.Second || len(cfg.Watch.Extensions) != 2 {
		t.Errorf("Watch = %+v", cfg.Watch)
	}
}

func TestLoadConfigFromTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "texwatch.toml")
	configContent := `debug = true

[build]
use_latexmk = true
master = "thesis.tex"

[output]
format = "html"
link_scheme = "file"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}
	if !cfg.Debug || !cfg.Build.UseLatexmk || cfg.Build.Master != "thesis.tex" {
		t.Errorf("Build = %+v, Debug = %v", cfg.Build, cfg.Debug)
	}
	if cfg.Output.Format != "html" || cfg.Output.LinkScheme != "file" {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if !cfg.Build.AbortOnFatal {
		t.Error("abort_on_fatal missing from file should keep its default")
	}
}

func TestLoadConfigPriority(t *testing.T) {
	dir := t.TempDir()
	high := filepath.Join(dir, "high.yaml")
	low := filepath.Join(dir, "low.toml")
	if err := os.WriteFile(high, []byte("engine:\n  name: lualatex\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(low, []byte("[engine]\nname = \"xelatex\"\noptions = \"-8bit\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := quietLoader(high, low).LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Name != "lualatex" {
		t.Errorf("higher priority file should win, got %s", cfg.Engine.Name)
	}
	if cfg.Engine.Options != "-8bit" {
		t.Errorf("keys only in the lower file should survive, got %q", cfg.Engine.Options)
	}
}

func TestLoadConfigBrokenFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("engine: [unclosed\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var warnings []string
	loader := &Loader{
		configPaths: []string{broken},
		warn: func(format string, args ...interface{}) {
			warnings = append(warnings, format)
		},
	}
	cfg, err := loader.LoadConfig("")
	if err != nil {
		t.Fatalf("search-path failures should only warn: %v", err)
	}
	if cfg.Engine.Name != "pdflatex" || len(warnings) != 1 {
		t.Errorf("engine = %s, warnings = %d", cfg.Engine.Name, len(warnings))
	}

	if _, err := NewLoader().LoadConfig(broken); err == nil {
		t.Error("Expected error loading invalid YAML config, but got none")
	}
}

func TestLoadConfigInvalidPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"config.json", "extension"},
		{"../outside.yaml", "path traversal"},
	}
	for _, tt := range tests {
		_, err := NewLoader().LoadConfig(tt.path)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("LoadConfig(%q) error = %v, want %q", tt.path, err, tt.want)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TEXWATCH_ENGINE", "lualatex")
	t.Setenv("TEXWATCH_VIEWER_AUTO_VIEW", "false")
	t.Setenv("TEXWATCH_BUILD_WRAP_WIDTH", "120")
	t.Setenv("TEXWATCH_WATCH_DEBOUNCE", "2s")
	t.Setenv("TEXWATCH_WATCH_EXTENSIONS", ".tex, .bib ,,.sty")

	cfg := DefaultConfig()
	if err := NewLoader().applyEnvOverrides(cfg); err != nil {
		t.Fatalf("Failed to apply env overrides: %v", err)
	}

	if cfg.Engine.Name != "lualatex" {
		t.Errorf("Expected engine lualatex, got %s", cfg.Engine.Name)
	}
	if cfg.Viewer.AutoView {
		t.Error("Expected auto_view false")
	}
	if cfg.Build.WrapWidth != 120 {
		t.Errorf("Expected wrap width 120, got %d", cfg.Build.WrapWidth)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Expected 2s debounce, got %v", cfg.Watch.Debounce)
	}
	expected := []string{".tex", ".bib", ".sty"}
	if strings.Join(cfg.Watch.Extensions, "|") != strings.Join(expected, "|") {
		t.Errorf("Expected extensions %v, got %v", expected, cfg.Watch.Extensions)
	}
}

func TestApplyEnvOverridesInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{"invalid int", "TEXWATCH_BUILD_WRAP_WIDTH", "wide"},
		{"invalid bool", "TEXWATCH_BUILD_USE_LATEXMK", "not-a-bool"},
		{"invalid duration", "TEXWATCH_WATCH_DEBOUNCE", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)

			err := NewLoader().applyEnvOverrides(DefaultConfig())
			if err == nil {
				t.Error("Expected error for invalid env var value, but got none")
			}
		})
	}
}

func TestParseHelpers(t *testing.T) {
	var d time.Duration
	if err := parseDuration("30s", &d); err != nil || d != 30*time.Second {
		t.Errorf("parseDuration = %v, %v", d, err)
	}
	var n int
	if err := parseInt("42", &n); err != nil || n != 42 {
		t.Errorf("parseInt = %d, %v", n, err)
	}
	var b bool
	if err := parseBool("true", &b); err != nil || !b {
		t.Errorf("parseBool = %v, %v", b, err)
	}
	if err := parseBool("maybe", &b); err == nil {
		t.Error("Expected error for invalid bool, but got none")
	}
}

func TestMarshal(t *testing.T) {
	cfg := DefaultConfig()
	for _, format := range []string{"yaml", "toml"} {
		data, err := Marshal(cfg, format)
		if err != nil {
			t.Fatalf("Marshal(%s) error = %v", format, err)
		}
		if !strings.Contains(string(data), "pdflatex") {
			t.Errorf("Marshal(%s) output misses the engine:\n%s", format, data)
		}
	}
	if _, err := Marshal(cfg, "ini"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestSampleConfigLoads(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{"full.yaml": SampleConfig(), "min.yaml": MinimalSampleConfig()} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := NewLoader().LoadConfig(path); err != nil {
			t.Errorf("sample %s does not load: %v", name, err)
		}
	}
}
