package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.texwatch.yaml",               // Project-specific config (highest priority)
	"./.texwatch.toml",               // Project-specific config, TOML flavour
	"~/.config/texwatch/config.yaml", // User config
	"~/.config/texwatch/config.toml", // User config, TOML flavour
	"/etc/texwatch/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	warn        func(format string, args ...interface{})
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
		warn: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
		},
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. ./.texwatch.yaml, ./.texwatch.toml
// 4. ~/.config/texwatch/config.yaml, config.toml
// 5. /etc/texwatch/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := expandPath(l.configPaths[i])
			if !fileExists(expandedPath) {
				continue
			}
			if err := l.loadFromFile(config, expandedPath); err != nil {
				l.warn("Failed to load config from %s: %v", expandedPath, err)
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes a YAML or TOML file on top of config. Keys missing
// from the file keep the value they already had, so booleans can be turned
// off by one file without the next file turning them back on by omission.
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() or comes from ConfigPaths
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// decode into a copy so a half-parsed file leaves config untouched
	merged := *config
	merged.Watch.Extensions = append([]string(nil), config.Watch.Extensions...)

	if isTOML(path) {
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&merged); err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	*config = merged
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Engine Config
		"TEXWATCH_ENGINE":             func(v string) error { config.Engine.Name = v; return nil },
		"TEXWATCH_ENGINE_OPTIONS":     func(v string) error { config.Engine.Options = v; return nil },
		"TEXWATCH_ENGINE_SUPPORT_DIR": func(v string) error { config.Engine.SupportDir = v; return nil },

		// Build Config
		"TEXWATCH_BUILD_USE_LATEXMK":        func(v string) error { return parseBool(v, &config.Build.UseLatexmk) },
		"TEXWATCH_BUILD_MASTER":             func(v string) error { config.Build.Master = v; return nil },
		"TEXWATCH_BUILD_VERBOSE":            func(v string) error { return parseBool(v, &config.Build.Verbose) },
		"TEXWATCH_BUILD_ABORT_ON_FATAL":     func(v string) error { return parseBool(v, &config.Build.AbortOnFatal) },
		"TEXWATCH_BUILD_COUNT_BOX_WARNINGS": func(v string) error { return parseBool(v, &config.Build.CountBoxWarnings) },
		"TEXWATCH_BUILD_WRAP_WIDTH":         func(v string) error { return parseInt(v, &config.Build.WrapWidth) },
		"TEXWATCH_BUILD_HISTORY":            func(v string) error { return parseBool(v, &config.Build.History) },

		// Viewer Config
		"TEXWATCH_VIEWER":                 func(v string) error { config.Viewer.Name = v; return nil },
		"TEXWATCH_VIEWER_AUTO_VIEW":       func(v string) error { return parseBool(v, &config.Viewer.AutoView) },
		"TEXWATCH_VIEWER_KEEP_LOG_WINDOW": func(v string) error { return parseBool(v, &config.Viewer.KeepLogWindow) },

		// Output Config
		"TEXWATCH_OUTPUT_FORMAT":      func(v string) error { config.Output.Format = v; return nil },
		"TEXWATCH_OUTPUT_COLOR_MODE":  func(v string) error { config.Output.ColorMode = v; return nil },
		"TEXWATCH_OUTPUT_LINK_SCHEME": func(v string) error { config.Output.LinkScheme = v; return nil },
		"TEXWATCH_OUTPUT_THEME":       func(v string) error { config.Output.Theme = v; return nil },

		// Watch Config
		"TEXWATCH_WATCH_ACTION":   func(v string) error { config.Watch.Action = v; return nil },
		"TEXWATCH_WATCH_DEBOUNCE": func(v string) error { return parseDuration(v, &config.Watch.Debounce) },

		"TEXWATCH_DEBUG": func(v string) error { return parseBool(v, &config.Debug) },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	// comma-separated list
	if exts := os.Getenv("TEXWATCH_WATCH_EXTENSIONS"); exts != "" {
		config.Watch.Extensions = nil
		for _, ext := range strings.Split(exts, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				config.Watch.Extensions = append(config.Watch.Extensions, ext)
			}
		}
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Marshal renders config as yaml, toml or json-compatible yaml for display
func Marshal(config *Config, format string) ([]byte, error) {
	switch format {
	case "yaml", "":
		return yaml.Marshal(config)
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (use yaml or toml)", format)
	}
}

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" && ext != ".toml" {
		return fmt.Errorf("config file must have .yaml, .yml or .toml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/etc/passwd") ||
		strings.HasPrefix(absPath, "/etc/shadow") ||
		strings.HasPrefix(absPath, "/proc/") ||
		strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
