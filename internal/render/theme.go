package render

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a colour set for the text renderer
type Theme struct {
	Name string

	Primary lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor

	// Semantic colors
	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Box     lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor
}

// buildTheme creates a theme from [light, dark] pairs
func buildTheme(name string, primary, muted, success, warning, box, errorColor, info [2]string) Theme {
	return Theme{
		Name:    name,
		Primary: lipgloss.AdaptiveColor{Light: primary[0], Dark: primary[1]},
		Muted:   lipgloss.AdaptiveColor{Light: muted[0], Dark: muted[1]},
		Success: lipgloss.AdaptiveColor{Light: success[0], Dark: success[1]},
		Warning: lipgloss.AdaptiveColor{Light: warning[0], Dark: warning[1]},
		Box:     lipgloss.AdaptiveColor{Light: box[0], Dark: box[1]},
		Error:   lipgloss.AdaptiveColor{Light: errorColor[0], Dark: errorColor[1]},
		Info:    lipgloss.AdaptiveColor{Light: info[0], Dark: info[1]},
	}
}

// Available themes
var (
	DefaultTheme = buildTheme("default",
		[2]string{"#1E40AF", "#3B82F6"}, [2]string{"#6B7280", "#9CA3AF"},
		[2]string{"#059669", "#10B981"}, [2]string{"#D97706", "#F59E0B"}, [2]string{"#7C3AED", "#A855F7"},
		[2]string{"#DC2626", "#EF4444"}, [2]string{"#0891B2", "#06B6D4"})

	HighContrastTheme = buildTheme("high-contrast",
		[2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"},
		[2]string{"#006600", "#00FF00"}, [2]string{"#CC6600", "#FFAA00"}, [2]string{"#800080", "#FF80FF"},
		[2]string{"#CC0000", "#FF4444"}, [2]string{"#0066CC", "#4499FF"})

	MinimalTheme = buildTheme("minimal",
		[2]string{"#2D3748", "#E2E8F0"}, [2]string{"#A0AEC0", "#718096"},
		[2]string{"#2F855A", "#68D391"}, [2]string{"#C05621", "#F6AD55"}, [2]string{"#553C9A", "#B794F6"},
		[2]string{"#C53030", "#FC8181"}, [2]string{"#2B6CB0", "#63B3ED"})
)

// ThemeByName looks a theme up; unknown names fall back to the default
func ThemeByName(name string) (Theme, bool) {
	switch name {
	case "", "default":
		return DefaultTheme, true
	case "high-contrast":
		return HighContrastTheme, true
	case "minimal":
		return MinimalTheme, true
	default:
		return DefaultTheme, false
	}
}

// ThemeNames lists the available themes
func ThemeNames() []string {
	return []string{"default", "high-contrast", "minimal"}
}

// IsColorDisabled honours the NO_COLOR convention
func IsColorDisabled() bool {
	return os.Getenv("NO_COLOR") != ""
}

// Styles are the lipgloss styles built from a theme
type Styles struct {
	Theme Theme

	Header  lipgloss.Style
	Muted   lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Box     lipgloss.Style
	Error   lipgloss.Style
	Fatal   lipgloss.Style
	Link    lipgloss.Style
}

// NewStyles builds the styles of theme for r
func NewStyles(r *lipgloss.Renderer, theme Theme) *Styles {
	return &Styles{
		Theme: theme,

		Header: r.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Muted: r.NewStyle().
			Foreground(theme.Muted),

		Info: r.NewStyle().
			Foreground(theme.Info),

		Success: r.NewStyle().
			Foreground(theme.Success).
			Bold(true),

		Warning: r.NewStyle().
			Foreground(theme.Warning).
			Bold(true),

		Box: r.NewStyle().
			Foreground(theme.Box),

		Error: r.NewStyle().
			Foreground(theme.Error).
			Bold(true),

		Fatal: r.NewStyle().
			Foreground(theme.Error).
			Bold(true).
			Underline(true),

		Link: r.NewStyle().
			Foreground(theme.Muted).
			Underline(true),
	}
}
