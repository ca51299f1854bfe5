package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/supportdesk/internal/config"
	"github.com/spf13/cobra"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Status    lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
	User      lipgloss.Color
	Assistant lipgloss.Color
	Banner    lipgloss.Color
}

var darkTheme = Theme{
	Status:    lipgloss.Color("#5FAFD7"), // light blue
	Success:   lipgloss.Color("#00D787"), // green
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
	User:      lipgloss.Color("#D7AFFF"), // lavender
	Assistant: lipgloss.Color("#E4E4E4"), // near white
	Banner:    lipgloss.Color("#FFAF00"), // amber
}

var lightTheme = Theme{
	Status:    lipgloss.Color("#005F87"),
	Success:   lipgloss.Color("#008700"),
	Error:     lipgloss.Color("#D70000"),
	Hint:      lipgloss.Color("#808080"),
	User:      lipgloss.Color("#5F00AF"),
	Assistant: lipgloss.Color("#1C1C1C"),
	Banner:    lipgloss.Color("#AF5F00"),
}

// themeFor resolves a preference to a palette. System follows the
// terminal background.
func themeFor(pref config.Theme) Theme {
	switch pref {
	case config.ThemeLight:
		return lightTheme
	case config.ThemeDark:
		return darkTheme
	default:
		if lipgloss.HasDarkBackground() {
			return darkTheme
		}
		return lightTheme
	}
}

func currentTheme() Theme {
	if state == nil {
		return darkTheme
	}
	return themeFor(state.Theme())
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Assistant)
}

func (t Theme) bannerStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Banner).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Banner).
		Padding(0, 1)
}

var themeCmd = &cobra.Command{
	Use:   "theme [light|dark|system]",
	Short: "Show or set the color theme",
	Long: `Show the current color theme, or persist a new preference.

"system" follows the terminal background.

Examples:
  supportdesk theme
  supportdesk theme dark`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(config.ThemeLight), string(config.ThemeDark), string(config.ThemeSystem)},
	RunE:      runTheme,
}

func runTheme(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		pref, err := config.ParseTheme(args[0])
		if err != nil {
			return err
		}
		if err := state.SetTheme(pref); err != nil {
			return fmt.Errorf("save theme: %w", err)
		}
	}

	pref := state.Theme()
	resolved := "light"
	if themeFor(pref) == darkTheme {
		resolved = "dark"
	}
	fmt.Printf("Theme: %s (%s)\n", pref, resolved)
	return nil
}
