// Package style composes lipgloss styles for CLI and TUI output.
package style

import (
	"github.com/avplay-cli/avplay/color"
	"github.com/charmbracelet/lipgloss"
)

// Role colors of the interactive view.
var (
	Base         = lipgloss.Color("#1e1e2e")
	AccentColor  = lipgloss.Color("#cba6f7")
	FaintColor   = lipgloss.Color("#6c7086")
	SuccessColor = lipgloss.Color("#a6e3a1")
	WarningColor = lipgloss.Color("#f9e2af")
	ErrorColor   = lipgloss.Color("#f38ba8")
)

func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Colored returns a style with the given foreground and background.
func Colored(fg, bg lipgloss.Color) lipgloss.Style {
	return New().Foreground(fg).Background(bg)
}

// Fg returns a renderer painting text in c.
func Fg(c lipgloss.Color) func(string) string {
	return func(s string) string { return Colored(c, "").Render(s) }
}

// Truncate returns a renderer that constrains text to width max.
func Truncate(max int) func(string) string {
	return func(s string) string { return New().Width(max).Render(s) }
}

var (
	Faint = func(s string) string { return New().Faint(true).Render(s) }
	Bold  = func(s string) string { return New().Bold(true).Render(s) }
)

// Title renders the banner at the top of the interactive view.
var Title = func(s string) string {
	return Colored(color.New("230"), color.New("62")).Padding(0, 1).Render(s)
}

// Tag returns a renderer for a padded label on a colored background.
func Tag(fg, bg lipgloss.Color) func(string) string {
	return func(s string) string { return Colored(fg, bg).Padding(0, 1).Render(s) }
}
