package tui

import (
	"github.com/avplay-cli/avplay/color"
	"github.com/avplay-cli/avplay/style"
	"github.com/charmbracelet/bubbles/key"
)

type keymap struct {
	pauseResume,
	play,
	back, forward,
	stepBack, stepForward,
	toggleAccurate,
	switchSource,
	quit, forceQuit,
	showHelp key.Binding
}

func newKeymap() *keymap {
	return &keymap{
		pauseResume: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "pause/resume"),
		),
		play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp(style.Fg(color.Orange)("p"), style.Fg(color.Orange)("play")),
		),
		back: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "-5s"),
		),
		forward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "+5s"),
		),
		stepBack: key.NewBinding(
			key.WithKeys(","),
			key.WithHelp(",", "frame at -1s"),
		),
		stepForward: key.NewBinding(
			key.WithKeys("."),
			key.WithHelp(".", "frame at +1s"),
		),
		toggleAccurate: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "accurate seek"),
		),
		switchSource: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next file"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k *keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.pauseResume, k.play, k.back, k.forward, k.quit, k.showHelp}
}

// FullHelp implements help.KeyMap.
func (k *keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.pauseResume, k.play, k.quit},
		{k.back, k.forward, k.stepBack, k.stepForward},
		{k.toggleAccurate, k.switchSource, k.showHelp},
	}
}
