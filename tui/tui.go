// Package tui provides the interactive transport controls.
package tui

import (
	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/player"
	tea "github.com/charmbracelet/bubbletea"
)

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	// Files are the files 'n' cycles through. The first is the one playing.
	Files []string

	// Accurate selects the initial seek mode.
	Accurate bool

	// NewTarget builds the video target for a file switched to.
	NewTarget func(path string) media.RenderTarget

	// Subscribe registers for engine events, which are shown as notifications.
	Subscribe func(player.EventCallback)
}

// Run drives p until the user quits.
func Run(p player.Player, options Options) error {
	program := tea.NewProgram(newModel(p, options), tea.WithAltScreen())

	if options.Subscribe != nil {
		events := make(chan player.Event, 64)
		done := make(chan struct{})
		defer close(done)

		options.Subscribe(func(e player.Event) {
			select {
			case events <- e:
			default:
			}
		})

		go func() {
			for {
				select {
				case <-done:
					return
				case e := <-events:
					program.Send(eventMsg(e))
				}
			}
		}()
	}

	_, err := program.Run()
	return err
}
