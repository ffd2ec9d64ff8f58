package tui

import (
	"github.com/avplay-cli/avplay/player"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tickMsg:
		m.status = m.player.Status()
		return m, tick()
	case switchedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.current = msg.index
			m.lastErr = nil
		}
		m.status = m.player.Status()
	case eventMsg:
		m.status = m.player.Status()
		if text, ok := describe(msg); ok {
			return m, m.notifier.notify(text)
		}
	case clearNotificationMsg:
		m.notifier.clear(msg)
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.status = m.player.Status()

	switch {
	case key.Matches(msg, m.keys.forceQuit, m.keys.quit):
		return tea.Quit
	case key.Matches(msg, m.keys.showHelp):
		m.helpC.ShowAll = !m.helpC.ShowAll
	case key.Matches(msg, m.keys.pauseResume):
		if m.status.State == player.Paused {
			m.player.Resume()
		} else {
			m.player.Pause()
		}
	case key.Matches(msg, m.keys.play):
		m.player.Play()
	case key.Matches(msg, m.keys.back):
		m.player.SeekAndPlay(m.offset(-seekStep), m.mode())
	case key.Matches(msg, m.keys.forward):
		m.player.SeekAndPlay(m.offset(seekStep), m.mode())
	case key.Matches(msg, m.keys.stepBack):
		m.player.Seek(m.offset(-frameStep), m.mode())
	case key.Matches(msg, m.keys.stepForward):
		m.player.Seek(m.offset(frameStep), m.mode())
	case key.Matches(msg, m.keys.toggleAccurate):
		m.accurate = !m.accurate
	case key.Matches(msg, m.keys.switchSource):
		return m.switchNext()
	}

	return nil
}
