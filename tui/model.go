package tui

import (
	"errors"
	"time"

	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/player"
	"github.com/avplay-cli/avplay/util"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	refreshInterval = 100 * time.Millisecond
	seekStep        = 5 * time.Second
	frameStep       = time.Second
)

var errNoNextFile = errors.New("no other file to switch to")

type (
	tickMsg     time.Time
	switchedMsg struct {
		index int
		err   error
	}
)

type model struct {
	player    player.Player
	files     []string
	current   int
	newTarget func(path string) media.RenderTarget
	accurate  bool

	status  player.Status
	lastErr error

	keys      *keymap
	notifier  notifier
	helpC     help.Model
	progressC progress.Model

	width, height int
}

func newModel(p player.Player, options Options) *model {
	m := &model{
		player:    p,
		files:     options.Files,
		newTarget: options.NewTarget,
		accurate:  options.Accurate,
		status:    p.Status(),
		keys:      newKeymap(),
		helpC:     help.New(),
		progressC: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}

	width, height, err := util.TerminalSize()
	if err != nil {
		width, height = 80, 24
	}
	m.resize(width, height)
	return m
}

func (m *model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	m.width, m.height = width-x, height-y
	m.helpC.Width = m.width
	m.progressC.Width = max(m.width, 10)
}

func (m *model) mode() media.SeekMode {
	if m.accurate {
		return media.Accurate
	}
	return media.Inaccurate
}

// offset returns the position d away from the current one, kept inside the file.
func (m *model) offset(d time.Duration) int64 {
	pos := max(m.status.PositionUs, 0) + media.ToMicros(d)
	if m.status.DurationUs > 0 {
		return util.Clamp(pos, 0, m.status.DurationUs)
	}
	return max(pos, 0)
}

func (m *model) switchNext() tea.Cmd {
	if len(m.files) < 2 {
		m.lastErr = errNoNextFile
		return nil
	}

	var (
		index     = (m.current + 1) % len(m.files)
		path      = m.files[index]
		p         = m.player
		newTarget = m.newTarget
	)

	return func() tea.Msg {
		var target media.RenderTarget
		if newTarget != nil {
			target = newTarget(path)
		}
		return switchedMsg{index: index, err: p.SwitchSource(path, target)}
	}
}
