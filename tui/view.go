package tui

import (
	"fmt"
	"strings"

	"github.com/avplay-cli/avplay/color"
	"github.com/avplay-cli/avplay/constant"
	"github.com/avplay-cli/avplay/icon"
	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/player"
	"github.com/avplay-cli/avplay/style"
	"github.com/avplay-cli/avplay/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

func stateIcon(s player.State) string {
	switch s {
	case player.Playing:
		return icon.Get(icon.Play)
	case player.Paused:
		return icon.Get(icon.Pause)
	case player.Completed:
		return icon.Get(icon.Success)
	default:
		return icon.Get(icon.Stop)
	}
}

func kindIcon(k media.TrackKind) string {
	if k == media.Video {
		return icon.Get(icon.Video)
	}
	return icon.Get(icon.Audio)
}

// StatusLine renders a one-line summary of st.
func StatusLine(st player.Status) string {
	return fmt.Sprintf(
		"%s %s  %s / %s  %s",
		stateIcon(st.State),
		util.FileStem(st.File),
		util.Timestamp(max(st.PositionUs, 0)),
		util.Timestamp(st.DurationUs),
		st.State,
	)
}

func (m *model) View() string {
	st := m.status

	lines := []string{
		style.Title(constant.Avplay) + " " + style.Tag(style.Base, style.AccentColor)(st.State.String()),
		"",
		style.Truncate(m.width)(stateIcon(st.State) + " " + style.Fg(color.Purple)(util.FileStem(st.File))),
		"",
		m.progressC.ViewAs(st.Percentage() / 100),
		fmt.Sprintf(
			"%s / %s  %s",
			util.Timestamp(max(st.PositionUs, 0)),
			util.Timestamp(st.DurationUs),
			style.Fg(style.FaintColor)(m.mode().String()+" seek"),
		),
		"",
	}

	for _, t := range st.Tracks {
		lines = append(lines, style.Truncate(m.width)(fmt.Sprintf(
			"%s %s %s via %s  %s delivered, %s dropped",
			kindIcon(t.Kind),
			style.Bold(t.Kind.String()),
			t.MIME,
			t.Decoder,
			style.Fg(style.SuccessColor)(fmt.Sprint(t.Stats.Delivered)),
			style.Fg(style.WarningColor)(fmt.Sprint(t.Stats.Dropped+t.Stats.LateDropped)),
		)))
	}

	if len(m.files) > 1 {
		lines = append(lines, "", style.Faint(fmt.Sprintf(
			"%s file %d of %d", icon.Get(icon.Switch), m.current+1, len(m.files),
		)))
	}

	if m.lastErr != nil {
		lines = append(lines, "", m.viewError())
	}

	return m.renderLines(lines)
}

func (m *model) viewError() string {
	body := fmt.Sprintf("%s %s", icon.Get(icon.Fail), m.lastErr)
	wrapped := wrap.String(wordwrap.String(body, m.width), m.width)
	return style.Fg(style.ErrorColor)(wrapped)
}

func (m *model) renderLines(lines []string) string {
	body := strings.Join(lines, "\n")
	if h := lipgloss.Height(body) + 1; m.height > h {
		body += strings.Repeat("\n", m.height-h)
	}
	body += "\n" + m.notifier.View(m.helpC.View(m.keys))

	return paddingStyle.Render(body)
}
