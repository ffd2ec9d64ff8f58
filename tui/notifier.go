package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/avplay-cli/avplay/icon"
	"github.com/avplay-cli/avplay/player"
	"github.com/avplay-cli/avplay/style"
	"github.com/avplay-cli/avplay/util"
	tea "github.com/charmbracelet/bubbletea"
)

const notificationLifetime = 3 * time.Second

type (
	eventMsg             player.Event
	clearNotificationMsg struct{ seq int }
)

// notifier shows the latest engine event next to the help line for a few seconds.
type notifier struct {
	text string
	seq  int
}

func (n *notifier) notify(text string) tea.Cmd {
	n.text = text
	n.seq++

	seq := n.seq
	return tea.Tick(notificationLifetime, func(time.Time) tea.Msg {
		return clearNotificationMsg{seq: seq}
	})
}

// clear drops the notification unless a newer one replaced it.
func (n *notifier) clear(msg clearNotificationMsg) {
	if msg.seq == n.seq {
		n.text = ""
	}
}

func (n *notifier) View(content string) string {
	if n.text == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	lines[len(lines)-1] += "  " + style.Fg(style.FaintColor)(n.text)
	return strings.Join(lines, "\n")
}

// describe returns the notification for e, or nothing for events not worth showing.
func describe(e eventMsg) (string, bool) {
	switch e.Kind {
	case player.EventSeeked:
		if e.Result.Delivered > 0 {
			return fmt.Sprintf("%s %s frame rendered", icon.Get(icon.Seek), e.Track), true
		}
		return fmt.Sprintf("%s %s seeked", icon.Get(icon.Seek), e.Track), true
	case player.EventSwitched:
		return fmt.Sprintf("%s %s switched", icon.Get(icon.Switch), e.Track), true
	case player.EventFinished:
		if e.Result.Delivered == 0 {
			return "", false
		}
		return fmt.Sprintf(
			"%s %s %s after %s",
			icon.Get(icon.Stop), e.Track, e.Result.Reason,
			util.Quantify(e.Result.Delivered, "unit", "units"),
		), true
	case player.EventFailed:
		return fmt.Sprintf("%s %s: %s", icon.Get(icon.Fail), e.Track, e.Err), true
	default:
		return "", false
	}
}
