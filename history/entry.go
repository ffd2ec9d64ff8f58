package history

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/avplay-cli/avplay/media"
)

// Entry is the last known playback position of one file.
type Entry struct {
	Path       string    `json:"path"`
	PositionUs int64     `json:"position_us"`
	DurationUs int64     `json:"duration_us"`
	SavedAt    time.Time `json:"saved_at"`
}

// Percentage returns how much of the file was played, from 0 to 100.
func (e *Entry) Percentage() float64 {
	if e.DurationUs <= 0 {
		return 0
	}
	return min(float64(e.PositionUs)/float64(e.DurationUs)*100, 100)
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s : %s / %s", filepath.Base(e.Path),
		media.Micros(e.PositionUs).Truncate(time.Second),
		media.Micros(e.DurationUs).Truncate(time.Second))
}
