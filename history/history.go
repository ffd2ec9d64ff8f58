// Package history persists per-file playback positions so that playback can be continued later.
package history

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/avplay-cli/avplay/filesystem"
	"github.com/avplay-cli/avplay/where"
	"github.com/metafates/gache"
	"github.com/samber/mo"
)

// finishedMargin is how close to the end a position counts as played through.
const finishedMargin = time.Second

var cacher = sync.OnceValue(func() *gache.Cache[map[string]*Entry] {
	return gache.New[map[string]*Entry](&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	})
})

// Get returns every saved entry keyed by absolute path.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher().Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Save records the position reached in path. A file played through to its
// end is forgotten instead, so the next playback starts from the beginning.
func Save(path string, positionUs, durationUs int64) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	saved, err := Get()
	if err != nil {
		return err
	}

	if positionUs <= 0 || (durationUs > 0 && positionUs >= durationUs-finishedMargin.Microseconds()) {
		delete(saved, abs)
	} else {
		saved[abs] = &Entry{
			Path:       abs,
			PositionUs: positionUs,
			DurationUs: durationUs,
			SavedAt:    time.Now(),
		}
	}

	return cacher().Set(saved)
}

// Position returns the saved position of path, if any.
func Position(path string) (mo.Option[int64], error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return mo.None[int64](), fmt.Errorf("history: %w", err)
	}

	saved, err := Get()
	if err != nil {
		return mo.None[int64](), err
	}

	if entry, ok := saved[abs]; ok {
		return mo.Some(entry.PositionUs), nil
	}
	return mo.None[int64](), nil
}

// Remove forgets the entry of path.
func Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, abs)
	return cacher().Set(saved)
}
