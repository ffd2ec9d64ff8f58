// Package probe inspects media files and caches what it finds.
package probe

import (
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/avplay-cli/avplay/codec"
	"github.com/avplay-cli/avplay/filesystem"
	"github.com/avplay-cli/avplay/log"
	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/source"
	"github.com/avplay-cli/avplay/where"
	"github.com/invopop/jsonschema"
	"github.com/metafates/gache"
	"github.com/samber/lo"
)

// Track is one track of a probed file and the decoder that would play it.
type Track struct {
	media.Track
	Decoder    string   `json:"decoder,omitempty" jsonschema:"description=First decoder probed for this track"`
	Candidates []string `json:"candidates" jsonschema:"description=Every matching decoder in probe order"`
}

// Report describes one probed file.
type Report struct {
	File       string           `json:"file" jsonschema:"description=Absolute path of the file"`
	Container  source.Container `json:"container" jsonschema:"enum=ivf,enum=ogg,enum=matroska"`
	Size       int64            `json:"size"`
	ModTime    time.Time        `json:"mod_time"`
	DurationUs int64            `json:"duration_us"`
	Tracks     []Track          `json:"tracks"`
}

// Playable reports whether every track has a decoder.
func (r *Report) Playable() bool {
	return len(r.Tracks) > 0 && lo.EveryBy(r.Tracks, func(t Track) bool { return t.Decoder != "" })
}

// Lister lists the decoders able to play a stream, in probe order.
type Lister interface {
	Candidates(mime string, width, height int) []codec.Candidate
}

var cacher = sync.OnceValue(func() *gache.Cache[map[string]*Report] {
	return gache.New[map[string]*Report](&gache.Options{
		Path:       where.Probes(),
		Lifetime:   time.Hour * 24 * 7,
		FileSystem: &filesystem.GacheFs{},
	})
})

// Inspect reads path and builds a fresh report.
func Inspect(path string, decoders Lister) (*Report, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}

	fs := filesystem.API()
	info, err := fs.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}

	container, err := sniff(abs)
	if err != nil {
		return nil, err
	}

	table, err := source.Open(abs)
	if err != nil {
		return nil, err
	}
	defer table.Release()

	return &Report{
		File:       abs,
		Container:  container,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		DurationUs: table.Duration(),
		Tracks: lo.Map(table.Tracks(), func(t media.Track, _ int) Track {
			names := lo.Map(decoders.Candidates(t.Format.MIME, t.Format.Width, t.Format.Height), func(c codec.Candidate, _ int) string {
				return c.Name
			})
			return Track{Track: t, Decoder: lo.FirstOrEmpty(names), Candidates: names}
		}),
	}, nil
}

func sniff(path string) (source.Container, error) {
	f, err := filesystem.ReadOnly().Open(path)
	if err != nil {
		return "", fmt.Errorf("probe: %w", err)
	}
	defer f.Close()

	head := make([]byte, 4)
	if _, err := io.ReadFull(f, head); err != nil {
		return "", fmt.Errorf("probe: %s: %w", path, source.ErrUnsupportedContainer)
	}
	return source.Sniff(head)
}

// File returns the cached report of path when the file is unchanged since
// it was probed, and probes it again otherwise.
func File(path string, decoders Lister) (*Report, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}

	cached, expired, err := cacher().Get()
	if err != nil || expired || cached == nil {
		cached = make(map[string]*Report)
	}

	if report, ok := cached[abs]; ok {
		info, err := filesystem.API().Stat(abs)
		if err == nil && info.Size() == report.Size && info.ModTime().Equal(report.ModTime) {
			log.Debugf("probe: cache hit for %s", abs)
			return report, nil
		}
	}

	report, err := Inspect(abs, decoders)
	if err != nil {
		return nil, err
	}

	cached[abs] = report
	if err := cacher().Set(cached); err != nil {
		log.Warnf("probe: caching %s: %s", abs, err)
	}
	return report, nil
}

// Forget drops every cached report.
func Forget() error {
	return cacher().Set(make(map[string]*Report))
}

// Schema returns the JSON schema of a Report.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	reflector.Namer = func(t reflect.Type) string {
		return filepath.Base(t.PkgPath()) + "." + t.Name()
	}
	return reflector.Reflect(&Report{})
}
