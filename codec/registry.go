package codec

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/avplay-cli/avplay/log"
	"github.com/avplay-cli/avplay/media"
	"github.com/samber/lo"
)

// Candidate is one decoder implementation the registry can hand out.
type Candidate struct {
	Name      string
	Hardware  bool
	MIMEs     []string
	MaxWidth  int
	MaxHeight int
	New       func() media.DecoderEngine
}

// Supports reports whether the candidate can decode a stream of the given type and size.
func (c Candidate) Supports(mime string, width, height int) bool {
	if !lo.ContainsBy(c.MIMEs, func(m string) bool { return strings.EqualFold(m, mime) }) {
		return false
	}
	if c.MaxWidth > 0 && width > c.MaxWidth {
		return false
	}
	if c.MaxHeight > 0 && height > c.MaxHeight {
		return false
	}
	return true
}

// Registry selects decoders by probing registered candidates.
type Registry struct {
	mu             sync.RWMutex
	candidates     []Candidate
	preferHardware bool
}

// NewRegistry creates an empty registry.
func NewRegistry(preferHardware bool) *Registry {
	return &Registry{preferHardware: preferHardware}
}

// Register appends a candidate; earlier registrations win ties.
func (r *Registry) Register(c Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = append(r.candidates, c)
}

// Candidates lists, in probe order, every candidate able to decode the stream.
func (r *Registry) Candidates(mime string, width, height int) []Candidate {
	r.mu.RLock()
	matching := lo.Filter(r.candidates, func(c Candidate, _ int) bool {
		return c.Supports(mime, width, height)
	})
	r.mu.RUnlock()

	return r.ordered(matching)
}

// All lists every registered candidate in probe order.
func (r *Registry) All() []Candidate {
	r.mu.RLock()
	all := append([]Candidate(nil), r.candidates...)
	r.mu.RUnlock()

	return r.ordered(all)
}

func (r *Registry) ordered(candidates []Candidate) []Candidate {
	if r.preferHardware {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Hardware && !candidates[j].Hardware
		})
	}
	return candidates
}

// SelectDecoder returns a fresh engine from the first matching candidate.
func (r *Registry) SelectDecoder(mime string, width, height int) (media.DecoderEngine, error) {
	candidates := r.Candidates(mime, width, height)
	for _, c := range candidates {
		log.Debugf("codec: probing %s (hardware=%t) for %s %dx%d", c.Name, c.Hardware, mime, width, height)
		if engine := c.New(); engine != nil {
			log.Infof("codec: selected %s for %s", c.Name, mime)
			return engine, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %dx%d", ErrNoDecoder, mime, width, height)
}

// Default returns a registry holding the bundled software decoders.
func Default(preferHardware bool, opts ...Option) *Registry {
	r := NewRegistry(preferHardware)

	software := []struct {
		name  string
		mimes []string
	}{
		{"sw.vpx", []string{media.MIMEVP8, media.MIMEVP9}},
		{"sw.av1", []string{media.MIMEAV1}},
		{"sw.avc", []string{media.MIMEAVC}},
		{"sw.hevc", []string{media.MIMEHEVC}},
		{"sw.opus", []string{media.MIMEOpus}},
		{"sw.vorbis", []string{media.MIMEVorbis}},
		{"sw.aac", []string{media.MIMEAAC}},
	}

	for _, s := range software {
		name := s.name
		r.Register(Candidate{
			Name:      name,
			MIMEs:     s.mimes,
			MaxWidth:  8192,
			MaxHeight: 4320,
			New: func() media.DecoderEngine {
				return NewPassthrough(name, opts...)
			},
		})
	}
	return r
}
