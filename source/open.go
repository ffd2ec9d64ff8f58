package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/avplay-cli/avplay/filesystem"
	"github.com/avplay-cli/avplay/log"
)

// Container identifies a supported file layout.
type Container string

const (
	IVF      Container = "ivf"
	Ogg      Container = "ogg"
	Matroska Container = "matroska"
)

var (
	magicIVF      = []byte("DKIF")
	magicOgg      = []byte("OggS")
	magicMatroska = []byte{0x1A, 0x45, 0xDF, 0xA3}
)

// Sniff identifies the container from its leading bytes.
func Sniff(head []byte) (Container, error) {
	switch {
	case bytes.HasPrefix(head, magicIVF):
		return IVF, nil
	case bytes.HasPrefix(head, magicOgg):
		return Ogg, nil
	case bytes.HasPrefix(head, magicMatroska):
		return Matroska, nil
	default:
		return "", ErrUnsupportedContainer
	}
}

// Open indexes the file at path through the active filesystem backend.
func Open(path string) (*Table, error) {
	f, err := filesystem.ReadOnly().Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", path, err)
	}
	t.name = path
	return t, nil
}

// Read indexes a container from r.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(4)
	if err != nil {
		return nil, ErrUnsupportedContainer
	}

	container, err := Sniff(head)
	if err != nil {
		return nil, err
	}

	var tracks []TrackData
	switch container {
	case IVF:
		tracks, err = readIVF(br)
	case Ogg:
		tracks, err = readOgg(br)
	case Matroska:
		tracks, err = readMatroska(br)
	}
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s has no playable tracks", ErrNoTrack, container)
	}

	for _, td := range tracks {
		log.Debugf("source: %s track %d: %s %s, %d samples", container, td.Track.ID, td.Track.Kind, td.Track.Format.MIME, len(td.Samples))
	}
	return NewTable(tracks...), nil
}

// truncated decides whether a read error ends a partially indexed track or fails it.
func truncated(err error, indexed int, what string) error {
	if indexed == 0 {
		return err
	}
	log.Warnf("source: %s truncated after %d samples: %s", what, indexed, err)
	return nil
}
