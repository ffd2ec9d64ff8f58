package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/avplay-cli/avplay/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// Opus granule positions always count 48 kHz samples.
const opusGranuleRate = 48000

var opusTags = []byte("OpusTags")

func readOgg(r io.Reader) ([]TrackData, error) {
	reader, header, err := oggreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("ogg header: %w", err)
	}

	var (
		samples []Sample
		granule uint64
		preSkip = uint64(header.PreSkip)
	)

	for {
		payload, ph, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if err = truncated(err, len(samples), "ogg"); err != nil {
				return nil, err
			}
			break
		}
		if bytes.HasPrefix(payload, opusTags) {
			continue
		}

		start := uint64(0)
		if granule > preSkip {
			start = granule - preSkip
		}
		samples = append(samples, Sample{
			PTS:  int64(start * 1_000_000 / opusGranuleRate),
			Sync: true,
			Data: payload,
		})

		// -1 marks a page on which no packet completes.
		if ph.GranulePosition != ^uint64(0) {
			granule = ph.GranulePosition
		}
	}

	return []TrackData{{
		Track: media.Track{
			ID:   1,
			Kind: media.Audio,
			Format: media.Format{
				MIME:       media.MIMEOpus,
				Codec:      "opus",
				SampleRate: opusGranuleRate,
				Channels:   int(header.Channels),
			},
		},
		Samples: samples,
	}}, nil
}
