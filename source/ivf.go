package source

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/avplay-cli/avplay/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
)

var ivfCodecs = map[string]string{
	"VP80": media.MIMEVP8,
	"VP90": media.MIMEVP9,
	"AV01": media.MIMEAV1,
	"H264": media.MIMEAVC,
	"HEVC": media.MIMEHEVC,
	"H265": media.MIMEHEVC,
}

func readIVF(r io.Reader) ([]TrackData, error) {
	reader, header, err := ivfreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("ivf header: %w", err)
	}
	if header.TimebaseDenominator == 0 {
		return nil, errors.New("ivf header: zero timebase")
	}

	fourcc := strings.ToUpper(strings.TrimSpace(header.FourCC))
	mime, ok := ivfCodecs[fourcc]
	if !ok {
		return nil, fmt.Errorf("%w: ivf fourcc %q", ErrUnsupportedContainer, header.FourCC)
	}

	var samples []Sample
	for {
		frame, fh, err := reader.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if err = truncated(err, len(samples), "ivf"); err != nil {
				return nil, err
			}
			break
		}

		pts := int64(fh.Timestamp) * 1_000_000 * int64(header.TimebaseNumerator) / int64(header.TimebaseDenominator)
		samples = append(samples, Sample{
			PTS:  pts,
			Sync: isKeyframe(mime, frame),
			Data: frame,
		})
	}

	return []TrackData{{
		Track: media.Track{
			ID:   1,
			Kind: media.Video,
			Format: media.Format{
				MIME:   mime,
				Codec:  fourcc,
				Width:  int(header.Width),
				Height: int(header.Height),
			},
		},
		Samples: samples,
	}}, nil
}
