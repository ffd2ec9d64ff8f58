package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"sort"
	"strings"
	"time"

	"github.com/avplay-cli/avplay/log"
	"github.com/avplay-cli/avplay/media"
	"github.com/remko/go-mkvparse"
)

const (
	mkvTrackVideo = 1
	mkvTrackAudio = 2

	defaultTimecodeScale = 1_000_000
)

var errShortBlock = errors.New("matroska: short block")

var matroskaCodecs = map[string]string{
	"V_VP8":            media.MIMEVP8,
	"V_VP9":            media.MIMEVP9,
	"V_AV1":            media.MIMEAV1,
	"V_MPEG4/ISO/AVC":  media.MIMEAVC,
	"V_MPEGH/ISO/HEVC": media.MIMEHEVC,
	"A_OPUS":           media.MIMEOpus,
	"A_VORBIS":         media.MIMEVorbis,
	"A_AAC":            media.MIMEAAC,
}

// matroskaMIME maps a codec id, including AAC profile suffixes, to a MIME type.
func matroskaMIME(codecID string) string {
	if mime, ok := matroskaCodecs[codecID]; ok {
		return mime
	}
	if strings.HasPrefix(codecID, "A_AAC") {
		return media.MIMEAAC
	}
	return "application/x-matroska-" + strings.ToLower(codecID)
}

type matroskaTrack struct {
	number   int64
	kind     int64
	codecID  string
	width    int
	height   int
	rate     float64
	channels int
}

// matroskaIndexer collects track entries and blocks from the element stream.
type matroskaIndexer struct {
	scale       int64
	clusterTime int64

	entry   *matroskaTrack
	tracks  []*matroskaTrack
	samples map[int64][]Sample

	inGroup    bool
	groupBlock []byte
	groupRef   bool
	laced      bool
}

func readMatroska(r io.Reader) ([]TrackData, error) {
	h := &matroskaIndexer{
		scale:   defaultTimecodeScale,
		samples: make(map[int64][]Sample),
	}
	if err := mkvparse.Parse(r, h); err != nil {
		indexed := 0
		for _, s := range h.samples {
			indexed += len(s)
		}
		if err = truncated(err, indexed, "matroska"); err != nil {
			return nil, fmt.Errorf("matroska: %w", err)
		}
	}

	var tracks []TrackData
	for _, t := range h.tracks {
		var kind media.TrackKind
		switch t.kind {
		case mkvTrackVideo:
			kind = media.Video
		case mkvTrackAudio:
			kind = media.Audio
		default:
			continue
		}

		format := media.Format{
			MIME:     matroskaMIME(t.codecID),
			Codec:    t.codecID,
			Width:    t.width,
			Height:   t.height,
			Channels: t.channels,
		}
		if t.rate > 0 {
			format.SampleRate = int(t.rate)
		}

		tracks = append(tracks, TrackData{
			Track:   media.Track{ID: int(t.number), Kind: kind, Format: format},
			Samples: h.samples[t.number],
		})
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Track.ID < tracks[j].Track.ID
	})
	return tracks, nil
}

func (h *matroskaIndexer) HandleMasterBegin(id mkvparse.ElementID, _ mkvparse.ElementInfo) (bool, error) {
	switch id {
	case mkvparse.TrackEntryElement:
		h.entry = &matroskaTrack{}
	case mkvparse.BlockGroupElement:
		h.inGroup = true
		h.groupBlock = nil
		h.groupRef = false
	}
	return true, nil
}

func (h *matroskaIndexer) HandleMasterEnd(id mkvparse.ElementID, _ mkvparse.ElementInfo) error {
	switch id {
	case mkvparse.TrackEntryElement:
		if h.entry != nil {
			h.tracks = append(h.tracks, h.entry)
			h.entry = nil
		}
	case mkvparse.BlockGroupElement:
		h.inGroup = false
		if h.groupBlock != nil {
			return h.addBlock(h.groupBlock, !h.groupRef)
		}
	}
	return nil
}

func (h *matroskaIndexer) HandleString(id mkvparse.ElementID, value string, _ mkvparse.ElementInfo) error {
	if id == mkvparse.CodecIDElement && h.entry != nil {
		h.entry.codecID = value
	}
	return nil
}

func (h *matroskaIndexer) HandleInteger(id mkvparse.ElementID, value int64, _ mkvparse.ElementInfo) error {
	switch id {
	case mkvparse.TimecodeScaleElement:
		if value > 0 {
			h.scale = value
		}
	case mkvparse.TimecodeElement:
		h.clusterTime = value
	case mkvparse.ReferenceBlockElement:
		if h.inGroup {
			h.groupRef = true
		}
	}

	if h.entry == nil {
		return nil
	}
	switch id {
	case mkvparse.TrackNumberElement:
		h.entry.number = value
	case mkvparse.TrackTypeElement:
		h.entry.kind = value
	case mkvparse.PixelWidthElement:
		h.entry.width = int(value)
	case mkvparse.PixelHeightElement:
		h.entry.height = int(value)
	case mkvparse.ChannelsElement:
		h.entry.channels = int(value)
	}
	return nil
}

func (h *matroskaIndexer) HandleFloat(id mkvparse.ElementID, value float64, _ mkvparse.ElementInfo) error {
	if id == mkvparse.SamplingFrequencyElement && h.entry != nil {
		h.entry.rate = value
	}
	return nil
}

func (h *matroskaIndexer) HandleDate(mkvparse.ElementID, time.Time, mkvparse.ElementInfo) error {
	return nil
}

func (h *matroskaIndexer) HandleBinary(id mkvparse.ElementID, value []byte, _ mkvparse.ElementInfo) error {
	switch id {
	case mkvparse.SimpleBlockElement:
		if len(value) < 4 {
			return errShortBlock
		}
		n := vintWidth(value[0])
		if len(value) < n+3 {
			return errShortBlock
		}
		return h.addBlock(value, value[n+2]&0x80 != 0)
	case mkvparse.BlockElement:
		if h.inGroup {
			h.groupBlock = append([]byte(nil), value...)
		}
	}
	return nil
}

// addBlock parses a (Simple)Block header: track number vint, int16 relative
// timecode, flags byte.
func (h *matroskaIndexer) addBlock(block []byte, key bool) error {
	if len(block) == 0 {
		return errShortBlock
	}

	n := vintWidth(block[0])
	if n > 8 || len(block) < n+3 {
		return errShortBlock
	}

	track := int64(block[0] & (0xFF >> n))
	for _, b := range block[1:n] {
		track = track<<8 | int64(b)
	}

	relative := int64(int16(binary.BigEndian.Uint16(block[n : n+2])))
	flags := block[n+2]
	if flags&0x06 != 0 && !h.laced {
		h.laced = true
		log.Warnf("source: matroska track %d uses lacing, laced frames are indexed as one sample", track)
	}

	pts := (h.clusterTime + relative) * h.scale / 1000
	h.samples[track] = append(h.samples[track], Sample{
		PTS:  pts,
		Sync: key,
		Data: append([]byte(nil), block[n+3:]...),
	})
	return nil
}

// vintWidth returns the encoded length of an EBML variable-size integer.
func vintWidth(first byte) int {
	return bits.LeadingZeros8(first) + 1
}
