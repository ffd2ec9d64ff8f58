package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/avplay-cli/avplay/filesystem"
	"github.com/avplay-cli/avplay/media"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

// gop builds a track whose sync points are every n samples, spaced step apart.
func gop(kind media.TrackKind, count, n int, step int64) TrackData {
	samples := make([]Sample, count)
	for i := range samples {
		samples[i] = Sample{PTS: int64(i) * step, Sync: i%n == 0, Data: []byte{byte(i)}}
	}
	return TrackData{
		Track:   media.Track{ID: int(kind) + 1, Kind: kind, Format: media.Format{MIME: media.MIMEVP8}},
		Samples: samples,
	}
}

func TestTable(t *testing.T) {
	Convey("Given a table with a sync point every 10 samples 100ms apart", t, func() {
		table := NewTable(gop(media.Video, 35, 10, 100_000))
		So(table.SelectTrack(1), ShouldBeNil)

		Convey("Track statistics are derived", func() {
			track := table.Tracks()[0]
			So(track.Samples, ShouldEqual, 35)
			So(track.Syncs, ShouldEqual, 4)
			So(track.Duration, ShouldEqual, 3_400_000)
			So(track.Format.MaxInputSize, ShouldEqual, media.DefaultMaxInputSize)
		})

		Convey("Reading walks samples in order until EOF", func() {
			buf := make([]byte, 8)
			for i := 0; i < 35; i++ {
				n, err := table.ReadSample(buf)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				So(buf[0], ShouldEqual, byte(i))
				table.Advance()
			}
			_, err := table.ReadSample(buf)
			So(err, ShouldEqual, io.EOF)
			So(table.SampleTime(), ShouldEqual, -1)
			So(table.Advance(), ShouldBeFalse)
		})

		Convey("A previous-sync seek lands at or before the target", func() {
			So(table.SeekTo(1_550_000, media.PreviousSync), ShouldBeNil)
			So(table.SampleTime(), ShouldEqual, 1_000_000)
			So(table.SampleFlags(), ShouldEqual, media.FlagSync)
		})

		Convey("A closest-sync seek may land after the target", func() {
			So(table.SeekTo(1_700_000, media.ClosestSync), ShouldBeNil)
			So(table.SampleTime(), ShouldEqual, 2_000_000)
		})

		Convey("A closest-sync tie resolves to the earlier sync point", func() {
			So(table.SeekTo(1_500_000, media.ClosestSync), ShouldBeNil)
			So(table.SampleTime(), ShouldEqual, 1_000_000)
		})

		Convey("Seeking past the end lands on the last sync point", func() {
			So(table.SeekTo(90_000_000, media.PreviousSync), ShouldBeNil)
			So(table.SampleTime(), ShouldEqual, 3_000_000)
		})

		Convey("A short buffer is reported", func() {
			_, err := table.ReadSample(nil)
			So(err, ShouldEqual, io.ErrShortBuffer)
		})

		Convey("Released tables refuse further use", func() {
			So(table.Release(), ShouldBeNil)
			_, err := table.ReadSample(make([]byte, 8))
			So(err, ShouldEqual, ErrReleased)
			So(table.SelectTrack(1), ShouldEqual, ErrReleased)
		})
	})

	Convey("Selecting an unknown track fails", t, func() {
		table := NewTable(gop(media.Video, 3, 1, 1))
		So(errors.Is(table.SelectTrack(9), ErrNoTrack), ShouldBeTrue)
		_, err := table.ReadSample(make([]byte, 8))
		So(err, ShouldEqual, ErrNoTrack)
	})

	Convey("Samples larger than the default slot raise the input size", t, func() {
		td := gop(media.Video, 1, 1, 1)
		td.Samples[0].Data = make([]byte, media.DefaultMaxInputSize+1)
		table := NewTable(td)
		So(table.Tracks()[0].Format.MaxInputSize, ShouldEqual, media.DefaultMaxInputSize+1)
	})
}

func ivfFile(fourcc string, frames [][]byte) []byte {
	var b bytes.Buffer
	header := make([]byte, 32)
	copy(header, "DKIF")
	binary.LittleEndian.PutUint16(header[6:], 32)
	copy(header[8:], fourcc)
	binary.LittleEndian.PutUint16(header[12:], 320)
	binary.LittleEndian.PutUint16(header[14:], 240)
	binary.LittleEndian.PutUint32(header[16:], 30)
	binary.LittleEndian.PutUint32(header[20:], 1)
	binary.LittleEndian.PutUint32(header[24:], uint32(len(frames)))
	b.Write(header)

	for i, f := range frames {
		fh := make([]byte, 12)
		binary.LittleEndian.PutUint32(fh, uint32(len(f)))
		binary.LittleEndian.PutUint64(fh[4:], uint64(i))
		b.Write(fh)
		b.Write(f)
	}
	return b.Bytes()
}

// ebml encodes one element with an 8-byte size field.
func ebml(id uint32, payload ...[]byte) []byte {
	var b bytes.Buffer
	idBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(idBytes, id)
	b.Write(bytes.TrimLeft(idBytes, "\x00"))

	body := bytes.Join(payload, nil)
	size := make([]byte, 8)
	binary.BigEndian.PutUint64(size, uint64(len(body)))
	size[0] = 0x01
	b.Write(size)
	b.Write(body)
	return b.Bytes()
}

func ebmlUint(id uint32, v uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, v)
	trimmed := bytes.TrimLeft(raw, "\x00")
	if len(trimmed) == 0 {
		trimmed = []byte{0}
	}
	return ebml(id, trimmed)
}

func ebmlFloat(id uint32, v float64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, math.Float64bits(v))
	return ebml(id, raw)
}

func simpleBlock(track byte, rel int16, key bool, data ...byte) []byte {
	flags := byte(0)
	if key {
		flags = 0x80
	}
	hdr := []byte{0x80 | track, byte(uint16(rel) >> 8), byte(rel), flags}
	return ebml(0xA3, append(hdr, data...))
}

func webmFile() []byte {
	header := ebml(0x1A45DFA3, ebml(0x4282, []byte("webm")))
	info := ebml(0x1549A966, ebmlUint(0x2AD7B1, 1_000_000))
	tracks := ebml(0x1654AE6B,
		ebml(0xAE,
			ebmlUint(0xD7, 1),
			ebmlUint(0x83, 1),
			ebml(0x86, []byte("V_VP8")),
			ebml(0xE0, ebmlUint(0xB0, 640), ebmlUint(0xBA, 360)),
		),
		ebml(0xAE,
			ebmlUint(0xD7, 2),
			ebmlUint(0x83, 2),
			ebml(0x86, []byte("A_OPUS")),
			ebml(0xE1, ebmlFloat(0xB5, 48000), ebmlUint(0x9F, 2)),
		),
	)
	cluster := ebml(0x1F43B675,
		ebmlUint(0xE7, 1000),
		simpleBlock(1, 0, true, 0xAA),
		simpleBlock(2, 0, true, 0x01),
		simpleBlock(1, 33, false, 0xBB),
		simpleBlock(2, 20, true, 0x02),
		simpleBlock(1, 66, false, 0xCC),
	)
	return bytes.Join([][]byte{header, ebml(0x18538067, info, tracks, cluster)}, nil)
}

func TestOpen(t *testing.T) {
	Convey("Given an IVF file", t, func() {
		path := "/media/clip.ivf"
		frames := [][]byte{{0x10, 1}, {0x11, 2}, {0x11, 3}, {0x10, 4}}
		So(filesystem.API().WriteFile(path, ivfFile("VP80", frames), 0o644), ShouldBeNil)

		table, err := Open(path)
		So(err, ShouldBeNil)

		Convey("It exposes one VP8 video track", func() {
			tracks := table.Tracks()
			So(len(tracks), ShouldEqual, 1)
			So(tracks[0].Kind, ShouldEqual, media.Video)
			So(tracks[0].Format.MIME, ShouldEqual, media.MIMEVP8)
			So(tracks[0].Format.Width, ShouldEqual, 320)
			So(tracks[0].Samples, ShouldEqual, 4)
			So(tracks[0].Syncs, ShouldEqual, 2)
			So(table.Name(), ShouldEqual, path)
		})

		Convey("Timestamps follow the timebase", func() {
			So(table.SelectTrack(1), ShouldBeNil)
			So(table.Advance(), ShouldBeTrue)
			So(table.SampleTime(), ShouldEqual, 33333)
		})
	})

	Convey("Given a WebM file with video and audio", t, func() {
		path := "/media/clip.webm"
		So(filesystem.API().WriteFile(path, webmFile(), 0o644), ShouldBeNil)

		table, err := Open(path)
		So(err, ShouldBeNil)

		tracks := table.Tracks()
		So(len(tracks), ShouldEqual, 2)

		Convey("Track entries are decoded", func() {
			So(tracks[0].Kind, ShouldEqual, media.Video)
			So(tracks[0].Format.MIME, ShouldEqual, media.MIMEVP8)
			So(tracks[0].Format.Height, ShouldEqual, 360)
			So(tracks[1].Kind, ShouldEqual, media.Audio)
			So(tracks[1].Format.MIME, ShouldEqual, media.MIMEOpus)
			So(tracks[1].Format.SampleRate, ShouldEqual, 48000)
			So(tracks[1].Format.Channels, ShouldEqual, 2)
		})

		Convey("Blocks are split per track with cluster-relative timestamps", func() {
			So(table.SelectTrack(1), ShouldBeNil)
			var pts []int64
			for table.SampleTime() >= 0 {
				pts = append(pts, table.SampleTime())
				table.Advance()
			}
			So(pts, ShouldResemble, []int64{1_000_000, 1_033_000, 1_066_000})
			So(tracks[0].Syncs, ShouldEqual, 1)
		})
	})

	Convey("Given an Ogg Opus file", t, func() {
		var buf bytes.Buffer
		w, err := oggwriter.NewWith(&buf, 48000, 2)
		So(err, ShouldBeNil)
		for i := 0; i < 100; i++ {
			So(w.WriteRTP(&rtp.Packet{
				Header:  rtp.Header{Timestamp: uint32(1000 + i*960), SequenceNumber: uint16(i)},
				Payload: []byte{0xFC, byte(i), 0x00},
			}), ShouldBeNil)
		}

		table, err := Read(&buf)
		So(err, ShouldBeNil)

		Convey("Every page becomes a sync sample on one audio track", func() {
			track := table.Tracks()[0]
			So(track.Kind, ShouldEqual, media.Audio)
			So(track.Format.Channels, ShouldEqual, 2)
			So(track.Samples, ShouldEqual, 100)
			So(track.Syncs, ShouldEqual, 100)
		})

		Convey("Timestamps never decrease and advance with granules", func() {
			So(table.SelectTrack(1), ShouldBeNil)
			var pts []int64
			for table.SampleTime() >= 0 {
				pts = append(pts, table.SampleTime())
				table.Advance()
			}
			for i := 1; i < len(pts); i++ {
				So(pts[i], ShouldBeGreaterThanOrEqualTo, pts[i-1])
			}
			So(lo.Max(pts), ShouldBeGreaterThan, int64(1_500_000))
		})
	})

	Convey("Unknown containers are rejected", t, func() {
		_, err := Read(bytes.NewReader([]byte("RIFF....WAVE")))
		So(err, ShouldEqual, ErrUnsupportedContainer)
	})

	Convey("Missing files surface an error", t, func() {
		_, err := Open("/media/missing.webm")
		So(err, ShouldNotBeNil)
	})
}

func TestKeyframes(t *testing.T) {
	Convey("Keyframes are read from bitstream headers", t, func() {
		So(isKeyframe(media.MIMEVP8, []byte{0x10}), ShouldBeTrue)
		So(isKeyframe(media.MIMEVP8, []byte{0x11}), ShouldBeFalse)

		// frame_marker=10, profile 0, show_existing=0, frame_type=0
		So(isKeyframe(media.MIMEVP9, []byte{0x80}), ShouldBeTrue)
		So(isKeyframe(media.MIMEVP9, []byte{0x84}), ShouldBeFalse)

		So(isKeyframe(media.MIMEAVC, []byte{0, 0, 0, 1, 0x67, 0, 0, 1, 0x65}), ShouldBeTrue)
		So(isKeyframe(media.MIMEAVC, []byte{0, 0, 0, 1, 0x41}), ShouldBeFalse)

		// temporal delimiter followed by a sequence header
		So(isKeyframe(media.MIMEAV1, []byte{0x12, 0x00, 0x0A, 0x01, 0x00}), ShouldBeTrue)
		So(isKeyframe(media.MIMEAV1, []byte{0x12, 0x00, 0x32, 0x01, 0x00}), ShouldBeFalse)

		So(isKeyframe("audio/opus", []byte{1}), ShouldBeTrue)
		So(isKeyframe(media.MIMEVP8, nil), ShouldBeFalse)
	})
}
