package source

import "github.com/avplay-cli/avplay/media"

// isKeyframe inspects a compressed frame's bitstream header.
// Unknown codecs are treated as all-intra.
func isKeyframe(mime string, frame []byte) bool {
	if len(frame) == 0 {
		return false
	}

	switch mime {
	case media.MIMEVP8:
		return frame[0]&0x01 == 0
	case media.MIMEVP9:
		return vp9Keyframe(frame[0])
	case media.MIMEAV1:
		return av1Keyframe(frame)
	case media.MIMEAVC:
		return annexBContains(frame, func(b byte) bool { return b&0x1F == 5 })
	case media.MIMEHEVC:
		return annexBContains(frame, func(b byte) bool {
			t := (b >> 1) & 0x3F
			return t >= 16 && t <= 21
		})
	default:
		return true
	}
}

// vp9Keyframe reads the uncompressed header bits packed in the first byte.
func vp9Keyframe(b byte) bool {
	bit := func(pos int) byte { return (b >> (7 - pos)) & 1 }

	if b>>6 != 0b10 {
		return false
	}

	pos := 4
	if bit(2)|bit(3)<<1 == 3 {
		pos++
	}
	if bit(pos) == 1 {
		// show_existing_frame
		return false
	}
	return bit(pos+1) == 0
}

// av1Keyframe reports whether the temporal unit carries a sequence header OBU.
func av1Keyframe(data []byte) bool {
	const obuSequenceHeader = 1

	for len(data) > 0 {
		header := data[0]
		obuType := (header >> 3) & 0x0F
		if obuType == obuSequenceHeader {
			return true
		}

		n := 1
		if header&0x04 != 0 {
			n++
		}
		if header&0x02 == 0 || n > len(data) {
			return false
		}

		size, width := leb128(data[n:])
		if width == 0 {
			return false
		}
		n += width
		if uint64(len(data)-n) < size {
			return false
		}
		data = data[n+int(size):]
	}
	return false
}

func leb128(b []byte) (uint64, int) {
	var v uint64
	for i := 0; i < len(b) && i < 8; i++ {
		v |= uint64(b[i]&0x7F) << (7 * i)
		if b[i]&0x80 == 0 {
			return v, i + 1
		}
	}
	return 0, 0
}

// annexBContains scans start-code delimited NAL units for one whose header matches.
func annexBContains(data []byte, match func(header byte) bool) bool {
	for i := 0; i+3 < len(data); i++ {
		if data[i] != 0 || data[i+1] != 0 {
			continue
		}
		switch {
		case data[i+2] == 1:
			if match(data[i+3]) {
				return true
			}
			i += 2
		case data[i+2] == 0 && i+4 < len(data) && data[i+3] == 1:
			if match(data[i+4]) {
				return true
			}
			i += 3
		}
	}
	return false
}
