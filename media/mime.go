package media

// Stream MIME types understood by the bundled sources and decoders.
const (
	MIMEVP8    = "video/x-vnd.on2.vp8"
	MIMEVP9    = "video/x-vnd.on2.vp9"
	MIMEAV1    = "video/av01"
	MIMEAVC    = "video/avc"
	MIMEHEVC   = "video/hevc"
	MIMEOpus   = "audio/opus"
	MIMEVorbis = "audio/vorbis"
	MIMEAAC    = "audio/mp4a-latm"
)
