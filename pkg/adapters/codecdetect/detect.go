// Package codecdetect maps MP4 sample entries to MIME types.
package codecdetect

import (
	"github.com/Eyevinn/mp4ff/mp4"
)

// MIME types produced by this package.
const (
	MIMEAVC     = "video/avc"
	MIMEHEVC    = "video/hevc"
	MIMEAV1     = "video/av01"
	MIMEVP9     = "video/x-vnd.on2.vp9"
	MIMEVP8     = "video/x-vnd.on2.vp8"
	MIMERaw     = "video/x-raw"
	MIMEAAC     = "audio/mp4a-latm"
	MIMEOpus    = "audio/opus"
	MIMEAC3     = "audio/ac3"
	MIMEText    = "text/plain"
	MIMEUnknown = "application/octet-stream"
)

var sampleEntryMIME = map[string]string{
	"avc1": MIMEAVC,
	"avc3": MIMEAVC,
	"hvc1": MIMEHEVC,
	"hev1": MIMEHEVC,
	"av01": MIMEAV1,
	"vp09": MIMEVP9,
	"vp08": MIMEVP8,
	"raw ": MIMERaw,
	"mp4a": MIMEAAC,
	"Opus": MIMEOpus,
	"ac-3": MIMEAC3,
	"wvtt": MIMEText,
	"stpp": MIMEText,
}

var handlerMIMEPrefix = map[string]string{
	"vide": "video/",
	"soun": "audio/",
	"text": "text/",
	"subt": "text/",
}

// MIMEForSampleEntry returns the MIME type for a sample entry box type.
func MIMEForSampleEntry(boxType string) string {
	if m, ok := sampleEntryMIME[boxType]; ok {
		return m
	}
	return MIMEUnknown
}

// MIMEForTrack derives a MIME type from a track's handler and sample description.
// It returns the sample entry type alongside.
//
// A video handler with an unrecognised sample entry yields "video/<entry>",
// so the track is still selectable and fails later at decoder resolution.
func MIMEForTrack(trak *mp4.TrakBox) (mime, sampleEntry string) {
	if trak == nil || trak.Mdia == nil || trak.Mdia.Hdlr == nil {
		return MIMEUnknown, ""
	}

	if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil {
		for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
			sampleEntry = child.Type()
			break
		}
	}

	prefix, ok := handlerMIMEPrefix[trak.Mdia.Hdlr.HandlerType]
	if !ok {
		return MIMEUnknown, sampleEntry
	}

	mime = MIMEForSampleEntry(sampleEntry)
	if mime == MIMEUnknown || len(mime) < len(prefix) || mime[:len(prefix)] != prefix {
		if sampleEntry == "" {
			return prefix + "unknown", sampleEntry
		}
		return prefix + sampleEntry, sampleEntry
	}
	return mime, sampleEntry
}
