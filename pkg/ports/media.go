package ports

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrIOFailure is returned when a media resource cannot be opened or parsed.
	ErrIOFailure = errors.New("ports: resource could not be opened")

	// ErrNoVideoTrack is returned when no track carries a video MIME type.
	ErrNoVideoTrack = errors.New("ports: no video track")

	// ErrEndOfStream is returned by ReadSample past the last sample.
	ErrEndOfStream = errors.New("ports: end of stream")
)

// Track describes an elementary stream inside a container.
type Track struct {
	ID          uint32
	MIME        string // e.g. "video/avc"
	Width       int
	Height      int
	Timescale   uint32
	SampleEntry string // sample entry box type, e.g. "avc1"
	CodecConfig []byte // out-of-band decoder configuration (SPS/PPS in Annex B, AV1 config OBUs)
}

// IsVideo reports whether the track carries video.
func (t Track) IsVideo() bool {
	return strings.HasPrefix(t.MIME, "video/")
}

// Sample is one compressed access unit.
type Sample struct {
	Data             []byte
	PresentationTime time.Duration
	Duration         time.Duration
	Keyframe         bool
}

// SampleSource reads compressed samples of a single selected track.
type SampleSource interface {
	// Tracks returns the descriptors of every track in the resource.
	Tracks() []Track

	// SelectVideoTrack selects the first video track. Selection is one-time:
	// later calls return the same track.
	SelectVideoTrack() (Track, error)

	// ReadSample returns the sample under the cursor without advancing.
	// The data is copied into buf when buf is large enough.
	// Returns ErrEndOfStream when the cursor is past the last sample.
	ReadSample(buf []byte) (Sample, error)

	// Advance moves the cursor to the next sample. It returns false at the end.
	Advance() bool

	// Close releases the underlying resource.
	Close() error
}
