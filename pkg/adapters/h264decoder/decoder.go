// Package h264decoder provides H.264 decoding through an external ffmpeg process.
package h264decoder

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/Eyevinn/mp4ff/avc"

	"github.com/user/frameprocessor/pkg/adapters/codecdetect"
	"github.com/user/frameprocessor/pkg/codec"
	"github.com/user/frameprocessor/pkg/ports"
)

// Name identifies this backend in the codec registry.
const Name = "ffmpeg"

var (
	// ErrNotInitialized is returned when decoder methods are called before Configure.
	ErrNotInitialized = errors.New("h264decoder: decoder not initialized")

	// ErrDecodeFailed is returned when decoding a frame fails.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrFFmpegNotFound is returned when ffmpeg is not found in PATH.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found in PATH")

	// ErrInvalidDimensions is returned for tracks without a frame size.
	ErrInvalidDimensions = errors.New("h264decoder: invalid dimensions")
)

var (
	pathMu           sync.RWMutex
	customFFmpegPath string
)

// SetFFmpegPath overrides the ffmpeg lookup. An empty path restores PATH lookup.
func SetFFmpegPath(path string) {
	pathMu.Lock()
	defer pathMu.Unlock()
	customFFmpegPath = path
}

func ffmpegPathOverride() string {
	pathMu.RLock()
	defer pathMu.RUnlock()
	return customFFmpegPath
}

// runFunc decodes an Annex B elementary stream and returns its last picture.
type runFunc func(ffmpegPath string, stream []byte) (image.Image, error)

// Decoder decodes H.264 access units. Each access unit is decoded together
// with every access unit since the last IDR picture, so a picture is
// available as soon as its references are.
type Decoder struct {
	mu         sync.Mutex
	ffmpegPath string
	width      int
	height     int
	paramSets  []byte
	gop        []byte
	run        runFunc
	configured bool
}

// New creates a new H.264 decoder.
func New() *Decoder {
	return &Decoder{run: runFFmpeg}
}

// Register binds this backend to AVC tracks.
func Register(r *codec.Registry) {
	r.Register(codecdetect.MIMEAVC, Name, func() ports.FrameDecoder { return New() })
}

// IsAvailable reports whether an ffmpeg binary can be found.
func IsAvailable() bool {
	_, err := findFFmpeg()
	return err == nil
}

// Configure locates ffmpeg and stores the track's parameter sets.
func (d *Decoder) Configure(track ports.Track) error {
	if track.Width <= 0 || track.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, track.Width, track.Height)
	}

	path, err := findFFmpeg()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.ffmpegPath = path
	d.width = track.Width
	d.height = track.Height
	d.paramSets = append([]byte(nil), track.CodecConfig...)
	d.gop = nil
	d.configured = true
	return nil
}

// Decode decodes one length-prefixed access unit. It returns a nil image
// until the first IDR picture has been seen.
func (d *Decoder) Decode(data []byte, pts time.Duration) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.configured {
		return nil, ErrNotInitialized
	}
	if len(data) == 0 {
		return nil, ErrDecodeFailed
	}

	annexB, err := toByteStream(data)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed access unit at %v: %w", ErrDecodeFailed, pts, err)
	}

	switch {
	case avc.IsIDRSample(data):
		d.gop = append(append(d.gop[:0], d.paramSets...), annexB...)
	case len(d.gop) == 0:
		return nil, nil
	default:
		d.gop = append(d.gop, annexB...)
	}

	img, err := d.run(d.ffmpegPath, d.gop)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return img, nil
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configured = false
	d.gop = nil
}

// toByteStream converts a length-prefixed access unit to Annex B. The input
// is left untouched; trailing bytes that do not form a NAL unit are an error.
func toByteStream(data []byte) ([]byte, error) {
	nalus, err := avc.GetNalusFromSample(data)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, nalu := range nalus {
		n += 4 + len(nalu)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after NAL units", len(data)-n)
	}
	return avc.ConvertSampleToByteStream(append([]byte(nil), data...)), nil
}

// Ensure Decoder implements ports.FrameDecoder
var _ ports.FrameDecoder = (*Decoder)(nil)
