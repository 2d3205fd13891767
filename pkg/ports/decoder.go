package ports

import (
	"image"
	"time"
)

// FrameDecoder abstracts a codec implementation driven by codec.Decoder.
type FrameDecoder interface {
	// Configure prepares the decoder for the given track.
	Configure(track Track) error

	// Decode decodes one access unit. A nil image with a nil error means the
	// decoder needs more input before it can emit a picture.
	Decode(data []byte, pts time.Duration) (image.Image, error)

	// Close releases decoder resources. Safe to call more than once.
	Close()
}
