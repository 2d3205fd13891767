package ports

import (
	"context"
	"image"
	"time"
)

// Frame is a decoded output buffer handed to a surface.
type Frame struct {
	Index            int // decoder output sequence number
	Image            image.Image
	PresentationTime time.Duration
	Size             int
}

// Surface receives rendered output buffers. Queue is called on the decoder
// goroutine and must not block on the consumer.
type Surface interface {
	Queue(frame Frame)
}

// FrameAdvancer is signalled by the consumer after it has finished with a frame.
type FrameAdvancer interface {
	Advance()
}

// SetupListener is notified once a sink's surface is ready.
type SetupListener interface {
	SetupComplete()
}

// SurfaceConfig is passed to FrameSink.Setup.
type SurfaceConfig struct {
	Width    int
	Height   int
	FrameCap int
	Advancer FrameAdvancer
	Listener SetupListener
}

// FrameSink owns the render surface and consumes decoded frames.
type FrameSink interface {
	// Setup runs on a dedicated goroutine. It must call cfg.Listener.SetupComplete
	// exactly once when Surface is usable, and may keep consuming frames on the
	// same goroutine until ctx is cancelled.
	Setup(ctx context.Context, cfg SurfaceConfig) error

	// Surface returns the surface handle. Valid only after setup completion.
	Surface() Surface

	// Release frees the sink's resources.
	Release() error
}
