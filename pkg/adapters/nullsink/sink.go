// Package nullsink provides a frame sink that acknowledges and discards frames.
package nullsink

import (
	"context"
	"sync"

	"github.com/user/frameprocessor/pkg/ports"
)

// Sink is a ports.FrameSink that drops every frame after counting it.
type Sink struct {
	frames chan ports.Frame
	closed chan struct{}

	mu       sync.Mutex
	consumed int
}

// New creates a new null sink.
func New() *Sink {
	return &Sink{
		frames: make(chan ports.Frame, 1),
		closed: make(chan struct{}),
	}
}

// Setup reports readiness immediately and consumes frames until ctx is done.
func (s *Sink) Setup(ctx context.Context, cfg ports.SurfaceConfig) error {
	defer close(s.closed)
	cfg.Listener.SetupComplete()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.frames:
			s.mu.Lock()
			s.consumed++
			s.mu.Unlock()
			cfg.Advancer.Advance()
		}
	}
}

// Surface returns the sink itself.
func (s *Sink) Surface() ports.Surface {
	return s
}

// Queue hands a frame to the consumer. Frames queued after the consumer
// has exited are dropped.
func (s *Sink) Queue(frame ports.Frame) {
	select {
	case s.frames <- frame:
	case <-s.closed:
	}
}

// Release does nothing; the sink holds no resources.
func (s *Sink) Release() error {
	return nil
}

// Consumed returns the number of frames acknowledged.
func (s *Sink) Consumed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
