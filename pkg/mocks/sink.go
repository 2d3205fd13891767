package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/user/frameprocessor/pkg/ports"
)

// FrameSink is a mock implementation of ports.FrameSink.
// Setup signals completion, then consumes queued frames on the setup
// goroutine and advances the gate after each one.
type FrameSink struct {
	// SkipSetupComplete keeps the sink in setup without signalling readiness.
	SkipSetupComplete bool
	// ConsumeDelay is slept before each frame is acknowledged.
	ConsumeDelay time.Duration
	// SetupErr is returned from Setup before readiness is signalled.
	SetupErr error
	// Hold, when set, delays readiness until it is closed.
	Hold <-chan struct{}
	// NeverAdvance consumes frames without signalling the gate.
	NeverAdvance bool

	mu           sync.Mutex
	frames       chan ports.Frame
	consumed     []ports.Frame
	config       ports.SurfaceConfig
	setupCalls   int
	releaseCalls int
	setupDone    chan struct{}
}

// NewFrameSink creates a new mock FrameSink.
func NewFrameSink() *FrameSink {
	return &FrameSink{
		frames:    make(chan ports.Frame, 1),
		setupDone: make(chan struct{}),
	}
}

func (m *FrameSink) Setup(ctx context.Context, cfg ports.SurfaceConfig) error {
	m.mu.Lock()
	m.config = cfg
	m.setupCalls++
	m.mu.Unlock()
	defer close(m.setupDone)

	if m.SetupErr != nil {
		return m.SetupErr
	}
	if m.Hold != nil {
		select {
		case <-m.Hold:
		case <-ctx.Done():
			return nil
		}
	}
	if !m.SkipSetupComplete {
		cfg.Listener.SetupComplete()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-m.frames:
			if m.ConsumeDelay > 0 {
				select {
				case <-time.After(m.ConsumeDelay):
				case <-ctx.Done():
					return nil
				}
			}
			m.mu.Lock()
			m.consumed = append(m.consumed, frame)
			m.mu.Unlock()
			if !m.NeverAdvance {
				cfg.Advancer.Advance()
			}
		}
	}
}

func (m *FrameSink) Surface() ports.Surface {
	return surfaceFunc(func(frame ports.Frame) {
		m.frames <- frame
	})
}

func (m *FrameSink) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCalls++
	return nil
}

// Consumed returns the frames consumed so far.
func (m *FrameSink) Consumed() []ports.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Frame(nil), m.consumed...)
}

// Config returns the configuration passed to Setup.
func (m *FrameSink) Config() ports.SurfaceConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// SetupCalls returns the number of Setup invocations.
func (m *FrameSink) SetupCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setupCalls
}

// ReleaseCalls returns the number of Release invocations.
func (m *FrameSink) ReleaseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCalls
}

// SetupDone is closed when Setup returns.
func (m *FrameSink) SetupDone() <-chan struct{} {
	return m.setupDone
}

var _ ports.FrameSink = (*FrameSink)(nil)

type surfaceFunc func(frame ports.Frame)

func (f surfaceFunc) Queue(frame ports.Frame) { f(frame) }

// Surface is a mock implementation of ports.Surface that records frames.
type Surface struct {
	mu     sync.Mutex
	frames []ports.Frame
}

func (m *Surface) Queue(frame ports.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frame)
}

// Frames returns the frames queued so far.
func (m *Surface) Frames() []ports.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Frame(nil), m.frames...)
}

var _ ports.Surface = (*Surface)(nil)
