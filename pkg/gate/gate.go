// Package gate implements the frame-ready handoff between the decoder
// goroutine and the frame consumer.
//
// The decoder calls Await after handing a non-empty frame to the surface.
// The consumer calls Advance after it has finished with that frame. Each
// Advance authorizes exactly one Await to proceed.
package gate

import (
	"errors"
	"sync"
	"time"

	"github.com/user/frameprocessor/pkg/adapters/logger"
	"github.com/user/frameprocessor/pkg/ports"
)

// DefaultTimeout bounds a single wait before the predicate is re-checked.
const DefaultTimeout = 500 * time.Millisecond

// ErrClosed is returned by Await once the gate has been closed.
var ErrClosed = errors.New("gate: closed")

// Result reports the outcome of a successful Await.
type Result struct {
	// FrameIndex is the number of frames the consumer has finished.
	FrameIndex int
	// CapReached is set when FrameIndex equals the frame cap.
	CapReached bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithTimeout sets the bounded wait interval.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger used for wait diagnostics.
func WithLogger(l ports.Logger) Option {
	return func(g *Gate) {
		g.logger = l.WithComponent("gate")
	}
}

// Gate is a mutex/condition pair guarding a one-shot ready flag and a
// consumer-owned frame counter.
type Gate struct {
	mu         sync.Mutex
	cond       *sync.Cond
	ready      bool
	frameIndex int
	frameCap   int
	closed     bool

	timeout  time.Duration
	timeouts int
	logger   ports.Logger
}

// New creates a gate that reports CapReached once frameCap frames are consumed.
func New(frameCap int, opts ...Option) *Gate {
	g := &Gate{
		frameCap: frameCap,
		timeout:  DefaultTimeout,
		logger:   logger.NewNoop(),
	}
	g.cond = sync.NewCond(&g.mu)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Await blocks until the consumer has signalled, consumes the signal, and
// reports whether the frame cap has been reached. Waits are bounded by the
// gate timeout; an expired wait re-checks the flag and keeps waiting.
func (g *Gate) Await() (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for !g.ready && !g.closed {
		expired := false
		timer := time.AfterFunc(g.timeout, func() {
			g.mu.Lock()
			expired = true
			g.mu.Unlock()
			g.cond.Broadcast()
		})
		g.cond.Wait()
		timer.Stop()
		if expired && !g.ready && !g.closed {
			g.timeouts++
			g.logger.Debug("Gate wait timed out after %v, re-checking (frame %d)", g.timeout, g.frameIndex)
		}
	}

	if g.closed {
		return Result{FrameIndex: g.frameIndex}, ErrClosed
	}

	g.ready = false
	return Result{
		FrameIndex: g.frameIndex,
		CapReached: g.frameIndex == g.frameCap,
	}, nil
}

// Advance records one consumed frame and wakes the waiter. No-op after Close.
func (g *Gate) Advance() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.frameIndex++
	g.ready = true
	g.cond.Broadcast()
}

// Close wakes any waiter. Subsequent Await calls return ErrClosed.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
	g.cond.Broadcast()
}

// FrameIndex returns the number of frames the consumer has finished.
func (g *Gate) FrameIndex() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frameIndex
}

// Timeouts returns how many bounded waits expired without a signal.
func (g *Gate) Timeouts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timeouts
}

var _ ports.FrameAdvancer = (*Gate)(nil)
