package nullsink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/user/frameprocessor/pkg/ports"
)

type counter struct {
	mu       sync.Mutex
	advances int
	ready    chan struct{}
}

func (c *counter) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advances++
}

func (c *counter) SetupComplete() { close(c.ready) }

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advances
}

func TestSink_ConsumesAndAdvances(t *testing.T) {
	sink := New()
	c := &counter{ready: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- sink.Setup(ctx, ports.SurfaceConfig{Width: 8, Height: 8, FrameCap: 3, Advancer: c, Listener: c})
	}()

	select {
	case <-c.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("setup did not complete")
	}

	surface := sink.Surface()
	for i := 0; i < 3; i++ {
		surface.Queue(ports.Frame{Index: i, PresentationTime: time.Duration(i) * time.Millisecond})
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.count() != 3 || sink.Consumed() != 3 {
		t.Errorf("expected 3 advances and 3 consumed, got %d and %d", c.count(), sink.Consumed())
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Setup returned %v", err)
	}

	// Queue after the consumer exits must not block.
	queued := make(chan struct{})
	go func() {
		surface.Queue(ports.Frame{})
		surface.Queue(ports.Frame{})
		close(queued)
	}()
	select {
	case <-queued:
	case <-time.After(time.Second):
		t.Fatal("Queue blocked after the consumer exited")
	}

	if err := sink.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
}
