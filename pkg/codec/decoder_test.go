package codec

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/user/frameprocessor/pkg/mocks"
	"github.com/user/frameprocessor/pkg/ports"
)

const testMIME = "video/x-test"

var testTrack = ports.Track{ID: 1, MIME: testMIME, Width: 16, Height: 16, Timescale: 1000}

func newTestDecoder(backend *mocks.Backend) *Decoder {
	registry := NewRegistry()
	registry.Register(testMIME, "mock", func() ports.FrameDecoder { return backend })
	return New(Options{Registry: registry})
}

// feeder queues a fixed list of samples followed by end of stream and
// stops the decoder when the end-of-stream output arrives.
type feeder struct {
	samples [][]byte

	mu      sync.Mutex
	next    int
	outputs []BufferInfo
	errs    []error
	eos     chan struct{}
}

func newFeeder(n int) *feeder {
	f := &feeder{eos: make(chan struct{})}
	for i := 0; i < n; i++ {
		f.samples = append(f.samples, []byte{byte(i), 0xFF})
	}
	return f
}

func (f *feeder) OnInputReady(d *Decoder, index int) {
	f.mu.Lock()
	i := f.next
	f.next++
	f.mu.Unlock()

	if i >= len(f.samples) {
		d.QueueInputBuffer(index, 0, 0, FlagEndOfStream)
		return
	}
	buf, err := d.InputBuffer(index)
	if err != nil {
		return
	}
	n := copy(buf, f.samples[i])
	d.QueueInputBuffer(index, n, time.Duration(i)*33*time.Millisecond, 0)
}

func (f *feeder) OnOutputReady(d *Decoder, index int, info BufferInfo) {
	f.mu.Lock()
	f.outputs = append(f.outputs, info)
	f.mu.Unlock()

	d.ReleaseOutputBuffer(index, info.Size != 0)
	if info.EndOfStream() {
		d.Stop()
		close(f.eos)
	}
}

func (f *feeder) OnError(d *Decoder, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *feeder) snapshot() ([]BufferInfo, []error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BufferInfo(nil), f.outputs...), append([]error(nil), f.errs...)
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestConfigure_UnsupportedFormat(t *testing.T) {
	d := New(Options{Registry: NewRegistry()})

	err := d.Configure(testTrack, &mocks.Surface{}, newFeeder(0))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if d.State() != Unconfigured {
		t.Errorf("expected state unconfigured, got %s", d.State())
	}
}

func TestConfigure_BackendRejects(t *testing.T) {
	backend := &mocks.Backend{
		ConfigureFunc: func(track ports.Track) error { return errors.New("bad profile") },
	}
	d := newTestDecoder(backend)

	err := d.Configure(testTrack, &mocks.Surface{}, newFeeder(0))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if backend.CloseCalls() != 1 {
		t.Errorf("expected rejected backend to be closed once, got %d", backend.CloseCalls())
	}
}

func TestStart_RequiresConfigure(t *testing.T) {
	d := newTestDecoder(&mocks.Backend{})

	if err := d.Start(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestConfigure_Twice(t *testing.T) {
	d := newTestDecoder(&mocks.Backend{})
	if err := d.Configure(testTrack, &mocks.Surface{}, newFeeder(0)); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := d.Configure(testTrack, &mocks.Surface{}, newFeeder(0)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	d.Stop()
}

func TestDecoder_DecodesToEndOfStream(t *testing.T) {
	backend := &mocks.Backend{}
	d := newTestDecoder(backend)
	surface := &mocks.Surface{}
	f := newFeeder(6)

	if err := d.Configure(testTrack, surface, f); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if d.State() != Configured {
		t.Fatalf("expected state configured, got %s", d.State())
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitClosed(t, f.eos, "end of stream")
	waitClosed(t, d.Done(), "decoder goroutine exit")

	if d.State() != Stopped {
		t.Errorf("expected state stopped, got %s", d.State())
	}

	outputs, errs := f.snapshot()
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if len(outputs) != 7 {
		t.Fatalf("expected 6 frames and 1 end-of-stream output, got %d", len(outputs))
	}
	last := outputs[len(outputs)-1]
	if !last.EndOfStream() || last.Size != 0 {
		t.Errorf("expected zero-size end-of-stream output, got %+v", last)
	}

	frames := surface.Frames()
	if len(frames) != 6 {
		t.Fatalf("expected 6 rendered frames, got %d", len(frames))
	}
	for i, frame := range frames {
		if frame.Index != i {
			t.Errorf("frame %d: expected index %d, got %d", i, i, frame.Index)
		}
		if want := time.Duration(i) * 33 * time.Millisecond; frame.PresentationTime != want {
			t.Errorf("frame %d: expected pts %v, got %v", i, want, frame.PresentationTime)
		}
		if frame.Size != 4*4*4 {
			t.Errorf("frame %d: expected size 64, got %d", i, frame.Size)
		}
	}

	if backend.CloseCalls() != 1 {
		t.Errorf("expected backend closed once, got %d", backend.CloseCalls())
	}
}

func TestDecoder_EmptyStream(t *testing.T) {
	backend := &mocks.Backend{}
	d := newTestDecoder(backend)
	surface := &mocks.Surface{}
	f := newFeeder(0)

	if err := d.Configure(testTrack, surface, f); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitClosed(t, f.eos, "end of stream")
	waitClosed(t, d.Done(), "decoder goroutine exit")

	outputs, _ := f.snapshot()
	if len(outputs) != 1 || !outputs[0].EndOfStream() {
		t.Errorf("expected a single end-of-stream output, got %+v", outputs)
	}
	if len(surface.Frames()) != 0 {
		t.Errorf("expected no rendered frames, got %d", len(surface.Frames()))
	}
	if len(backend.Decoded()) != 0 {
		t.Errorf("expected no decode calls, got %d", len(backend.Decoded()))
	}
}

func TestDecoder_BackendErrorsAreReported(t *testing.T) {
	backend := &mocks.Backend{
		DecodeFunc: func(data []byte, pts time.Duration) (image.Image, error) {
			if data[0] == 1 {
				return nil, errors.New("corrupt slice")
			}
			return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
		},
	}
	d := newTestDecoder(backend)
	surface := &mocks.Surface{}
	f := newFeeder(3)

	if err := d.Configure(testTrack, surface, f); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitClosed(t, f.eos, "end of stream")

	_, errs := f.snapshot()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !errors.Is(errs[0], ErrDecoderFault) {
		t.Errorf("expected ErrDecoderFault, got %v", errs[0])
	}
	if len(surface.Frames()) != 2 {
		t.Errorf("expected 2 rendered frames, got %d", len(surface.Frames()))
	}
}

func TestDecoder_NoOutputYet(t *testing.T) {
	backend := &mocks.Backend{
		DecodeFunc: func(data []byte, pts time.Duration) (image.Image, error) {
			if data[0]%2 == 0 {
				return nil, nil
			}
			return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
		},
	}
	d := newTestDecoder(backend)
	surface := &mocks.Surface{}
	f := newFeeder(4)

	if err := d.Configure(testTrack, surface, f); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitClosed(t, f.eos, "end of stream")

	if len(surface.Frames()) != 2 {
		t.Errorf("expected 2 rendered frames, got %d", len(surface.Frames()))
	}
}

func TestStop_Idempotent(t *testing.T) {
	backend := &mocks.Backend{}
	d := newTestDecoder(backend)
	if err := d.Configure(testTrack, &mocks.Surface{}, newFeeder(0)); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	d.Stop()
	d.Stop()

	waitClosed(t, d.Done(), "done after stop without start")
	if backend.CloseCalls() != 1 {
		t.Errorf("expected backend closed once, got %d", backend.CloseCalls())
	}
	if err := d.Start(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after stop, got %v", err)
	}
}

// holder keeps every output buffer and never releases it.
type holder struct {
	held chan struct{}
	once sync.Once
}

func (h *holder) OnInputReady(d *Decoder, index int) {
	buf, _ := d.InputBuffer(index)
	buf[0] = 1
	d.QueueInputBuffer(index, 1, 0, 0)
}

func (h *holder) OnOutputReady(d *Decoder, index int, info BufferInfo) {
	h.once.Do(func() { close(h.held) })
}

func (h *holder) OnError(d *Decoder, err error) {}

func TestStop_FromAnotherGoroutine(t *testing.T) {
	backend := &mocks.Backend{}
	d := newTestDecoder(backend)
	h := &holder{held: make(chan struct{})}

	if err := d.Configure(testTrack, &mocks.Surface{}, h); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitClosed(t, h.held, "first output")

	d.Stop()
	waitClosed(t, d.Done(), "decoder goroutine exit")

	if err := d.ReleaseOutputBuffer(0, true); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after stop, got %v", err)
	}
}

func TestBufferIndexValidation(t *testing.T) {
	d := newTestDecoder(&mocks.Backend{})
	h := &holder{held: make(chan struct{})}

	if err := d.Configure(testTrack, &mocks.Surface{}, h); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()
	waitClosed(t, h.held, "first output")

	if _, err := d.InputBuffer(99); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex for input, got %v", err)
	}
	if err := d.QueueInputBuffer(99, 0, 0, 0); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex for queue, got %v", err)
	}
	if err := d.ReleaseOutputBuffer(99, false); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex for release, got %v", err)
	}
}
