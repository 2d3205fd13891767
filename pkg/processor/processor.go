// Package processor runs one decode-and-render pass over a video source.
//
// A Processor owns the sample source, the decoder and the frame gate, and
// shares the gate with a FrameSink. Three goroutines take part in a run:
// the sink's setup goroutine, the decoder's callback goroutine, and the
// processor's event loop, which starts the decoder once the sink reports
// that its surface is ready and delivers the completion notification.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/frameprocessor/pkg/adapters/logger"
	"github.com/user/frameprocessor/pkg/adapters/mp4source"
	"github.com/user/frameprocessor/pkg/codec"
	"github.com/user/frameprocessor/pkg/gate"
	"github.com/user/frameprocessor/pkg/observer"
	"github.com/user/frameprocessor/pkg/ports"
)

var (
	// ErrInvalidFrameCap is returned when the frame cap is below 1.
	ErrInvalidFrameCap = errors.New("processor: frame cap must be at least 1")

	// ErrNilSink is returned when no frame sink is supplied.
	ErrNilSink = errors.New("processor: frame sink is required")

	// ErrReleased is returned by operations on a released processor.
	ErrReleased = errors.New("processor: released")
)

// State is the lifecycle state of a Processor.
type State int

const (
	Created State = iota
	SourceOpened
	SurfacePending
	Decoding
	Stopping
	Released
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case SourceOpened:
		return "source-opened"
	case SurfacePending:
		return "surface-pending"
	case Decoding:
		return "decoding"
	case Stopping:
		return "stopping"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// StopReason records why a run reached Stopping.
type StopReason string

const (
	ReasonNone        StopReason = ""
	ReasonFrameCap    StopReason = "frame cap reached"
	ReasonEndOfStream StopReason = "end of stream"
	ReasonFault       StopReason = "fault"
)

// Observer is notified once when a run reaches Stopping.
type Observer interface {
	OnProcessingComplete()
}

// ObserverFunc adapts a function to Observer. Functions have no identity,
// so RemoveObserver never matches one; clear it with InvalidateObserver.
type ObserverFunc func()

// OnProcessingComplete calls f.
func (f ObserverFunc) OnProcessingComplete() { f() }

// FaultObserver additionally receives the fault that stopped a run under FaultNotify.
type FaultObserver interface {
	Observer
	OnProcessingFailed(err error)
}

type stopEvent struct {
	reason StopReason
	err    error
}

// Processor is the lifecycle state machine of one run.
type Processor struct {
	id       string
	frameCap int
	source   ports.SampleSource
	sink     ports.FrameSink
	opts     options
	logger   ports.Logger

	observers *observer.Registry[Observer]

	mu         sync.Mutex
	state      State
	track      ports.Track
	hasTrack   bool
	gate       *gate.Gate
	decoder    *codec.Decoder
	stopReason StopReason
	fault      error
	openedAt   time.Time
	startedAt  time.Time
	stoppedAt  time.Time

	setupOnce   sync.Once
	setupCh     chan struct{}
	setupCancel context.CancelFunc
	setupDone   chan struct{}

	stopCh   chan stopEvent
	loopQuit chan struct{}

	done     chan struct{}
	doneOnce sync.Once

	releaseOnce sync.Once
	releaseErr  error
}

// Open opens the MP4 file at path and prepares a run that stops after
// frameCap frames or at end of stream. An unreadable file fails with
// ports.ErrIOFailure. A file without a video track yields an idle processor
// and a nil error.
func Open(path string, frameCap int, sink ports.FrameSink, opts ...Option) (*Processor, error) {
	if frameCap < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameCap, frameCap)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	src, err := mp4source.Open(path, loggerOrNoop(o.logger))
	if err != nil {
		return nil, err
	}
	p, err := OpenSource(src, frameCap, sink, opts...)
	if err != nil {
		src.Close()
		return nil, err
	}
	return p, nil
}

// OpenSource prepares a run over an already opened source. The processor
// takes ownership of src and closes it on Release.
func OpenSource(src ports.SampleSource, frameCap int, sink ports.FrameSink, opts ...Option) (*Processor, error) {
	if frameCap < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameCap, frameCap)
	}
	if sink == nil {
		return nil, ErrNilSink
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := loggerOrNoop(o.logger)

	p := &Processor{
		id:        uuid.NewString(),
		frameCap:  frameCap,
		source:    src,
		sink:      sink,
		opts:      o,
		logger:    log.WithComponent("processor"),
		observers: observer.New[Observer](),
		state:     Created,
		openedAt:  time.Now(),
		setupCh:   make(chan struct{}, 1),
		setupDone: make(chan struct{}),
		stopCh:    make(chan stopEvent, 1),
		loopQuit:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	p.setState(SourceOpened)

	track, err := src.SelectVideoTrack()
	if errors.Is(err, ports.ErrNoVideoTrack) {
		p.logger.Info("No video track found, nothing to process")
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	p.logger.Info("Selected %s track %dx%d (run %s)", track.MIME, track.Width, track.Height, p.id)

	decOpts := o.decoder
	if decOpts.Logger == nil {
		decOpts.Logger = log
	}

	p.mu.Lock()
	p.track = track
	p.hasTrack = true
	p.gate = gate.New(frameCap, gate.WithTimeout(o.gateTimeout), gate.WithLogger(log))
	p.decoder = codec.New(decOpts)
	p.state = SurfacePending

	ctx, cancel := context.WithCancel(context.Background())
	p.setupCancel = cancel
	cfg := ports.SurfaceConfig{
		Width:    track.Width,
		Height:   track.Height,
		FrameCap: frameCap,
		Advancer: p.gate,
		Listener: p,
	}
	p.mu.Unlock()

	go p.loop()
	go p.runSetup(ctx, cfg)

	return p, nil
}

func loggerOrNoop(l ports.Logger) ports.Logger {
	if l == nil {
		return logger.NewNoop()
	}
	return l
}

func (p *Processor) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// runSetup runs on the sink's dedicated goroutine.
func (p *Processor) runSetup(ctx context.Context, cfg ports.SurfaceConfig) {
	defer close(p.setupDone)

	p.logger.Debug("Requesting surface %dx%d", cfg.Width, cfg.Height)
	if err := p.sink.Setup(ctx, cfg); err != nil && ctx.Err() == nil {
		p.logger.Error("Surface setup failed: %v", err)
		p.reportFault(fmt.Errorf("surface setup: %w", err))
	}
}

// SetupComplete is called by the sink once its surface is ready. Only the
// first call has an effect; the decoder is configured on the event loop.
func (p *Processor) SetupComplete() {
	p.setupOnce.Do(func() {
		p.setupCh <- struct{}{}
	})
}

// loop is the processor's event loop.
func (p *Processor) loop() {
	for {
		select {
		case <-p.setupCh:
			p.startDecoding()
		case ev := <-p.stopCh:
			p.notify(ev)
			return
		case <-p.loopQuit:
			select {
			case ev := <-p.stopCh:
				p.notify(ev)
			default:
			}
			return
		}
	}
}

func (p *Processor) startDecoding() {
	p.mu.Lock()
	if p.state != SurfacePending {
		p.mu.Unlock()
		return
	}

	surface := p.sink.Surface()
	if err := p.decoder.Configure(p.track, surface, p); err != nil {
		p.mu.Unlock()
		p.logger.Error("Decoder setup failed: %v", err)
		p.reportFault(err)
		return
	}
	p.state = Decoding
	p.startedAt = time.Now()
	err := p.decoder.Start()
	backend := p.decoder.BackendName()
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("Decoder start failed: %v", err)
		p.reportFault(err)
		return
	}
	p.logger.Info("Decoding with %s backend, frame cap %d", backend, p.frameCap)
}

// OnInputReady fills an input buffer with the next sample, or queues end of stream.
func (p *Processor) OnInputReady(d *codec.Decoder, index int) {
	buf, err := d.InputBuffer(index)
	if err != nil {
		return
	}

	sample, err := p.source.ReadSample(buf)
	if err != nil {
		if !errors.Is(err, ports.ErrEndOfStream) {
			p.logger.Error("Sample read failed: %v", err)
			p.reportFault(err)
		}
		p.logger.Debug("Queueing end of stream")
		d.QueueInputBuffer(index, 0, 0, codec.FlagEndOfStream)
		return
	}

	n := copy(buf, sample.Data)
	if n < len(sample.Data) {
		err := fmt.Errorf("%w: sample of %d bytes at %v", codec.ErrBufferOverflow, len(sample.Data), sample.PresentationTime)
		p.logger.Warn("Dropping sample: %v", err)
		p.reportFault(err)
		n = 0
	}

	var flags codec.BufferFlags
	if sample.Keyframe {
		flags |= codec.FlagKeyFrame
	}
	if err := d.QueueInputBuffer(index, n, sample.PresentationTime, flags); err != nil {
		return
	}
	p.source.Advance()
}

// OnOutputReady renders non-empty output and drives the stop transition.
// Empty or end-of-stream output stops the run without consulting the gate;
// otherwise it waits for the consumer and stops on the frame cap.
func (p *Processor) OnOutputReady(d *codec.Decoder, index int, info codec.BufferInfo) {
	render := info.Size != 0
	err := d.ReleaseOutputBuffer(index, render)
	if !render || info.EndOfStream() {
		p.stop(ReasonEndOfStream, nil)
		return
	}
	if err != nil {
		return
	}

	res, err := p.gate.Await()
	if err != nil {
		return
	}
	if res.CapReached {
		p.stop(ReasonFrameCap, nil)
	}
}

// OnError logs a decoder fault.
func (p *Processor) OnError(d *codec.Decoder, err error) {
	p.logger.Warn("Decoder fault: %v", err)
	p.reportFault(err)
}

func (p *Processor) reportFault(err error) {
	p.mu.Lock()
	if p.fault == nil {
		p.fault = err
	}
	policy := p.opts.faultPolicy
	p.mu.Unlock()

	if policy == FaultNotify {
		p.stop(ReasonFault, err)
	}
}

// stop performs the transition to Stopping at most once.
func (p *Processor) stop(reason StopReason, err error) {
	p.mu.Lock()
	switch {
	case p.state == Decoding:
	case p.state == SurfacePending && reason == ReasonFault:
	default:
		p.mu.Unlock()
		return
	}
	p.state = Stopping
	p.stopReason = reason
	p.stoppedAt = time.Now()
	p.stopCh <- stopEvent{reason: reason, err: err}
	dec := p.decoder
	frames := p.gate.FrameIndex()
	p.mu.Unlock()

	dec.Stop()
	p.closeDone()
	p.logger.Info("Processing stopped (%s) after %d frames", string(reason), frames)
}

func (p *Processor) notify(ev stopEvent) {
	p.observers.NotifyAll(func(o Observer) {
		if ev.err != nil {
			if fo, ok := o.(FaultObserver); ok {
				fo.OnProcessingFailed(ev.err)
			}
		}
		o.OnProcessingComplete()
	})
}

func (p *Processor) closeDone() {
	p.doneOnce.Do(func() { close(p.done) })
}

// Release tears down whatever the run has allocated. It interrupts a
// decoder parked in the gate, waits for the decoder goroutine to exit,
// then releases the sink and closes the source. Safe to call repeatedly.
func (p *Processor) Release() error {
	p.releaseOnce.Do(func() {
		p.releaseErr = p.release()
	})
	return p.releaseErr
}

func (p *Processor) release() error {
	p.mu.Lock()
	prev := p.state
	p.state = Released
	g := p.gate
	dec := p.decoder
	cancel := p.setupCancel
	p.mu.Unlock()

	p.logger.Debug("Releasing from state %s", prev)

	if g != nil {
		g.Close()
	}
	if dec != nil {
		dec.Stop()
		<-dec.Done()
	}
	close(p.loopQuit)

	var errs []error
	if cancel != nil {
		cancel()
		<-p.setupDone
		if err := p.sink.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release sink: %w", err))
		}
	}
	if err := p.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}
	p.closeDone()

	return errors.Join(errs...)
}

// RegisterObserver adds an observer. Registering the same observer twice has no
// effect, except for uncomparable observers such as ObserverFunc, which are
// added on every call.
func (p *Processor) RegisterObserver(o Observer) observer.Handle {
	return p.observers.Register(o)
}

// RemoveObserver removes an observer. No-op when it is not registered.
func (p *Processor) RemoveObserver(o Observer) {
	p.observers.Remove(o)
}

// InvalidateObserver clears a registration through its handle.
func (p *Processor) InvalidateObserver(h observer.Handle) {
	p.observers.Invalidate(h)
}

// State returns the lifecycle state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// FrameIndex returns the number of frames the sink has consumed.
func (p *Processor) FrameIndex() int {
	p.mu.Lock()
	g := p.gate
	p.mu.Unlock()
	if g == nil {
		return 0
	}
	return g.FrameIndex()
}

// Track returns the selected video track. ok is false when the source has none.
func (p *Processor) Track() (ports.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track, p.hasTrack
}

// Done is closed when the run reaches Stopping or is released.
func (p *Processor) Done() <-chan struct{} {
	return p.done
}

// RunID returns the unique identifier of this run.
func (p *Processor) RunID() string {
	return p.id
}

// Stats is a snapshot of a run.
type Stats struct {
	RunID        string
	State        State
	Track        ports.Track
	HasTrack     bool
	Backend      string
	FrameCap     int
	FrameIndex   int
	StopReason   StopReason
	Fault        error
	GateTimeouts int
	Elapsed      time.Duration
}

// Stats returns a snapshot of the run.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		RunID:      p.id,
		State:      p.state,
		Track:      p.track,
		HasTrack:   p.hasTrack,
		FrameCap:   p.frameCap,
		StopReason: p.stopReason,
		Fault:      p.fault,
	}
	if p.decoder != nil {
		s.Backend = p.decoder.BackendName()
	}
	if p.gate != nil {
		s.FrameIndex = p.gate.FrameIndex()
		s.GateTimeouts = p.gate.Timeouts()
	}
	end := p.stoppedAt
	if end.IsZero() {
		end = time.Now()
	}
	s.Elapsed = end.Sub(p.openedAt)
	return s
}

var (
	_ ports.SetupListener = (*Processor)(nil)
	_ codec.Callback      = (*Processor)(nil)
)
