package codec

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/user/frameprocessor/pkg/adapters/logger"
	"github.com/user/frameprocessor/pkg/ports"
)

const (
	// DefaultBufferCount is the number of input and output buffers when Options leaves them unset.
	DefaultBufferCount = 4

	minInputSize = 64 * 1024
)

// Options configures a Decoder.
type Options struct {
	// InputBuffers is the number of input buffers (default 4).
	InputBuffers int
	// OutputBuffers is the number of output buffers (default 4).
	OutputBuffers int
	// MaxInputSize is the capacity of each input buffer.
	// Zero derives it from the track dimensions.
	MaxInputSize int
	// Registry resolves MIME types to backends (default: DefaultRegistry).
	Registry *Registry
	// Logger receives decoder diagnostics (default: no-op).
	Logger ports.Logger
}

// FlushedFrame is a frame a backend released at end of stream.
type FlushedFrame struct {
	Image            image.Image
	PresentationTime time.Duration
}

// Flusher is implemented by backends that hold frames back until end of stream.
type Flusher interface {
	Flush() ([]FlushedFrame, error)
}

type inputSlot struct {
	data  []byte
	size  int
	pts   time.Duration
	flags BufferFlags
}

type outputSlot struct {
	image image.Image
	info  BufferInfo
}

// Decoder is an asynchronous callback-mode decoder.
type Decoder struct {
	opts     Options
	registry *Registry
	logger   ports.Logger

	mu          sync.Mutex
	state       State
	track       ports.Track
	backendName string
	surface     ports.Surface
	cb          Callback

	inputs    []inputSlot
	freeIn    []int
	heldIn    map[int]bool
	queuedIn  []int
	eosQueued bool

	outputs   []outputSlot
	freeOut   []int
	heldOut   map[int]bool
	pending   []outputSlot
	rendered  int
	eosOutput bool

	// backendMu serializes Decode against Close.
	backendMu sync.Mutex
	backend   ports.FrameDecoder

	wake     chan struct{}
	quit     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// New creates an unconfigured decoder.
func New(opts Options) *Decoder {
	if opts.InputBuffers <= 0 {
		opts.InputBuffers = DefaultBufferCount
	}
	if opts.OutputBuffers <= 0 {
		opts.OutputBuffers = DefaultBufferCount
	}
	registry := opts.Registry
	if registry == nil {
		registry = defaultRegistry
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}

	return &Decoder{
		opts:     opts,
		registry: registry,
		logger:   log.WithComponent("decoder"),
		heldIn:   make(map[int]bool),
		heldOut:  make(map[int]bool),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Configure resolves a backend for the track and binds the surface and callback.
func (d *Decoder) Configure(track ports.Track, surface ports.Surface, cb Callback) error {
	if cb == nil {
		return fmt.Errorf("%w: nil callback", ErrInvalidState)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Unconfigured {
		return fmt.Errorf("%w: configure in state %s", ErrInvalidState, d.state)
	}

	name, factory, ok := d.registry.Lookup(track.MIME)
	if !ok {
		return fmt.Errorf("%w: no backend for %s", ErrUnsupportedFormat, track.MIME)
	}

	backend := factory()
	if err := backend.Configure(track); err != nil {
		backend.Close()
		return fmt.Errorf("%w: %s backend rejected %s: %w", ErrUnsupportedFormat, name, track.MIME, err)
	}

	maxInput := d.opts.MaxInputSize
	if maxInput <= 0 {
		maxInput = track.Width * track.Height * 3 / 2
		if maxInput < minInputSize {
			maxInput = minInputSize
		}
	}

	d.inputs = make([]inputSlot, d.opts.InputBuffers)
	d.freeIn = make([]int, 0, d.opts.InputBuffers)
	for i := range d.inputs {
		d.inputs[i].data = make([]byte, maxInput)
		d.freeIn = append(d.freeIn, i)
	}
	d.outputs = make([]outputSlot, d.opts.OutputBuffers)
	d.freeOut = make([]int, 0, d.opts.OutputBuffers)
	for i := range d.outputs {
		d.freeOut = append(d.freeOut, i)
	}

	d.backendMu.Lock()
	d.backend = backend
	d.backendMu.Unlock()

	d.track = track
	d.backendName = name
	d.surface = surface
	d.cb = cb
	d.state = Configured

	d.logger.Debug("Configured %s backend for %s (%dx%d)", name, track.MIME, track.Width, track.Height)
	return nil
}

// Start begins callback delivery on a new goroutine.
func (d *Decoder) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Configured {
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, d.state)
	}
	d.state = Running
	go d.run()
	return nil
}

// Stop halts callback delivery and closes the backend. It is idempotent and
// safe to call from inside a callback. It does not wait for the callback
// goroutine; use Done for that.
func (d *Decoder) Stop() {
	d.mu.Lock()
	if d.state == Stopped {
		d.mu.Unlock()
		return
	}
	wasRunning := d.state == Running
	d.state = Stopped
	d.mu.Unlock()

	close(d.quit)
	if !wasRunning {
		d.closeDone()
	}

	d.backendMu.Lock()
	if d.backend != nil {
		d.backend.Close()
		d.backend = nil
	}
	d.backendMu.Unlock()

	d.logger.Debug("Decoder stopped")
}

// Done is closed once the callback goroutine has exited, or at Stop if it never started.
func (d *Decoder) Done() <-chan struct{} {
	return d.done
}

// State returns the current lifecycle state.
func (d *Decoder) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// BackendName returns the name of the configured backend.
func (d *Decoder) BackendName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backendName
}

// InputBuffer returns the full-capacity input buffer handed out by OnInputReady.
func (d *Decoder) InputBuffer(index int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Running {
		return nil, fmt.Errorf("%w: input buffer in state %s", ErrInvalidState, d.state)
	}
	if !d.heldIn[index] {
		return nil, fmt.Errorf("%w: input %d", ErrInvalidIndex, index)
	}
	return d.inputs[index].data, nil
}

// QueueInputBuffer returns a filled input buffer to the decoder.
func (d *Decoder) QueueInputBuffer(index, size int, pts time.Duration, flags BufferFlags) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Running {
		return fmt.Errorf("%w: queue input in state %s", ErrInvalidState, d.state)
	}
	if !d.heldIn[index] {
		return fmt.Errorf("%w: input %d", ErrInvalidIndex, index)
	}
	if size < 0 || size > len(d.inputs[index].data) {
		return fmt.Errorf("%w: input %d size %d exceeds capacity %d", ErrBufferOverflow, index, size, len(d.inputs[index].data))
	}

	delete(d.heldIn, index)
	d.inputs[index].size = size
	d.inputs[index].pts = pts
	d.inputs[index].flags = flags
	d.queuedIn = append(d.queuedIn, index)
	if flags&FlagEndOfStream != 0 {
		d.eosQueued = true
	}
	d.signal()
	return nil
}

// ReleaseOutputBuffer returns an output buffer, queuing its frame to the surface when render is set.
func (d *Decoder) ReleaseOutputBuffer(index int, render bool) error {
	d.mu.Lock()
	if d.state != Running {
		d.mu.Unlock()
		return fmt.Errorf("%w: release output in state %s", ErrInvalidState, d.state)
	}
	if !d.heldOut[index] {
		d.mu.Unlock()
		return fmt.Errorf("%w: output %d", ErrInvalidIndex, index)
	}
	slot := d.outputs[index]
	d.outputs[index] = outputSlot{}
	delete(d.heldOut, index)
	d.freeOut = append(d.freeOut, index)

	surface := d.surface
	frameIndex := d.rendered
	doRender := render && surface != nil && slot.image != nil && slot.info.Size != 0
	if doRender {
		d.rendered++
	}
	d.signal()
	d.mu.Unlock()

	if doRender {
		surface.Queue(ports.Frame{
			Index:            frameIndex,
			Image:            slot.image,
			PresentationTime: slot.info.PresentationTime,
			Size:             slot.info.Size,
		})
	}
	return nil
}

func (d *Decoder) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Decoder) closeDone() {
	d.doneOnce.Do(func() { close(d.done) })
}

func (d *Decoder) stopped() bool {
	select {
	case <-d.quit:
		return true
	default:
		return false
	}
}

func (d *Decoder) run() {
	defer d.closeDone()

	for {
		if d.stopped() {
			return
		}
		if d.emitOutput() || d.offerInput() || d.decodeInput() {
			continue
		}
		select {
		case <-d.wake:
		case <-d.quit:
			return
		}
	}
}

// emitOutput hands the next pending frame to the callback if an output buffer is free.
func (d *Decoder) emitOutput() bool {
	d.mu.Lock()
	if len(d.pending) == 0 || len(d.freeOut) == 0 {
		d.mu.Unlock()
		return false
	}
	index := d.freeOut[0]
	d.freeOut = d.freeOut[1:]
	slot := d.pending[0]
	d.pending = d.pending[1:]
	d.outputs[index] = slot
	d.heldOut[index] = true
	cb := d.cb
	d.mu.Unlock()

	cb.OnOutputReady(d, index, slot.info)
	return true
}

// offerInput hands a free input buffer to the callback until end of stream is queued.
func (d *Decoder) offerInput() bool {
	d.mu.Lock()
	if d.eosQueued || len(d.freeIn) == 0 {
		d.mu.Unlock()
		return false
	}
	index := d.freeIn[0]
	d.freeIn = d.freeIn[1:]
	d.heldIn[index] = true
	cb := d.cb
	d.mu.Unlock()

	cb.OnInputReady(d, index)
	return true
}

// decodeInput feeds the oldest queued input to the backend. Decoding waits
// until earlier frames have been handed out.
func (d *Decoder) decodeInput() bool {
	d.mu.Lock()
	if len(d.queuedIn) == 0 || len(d.pending) != 0 || d.eosOutput {
		d.mu.Unlock()
		return false
	}
	index := d.queuedIn[0]
	d.queuedIn = d.queuedIn[1:]
	in := d.inputs[index]
	d.mu.Unlock()

	var (
		frames []outputSlot
		err    error
	)
	if in.size > 0 {
		frames, err = d.decode(in)
	}
	eos := in.flags&FlagEndOfStream != 0
	var flushErr error
	if eos {
		var flushed []outputSlot
		flushed, flushErr = d.flush()
		frames = append(frames, flushed...)
		frames = append(frames, outputSlot{info: BufferInfo{PresentationTime: in.pts, Flags: FlagEndOfStream}})
	}

	d.mu.Lock()
	d.freeIn = append(d.freeIn, index)
	d.pending = append(d.pending, frames...)
	if eos {
		d.eosOutput = true
	}
	cb := d.cb
	d.mu.Unlock()

	for _, e := range []error{err, flushErr} {
		if e != nil {
			d.logger.Warn("Backend error at %v: %v", in.pts, e)
			cb.OnError(d, fmt.Errorf("%w: %w", ErrDecoderFault, e))
		}
	}
	return true
}

func (d *Decoder) decode(in inputSlot) ([]outputSlot, error) {
	d.backendMu.Lock()
	defer d.backendMu.Unlock()

	if d.backend == nil {
		return nil, nil
	}
	img, err := d.backend.Decode(in.data[:in.size], in.pts)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, nil
	}
	return []outputSlot{newOutput(img, in.pts, in.flags&FlagKeyFrame)}, nil
}

func (d *Decoder) flush() ([]outputSlot, error) {
	d.backendMu.Lock()
	defer d.backendMu.Unlock()

	f, ok := d.backend.(Flusher)
	if !ok {
		return nil, nil
	}
	frames, err := f.Flush()
	out := make([]outputSlot, 0, len(frames))
	for _, fr := range frames {
		if fr.Image != nil {
			out = append(out, newOutput(fr.Image, fr.PresentationTime, 0))
		}
	}
	return out, err
}

func newOutput(img image.Image, pts time.Duration, flags BufferFlags) outputSlot {
	b := img.Bounds()
	return outputSlot{
		image: img,
		info: BufferInfo{
			Size:             b.Dx() * b.Dy() * 4,
			PresentationTime: pts,
			Flags:            flags,
		},
	}
}
