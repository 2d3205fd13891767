// Package codec drives a video decoding backend in asynchronous callback mode.
//
// A Decoder owns a pool of input and output buffers and a goroutine that
// delivers buffer events to a Callback serially:
//
//   - OnInputReady hands out an empty input buffer. The callback fills it
//     and returns it with QueueInputBuffer, or queues a zero-length buffer
//     flagged FlagEndOfStream.
//   - OnOutputReady hands out a decoded output buffer. The callback returns
//     it with ReleaseOutputBuffer, rendering it to the surface if wanted.
//   - OnError reports a backend failure. Delivery continues.
//
// Callbacks never run concurrently with each other, but they do run
// concurrently with the goroutine that owns the Decoder.
package codec

import (
	"errors"
	"time"
)

var (
	// ErrUnsupportedFormat is returned by Configure when no backend can decode the track.
	ErrUnsupportedFormat = errors.New("codec: unsupported format")

	// ErrInvalidState is returned when an operation is not allowed in the current state.
	ErrInvalidState = errors.New("codec: invalid state")

	// ErrInvalidIndex is returned for a buffer index the caller does not own.
	ErrInvalidIndex = errors.New("codec: invalid buffer index")

	// ErrBufferOverflow is returned when queued data does not fit the input buffer.
	ErrBufferOverflow = errors.New("codec: buffer overflow")

	// ErrDecoderFault wraps errors reported by the backend.
	ErrDecoderFault = errors.New("codec: decoder fault")
)

// State is the lifecycle state of a Decoder.
type State int

const (
	Unconfigured State = iota
	Configured
	Running
	Stopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// BufferFlags annotate queued input and emitted output buffers.
type BufferFlags uint32

const (
	// FlagEndOfStream marks the last buffer of the stream.
	FlagEndOfStream BufferFlags = 1 << iota
	// FlagKeyFrame marks a buffer that can be decoded independently.
	FlagKeyFrame
)

// BufferInfo describes an output buffer.
type BufferInfo struct {
	Size             int
	PresentationTime time.Duration
	Flags            BufferFlags
}

// EndOfStream reports whether the buffer carries the end-of-stream flag.
func (i BufferInfo) EndOfStream() bool {
	return i.Flags&FlagEndOfStream != 0
}

// Callback receives buffer events on the decoder goroutine.
type Callback interface {
	OnInputReady(d *Decoder, index int)
	OnOutputReady(d *Decoder, index int, info BufferInfo)
	OnError(d *Decoder, err error)
}
