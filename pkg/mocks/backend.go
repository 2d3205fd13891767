package mocks

import (
	"image"
	"sync"
	"time"

	"github.com/user/frameprocessor/pkg/ports"
)

// Backend is a mock implementation of ports.FrameDecoder.
// By default every non-empty access unit decodes to a 4x4 image.
type Backend struct {
	ConfigureFunc func(track ports.Track) error
	DecodeFunc    func(data []byte, pts time.Duration) (image.Image, error)

	mu         sync.Mutex
	track      ports.Track
	decoded    []time.Duration
	closeCalls int
}

func (m *Backend) Configure(track ports.Track) error {
	m.mu.Lock()
	m.track = track
	m.mu.Unlock()
	if m.ConfigureFunc != nil {
		return m.ConfigureFunc(track)
	}
	return nil
}

func (m *Backend) Decode(data []byte, pts time.Duration) (image.Image, error) {
	m.mu.Lock()
	m.decoded = append(m.decoded, pts)
	m.mu.Unlock()
	if m.DecodeFunc != nil {
		return m.DecodeFunc(data, pts)
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (m *Backend) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
}

// Decoded returns the timestamps passed to Decode.
func (m *Backend) Decoded() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.decoded...)
}

// CloseCalls returns the number of Close invocations.
func (m *Backend) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

var _ ports.FrameDecoder = (*Backend)(nil)
