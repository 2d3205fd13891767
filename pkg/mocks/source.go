package mocks

import (
	"sync"
	"time"

	"github.com/user/frameprocessor/pkg/ports"
)

// SampleSource is a mock implementation of ports.SampleSource backed by memory.
type SampleSource struct {
	TrackList []ports.Track
	Samples   []ports.Sample
	ReadErr   error

	mu         sync.Mutex
	selected   bool
	cursor     int
	closeCalls int
}

// NewSampleSource returns a source with one 16x16 video track of the given
// MIME type and n one-byte samples spaced 33ms apart.
func NewSampleSource(mime string, n int) *SampleSource {
	samples := make([]ports.Sample, n)
	for i := range samples {
		samples[i] = ports.Sample{
			Data:             []byte{byte(i)},
			PresentationTime: time.Duration(i) * 33 * time.Millisecond,
			Duration:         33 * time.Millisecond,
			Keyframe:         i == 0,
		}
	}
	return &SampleSource{
		TrackList: []ports.Track{{ID: 1, MIME: mime, Width: 16, Height: 16, Timescale: 1000}},
		Samples:   samples,
	}
}

func (m *SampleSource) Tracks() []ports.Track {
	return m.TrackList
}

func (m *SampleSource) SelectVideoTrack() (ports.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.TrackList {
		if t.IsVideo() {
			m.selected = true
			return t, nil
		}
	}
	return ports.Track{}, ports.ErrNoVideoTrack
}

func (m *SampleSource) ReadSample(buf []byte) (ports.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return ports.Sample{}, m.ReadErr
	}
	if !m.selected || m.closeCalls > 0 || m.cursor >= len(m.Samples) {
		return ports.Sample{}, ports.ErrEndOfStream
	}
	s := m.Samples[m.cursor]
	if cap(buf) >= len(s.Data) {
		s.Data = buf[:copy(buf[:cap(buf)], s.Data)]
	}
	return s, nil
}

func (m *SampleSource) Advance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < len(m.Samples) {
		m.cursor++
	}
	return m.cursor < len(m.Samples)
}

func (m *SampleSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return nil
}

// Cursor returns the index of the next sample to be read.
func (m *SampleSource) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// CloseCalls returns the number of Close invocations.
func (m *SampleSource) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

var _ ports.SampleSource = (*SampleSource)(nil)
