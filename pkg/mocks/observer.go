package mocks

import "sync"

// Observer records completion and failure notifications.
type Observer struct {
	mu        sync.Mutex
	completed int
	failures  []error
	notified  chan struct{}
	once      sync.Once
}

// NewObserver creates a new mock Observer.
func NewObserver() *Observer {
	return &Observer{notified: make(chan struct{})}
}

func (m *Observer) OnProcessingComplete() {
	m.mu.Lock()
	m.completed++
	m.mu.Unlock()
	m.once.Do(func() { close(m.notified) })
}

func (m *Observer) OnProcessingFailed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, err)
}

// Completed returns the number of completion notifications.
func (m *Observer) Completed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}

// Failures returns the errors passed to OnProcessingFailed.
func (m *Observer) Failures() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.failures...)
}

// Notified is closed on the first completion notification.
func (m *Observer) Notified() <-chan struct{} {
	return m.notified
}
