package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/frameprocessor/pkg/ports"
)

// Logger is a mock implementation of ports.Logger that keeps formatted messages.
type Logger struct {
	mu       *sync.Mutex
	messages *[]string
	prefix   string
}

// NewLogger creates a new mock Logger.
func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, messages: &[]string{}}
}

func (m *Logger) Debug(msg string, args ...interface{}) { m.log("DEBUG", msg, args...) }
func (m *Logger) Info(msg string, args ...interface{})  { m.log("INFO", msg, args...) }
func (m *Logger) Warn(msg string, args ...interface{})  { m.log("WARN", msg, args...) }
func (m *Logger) Error(msg string, args ...interface{}) { m.log("ERROR", msg, args...) }

func (m *Logger) WithComponent(component string) ports.Logger {
	return &Logger{mu: m.mu, messages: m.messages, prefix: "[" + component + "] "}
}

func (m *Logger) log(level, msg string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.messages = append(*m.messages, level+" "+m.prefix+fmt.Sprintf(msg, args...))
}

// Messages returns all logged lines.
func (m *Logger) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), (*m.messages)...)
}

// Contains reports whether any logged line contains substr.
func (m *Logger) Contains(substr string) bool {
	for _, line := range m.Messages() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

var _ ports.Logger = (*Logger)(nil)
