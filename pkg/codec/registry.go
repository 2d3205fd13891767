package codec

import (
	"sort"
	"strings"
	"sync"

	"github.com/user/frameprocessor/pkg/ports"
)

// Factory creates an unconfigured backend.
type Factory func() ports.FrameDecoder

// WildcardVideo registers a backend for every video MIME type without a specific entry.
const WildcardVideo = "video/*"

type registration struct {
	name    string
	factory Factory
}

// Registry maps MIME types to backend factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register binds a MIME type to a named backend factory, replacing any previous binding.
func (r *Registry) Register(mime, name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[strings.ToLower(mime)] = registration{name: name, factory: factory}
}

// Lookup resolves a MIME type to a backend. Exact matches win over WildcardVideo.
func (r *Registry) Lookup(mime string) (string, Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mime = strings.ToLower(mime)
	if reg, ok := r.entries[mime]; ok {
		return reg.name, reg.factory, true
	}
	if strings.HasPrefix(mime, "video/") {
		if reg, ok := r.entries[WildcardVideo]; ok {
			return reg.name, reg.factory, true
		}
	}
	return "", nil, false
}

// MIMETypes returns the registered MIME types in sorted order.
func (r *Registry) MIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.entries))
	for mime := range r.entries {
		out = append(out, mime)
	}
	sort.Strings(out)
	return out
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry used by decoders created without Options.Registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register binds a MIME type in the default registry.
func Register(mime, name string, factory Factory) {
	defaultRegistry.Register(mime, name, factory)
}

// Lookup resolves a MIME type in the default registry.
func Lookup(mime string) (string, Factory, bool) {
	return defaultRegistry.Lookup(mime)
}
