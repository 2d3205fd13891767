// Package smartdecoder selects decoding backends and registers them in a codec registry.
package smartdecoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/user/frameprocessor/pkg/adapters/av1decoder"
	"github.com/user/frameprocessor/pkg/adapters/avdecoder"
	"github.com/user/frameprocessor/pkg/adapters/codecdetect"
	"github.com/user/frameprocessor/pkg/adapters/h264decoder"
	"github.com/user/frameprocessor/pkg/adapters/logger"
	"github.com/user/frameprocessor/pkg/adapters/swdecoder"
	"github.com/user/frameprocessor/pkg/codec"
	"github.com/user/frameprocessor/pkg/ports"
)

// Backend names a decoding backend selection.
type Backend string

const (
	// BackendAuto registers every available backend, best first.
	BackendAuto Backend = "auto"
	// BackendSoftware represents the pure-Go decoder.
	BackendSoftware Backend = Backend(swdecoder.Name)
	// BackendFFmpeg represents FFmpeg-based H.264 decoding.
	BackendFFmpeg Backend = Backend(h264decoder.Name)
	// BackendLibaom represents libaom for AV1 decoding.
	BackendLibaom Backend = Backend(av1decoder.Name)
	// BackendLibav represents libavcodec through go-astiav.
	BackendLibav Backend = Backend(avdecoder.Name)
)

// Backends lists every accepted selection.
var Backends = []Backend{BackendAuto, BackendSoftware, BackendFFmpeg, BackendLibaom, BackendLibav}

// Options configures backend registration.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// Logger receives availability messages. Defaults to a no-op logger.
	Logger ports.Logger
}

var (
	// ErrUnknownBackend is returned for a selection outside Backends.
	ErrUnknownBackend = errors.New("smartdecoder: unknown backend")
	// ErrNoDecoderAvailable is returned when the selected backend cannot run here.
	ErrNoDecoderAvailable = errors.New("smartdecoder: no decoder available")
)

// ParseBackend converts a backend name. An empty name selects BackendAuto.
func ParseBackend(s string) (Backend, error) {
	if s == "" {
		return BackendAuto, nil
	}
	b := Backend(strings.ToLower(s))
	for _, known := range Backends {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// Register adds the selected backend to r and returns the names of the
// backends registered, in registration order.
//
// The selection flow for BackendAuto:
//   - software: always, for raw video only
//   - ffmpeg: H.264, when an ffmpeg binary is found
//   - libaom: AV1, when built with the aom tag
//   - libav: H.264, HEVC, AV1 and VP9, when built with the astiav tag
//
// Later registrations replace earlier ones for the same MIME type. Compressed
// types left without a backend fail to configure with codec.ErrUnsupportedFormat;
// only BackendSoftware substitutes synthetic frames for them.
func Register(r *codec.Registry, backend Backend, opts Options) ([]string, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	log = log.WithComponent("smartdecoder")

	if opts.FFmpegPath != "" {
		h264decoder.SetFFmpegPath(opts.FFmpegPath)
	}

	switch backend {
	case BackendAuto:
		return registerAuto(r, log), nil

	case BackendSoftware:
		swdecoder.Register(r, true)
		return []string{swdecoder.Name}, nil

	case BackendFFmpeg:
		if !h264decoder.IsAvailable() {
			return nil, fmt.Errorf("%w: %s: %w", ErrNoDecoderAvailable, backend, h264decoder.ErrFFmpegNotFound)
		}
		swdecoder.Register(r, false)
		h264decoder.Register(r)
		return []string{swdecoder.Name, h264decoder.Name}, nil

	case BackendLibaom:
		if err := av1decoder.Register(r); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNoDecoderAvailable, backend, err)
		}
		swdecoder.Register(r, false)
		return []string{av1decoder.Name, swdecoder.Name}, nil

	case BackendLibav:
		if err := avdecoder.Register(r); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNoDecoderAvailable, backend, err)
		}
		swdecoder.Register(r, false)
		return []string{avdecoder.Name, swdecoder.Name}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// compressedTypes are the video types a native backend may serve.
var compressedTypes = []string{
	codecdetect.MIMEAVC,
	codecdetect.MIMEHEVC,
	codecdetect.MIMEAV1,
	codecdetect.MIMEVP9,
	codecdetect.MIMEVP8,
}

func registerAuto(r *codec.Registry, log ports.Logger) []string {
	swdecoder.Register(r, false)
	names := []string{swdecoder.Name}

	if h264decoder.IsAvailable() {
		h264decoder.Register(r)
		names = append(names, h264decoder.Name)
	} else {
		log.Debug("Backend %s unavailable: %v", h264decoder.Name, h264decoder.ErrFFmpegNotFound)
	}

	if err := av1decoder.Register(r); err == nil {
		names = append(names, av1decoder.Name)
	} else {
		log.Debug("Backend %s unavailable: %v", av1decoder.Name, err)
	}

	if err := avdecoder.Register(r); err == nil {
		names = append(names, avdecoder.Name)
	} else {
		log.Debug("Backend %s unavailable: %v", avdecoder.Name, err)
	}

	var missing []string
	for _, mime := range compressedTypes {
		if _, _, ok := r.Lookup(mime); !ok {
			missing = append(missing, mime)
		}
	}
	if len(missing) > 0 {
		log.Warn("No decoder for %s", strings.Join(missing, ", "))
	}

	return names
}

// NewRegistry creates a registry populated for the selected backend.
func NewRegistry(backend Backend, opts Options) (*codec.Registry, []string, error) {
	r := codec.NewRegistry()
	names, err := Register(r, backend, opts)
	if err != nil {
		return nil, nil, err
	}
	return r, names, nil
}
