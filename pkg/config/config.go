// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/user/frameprocessor/pkg/adapters/smartdecoder"
	"github.com/user/frameprocessor/pkg/codec"
	"github.com/user/frameprocessor/pkg/ports"
	"github.com/user/frameprocessor/pkg/processor"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid configuration")

// Sink kinds.
const (
	SinkNull  = "null"
	SinkImage = "image"
)

// Config represents the full configuration for a processing run.
type Config struct {
	// Input
	Input  string `yaml:"input"`
	Frames int    `yaml:"frames"`

	// Decoding
	Backend       string        `yaml:"backend"`
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	GateTimeoutMs int           `yaml:"gate_timeout_ms"`
	FaultPolicy   string        `yaml:"fault_policy"`
	Decoder       DecoderConfig `yaml:"decoder"`

	// Output
	Sink         SinkConfig `yaml:"sink"`
	Report       string     `yaml:"report"`
	ReportFormat string     `yaml:"report_format"`

	LogLevel string `yaml:"log_level"`
}

// DecoderConfig sizes the decoder's buffer pools.
type DecoderConfig struct {
	InputBuffers  int `yaml:"input_buffers"`
	OutputBuffers int `yaml:"output_buffers"`
	MaxInputSize  int `yaml:"max_input_size"`
}

// SinkConfig selects and configures the frame consumer.
type SinkConfig struct {
	Kind         string `yaml:"kind"`
	OutputDir    string `yaml:"output_dir"`
	Format       string `yaml:"format"`
	Quality      int    `yaml:"quality"`
	Overlay      bool   `yaml:"overlay"`
	OverlayColor string `yaml:"overlay_color"`
	ScaleWidth   int    `yaml:"scale_width"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Frames:        300,
		Backend:       string(smartdecoder.BackendAuto),
		GateTimeoutMs: 500,
		FaultPolicy:   processor.FaultNotify.String(),
		Decoder: DecoderConfig{
			InputBuffers:  codec.DefaultBufferCount,
			OutputBuffers: codec.DefaultBufferCount,
		},
		Sink: SinkConfig{
			Kind:         SinkNull,
			OutputDir:    "./frames",
			Format:       "png",
			Quality:      85,
			OverlayColor: "#000000a0",
		},
		ReportFormat: "text",
		LogLevel:     "info",
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Frames <= 0 {
		invalid("frames must be positive, got %d", c.Frames)
	}
	if _, err := smartdecoder.ParseBackend(c.Backend); err != nil {
		invalid("backend: %v", err)
	}
	if c.GateTimeoutMs <= 0 {
		invalid("gate_timeout_ms must be positive, got %d", c.GateTimeoutMs)
	}
	if _, err := processor.ParseFaultPolicy(c.FaultPolicy); err != nil {
		invalid("fault_policy: %v", err)
	}
	if c.Decoder.InputBuffers < 0 || c.Decoder.OutputBuffers < 0 || c.Decoder.MaxInputSize < 0 {
		invalid("decoder buffer sizes must not be negative")
	}

	switch c.Sink.Kind {
	case SinkNull:
	case SinkImage:
		if c.Sink.OutputDir == "" {
			invalid("sink.output_dir is required for the image sink")
		}
	default:
		invalid("sink.kind must be %q or %q, got %q", SinkNull, SinkImage, c.Sink.Kind)
	}
	switch strings.ToLower(c.Sink.Format) {
	case "png", "jpeg", "jpg":
	default:
		invalid("sink.format must be png or jpeg, got %q", c.Sink.Format)
	}
	if c.Sink.Quality < 1 || c.Sink.Quality > 100 {
		invalid("sink.quality must be between 1 and 100, got %d", c.Sink.Quality)
	}
	if c.Sink.ScaleWidth < 0 {
		invalid("sink.scale_width must not be negative, got %d", c.Sink.ScaleWidth)
	}
	if _, err := ParseColor(c.Sink.OverlayColor); err != nil {
		invalid("sink.overlay_color: %v", err)
	}

	switch c.ReportFormat {
	case "text", "markdown", "yaml", "msgpack":
	default:
		invalid("report_format must be text, markdown, yaml or msgpack, got %q", c.ReportFormat)
	}

	return errors.Join(errs...)
}

// GateTimeout returns the gate's bounded wait as a duration.
func (c Config) GateTimeout() time.Duration {
	return time.Duration(c.GateTimeoutMs) * time.Millisecond
}

// ImageFormat returns the sink's output format.
func (c Config) ImageFormat() ports.ImageFormat {
	return ports.ParseImageFormat(strings.ToLower(c.Sink.Format))
}

// ToProcessorOptions converts Config to processor options. The registry
// resolves decoder backends; nil uses codec.DefaultRegistry.
func (c Config) ToProcessorOptions(log ports.Logger, registry *codec.Registry) ([]processor.Option, error) {
	policy, err := processor.ParseFaultPolicy(c.FaultPolicy)
	if err != nil {
		return nil, err
	}

	return []processor.Option{
		processor.WithLogger(log),
		processor.WithGateTimeout(c.GateTimeout()),
		processor.WithFaultPolicy(policy),
		processor.WithDecoderOptions(codec.Options{
			InputBuffers:  c.Decoder.InputBuffers,
			OutputBuffers: c.Decoder.OutputBuffers,
			MaxInputSize:  c.Decoder.MaxInputSize,
			Registry:      registry,
			Logger:        log,
		}),
	}, nil
}

// ParseColor parses "#rrggbb" or "#rrggbbaa". An empty string yields nil.
func ParseColor(hex string) (color.Color, error) {
	if hex == "" {
		return nil, nil
	}
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, fmt.Errorf("color %q must have 6 or 8 hex digits", hex)
	}

	var channels [4]uint8
	channels[3] = 255
	for i := 0; i < len(hex)/2; i++ {
		hi, ok1 := hexValue(hex[2*i])
		lo, ok2 := hexValue(hex[2*i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("color %q has a non-hex digit", hex)
		}
		channels[i] = hi<<4 | lo
	}

	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: channels[3]}, nil
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
