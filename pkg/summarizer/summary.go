// Package summarizer provides summary generation for processing runs.
package summarizer

import (
	"time"

	"github.com/user/frameprocessor/pkg/ports"
	"github.com/user/frameprocessor/pkg/processor"
)

// Summary contains all data collected during a processing run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time `yaml:"generated_at" msgpack:"generated_at"`
	RunID       string    `yaml:"run_id" msgpack:"run_id"`

	Input    InputInfo    `yaml:"input" msgpack:"input"`
	Decoding DecodingInfo `yaml:"decoding" msgpack:"decoding"`
	Outcome  OutcomeInfo  `yaml:"outcome" msgpack:"outcome"`
	Sink     SinkInfo     `yaml:"sink" msgpack:"sink"`
}

// InputInfo describes the processed resource and its selected track.
type InputInfo struct {
	Path        string `yaml:"path" msgpack:"path"`
	MIME        string `yaml:"mime,omitempty" msgpack:"mime"`
	SampleEntry string `yaml:"sample_entry,omitempty" msgpack:"sample_entry"`
	Width       int    `yaml:"width,omitempty" msgpack:"width"`
	Height      int    `yaml:"height,omitempty" msgpack:"height"`
}

// DecodingInfo contains decoder and gate measurements.
type DecodingInfo struct {
	Backend        string `yaml:"backend,omitempty" msgpack:"backend"`
	FrameCap       int    `yaml:"frame_cap" msgpack:"frame_cap"`
	FramesConsumed int    `yaml:"frames_consumed" msgpack:"frames_consumed"`
	GateTimeouts   int    `yaml:"gate_timeouts" msgpack:"gate_timeouts"`
}

// OutcomeInfo records how the run ended.
type OutcomeInfo struct {
	State      string `yaml:"state" msgpack:"state"`
	StopReason string `yaml:"stop_reason,omitempty" msgpack:"stop_reason"`
	Fault      string `yaml:"fault,omitempty" msgpack:"fault"`
	ElapsedMs  int64  `yaml:"elapsed_ms" msgpack:"elapsed_ms"`
}

// SinkInfo describes the frame consumer.
type SinkInfo struct {
	Kind          string `yaml:"kind" msgpack:"kind"`
	OutputDir     string `yaml:"output_dir,omitempty" msgpack:"output_dir"`
	FramesWritten int    `yaml:"frames_written" msgpack:"frames_written"`
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithInput sets the processed path.
func (b *Builder) WithInput(path string) *Builder {
	b.summary.Input.Path = path
	return b
}

// WithTrack sets the selected track.
func (b *Builder) WithTrack(track ports.Track) *Builder {
	b.summary.Input.MIME = track.MIME
	b.summary.Input.SampleEntry = track.SampleEntry
	b.summary.Input.Width = track.Width
	b.summary.Input.Height = track.Height
	return b
}

// WithStats copies a processor snapshot.
func (b *Builder) WithStats(stats processor.Stats) *Builder {
	b.summary.RunID = stats.RunID
	if stats.HasTrack {
		b.WithTrack(stats.Track)
	}
	b.summary.Decoding = DecodingInfo{
		Backend:        stats.Backend,
		FrameCap:       stats.FrameCap,
		FramesConsumed: stats.FrameIndex,
		GateTimeouts:   stats.GateTimeouts,
	}
	b.summary.Outcome = OutcomeInfo{
		State:      stats.State.String(),
		StopReason: string(stats.StopReason),
		ElapsedMs:  stats.Elapsed.Milliseconds(),
	}
	if stats.Fault != nil {
		b.summary.Outcome.Fault = stats.Fault.Error()
	}
	return b
}

// WithSink sets sink information.
func (b *Builder) WithSink(kind, outputDir string, written int) *Builder {
	b.summary.Sink = SinkInfo{
		Kind:          kind,
		OutputDir:     outputDir,
		FramesWritten: written,
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
