package summarizer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Formatter defines the interface for formatting a Summary.
type Formatter interface {
	// Format converts a Summary to its encoded form.
	Format(summary *Summary) ([]byte, error)
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(summary *Summary) ([]byte, error)

// Format implements the Formatter interface.
func (f FormatFunc) Format(summary *Summary) ([]byte, error) {
	return f(summary)
}

// Formats lists the names accepted by FormatterFor.
var Formats = []string{"text", "markdown", "yaml", "msgpack"}

// FormatterFor returns the formatter registered under name.
func FormatterFor(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return NewTextFormatter(), nil
	case "markdown", "md":
		return NewMarkdownFormatter(), nil
	case "yaml", "yml":
		return FormatFunc(formatYAML), nil
	case "msgpack":
		return FormatFunc(formatMsgpack), nil
	default:
		return nil, fmt.Errorf("summarizer: unknown format %q", name)
	}
}

func formatYAML(summary *Summary) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func formatMsgpack(summary *Summary) ([]byte, error) {
	data, err := msgpack.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encode msgpack: %w", err)
	}
	return data, nil
}

// TextFormatter renders a plain-text summary for terminals.
type TextFormatter struct{}

// NewTextFormatter creates a new TextFormatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format implements the Formatter interface.
func (f *TextFormatter) Format(s *Summary) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run %s\n", s.RunID)
	fmt.Fprintf(&sb, "  Input:    %s\n", s.Input.Path)
	if s.Input.MIME != "" {
		fmt.Fprintf(&sb, "  Track:    %s (%s) %dx%d\n", s.Input.MIME, s.Input.SampleEntry, s.Input.Width, s.Input.Height)
	}
	if s.Decoding.Backend != "" {
		fmt.Fprintf(&sb, "  Backend:  %s\n", s.Decoding.Backend)
	}
	fmt.Fprintf(&sb, "  Frames:   %d / %d\n", s.Decoding.FramesConsumed, s.Decoding.FrameCap)
	fmt.Fprintf(&sb, "  State:    %s", s.Outcome.State)
	if s.Outcome.StopReason != "" {
		fmt.Fprintf(&sb, " (%s)", s.Outcome.StopReason)
	}
	sb.WriteString("\n")
	if s.Outcome.Fault != "" {
		fmt.Fprintf(&sb, "  Fault:    %s\n", s.Outcome.Fault)
	}
	fmt.Fprintf(&sb, "  Elapsed:  %s\n", formatDuration(s.Outcome.ElapsedMs))

	return []byte(sb.String()), nil
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
