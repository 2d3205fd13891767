package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter formats summaries as Markdown.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(s *Summary) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("# Processing Summary\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339))

	sb.WriteString("## Input\n\n")
	sb.WriteString("| Item | Value |\n|---|---|\n")
	row(&sb, "Run ID", s.RunID)
	row(&sb, "Path", s.Input.Path)
	if s.Input.MIME != "" {
		row(&sb, "Track", fmt.Sprintf("%s (%s)", s.Input.MIME, s.Input.SampleEntry))
		row(&sb, "Frame size", fmt.Sprintf("%dx%d", s.Input.Width, s.Input.Height))
	} else {
		row(&sb, "Track", "none")
	}
	sb.WriteString("\n")

	sb.WriteString("## Decoding\n\n")
	sb.WriteString("| Item | Value |\n|---|---|\n")
	row(&sb, "Backend", orDash(s.Decoding.Backend))
	row(&sb, "Frames consumed", fmt.Sprintf("%d of %d", s.Decoding.FramesConsumed, s.Decoding.FrameCap))
	row(&sb, "Gate timeouts", fmt.Sprintf("%d", s.Decoding.GateTimeouts))
	sb.WriteString("\n")

	sb.WriteString("## Outcome\n\n")
	sb.WriteString("| Item | Value |\n|---|---|\n")
	row(&sb, "State", s.Outcome.State)
	row(&sb, "Stop reason", orDash(s.Outcome.StopReason))
	if s.Outcome.Fault != "" {
		row(&sb, "Fault", s.Outcome.Fault)
	}
	row(&sb, "Elapsed", formatDuration(s.Outcome.ElapsedMs))

	if s.Sink.Kind != "" {
		sb.WriteString("\n## Sink\n\n")
		sb.WriteString("| Item | Value |\n|---|---|\n")
		row(&sb, "Kind", s.Sink.Kind)
		if s.Sink.OutputDir != "" {
			row(&sb, "Output", fmt.Sprintf("`%s`", s.Sink.OutputDir))
		}
		row(&sb, "Frames written", fmt.Sprintf("%d", s.Sink.FramesWritten))
	}

	return []byte(sb.String()), nil
}

func row(sb *strings.Builder, item, value string) {
	fmt.Fprintf(sb, "| %s | %s |\n", item, strings.ReplaceAll(value, "|", "\\|"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
