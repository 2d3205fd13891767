package summarizer

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/user/frameprocessor/pkg/mocks"
)

func testSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		RunID:       "5f1c",
		Input: InputInfo{
			Path:        "clip.mp4",
			MIME:        "video/avc",
			SampleEntry: "avc1",
			Width:       512,
			Height:      640,
		},
		Decoding: DecodingInfo{
			Backend:        "ffmpeg",
			FrameCap:       100,
			FramesConsumed: 42,
			GateTimeouts:   1,
		},
		Outcome: OutcomeInfo{
			State:      "stopping",
			StopReason: "end of stream",
			ElapsedMs:  2500,
		},
		Sink: SinkInfo{Kind: "image", OutputDir: "frames", FramesWritten: 42},
	}
}

func TestMarkdownFormatter_Format(t *testing.T) {
	out, err := NewMarkdownFormatter().Format(testSummary())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	result := string(out)

	checks := []string{
		"# Processing Summary",
		"2024-01-15T10:30:00Z",
		"clip.mp4",
		"video/avc (avc1)",
		"512x640",
		"42 of 100",
		"end of stream",
		"2.5s",
		"`frames`",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
}

func TestMarkdownFormatter_NoTrack(t *testing.T) {
	s := testSummary()
	s.Input = InputInfo{Path: "audio.mp4"}
	s.Decoding.Backend = ""
	s.Outcome.Fault = "a|b"

	out, _ := NewMarkdownFormatter().Format(s)
	result := string(out)

	if !strings.Contains(result, "| Track | none |") {
		t.Error("expected a none track row")
	}
	if !strings.Contains(result, "| Backend | - |") {
		t.Error("expected a dash for the missing backend")
	}
	if !strings.Contains(result, `a\|b`) {
		t.Error("expected pipes in values to be escaped")
	}
}

func TestTextFormatter_Format(t *testing.T) {
	out, err := NewTextFormatter().Format(testSummary())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	result := string(out)

	for _, check := range []string{"Run 5f1c", "42 / 100", "stopping (end of stream)", "ffmpeg"} {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormatterFor_YAML(t *testing.T) {
	f, err := FormatterFor("yaml")
	if err != nil {
		t.Fatalf("FormatterFor failed: %v", err)
	}
	out, err := f.Format(testSummary())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if decoded["run_id"] != "5f1c" {
		t.Errorf("expected run_id key, got %v", decoded["run_id"])
	}
}

func TestFormatterFor_Msgpack(t *testing.T) {
	f, err := FormatterFor("msgpack")
	if err != nil {
		t.Fatalf("FormatterFor failed: %v", err)
	}
	out, err := f.Format(testSummary())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var decoded Summary
	if err := msgpack.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not msgpack: %v", err)
	}
	if decoded.Decoding.FramesConsumed != 42 || decoded.Sink.Kind != "image" {
		t.Errorf("unexpected decoded summary %+v", decoded)
	}
}

func TestFormatterFor_Unknown(t *testing.T) {
	if _, err := FormatterFor("html"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(NewTextFormatter(), fs)
	path := filepath.Join("reports", "run.txt")

	if err := w.Write(path, testSummary()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, ok := fs.GetFile(path)
	if !ok || !strings.Contains(string(data), "Run 5f1c") {
		t.Errorf("expected report at %s, got %q", path, data)
	}
	if exists, _ := fs.Exists("reports"); !exists {
		t.Error("expected parent directory to be created")
	}
}

func TestWriter_FormatError(t *testing.T) {
	fs := mocks.NewFileSystem()
	boom := errors.New("boom")
	w := NewWriter(FormatFunc(func(*Summary) ([]byte, error) { return nil, boom }), fs)

	if err := w.Write("run.txt", testSummary()); !errors.Is(err, boom) {
		t.Errorf("expected format error, got %v", err)
	}
	if len(fs.Paths()) != 0 {
		t.Error("nothing should be written on a format error")
	}
}
