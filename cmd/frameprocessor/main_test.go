package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/user/frameprocessor/internal/mp4test"
	"github.com/user/frameprocessor/pkg/adapters/h264decoder"
	"github.com/user/frameprocessor/pkg/mocks"
	"github.com/user/frameprocessor/pkg/summarizer"
)

func writeClip(t *testing.T, opts mp4test.Options) string {
	t.Helper()
	data, err := mp4test.Build(opts)
	if err != nil {
		t.Fatalf("build clip: %v", err)
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_ImageSinkWithReport(t *testing.T) {
	input := writeClip(t, mp4test.DefaultOptions())
	dir := t.TempDir()
	outDir := filepath.Join(dir, "frames")
	report := filepath.Join(dir, "report.yaml")

	err := newApp().Run([]string{
		"frameprocessor", "run",
		"--frames", "4",
		"--backend", "software",
		"--sink", "image",
		"--output-dir", outDir,
		"--overlay",
		"--report", report,
		"--report-format", "yaml",
		"--quiet",
		input,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("expected 4 images, got %d", len(entries))
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var summary map[string]interface{}
	if err := yaml.Unmarshal(data, &summary); err != nil {
		t.Fatalf("report is not YAML: %v", err)
	}
	decoding, _ := summary["decoding"].(map[string]interface{})
	if decoding["frames_consumed"] != 4 {
		t.Errorf("expected 4 frames consumed, got %v", decoding["frames_consumed"])
	}
}

func TestRun_ConfigFile(t *testing.T) {
	input := writeClip(t, mp4test.Options{Width: 16, Height: 16, FPS: 30, Frames: 3, VideoTrack: true})
	cfgPath := filepath.Join(t.TempDir(), "run.yaml")
	cfg := "input: " + input + "\nframes: 10\nbackend: software\nlog_level: quiet\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	if err := newApp().Run([]string{"frameprocessor", "run", "--config", cfgPath}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", []string{"run", "--quiet"}, "input"},
		{"bad frames", []string{"run", "--quiet", "--frames", "0", "clip.mp4"}, "frames"},
		{"bad backend", []string{"run", "--quiet", "--backend", "vaapi", "clip.mp4"}, "backend"},
		{"missing file", []string{"run", "--quiet", "--backend", "software", filepath.Join(t.TempDir(), "none.mp4")}, "none.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newApp().Run(append([]string{"frameprocessor"}, tt.args...))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestProbe(t *testing.T) {
	input := writeClip(t, mp4test.Options{Width: 16, Height: 16, FPS: 30, Frames: 2, VideoTrack: true, AudioFirst: true})

	if err := newApp().Run([]string{"frameprocessor", "probe", input}); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
}

func TestRun_UnsupportedCodecExits(t *testing.T) {
	input := writeClip(t, mp4test.DefaultOptions())
	t.Cleanup(func() { h264decoder.SetFFmpegPath("") })

	done := make(chan error, 1)
	go func() {
		done <- newApp().Run([]string{"frameprocessor", "run", "--quiet", "--ffmpeg-path", filepath.Join(t.TempDir(), "ffmpeg"), input})
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Skip("a native AV1 backend is built in")
		}
		var exit cli.ExitCoder
		if !errors.As(err, &exit) || exit.ExitCode() != 2 {
			t.Errorf("expected exit code 2, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not exit on an unsupported codec")
	}
}

func TestPrintSummary(t *testing.T) {
	summary := summarizer.NewBuilder().WithInput("clip.mp4").Build()

	var out bytes.Buffer
	log := mocks.NewLogger()
	printSummary(&out, summarizer.NewTextFormatter(), summary, log)
	if !strings.Contains(out.String(), "clip.mp4") {
		t.Errorf("expected the input in the summary, got %q", out.String())
	}

	out.Reset()
	failing := summarizer.FormatFunc(func(*summarizer.Summary) ([]byte, error) {
		return nil, errors.New("boom")
	})
	printSummary(&out, failing, summary, log)
	if out.Len() != 0 {
		t.Errorf("expected no output on failure, got %q", out.String())
	}
	if !log.Contains("ERROR Failed to format summary: boom") {
		t.Errorf("expected the failure to be logged, got %v", log.Messages())
	}
}
