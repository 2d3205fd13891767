//go:build aom

package av1decoder

import (
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/user/frameprocessor/pkg/adapters/codecdetect"
	"github.com/user/frameprocessor/pkg/adapters/logger"
	"github.com/user/frameprocessor/pkg/adapters/mp4source"
	"github.com/user/frameprocessor/pkg/codec"
	"github.com/user/frameprocessor/pkg/ports"
)

var testTrack = ports.Track{MIME: codecdetect.MIMEAV1, Width: 64, Height: 48}

func TestRegister(t *testing.T) {
	r := codec.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	name, factory, ok := r.Lookup(codecdetect.MIMEAV1)
	if !ok || name != Name {
		t.Fatalf("expected %s backend, got %q (%v)", Name, name, ok)
	}
	if _, ok := factory().(*Decoder); !ok {
		t.Error("expected factory to build an av1decoder")
	}
}

func TestDecoder_DecodeWithoutConfigure(t *testing.T) {
	decoder := New()

	_, err := decoder.Decode([]byte{0x00}, 0)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := decoder.Flush(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from Flush, got %v", err)
	}
}

func TestDecoder_DecodeEmptyData(t *testing.T) {
	decoder := New()
	if err := decoder.Configure(testTrack); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	defer decoder.Close()

	if _, err := decoder.Decode([]byte{}, 0); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("expected ErrDecodeFailed, got %v", err)
	}
}

func TestDecoder_ConfigureTwice(t *testing.T) {
	decoder := New()
	if err := decoder.Configure(testTrack); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	defer decoder.Close()

	if err := decoder.Configure(testTrack); err == nil {
		t.Error("expected second Configure to fail")
	}
}

func TestDecoder_Close(t *testing.T) {
	decoder := New()
	if err := decoder.Configure(testTrack); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	// Should not panic
	decoder.Close()
	decoder.Close()
}

// TestDecoder_DecodeMP4 encodes a short AV1 clip with ffmpeg and decodes every sample.
func TestDecoder_DecodeMP4(t *testing.T) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not available")
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	cmd := exec.Command(ffmpegPath, "-v", "error", "-y",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=10",
		"-frames:v", "3", "-c:v", "libaom-av1", "-cpu-used", "8", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg cannot encode AV1 here: %v: %s", err, out)
	}

	src, err := mp4source.Open(path, logger.NewNoop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	track, err := src.SelectVideoTrack()
	if err != nil {
		t.Fatalf("SelectVideoTrack failed: %v", err)
	}

	decoder := New()
	if err := decoder.Configure(track); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	defer decoder.Close()

	frames := 0
	for {
		sample, err := src.ReadSample(nil)
		if errors.Is(err, ports.ErrEndOfStream) {
			break
		}
		if err != nil {
			t.Fatalf("ReadSample failed: %v", err)
		}
		img, err := decoder.Decode(sample.Data, sample.PresentationTime)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if img != nil {
			frames++
			if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
				t.Errorf("expected 64x48, got %dx%d", b.Dx(), b.Dy())
			}
		}
		src.Advance()
	}

	flushed, err := decoder.Flush()
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if frames+len(flushed) != 3 {
		t.Errorf("expected 3 frames, got %d decoded + %d flushed", frames, len(flushed))
	}
}
