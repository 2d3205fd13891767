package swdecoder

import (
	"errors"
	"image"
	"testing"

	"github.com/user/frameprocessor/pkg/adapters/codecdetect"
	"github.com/user/frameprocessor/pkg/codec"
	"github.com/user/frameprocessor/pkg/ports"
)

func TestDecoder_DecodeWithoutConfigure(t *testing.T) {
	d := New()
	if _, err := d.Decode([]byte{1}, 0); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDecoder_ConfigureInvalidDimensions(t *testing.T) {
	d := New()
	err := d.Configure(ports.Track{MIME: codecdetect.MIMEAV1})
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}

func TestDecoder_Synthetic(t *testing.T) {
	d := New()
	if err := d.Configure(ports.Track{MIME: codecdetect.MIMEAV1, Width: 32, Height: 24}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	defer d.Close()

	a, err := d.Decode([]byte{1, 2, 3}, 0)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if a.Bounds() != image.Rect(0, 0, 32, 24) {
		t.Errorf("unexpected bounds %v", a.Bounds())
	}

	again, _ := d.Decode([]byte{1, 2, 3}, 0)
	other, _ := d.Decode([]byte{4, 5, 6}, 0)
	if a.At(0, 0) != again.At(0, 0) {
		t.Error("expected identical input to produce identical frames")
	}
	if a.At(0, 0) == other.At(0, 0) {
		t.Error("expected different input to produce different frames")
	}

	if _, err := d.Decode(nil, 0); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestDecoder_RawI420(t *testing.T) {
	d := New()
	if err := d.Configure(ports.Track{MIME: codecdetect.MIMERaw, Width: 4, Height: 2}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	// Mid-gray luma with neutral chroma.
	data := make([]byte, i420Size(4, 2))
	for i := 0; i < 8; i++ {
		data[i] = 128
	}
	for i := 8; i < len(data); i++ {
		data[i] = 128
	}

	img, err := d.Decode(data, 0)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r != g || g != b {
		t.Errorf("expected a gray pixel, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
	if v := r >> 8; v < 120 || v > 140 {
		t.Errorf("expected mid-gray, got %d", v)
	}
}

func TestRegister(t *testing.T) {
	r := codec.NewRegistry()
	Register(r, false)
	if _, _, ok := r.Lookup(codecdetect.MIMEAV1); ok {
		t.Error("expected no fallback without the flag")
	}
	if name, _, ok := r.Lookup(codecdetect.MIMERaw); !ok || name != Name {
		t.Errorf("expected raw video bound to %s, got %q", Name, name)
	}

	Register(r, true)
	if name, _, ok := r.Lookup(codecdetect.MIMEAV1); !ok || name != Name {
		t.Errorf("expected fallback for av01, got %q", name)
	}
}
