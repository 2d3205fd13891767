package codec

import (
	"testing"

	"github.com/user/frameprocessor/pkg/mocks"
	"github.com/user/frameprocessor/pkg/ports"
)

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.Register("video/avc", "h264", func() ports.FrameDecoder { return &mocks.Backend{} })
	r.Register(WildcardVideo, "software", func() ports.FrameDecoder { return &mocks.Backend{} })

	tests := []struct {
		mime     string
		wantName string
		wantOK   bool
	}{
		{"video/avc", "h264", true},
		{"VIDEO/AVC", "h264", true},
		{"video/av01", "software", true},
		{"audio/mp4a-latm", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			name, factory, ok := r.Lookup(tt.mime)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %t, want %t", tt.mime, ok, tt.wantOK)
			}
			if name != tt.wantName {
				t.Errorf("Lookup(%q) name = %q, want %q", tt.mime, name, tt.wantName)
			}
			if ok && factory == nil {
				t.Errorf("Lookup(%q) returned nil factory", tt.mime)
			}
		})
	}
}

func TestRegistry_MIMETypes(t *testing.T) {
	r := NewRegistry()
	r.Register("video/hevc", "a", func() ports.FrameDecoder { return &mocks.Backend{} })
	r.Register("video/avc", "b", func() ports.FrameDecoder { return &mocks.Backend{} })

	got := r.MIMETypes()
	if len(got) != 2 || got[0] != "video/avc" || got[1] != "video/hevc" {
		t.Errorf("unexpected MIME types: %v", got)
	}
}
