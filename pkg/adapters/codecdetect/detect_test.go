package codecdetect

import "testing"

func TestMIMEForSampleEntry(t *testing.T) {
	tests := []struct {
		entry    string
		expected string
	}{
		{"avc1", MIMEAVC},
		{"avc3", MIMEAVC},
		{"hvc1", MIMEHEVC},
		{"hev1", MIMEHEVC},
		{"av01", MIMEAV1},
		{"vp09", MIMEVP9},
		{"mp4a", MIMEAAC},
		{"xxxx", MIMEUnknown},
		{"", MIMEUnknown},
	}

	for _, tt := range tests {
		if got := MIMEForSampleEntry(tt.entry); got != tt.expected {
			t.Errorf("MIMEForSampleEntry(%q) = %q, want %q", tt.entry, got, tt.expected)
		}
	}
}

func TestMIMEForTrack_Nil(t *testing.T) {
	mime, entry := MIMEForTrack(nil)
	if mime != MIMEUnknown {
		t.Errorf("expected %q, got %q", MIMEUnknown, mime)
	}
	if entry != "" {
		t.Errorf("expected empty sample entry, got %q", entry)
	}
}
