// Package avdecoder provides a decoding backend built on libavcodec through go-astiav.
//
// The backend is compiled only with the "astiav" build tag; it needs the
// FFmpeg development libraries at build time.
package avdecoder

import (
	"errors"

	"github.com/user/frameprocessor/pkg/adapters/codecdetect"
	"github.com/user/frameprocessor/pkg/codec"
)

// Name identifies this backend in the codec registry.
const Name = "libav"

var (
	// ErrNotConfigured is returned when Decode is called before Configure.
	ErrNotConfigured = errors.New("avdecoder: decoder not configured")

	// ErrNoCodec is returned when libavcodec has no decoder for the track.
	ErrNoCodec = errors.New("avdecoder: no libavcodec decoder")

	// ErrUnavailable is returned by Register when built without go-astiav.
	ErrUnavailable = errors.New("avdecoder: built without libav (use -tags astiav)")
)

// MIMETypes lists the track types this backend decodes.
var MIMETypes = []string{
	codecdetect.MIMEAVC,
	codecdetect.MIMEHEVC,
	codecdetect.MIMEAV1,
	codecdetect.MIMEVP9,
}

// Register binds the libav backend to every type in MIMETypes.
func Register(r *codec.Registry) error {
	if !available {
		return ErrUnavailable
	}
	for _, mime := range MIMETypes {
		r.Register(mime, Name, newBackend)
	}
	return nil
}
