// Package av1decoder provides an AV1 decoding backend using libaom.
//
// The libaom backend is compiled only with the "aom" build tag. Without it,
// Register reports ErrUnavailable and AV1 tracks fall back to another backend.
package av1decoder

import (
	"errors"

	"github.com/user/frameprocessor/pkg/adapters/codecdetect"
	"github.com/user/frameprocessor/pkg/codec"
)

// Name identifies this backend in the codec registry.
const Name = "libaom"

var (
	// ErrNotInitialized is returned when Decode is called before Configure.
	ErrNotInitialized = errors.New("av1decoder: decoder not initialized")

	// ErrDecodeFailed is returned when libaom rejects an access unit.
	ErrDecodeFailed = errors.New("av1decoder: decode failed")

	// ErrUnavailable is returned by Register when built without libaom.
	ErrUnavailable = errors.New("av1decoder: built without libaom (use -tags aom)")
)

// Register binds the libaom backend to AV1 tracks.
func Register(r *codec.Registry) error {
	if !available {
		return ErrUnavailable
	}
	r.Register(codecdetect.MIMEAV1, Name, newBackend)
	return nil
}
