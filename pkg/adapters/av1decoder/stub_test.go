//go:build !aom

package av1decoder

import (
	"errors"
	"testing"

	"github.com/user/frameprocessor/pkg/adapters/codecdetect"
	"github.com/user/frameprocessor/pkg/codec"
)

func TestRegister_Unavailable(t *testing.T) {
	r := codec.NewRegistry()

	if err := Register(r); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, _, ok := r.Lookup(codecdetect.MIMEAV1); ok {
		t.Error("expected no AV1 backend to be registered")
	}
}
