//go:build !aom

package av1decoder

import "github.com/user/frameprocessor/pkg/codec"

const available = false

var newBackend codec.Factory
