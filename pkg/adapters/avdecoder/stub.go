//go:build !astiav

package avdecoder

import "github.com/user/frameprocessor/pkg/codec"

const available = false

var newBackend codec.Factory
