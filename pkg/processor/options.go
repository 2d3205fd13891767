package processor

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/frameprocessor/pkg/codec"
	"github.com/user/frameprocessor/pkg/gate"
	"github.com/user/frameprocessor/pkg/ports"
)

// FaultPolicy selects how decoder and setup faults affect a run.
type FaultPolicy int

const (
	// FaultSilent logs faults and leaves the lifecycle untouched.
	FaultSilent FaultPolicy = iota
	// FaultNotify logs faults, moves the run to Stopping and reports the
	// error to observers that implement FaultObserver.
	FaultNotify
)

// String returns the string representation of the policy.
func (f FaultPolicy) String() string {
	switch f {
	case FaultSilent:
		return "silent"
	case FaultNotify:
		return "notify"
	default:
		return "unknown"
	}
}

// ParseFaultPolicy parses "silent" or "notify".
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(s) {
	case "", "silent":
		return FaultSilent, nil
	case "notify":
		return FaultNotify, nil
	default:
		return FaultSilent, fmt.Errorf("unknown fault policy: %s", s)
	}
}

type options struct {
	logger      ports.Logger
	decoder     codec.Options
	gateTimeout time.Duration
	faultPolicy FaultPolicy
}

// Option configures a Processor.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDecoderOptions sets the options passed to codec.New.
func WithDecoderOptions(opts codec.Options) Option {
	return func(o *options) {
		o.decoder = opts
	}
}

// WithGateTimeout sets the bounded wait of the frame gate.
func WithGateTimeout(d time.Duration) Option {
	return func(o *options) {
		o.gateTimeout = d
	}
}

// WithFaultPolicy sets how faults are surfaced.
func WithFaultPolicy(p FaultPolicy) Option {
	return func(o *options) {
		o.faultPolicy = p
	}
}

func defaultOptions() options {
	return options{
		gateTimeout: gate.DefaultTimeout,
		faultPolicy: FaultSilent,
	}
}
