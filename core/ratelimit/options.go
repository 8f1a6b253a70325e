package ratelimit

import (
	"io"
	"log/slog"
	"time"
)

// MaxDelayUnlimited disables the maximum-delay cap: requests wait as long as
// quota demands. Any negative duration reads the same way.
const MaxDelayUnlimited time.Duration = -1

// Config holds limiter configuration loaded from the environment.
type Config struct {
	// MaxDelay caps how long a request may voluntarily wait for quota before
	// being refused with MaxDelayError. Zero refuses any wait at all; a
	// negative value (MaxDelayUnlimited) disables the cap.
	MaxDelay time.Duration `env:"RATELIMIT_MAX_DELAY" envDefault:"-1s"`
}

type options struct {
	logger   *slog.Logger
	clock    Clock
	maxDelay time.Duration
}

// Option configures a Limiter.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    systemClock{},
		maxDelay: MaxDelayUnlimited,
	}
}

// WithLogger sets the logger for limiter events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source. Intended for tests.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMaxDelay caps the voluntary quota wait for every request. Zero refuses
// any wait; MaxDelayUnlimited (or any negative duration) disables the cap.
// Per-request overrides take precedence.
func WithMaxDelay(d time.Duration) Option {
	return func(o *options) {
		o.maxDelay = d
	}
}
