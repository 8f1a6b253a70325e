package rest

import (
	"time"

	"github.com/dmitrymomot/chatkit/core/ratelimit"
)

// RequestOption customizes a single API call.
type RequestOption func(*ratelimit.Request)

// WithReason attaches an audit log reason to the request.
func WithReason(reason string) RequestOption {
	return func(req *ratelimit.Request) {
		if reason != "" {
			req.Header.Set("X-Audit-Log-Reason", reason)
		}
	}
}

// WithHeader adds an extra header to the request.
func WithHeader(key, value string) RequestOption {
	return func(req *ratelimit.Request) {
		req.Header.Add(key, value)
	}
}

// WithMaxDelay overrides the client-wide rate limit wait cap for this
// request only. Zero refuses any wait; ratelimit.MaxDelayUnlimited disables
// the cap.
func WithMaxDelay(d time.Duration) RequestOption {
	return func(req *ratelimit.Request) {
		req.MaxDelay = &d
	}
}
