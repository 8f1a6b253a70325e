package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Request is one outbound API call as the limiter sees it. The limiter never
// inspects the body; it schedules the call by route and forwards the rest to
// the executor untouched.
type Request struct {
	// ID identifies the request in log events.
	ID uuid.UUID

	// Route carries the path template and major parameters used for
	// bucketing.
	Route Route

	// Path is the concrete request path with all parameters substituted.
	Path string

	// Body is the serialized request payload, nil for bodyless methods.
	Body []byte

	// Header holds extra headers the executor should attach.
	Header http.Header

	// MaxDelay, when non-nil, overrides the limiter-wide maximum delay for
	// this request only. Zero refuses any wait; a negative value
	// (MaxDelayUnlimited) waits indefinitely.
	MaxDelay *time.Duration
}

// Response is the executor's result: the status code and headers drive the
// limiter's bucket accounting, the body is passed through to the caller.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Executor performs a single HTTP round trip. Implementations must honour
// context cancellation. The limiter is the only caller; it guarantees at
// most one in-flight call per bucket.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req *Request) (*Response, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
