package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Limiter is the serializing queue every outbound REST request flows
// through. It discovers bucket identities lazily from response headers,
// keeps at most one request in flight per bucket, honours global and edge
// lockouts, and replays requests the server retroactively rejected with 429.
//
// A Limiter is safe for concurrent use. Create one per client instance and
// release it with Shutdown.
type Limiter struct {
	executor Executor
	clock    Clock
	logger   *slog.Logger
	maxDelay time.Duration

	// mu guards the route→hash map, the bucket map, the global reset
	// instant, and hitRoutes. Held only for O(1) operations.
	mu            sync.Mutex
	hashes        map[BaseRoute]string
	buckets       map[string]*bucket
	globalResetAt time.Time
	hitRoutes     map[BaseRoute]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup

	// Observability counters surfaced through Stats.
	bucketsCreated atomic.Int64
	hashesLearned  atomic.Int64
	requests       atomic.Int64
	rateLimitsHit  atomic.Int64
	migrations     atomic.Int64
}

// Stats is a point-in-time snapshot of limiter activity.
type Stats struct {
	BucketsCreated   int64 // Buckets created, provisional ones included
	HashesLearned    int64 // Distinct base routes with a known server hash
	RequestsExecuted int64 // Executor invocations, replays included
	RateLimitsHit    int64 // 429 responses with a usable Retry-After (bucket, global and edge)
	Migrations       int64 // Tokens moved from a provisional bucket to the real one
}

// New creates a Limiter that dispatches through the given executor.
func New(executor Executor, opts ...Option) (*Limiter, error) {
	if executor == nil {
		return nil, ErrNilExecutor
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		executor:  executor,
		clock:     options.clock,
		logger:    options.logger,
		maxDelay:  options.maxDelay,
		hashes:    make(map[BaseRoute]string),
		buckets:   make(map[string]*bucket),
		hitRoutes: make(map[BaseRoute]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// NewFromConfig creates a Limiter from configuration. Additional options
// override config values.
func NewFromConfig(cfg Config, executor Executor, opts ...Option) (*Limiter, error) {
	allOpts := append([]Option{WithMaxDelay(cfg.MaxDelay)}, opts...)
	return New(executor, allOpts...)
}

// Execute submits one request and blocks until it completes, fails, or ctx
// is cancelled. The request is queued on its route's bucket and dispatched
// in submission order once local and global quota allow.
//
// Errors: *MaxDelayError when the required wait exceeds the effective
// maximum delay, ErrShutdown after Shutdown, the executor's own error, or
// ctx.Err() on cancellation.
func (l *Limiter) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrMissingRoute
	}
	if req.Route.Method == "" {
		return nil, ErrMissingMethod
	}
	if req.Route.Template == "" {
		return nil, ErrMissingRoute
	}
	if l.closed.Load() {
		return nil, ErrShutdown
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	b := l.resolveBucket(req.Route, true)
	tok := newToken(ctx, req)
	b.queue.push(tok)
	return tok.await(ctx)
}

// IsRateLimited reports whether a global or edge lockout is in effect.
func (l *Limiter) IsRateLimited() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.globalResetAt.After(l.clock.Now())
}

// IsRouteRateLimited reports whether the route's bucket exists and is out of
// quota. It never creates buckets.
func (l *Limiter) IsRouteRateLimited(route Route) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.resolveLocked(route, false)
	return b != nil && b.remaining == 0
}

// Stats returns current limiter counters. Safe to call at any time.
func (l *Limiter) Stats() Stats {
	return Stats{
		BucketsCreated:   l.bucketsCreated.Load(),
		HashesLearned:    l.hashesLearned.Load(),
		RequestsExecuted: l.requests.Load(),
		RateLimitsHit:    l.rateLimitsHit.Load(),
		Migrations:       l.migrations.Load(),
	}
}

// Shutdown stops accepting submissions, wakes every worker, and waits for
// them to finish their in-flight request. Tokens still queued when the
// workers stop complete with ErrShutdown. Returns ctx.Err() if the drain
// outlives ctx.
func (l *Limiter) Shutdown(ctx context.Context) error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.cancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// A submission may have slipped past the closed check onto a queue whose
	// worker had already left; fail those too.
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.buckets {
		for _, t := range b.queue.drain() {
			t.complete(nil, ErrShutdown)
		}
	}

	l.logger.Info("rate limiter shut down")
	return nil
}
