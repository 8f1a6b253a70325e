package ratelimit

import (
	"context"
	"sync"
)

// token is one submitted request's queue slot: the request itself, the
// caller's cancellation, and the completion slot the caller awaits. A token
// is owned by exactly one component at a time (caller, queue, or worker) and
// completed exactly once.
type token struct {
	req *Request
	ctx context.Context

	once sync.Once
	done chan struct{}
	resp *Response
	err  error
}

func newToken(ctx context.Context, req *Request) *token {
	return &token{req: req, ctx: ctx, done: make(chan struct{})}
}

// complete resolves the token. Later calls are no-ops; completion is a race
// between the worker and shutdown only, and first wins.
func (t *token) complete(resp *Response, err error) {
	t.once.Do(func() {
		t.resp = resp
		t.err = err
		close(t.done)
	})
}

// await blocks until the token resolves or the caller's context fires.
// A context abort leaves the token queued; the worker discards it later
// without consuming quota.
func (t *token) await(ctx context.Context) (*Response, error) {
	select {
	case <-t.done:
		return t.resp, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// tokenQueue is an unbounded FIFO with a single consumer. Pushes never
// block, which keeps worker-to-worker migration free of deadlocks.
type tokenQueue struct {
	mu    sync.Mutex
	items []*token
	// wake is 1-buffered: a push makes at most one pending wakeup, which is
	// all a single consumer needs.
	wake chan struct{}
}

func newTokenQueue() *tokenQueue {
	return &tokenQueue{wake: make(chan struct{}, 1)}
}

func (q *tokenQueue) push(t *token) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop removes the oldest token, blocking until one is available or ctx is
// cancelled. Returns nil once ctx fires and the queue is empty of signals.
func (q *tokenQueue) pop(ctx context.Context) *token {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return t
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil
		}
	}
}

// drain empties the queue and returns the remaining tokens in order.
func (q *tokenQueue) drain() []*token {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *tokenQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
