package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	exec := ExecutorFunc(func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{StatusCode: 204, Header: http.Header{}}, nil
	})
	lim, err := New(exec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lim.Shutdown(context.Background()) })
	return lim
}

func testRoute() Route {
	return Route{Method: "GET", Template: "/channels/{channel}/messages", ChannelID: "42"}
}

func TestResolveBucket(t *testing.T) {
	t.Parallel()

	t.Run("no creation returns nil", func(t *testing.T) {
		lim := newTestLimiter(t)
		assert.Nil(t, lim.resolveBucket(testRoute(), false))
	})

	t.Run("creates a provisional bucket for unknown hashes", func(t *testing.T) {
		lim := newTestLimiter(t)
		b := lim.resolveBucket(testRoute(), true)
		require.NotNil(t, b)
		assert.True(t, b.provisional)
		assert.Equal(t, 1, b.limit)
		assert.Equal(t, 1, b.remaining)

		// Resolving again returns the same bucket.
		assert.Same(t, b, lim.resolveBucket(testRoute(), true))
		assert.Same(t, b, lim.resolveBucket(testRoute(), false))
	})

	t.Run("known hash yields a real bucket", func(t *testing.T) {
		lim := newTestLimiter(t)
		lim.mu.Lock()
		lim.learnHashLocked(testRoute().Base(), "abc")
		lim.mu.Unlock()

		b := lim.resolveBucket(testRoute(), true)
		require.NotNil(t, b)
		assert.False(t, b.provisional)
		assert.Contains(t, b.key, "abc")
	})
}

func TestLearnHash(t *testing.T) {
	t.Parallel()

	lim := newTestLimiter(t)
	base := testRoute().Base()

	lim.mu.Lock()
	lim.learnHashLocked(base, "abc")
	lim.learnHashLocked(base, "abc")
	// The first observed hash wins; a conflicting one is ignored.
	lim.learnHashLocked(base, "def")
	hash := lim.hashes[base]
	lim.mu.Unlock()

	assert.Equal(t, "abc", hash)
	assert.Equal(t, int64(1), lim.hashesLearned.Load())
}

func TestUpdateFromResponse(t *testing.T) {
	t.Parallel()

	headers := func(kv map[string]string) http.Header {
		h := http.Header{}
		for k, v := range kv {
			h.Set(k, v)
		}
		return h
	}

	t.Run("records counters from headers", func(t *testing.T) {
		lim := newTestLimiter(t)
		b := lim.resolveBucket(testRoute(), true)

		retry := lim.updateFromResponse(b, testRoute(), &Response{
			StatusCode: 200,
			Header: headers(map[string]string{
				headerLimit:      "5",
				headerRemaining:  "3",
				headerResetAfter: "1.5",
			}),
		})
		assert.False(t, retry)
		assert.Equal(t, 5, b.limit)
		assert.Equal(t, 3, b.remaining)
		assert.WithinDuration(t, lim.clock.Now().Add(1500*time.Millisecond), b.resetAt, 50*time.Millisecond)
	})

	t.Run("redirects counters to the real bucket after hash discovery", func(t *testing.T) {
		lim := newTestLimiter(t)
		provisional := lim.resolveBucket(testRoute(), true)
		require.True(t, provisional.provisional)

		retry := lim.updateFromResponse(provisional, testRoute(), &Response{
			StatusCode: 200,
			Header: headers(map[string]string{
				headerBucket:     "abc",
				headerLimit:      "5",
				headerRemaining:  "4",
				headerResetAfter: "1.0",
			}),
		})
		assert.False(t, retry)

		real := lim.resolveBucket(testRoute(), false)
		require.NotNil(t, real)
		require.NotSame(t, provisional, real)
		assert.False(t, real.provisional)
		assert.Equal(t, 5, real.limit)
		assert.Equal(t, 4, real.remaining)
		// The provisional bucket's counters are left alone.
		assert.Equal(t, 1, provisional.remaining)
	})

	t.Run("bucket scoped 429 requests a replay", func(t *testing.T) {
		lim := newTestLimiter(t)
		b := lim.resolveBucket(testRoute(), true)

		retry := lim.updateFromResponse(b, testRoute(), &Response{
			StatusCode: http.StatusTooManyRequests,
			Header: headers(map[string]string{
				headerRetryAfter: "0.5",
				headerScope:      "user",
				headerVia:        "1.1 edgeproxy",
			}),
		})
		assert.True(t, retry)
		assert.Equal(t, 0, b.remaining)
		assert.False(t, lim.IsRateLimited())
	})

	t.Run("global 429 moves the shared lockout only", func(t *testing.T) {
		lim := newTestLimiter(t)
		b := lim.resolveBucket(testRoute(), true)

		retry := lim.updateFromResponse(b, testRoute(), &Response{
			StatusCode: http.StatusTooManyRequests,
			Header: headers(map[string]string{
				headerRetryAfter: "2.0",
				headerGlobal:     "true",
				headerVia:        "1.1 edgeproxy",
			}),
		})
		assert.False(t, retry)
		assert.True(t, lim.IsRateLimited())
		assert.Equal(t, 1, b.remaining)
	})

	t.Run("missing via reads as an edge lockout", func(t *testing.T) {
		lim := newTestLimiter(t)
		b := lim.resolveBucket(testRoute(), true)

		retry := lim.updateFromResponse(b, testRoute(), &Response{
			StatusCode: http.StatusTooManyRequests,
			Header:     headers(map[string]string{headerRetryAfter: "1.0"}),
		})
		assert.False(t, retry)
		assert.True(t, lim.IsRateLimited())
	})

	t.Run("unparsable headers read as no bucket info", func(t *testing.T) {
		lim := newTestLimiter(t)
		b := lim.resolveBucket(testRoute(), true)

		retry := lim.updateFromResponse(b, testRoute(), &Response{
			StatusCode: 200,
			Header:     headers(map[string]string{headerRemaining: "many"}),
		})
		assert.False(t, retry)
		assert.Equal(t, 1, b.remaining)

		// A 429 without a usable Retry-After cannot schedule a replay.
		retry = lim.updateFromResponse(b, testRoute(), &Response{
			StatusCode: http.StatusTooManyRequests,
			Header:     headers(map[string]string{headerRetryAfter: "soon"}),
		})
		assert.False(t, retry)
	})

	t.Run("conflicting hash keeps the original mapping", func(t *testing.T) {
		lim := newTestLimiter(t)
		b := lim.resolveBucket(testRoute(), true)

		_ = lim.updateFromResponse(b, testRoute(), &Response{
			StatusCode: 200,
			Header:     headers(map[string]string{headerBucket: "abc"}),
		})
		real := lim.resolveBucket(testRoute(), false)
		require.NotNil(t, real)

		_ = lim.updateFromResponse(real, testRoute(), &Response{
			StatusCode: 200,
			Header:     headers(map[string]string{headerBucket: "def"}),
		})
		assert.Same(t, real, lim.resolveBucket(testRoute(), false))
		assert.Equal(t, int64(1), lim.hashesLearned.Load())
	})
}

func TestTokenQueue(t *testing.T) {
	t.Parallel()

	t.Run("fifo order", func(t *testing.T) {
		q := newTokenQueue()
		first := newToken(context.Background(), &Request{Path: "/1"})
		second := newToken(context.Background(), &Request{Path: "/2"})
		q.push(first)
		q.push(second)

		assert.Same(t, first, q.pop(context.Background()))
		assert.Same(t, second, q.pop(context.Background()))
		assert.Equal(t, 0, q.len())
	})

	t.Run("pop blocks until push", func(t *testing.T) {
		q := newTokenQueue()
		got := make(chan *token, 1)
		go func() { got <- q.pop(context.Background()) }()

		tok := newToken(context.Background(), &Request{Path: "/late"})
		time.Sleep(10 * time.Millisecond)
		q.push(tok)

		select {
		case popped := <-got:
			assert.Same(t, tok, popped)
		case <-time.After(time.Second):
			t.Fatal("pop never returned")
		}
	})

	t.Run("pop returns nil on cancellation", func(t *testing.T) {
		q := newTokenQueue()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Nil(t, q.pop(ctx))
	})

	t.Run("drain empties the queue in order", func(t *testing.T) {
		q := newTokenQueue()
		first := newToken(context.Background(), &Request{Path: "/1"})
		second := newToken(context.Background(), &Request{Path: "/2"})
		q.push(first)
		q.push(second)

		drained := q.drain()
		require.Len(t, drained, 2)
		assert.Same(t, first, drained[0])
		assert.Same(t, second, drained[1])
		assert.Equal(t, 0, q.len())
	})
}
