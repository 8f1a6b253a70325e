package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/chatkit/pkg/logger"
)

// bucket is the client-side image of one server-side rate limit bucket. The
// counters are written by updateFromResponse under the limiter mutex and read
// by the owning worker under the same mutex; the queue has its own lock.
type bucket struct {
	key string
	// provisional is true while the bucket lives under a synthetic hash. It
	// is set at creation and never changes: once the real hash is learned, a
	// separate bucket takes over and queued tokens migrate to it.
	provisional bool
	queue       *tokenQueue

	limit     int
	remaining int
	resetAt   time.Time
}

func (l *Limiter) newBucketLocked(key string, provisional bool) *bucket {
	b := &bucket{
		key:         key,
		provisional: provisional,
		queue:       newTokenQueue(),
		limit:       1,
		remaining:   1,
	}
	l.buckets[key] = b
	l.bucketsCreated.Add(1)

	l.wg.Add(1)
	go l.runWorker(b)

	l.logger.Debug("rate limit bucket created",
		logger.Bucket(key),
		slog.Bool("provisional", provisional))
	return b
}

// runWorker is the bucket's sole consumer. It drains tokens in submission
// order until the limiter shuts down, then fails whatever is left queued.
func (l *Limiter) runWorker(b *bucket) {
	defer l.wg.Done()

	for {
		tok := b.queue.pop(l.ctx)
		if tok == nil || l.ctx.Err() != nil {
			// pop prefers queued tokens over the shutdown signal, so a token
			// taken after shutdown began is failed rather than executed.
			if tok != nil {
				tok.complete(nil, ErrShutdown)
			}
			for _, t := range b.queue.drain() {
				t.complete(nil, ErrShutdown)
			}
			return
		}
		// Tokens cancelled while queued are discarded without consuming
		// quota.
		if err := tok.ctx.Err(); err != nil {
			tok.complete(nil, err)
			continue
		}
		l.process(b, tok)
	}
}

// process runs one token to completion: migration check, quota wait,
// execution, response interpretation, and at most one replay per 429.
func (l *Limiter) process(b *bucket, tok *token) {
	for {
		// A provisional bucket collapses into the real one as soon as the
		// hash is known. Re-appending keeps submission order because this
		// worker is the queue's only consumer.
		if b.provisional {
			if resolved := l.resolveBucket(tok.req.Route, false); resolved != nil && resolved != b {
				l.migrations.Add(1)
				l.logger.Debug("token migrated to resolved bucket",
					logger.RequestID(tok.req.ID.String()),
					slog.String("from", b.key),
					slog.String("to", resolved.key))
				resolved.queue.push(tok)
				return
			}
		}

		delay, global := l.quotaDelay(b)
		if delay > 0 {
			maxDelay := l.maxDelay
			if tok.req.MaxDelay != nil {
				maxDelay = *tok.req.MaxDelay
			}
			if maxDelay >= 0 && delay > maxDelay {
				tok.complete(nil, &MaxDelayError{Delay: delay, Global: global})
				return
			}

			level := slog.LevelInfo
			if tok.req.Route.Base().isCreateReaction() {
				level = slog.LevelDebug
			}
			l.logger.Log(tok.ctx, level, "waiting for rate limit quota",
				logger.RequestID(tok.req.ID.String()),
				logger.Bucket(b.key),
				slog.Duration("delay", delay),
				slog.Bool("global", global))

			if err := l.clock.Sleep(tok.ctx, delay); err != nil {
				tok.complete(nil, err)
				return
			}
		}

		l.requests.Add(1)
		resp, err := l.executor.Execute(tok.ctx, tok.req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				l.logger.Debug("request aborted",
					logger.RequestID(tok.req.ID.String()),
					logger.Bucket(b.key),
					logger.Error(err))
			} else {
				l.logger.Error("request failed",
					logger.RequestID(tok.req.ID.String()),
					logger.Bucket(b.key),
					logger.Error(err))
			}
			tok.complete(nil, err)
			return
		}

		if l.updateFromResponse(b, tok.req.Route, resp) {
			// Retroactive 429 on this bucket: replay the same token. The
			// quota check above now covers the advertised backoff.
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests && l.IsRateLimited() {
			// Global or edge lockout: the pre-dispatch check absorbs the
			// wait, then the same token goes out again.
			continue
		}

		tok.complete(resp, nil)
		return
	}
}

// quotaDelay computes how long the next dispatch must wait, preferring the
// global lockout over the bucket's own window.
func (l *Limiter) quotaDelay(b *bucket) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if l.globalResetAt.After(now) {
		return l.globalResetAt.Sub(now), true
	}
	if b.remaining == 0 && b.resetAt.After(now) {
		return b.resetAt.Sub(now), false
	}
	return 0, false
}
