package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/chatkit/pkg/logger"
)

// shortRetryAfter separates routine 429 backoffs from ones worth a warning.
const shortRetryAfter = time.Second

// resolveBucket maps a formatted route to its bucket. With create=false it
// returns nil when no bucket exists yet; the probe and the migration check
// rely on that.
func (l *Limiter) resolveBucket(route Route, create bool) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolveLocked(route, create)
}

func (l *Limiter) resolveLocked(route Route, create bool) *bucket {
	hash, known := l.hashes[route.Base()]
	if !known {
		hash = syntheticHash(route)
	}
	key := bucketKey(hash, route)
	if b, ok := l.buckets[key]; ok {
		return b
	}
	if !create {
		return nil
	}
	return l.newBucketLocked(key, !known)
}

// learnHashLocked records the server-assigned hash for a base route. The
// first observed hash wins for the life of the limiter; conflicting
// observations are logged and ignored.
func (l *Limiter) learnHashLocked(base BaseRoute, hash string) {
	if existing, ok := l.hashes[base]; ok {
		if existing != hash {
			l.logger.Warn("conflicting bucket hash ignored",
				slog.String("route", base.String()),
				slog.String("known_hash", existing),
				slog.String("ignored_hash", hash))
		}
		return
	}
	l.hashes[base] = hash
	l.hashesLearned.Add(1)
	l.logger.Debug("bucket hash discovered",
		slog.String("route", base.String()),
		slog.String("hash", hash))
}

// updateFromResponse interprets the rate limit headers of one response. It
// returns true iff the response was a 429 scoped to this bucket, which tells
// the worker to replay the token. Header parse failures are logged and read
// as "no bucket info".
func (l *Limiter) updateFromResponse(b *bucket, route Route, resp *Response) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	base := route.Base()
	if hash := resp.Header.Get(headerBucket); hash != "" {
		l.learnHashLocked(base, hash)
	}

	// Counter updates land on the bucket the route resolves to now. Right
	// after a hash discovery on a provisional bucket that is the real
	// bucket, created here so queued tokens have somewhere to migrate.
	target := b
	if hash, known := l.hashes[base]; known {
		key := bucketKey(hash, route)
		if key != b.key {
			if existing, ok := l.buckets[key]; ok {
				target = existing
			} else {
				target = l.newBucketLocked(key, false)
			}
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return l.handle429Locked(target, base, resp.Header)
	}

	limit, hasLimit, err := headerInt(resp.Header, headerLimit)
	if err != nil {
		l.logger.Error("unparsable rate limit headers", logger.Bucket(target.key), logger.Error(err))
		return false
	}
	remaining, hasRemaining, err := headerInt(resp.Header, headerRemaining)
	if err != nil {
		l.logger.Error("unparsable rate limit headers", logger.Bucket(target.key), logger.Error(err))
		return false
	}
	resetAfter, hasReset, err := headerSeconds(resp.Header, headerResetAfter)
	if err != nil {
		l.logger.Error("unparsable rate limit headers", logger.Bucket(target.key), logger.Error(err))
		return false
	}

	if hasLimit {
		target.limit = limit
	}
	if hasRemaining {
		target.remaining = remaining
	}
	if hasReset {
		target.resetAt = l.clock.Now().Add(resetAfter)
	}
	if hasLimit || hasRemaining || hasReset {
		l.logger.Debug("bucket updated from response",
			logger.Bucket(target.key),
			slog.Int("limit", target.limit),
			slog.Int("remaining", target.remaining),
			slog.Duration("reset_after", resetAfter))
	}
	return false
}

// handle429Locked applies a 429 response. Global and edge lockouts move the
// shared reset instant and are absorbed by every worker's pre-dispatch
// check; only a bucket-scoped 429 requests a replay.
func (l *Limiter) handle429Locked(target *bucket, base BaseRoute, h http.Header) bool {
	retryAfter, ok, err := headerSeconds(h, headerRetryAfter)
	if err != nil || !ok {
		l.logger.Error("429 without usable Retry-After",
			slog.String("route", base.String()),
			logger.Error(err))
		return false
	}

	l.rateLimitsHit.Add(1)

	// A 429 that never passed through the platform's proxy comes from the
	// edge; its lockout applies to the whole client, same as an explicit
	// global limit.
	if headerBool(h, headerGlobal) || h.Get(headerVia) == "" {
		l.globalResetAt = l.clock.Now().Add(retryAfter)
		l.logger.Warn("global rate limit hit",
			slog.String("route", base.String()),
			logger.RetryAfter(retryAfter),
			slog.Bool("edge", h.Get(headerVia) == ""))
		return false
	}

	target.remaining = 0
	target.resetAt = l.clock.Now().Add(retryAfter)

	scope := h.Get(headerScope)
	_, seenBefore := l.hitRoutes[base]
	l.hitRoutes[base] = struct{}{}

	level := slog.LevelWarn
	if (!seenBefore && retryAfter <= shortRetryAfter) || scope == scopeShared {
		level = slog.LevelInfo
	}
	l.logger.Log(l.ctx, level, "bucket rate limit hit",
		slog.String("route", base.String()),
		logger.Bucket(target.key),
		logger.RetryAfter(retryAfter),
		logger.Scope(scope))
	return true
}
