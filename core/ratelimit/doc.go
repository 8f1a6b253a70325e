// Package ratelimit implements the client-side rate limiter every outbound
// REST request flows through.
//
// The platform assigns each endpoint family a rate limit bucket and reveals
// the bucket's identity only in response headers. The limiter therefore
// starts every unknown route in a provisional bucket keyed by a synthetic
// hash, learns the real hash from the first response, and migrates queued
// work into the real bucket without reordering it.
//
// # Model
//
// A BaseRoute is an HTTP method plus a path template. A Route binds the
// template's major parameters (guild, channel, webhook) — the only path
// values that affect bucketing. Each bucket owns a FIFO queue and a single
// worker goroutine, so at most one request per bucket is in flight and
// submission order is preserved.
//
// # Usage
//
//	limiter, err := ratelimit.New(executor,
//		ratelimit.WithLogger(logger),
//		ratelimit.WithMaxDelay(30*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	defer limiter.Shutdown(context.Background())
//
//	resp, err := limiter.Execute(ctx, &ratelimit.Request{
//		Route: ratelimit.Route{
//			Method:    "GET",
//			Template:  "/channels/{channel}/messages",
//			ChannelID: channelID,
//		},
//		Path: "/channels/" + channelID + "/messages",
//	})
//
// # Lockouts and replays
//
// A 429 scoped to a bucket is not surfaced to the caller: the limiter
// absorbs it with one automatic replay after the advertised backoff. A 429
// marked global, or one missing the proxy's Via header (an edge lockout),
// pauses dispatch on every bucket until the advertised instant.
//
// # Refusal over waiting
//
// When the wait required to serve a request exceeds the configured maximum
// delay (limiter-wide, or per request via Request.MaxDelay), the request
// fails fast with *MaxDelayError instead of sleeping. This is a policy
// refusal, not a timeout: the request was never sent.
package ratelimit
