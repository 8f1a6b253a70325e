// Package chatkit is a client toolkit for a chat-platform REST API.
//
// The heart of the module is core/ratelimit, a client-side rate limiter that
// serializes every outbound request through per-endpoint token buckets,
// honours global and edge lockouts, and transparently replays requests the
// server retroactively rejected. core/rest provides the HTTP client the
// limiter drives, and core/config loads typed configuration from the
// environment.
package chatkit
