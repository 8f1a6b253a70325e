// Package logger provides typed slog attribute helpers shared across the
// module's log sites: errors, durations, HTTP fields, and rate limit
// identifiers. Error, RequestID, Bucket, Scope and Key return an empty Attr
// for nil or empty input, which slog drops silently, so call sites stay free
// of nil checks; the other helpers always return their keyed attribute.
package logger
