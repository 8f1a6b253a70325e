package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Rate limit headers the platform attaches to REST responses.
const (
	headerBucket     = "X-RateLimit-Bucket"
	headerLimit      = "X-RateLimit-Limit"
	headerRemaining  = "X-RateLimit-Remaining"
	headerResetAfter = "X-RateLimit-Reset-After"
	headerGlobal     = "X-RateLimit-Global"
	headerScope      = "X-RateLimit-Scope"
	headerRetryAfter = "Retry-After"
	headerVia        = "Via"
)

// Scope values reported by X-RateLimit-Scope. Only "shared" changes behavior
// (log severity); the rest are informational.
const (
	scopeUser   = "user"
	scopeShared = "shared"
	scopeGlobal = "global"
)

// headerInt parses a non-negative integer header. The second return reports
// presence; absent headers are not an error.
func headerInt(h http.Header, key string) (int, bool, error) {
	raw := h.Get(key)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s %q: %w", key, raw, err)
	}
	if v < 0 {
		return 0, false, fmt.Errorf("parse %s: negative value %d", key, v)
	}
	return v, true, nil
}

// headerSeconds parses a duration header expressed as seconds with an
// optional fractional part (e.g. "0.473").
func headerSeconds(h http.Header, key string) (time.Duration, bool, error) {
	raw := h.Get(key)
	if raw == "" {
		return 0, false, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s %q: %w", key, raw, err)
	}
	if secs < 0 {
		return 0, false, fmt.Errorf("parse %s: negative value %v", key, secs)
	}
	return time.Duration(secs * float64(time.Second)), true, nil
}

// headerBool parses a boolean header; absent or unparsable values read as
// false.
func headerBool(h http.Header, key string) bool {
	raw := h.Get(key)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}
