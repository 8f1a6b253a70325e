package ratelimit

import "strings"

// BaseRoute identifies an endpoint independently of any concrete resource:
// the HTTP method plus the path template with placeholders still in place,
// e.g. ("GET", "/channels/{channel}/messages"). Server-assigned bucket hashes
// attach to base routes.
type BaseRoute struct {
	Method   string
	Template string
}

// String returns the canonical "METHOD template" form used in log events and
// synthetic bucket keys.
func (b BaseRoute) String() string {
	return b.Method + " " + b.Template
}

// Route is a formatted route: a base route with its major parameters bound.
// Guild, channel and webhook identifiers are the only path values the
// platform uses to discriminate buckets; any other path parameter is
// deliberately absent so that requests differing only in a minor parameter
// share a bucket.
type Route struct {
	Method   string
	Template string

	GuildID   string
	ChannelID string
	WebhookID string
}

// Base strips the major parameters from the route.
func (r Route) Base() BaseRoute {
	return BaseRoute{Method: r.Method, Template: r.Template}
}

// majorKey renders the ordered major-parameter triple. Empty slots stay
// empty so that two routes with different bound parameters never alias.
func (r Route) majorKey() string {
	return r.GuildID + ":" + r.ChannelID + ":" + r.WebhookID
}

// String renders the formatted route for logs and synthetic hashes.
func (r Route) String() string {
	return r.Method + " " + r.Template + ";" + r.majorKey()
}

// syntheticHash derives the placeholder hash used to key a bucket before the
// server has revealed the real one. The "unlimited+" prefix keeps synthetic
// keys disjoint from server-assigned hashes.
func syntheticHash(r Route) string {
	return "unlimited+" + r.String()
}

// bucketKey combines a hash (real or synthetic) with the major parameters.
func bucketKey(hash string, r Route) string {
	return hash + ":" + r.majorKey()
}

// isCreateReaction reports whether the base route adds a reaction to a
// message. Reaction creation is rate limited aggressively by the platform,
// so waits on these routes are expected and logged at debug instead of info.
func (b BaseRoute) isCreateReaction() bool {
	return b.Method == "PUT" && strings.Contains(b.Template, "/reactions/")
}
