// Package rest provides the HTTP client for the platform's REST API.
//
// The client serializes every call through core/ratelimit, so callers never
// handle 429 responses or quota bookkeeping themselves. Construction follows
// the module's config-plus-options convention:
//
//	var cfg rest.Config
//	config.MustLoad(&cfg)
//
//	client, err := rest.New(cfg, rest.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
//	var messages []Message
//	err = client.DoJSON(ctx,
//		rest.GetChannelMessages(channelID),
//		"/channels/"+channelID+"/messages",
//		nil, &messages,
//	)
//
// Per-request behavior is adjusted with RequestOption values: WithReason
// attaches an audit log reason, WithMaxDelay bounds how long the request may
// wait for rate limit quota before failing fast.
package rest
