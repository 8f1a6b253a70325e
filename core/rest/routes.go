package rest

import "github.com/dmitrymomot/chatkit/core/ratelimit"

// Route constructors for the endpoints the toolkit calls most. Only the
// major parameters (guild, channel, webhook) are bound on the route; minor
// parameters such as message ids go into the concrete path alone, because
// they do not affect bucketing.

// GetChannelMessages lists messages in a channel.
func GetChannelMessages(channelID string) ratelimit.Route {
	return ratelimit.Route{
		Method:    "GET",
		Template:  "/channels/{channel}/messages",
		ChannelID: channelID,
	}
}

// CreateMessage posts a message to a channel.
func CreateMessage(channelID string) ratelimit.Route {
	return ratelimit.Route{
		Method:    "POST",
		Template:  "/channels/{channel}/messages",
		ChannelID: channelID,
	}
}

// DeleteMessage removes a message from a channel.
func DeleteMessage(channelID string) ratelimit.Route {
	return ratelimit.Route{
		Method:    "DELETE",
		Template:  "/channels/{channel}/messages/{message}",
		ChannelID: channelID,
	}
}

// CreateReaction adds the caller's reaction to a message.
func CreateReaction(channelID string) ratelimit.Route {
	return ratelimit.Route{
		Method:    "PUT",
		Template:  "/channels/{channel}/messages/{message}/reactions/{emoji}/@me",
		ChannelID: channelID,
	}
}

// GetGuildMembers lists members of a guild.
func GetGuildMembers(guildID string) ratelimit.Route {
	return ratelimit.Route{
		Method:   "GET",
		Template: "/guilds/{guild}/members",
		GuildID:  guildID,
	}
}

// ExecuteWebhook posts a payload through a webhook.
func ExecuteWebhook(webhookID string) ratelimit.Route {
	return ratelimit.Route{
		Method:    "POST",
		Template:  "/webhooks/{webhook}/{token}",
		WebhookID: webhookID,
	}
}
