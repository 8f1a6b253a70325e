package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute_Base(t *testing.T) {
	t.Parallel()

	r := Route{
		Method:    "GET",
		Template:  "/channels/{channel}/messages",
		ChannelID: "42",
	}
	assert.Equal(t, BaseRoute{Method: "GET", Template: "/channels/{channel}/messages"}, r.Base())
	assert.Equal(t, "GET /channels/{channel}/messages", r.Base().String())
}

func TestRoute_BucketKeys(t *testing.T) {
	t.Parallel()

	t.Run("major parameters discriminate", func(t *testing.T) {
		a := Route{Method: "GET", Template: "/channels/{channel}/messages", ChannelID: "1"}
		b := Route{Method: "GET", Template: "/channels/{channel}/messages", ChannelID: "2"}
		assert.NotEqual(t, bucketKey("abc", a), bucketKey("abc", b))
	})

	t.Run("same major parameters share a key", func(t *testing.T) {
		a := Route{Method: "GET", Template: "/channels/{channel}/messages", ChannelID: "1"}
		b := Route{Method: "GET", Template: "/channels/{channel}/messages", ChannelID: "1"}
		assert.Equal(t, bucketKey("abc", a), bucketKey("abc", b))
	})

	t.Run("empty slots keep their position", func(t *testing.T) {
		guild := Route{Method: "GET", Template: "/x", GuildID: "7"}
		channel := Route{Method: "GET", Template: "/x", ChannelID: "7"}
		assert.NotEqual(t, bucketKey("abc", guild), bucketKey("abc", channel))
	})

	t.Run("synthetic keys never collide with real hashes", func(t *testing.T) {
		r := Route{Method: "GET", Template: "/channels/{channel}/messages", ChannelID: "42"}
		assert.NotEqual(t, bucketKey("abc", r), bucketKey(syntheticHash(r), r))
		assert.Contains(t, syntheticHash(r), "unlimited+")
	})
}

func TestBaseRoute_IsCreateReaction(t *testing.T) {
	t.Parallel()

	reaction := BaseRoute{Method: "PUT", Template: "/channels/{channel}/messages/{message}/reactions/{emoji}/@me"}
	assert.True(t, reaction.isCreateReaction())

	deleteReaction := BaseRoute{Method: "DELETE", Template: "/channels/{channel}/messages/{message}/reactions/{emoji}/@me"}
	assert.False(t, deleteReaction.isCreateReaction())

	message := BaseRoute{Method: "PUT", Template: "/channels/{channel}/pins/{message}"}
	assert.False(t, message.isCreateReaction())
}
