package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	InitRedis("redis://" + mr.Addr())
	t.Cleanup(func() { _ = Close() })
	require.NotNil(t, GetClient())

	InitRedis("")
	assert.Nil(t, GetClient())

	InitRedis("://bad url")
	assert.Nil(t, GetClient())

	InitRedis(mr.Addr())
	assert.NotNil(t, GetClient())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "presence:user:abc", PresenceKey("abc"))
	id, ok := UserIDFromPresenceKey(PresenceKey("abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = UserIDFromPresenceKey("rl:x:y")
	assert.False(t, ok)

	assert.Equal(t, "rl:messages:user:1", RateLimitKey("messages", "user:1"))
}
