package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"confide/internal/cache"
	"confide/internal/models"
	"confide/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isOnline(t *testing.T, s *store.Store, id string) bool {
	t.Helper()
	u, err := s.User(id)
	require.NoError(t, err)
	return u.IsOnline
}

func TestPresenceCountsConnections(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rec := &eventRecorder{}
	s := newStore(store.Options{Publisher: rec})
	alice := register(t, s, "alice")
	p := NewPresenceService(rdb, s, time.Minute)

	require.NoError(t, p.Connect(ctx, alice.ID))
	require.NoError(t, p.Connect(ctx, alice.ID))
	assert.True(t, isOnline(t, s, alice.ID))
	assert.True(t, mr.Exists(cache.PresenceKey(alice.ID)))
	assert.Equal(t, time.Minute, mr.TTL(cache.PresenceKey(alice.ID)))

	require.NoError(t, p.Disconnect(ctx, alice.ID))
	assert.True(t, isOnline(t, s, alice.ID), "one tab still open")

	require.NoError(t, p.Disconnect(ctx, alice.ID))
	assert.False(t, isOnline(t, s, alice.ID))
	assert.False(t, mr.Exists(cache.PresenceKey(alice.ID)))

	u, err := s.User(alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, u.LastSeen)
	assert.Len(t, rec.ofType(models.EventPresenceChanged), 2)
}

func TestPresenceSweepClearsExpiredUsers(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newStore(store.Options{})
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")
	carol := register(t, s, "carol")
	p := NewPresenceService(rdb, s, time.Minute)

	// alice is connected here, bob on a node that is still heartbeating,
	// carol on a node that went away.
	require.NoError(t, p.Connect(ctx, alice.ID))
	_, err := s.SetPresence(ctx, bob.ID, true)
	require.NoError(t, err)
	require.NoError(t, rdb.Set(ctx, cache.PresenceKey(bob.ID), 1, time.Minute).Err())
	_, err = s.SetPresence(ctx, carol.ID, true)
	require.NoError(t, err)

	swept, err := p.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{carol.ID}, swept)

	mr.FastForward(2 * time.Minute)
	swept, err = p.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, swept)
	assert.True(t, isOnline(t, s, alice.ID))
}

func TestPresenceWithoutRedis(t *testing.T) {
	ctx := context.Background()
	s := newStore(store.Options{})
	alice := register(t, s, "alice")
	p := NewPresenceService(nil, s, 0)
	assert.Equal(t, cache.DefaultPresenceTTL, p.TTL())

	require.NoError(t, p.Connect(ctx, alice.ID))
	swept, err := p.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, swept)

	require.NoError(t, p.Disconnect(ctx, alice.ID))
	assert.False(t, isOnline(t, s, alice.ID))
}

func TestPresenceFollowsConnectionOrderUnderContention(t *testing.T) {
	ctx := context.Background()
	s := newStore(store.Options{})
	alice := register(t, s, "alice")
	p := NewPresenceService(nil, s, time.Minute)

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, p.Connect(ctx, alice.ID))
				assert.NoError(t, p.Disconnect(ctx, alice.ID))
			}()
		}
		wg.Wait()
		require.Zero(t, p.Connected(alice.ID))
		require.False(t, isOnline(t, s, alice.ID), "round %d left alice online without connections", round)

		require.NoError(t, p.Connect(ctx, alice.ID))
		require.True(t, isOnline(t, s, alice.ID))
		require.NoError(t, p.Disconnect(ctx, alice.ID))
	}
}

func TestSweepSkipsUserWhoReconnected(t *testing.T) {
	ctx := context.Background()
	s := newStore(store.Options{})
	alice := register(t, s, "alice")
	p := NewPresenceService(nil, s, time.Minute)

	require.NoError(t, p.Connect(ctx, alice.ID))
	cleared, err := p.clearIfDisconnected(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.True(t, isOnline(t, s, alice.ID))
}
