package service

import (
	"context"
	"sync"
	"time"

	"confide/internal/cache"
	"confide/internal/models"
	"confide/internal/observability"

	"github.com/redis/go-redis/v9"
)

// PresenceStore is the part of the store presence tracking needs.
type PresenceStore interface {
	SetPresence(ctx context.Context, userID string, online bool) (*models.User, error)
	ListUsers() []models.User
}

// PresenceService turns WebSocket connections into online state. Local
// connections are counted per user; with Redis a TTL key per user lets any
// node clear users whose owning node went away.
type PresenceService struct {
	rdb   *redis.Client
	store PresenceStore
	ttl   time.Duration

	mu    sync.Mutex
	conns map[string]int
}

// NewPresenceService creates the service. rdb may be nil.
func NewPresenceService(rdb *redis.Client, s PresenceStore, ttl time.Duration) *PresenceService {
	if ttl <= 0 {
		ttl = cache.DefaultPresenceTTL
	}
	return &PresenceService{rdb: rdb, store: s, ttl: ttl, conns: make(map[string]int)}
}

// TTL is the heartbeat lifetime.
func (p *PresenceService) TTL() time.Duration {
	return p.ttl
}

// Connect registers a connection; the first one marks the user online.
// Store updates happen under p.mu so they commit in connection order.
func (p *PresenceService) Connect(ctx context.Context, userID string) error {
	p.mu.Lock()
	p.conns[userID]++
	var err error
	if p.conns[userID] == 1 {
		_, err = p.store.SetPresence(ctx, userID, true)
	}
	p.mu.Unlock()

	if herr := p.Heartbeat(ctx, userID); herr != nil {
		observability.GlobalLogger.WarnContext(ctx, "presence heartbeat failed", "user_id", userID, "error", herr)
	}
	return err
}

// Heartbeat refreshes the user's TTL key.
func (p *PresenceService) Heartbeat(ctx context.Context, userID string) error {
	if p.rdb == nil {
		return nil
	}
	return p.rdb.Set(ctx, cache.PresenceKey(userID), time.Now().UTC().Unix(), p.ttl).Err()
}

// Disconnect drops a connection; the last one marks the user offline.
func (p *PresenceService) Disconnect(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := p.conns[userID] - 1; n > 0 {
		p.conns[userID] = n
		return nil
	}
	delete(p.conns, userID)

	if p.rdb != nil {
		if err := p.rdb.Del(ctx, cache.PresenceKey(userID)).Err(); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "presence key delete failed", "user_id", userID, "error", err)
		}
	}
	_, err := p.store.SetPresence(ctx, userID, false)
	return err
}

// Connected reports the number of local connections of userID.
func (p *PresenceService) Connected(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conns[userID]
}

// Sweep marks offline every online user with no local connection and no
// live TTL key. It returns the ids it changed.
func (p *PresenceService) Sweep(ctx context.Context) ([]string, error) {
	var swept []string
	for _, u := range p.store.ListUsers() {
		if !u.IsOnline || p.Connected(u.ID) > 0 {
			continue
		}
		if p.rdb != nil {
			n, err := p.rdb.Exists(ctx, cache.PresenceKey(u.ID)).Result()
			if err != nil {
				return swept, err
			}
			if n > 0 {
				continue
			}
		}
		cleared, err := p.clearIfDisconnected(ctx, u.ID)
		if err != nil {
			return swept, err
		}
		if cleared {
			swept = append(swept, u.ID)
		}
	}
	return swept, nil
}

// clearIfDisconnected marks userID offline unless a connection arrived since
// the sweep looked.
func (p *PresenceService) clearIfDisconnected(ctx context.Context, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conns[userID] > 0 {
		return false, nil
	}
	if _, err := p.store.SetPresence(ctx, userID, false); err != nil {
		return false, err
	}
	return true, nil
}

// Run sweeps every interval until ctx ends.
func (p *PresenceService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := p.Sweep(ctx)
			if err != nil {
				observability.LogAsyncOperationError(ctx, "presence_sweep", err, nil)
				continue
			}
			if len(swept) > 0 {
				observability.GlobalLogger.InfoContext(ctx, "presence sweep", "offline", len(swept))
			}
		}
	}
}
