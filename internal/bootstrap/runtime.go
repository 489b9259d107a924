// Package bootstrap builds the runtime shared by the server, seed and admin
// commands: database, Redis, journal replay, event bus and store.
package bootstrap

import (
	"context"
	"fmt"

	"confide/internal/cache"
	"confide/internal/config"
	"confide/internal/database"
	"confide/internal/featureflags"
	"confide/internal/notifications"
	"confide/internal/observability"
	"confide/internal/repository"
	"confide/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipRedis runs on the in-process bus even when REDIS_URL is set.
	SkipRedis bool
	// BcryptCost overrides the password hashing cost. Zero keeps the default.
	BcryptCost int
}

// Runtime is an initialized store with its persistence and transport.
type Runtime struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	Journal    repository.JournalRepository
	Projection repository.ProjectionRepository
	Bus        notifications.Bus
	Flags      *featureflags.Manager
	Store      *store.Store
	Replayed   int
}

// InitRuntime connects to the database and Redis, then rebuilds the store by
// replaying the journal.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rt := &Runtime{
		Config:     cfg,
		DB:         db,
		Journal:    repository.NewJournalRepository(db),
		Projection: repository.NewProjectionRepository(db),
		Flags:      featureflags.NewManager(cfg.FeatureFlags),
	}

	if !opts.SkipRedis {
		cache.InitRedis(cfg.RedisURL)
		rt.Redis = cache.GetClient()
	}
	if rt.Redis != nil {
		rt.Bus = notifications.NewRedisBus(rt.Redis)
	} else {
		rt.Bus = notifications.NewMemoryBus()
	}

	rt.Store = store.New(store.Options{
		Journal:    rt.Journal,
		Publisher:  rt.Bus,
		Flags:      rt.Flags,
		BcryptCost: opts.BcryptCost,
	})

	cmds, err := rt.Journal.LoadAll(ctx)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("load journal: %w", err)
	}
	if err := rt.Store.Replay(ctx, cmds); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("replay journal: %w", err)
	}
	rt.Replayed = len(cmds)
	observability.GlobalLogger.InfoContext(ctx, "journal replayed",
		"commands", len(cmds),
		"version", rt.Store.Version(),
	)
	return rt, nil
}

// Close releases Redis and the database.
func (rt *Runtime) Close() error {
	if rt.Redis != nil {
		if err := cache.Close(); err != nil {
			observability.GlobalLogger.Warn("error closing redis", "error", err)
		}
	}
	return database.Close(rt.DB)
}
