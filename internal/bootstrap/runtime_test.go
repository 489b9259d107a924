package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"confide/internal/config"
	"confide/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "confide.db"),
	}
}

func TestInitRuntimeRestoresStateFromJournal(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	opts := Options{SkipRedis: true, BcryptCost: bcrypt.MinCost}

	rt, err := InitRuntime(ctx, cfg, opts)
	require.NoError(t, err)
	assert.Nil(t, rt.Redis)
	assert.Equal(t, 0, rt.Replayed)

	u, err := rt.Store.Register(ctx, store.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = rt.Store.TopUp(ctx, u.ID, 40)
	require.NoError(t, err)
	version := rt.Store.Version()
	require.NoError(t, rt.Close())

	rt, err = InitRuntime(ctx, cfg, opts)
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, 2, rt.Replayed)
	assert.Equal(t, version, rt.Store.Version())
	balance, err := rt.Store.Balance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 140, balance)

	_, err = rt.Store.Authenticate("alice@example.com", "secret1")
	assert.NoError(t, err)
}

func TestInitRuntimeRejectsUnknownDriver(t *testing.T) {
	_, err := InitRuntime(context.Background(), &config.Config{DBDriver: "mysql"}, Options{SkipRedis: true})
	assert.Error(t, err)
}
