package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"strconv"
	"testing"

	"confide/internal/bootstrap"
	"confide/internal/config"
	"confide/internal/models"
	"confide/internal/service"
	"confide/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newRuntime(t *testing.T) *bootstrap.Runtime {
	t.Helper()
	cfg := &config.Config{DBDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "admin.db")}
	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{SkipRedis: true, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func register(t *testing.T, rt *bootstrap.Runtime, name string) *models.User {
	t.Helper()
	u, err := rt.Store.Register(context.Background(), store.RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	return u
}

func run(t *testing.T, rt *bootstrap.Runtime, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(context.Background(), rt)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVerifyReportsStaleThenClean(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	register(t, rt, "alice")

	rep, err := verify(ctx, rt.Journal, rt.Projection)
	require.NoError(t, err)
	assert.True(t, rep.Stale)
	assert.False(t, rep.OK)

	_, err = service.NewProjector(rt.Store, rt.Projection, "@every 1h").Flush(ctx)
	require.NoError(t, err)

	rep, err = verify(ctx, rt.Journal, rt.Projection)
	require.NoError(t, err)
	assert.False(t, rep.Stale)
	assert.True(t, rep.OK)
	assert.Empty(t, rep.Mismatched)
	assert.EqualValues(t, 1, rep.Expected["users"])
	assert.EqualValues(t, 1, rep.Projected["users"])
}

func TestGrantCommandUpdatesBalance(t *testing.T) {
	rt := newRuntime(t)
	u := register(t, rt, "alice")

	out, err := run(t, rt, "grant", u.ID, "25")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.EqualValues(t, models.StartingCredits+25, body["credits"])

	_, err = run(t, rt, "grant", u.ID, "lots")
	assert.Error(t, err)

	_, err = run(t, rt, "grant", u.ID, strconv.Itoa(math.MaxInt))
	assert.Error(t, err)
	balance, err := rt.Store.Balance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StartingCredits+25, balance)
}

func TestUsersCommandPrintsJSON(t *testing.T) {
	rt := newRuntime(t)
	register(t, rt, "alice")
	register(t, rt, "bob")

	out, err := run(t, rt, "users")
	require.NoError(t, err)

	var users []models.User
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	assert.Len(t, users, 2)
}

func TestVerifyCommandFailsWhenStale(t *testing.T) {
	rt := newRuntime(t)
	register(t, rt, "alice")

	_, err := run(t, rt, "verify")
	assert.Error(t, err)
}
