package service

import (
	"context"
	"sync"
	"testing"

	"confide/internal/models"
	"confide/internal/store"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memJournal struct {
	mu   sync.Mutex
	cmds []store.Command
}

func (j *memJournal) Append(_ context.Context, cmd store.Command) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cmds = append(j.cmds, cmd)
	return nil
}

func (j *memJournal) all() []store.Command {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]store.Command(nil), j.cmds...)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *eventRecorder) Publish(_ context.Context, ev models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) ofType(t models.EventType) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newStore(opts store.Options) *store.Store {
	opts.BcryptCost = bcrypt.MinCost
	return store.New(opts)
}

func register(t *testing.T, s *store.Store, name string) *models.User {
	t.Helper()
	u, err := s.Register(context.Background(), store.RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	return u
}
