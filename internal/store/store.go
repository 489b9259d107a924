// Package store is the domain store: it owns every entity and applies every
// mutation as a journaled command.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"confide/internal/models"
	"confide/internal/observability"
)

// Journal durably records committed commands in order.
type Journal interface {
	Append(ctx context.Context, cmd Command) error
}

// Publisher delivers events emitted by committed commands.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// FlagChecker evaluates a feature flag for a user.
type FlagChecker interface {
	Enabled(name, userID string) bool
}

// Options configures a Store. Every field is optional.
type Options struct {
	Journal    Journal
	Publisher  Publisher
	Flags      FlagChecker
	Clock      func() time.Time
	BcryptCost int
}

// Store holds the application state behind a single mutex.
type Store struct {
	mu      sync.RWMutex
	st      *state
	version uint64

	journal    Journal
	publisher  Publisher
	flags      FlagChecker
	clock      func() time.Time
	bcryptCost int
	log        *observability.StoreLogger
}

// New creates an empty store.
func New(opts Options) *Store {
	s := &Store{
		st:         newState(),
		journal:    opts.Journal,
		publisher:  opts.Publisher,
		flags:      opts.Flags,
		clock:      opts.Clock,
		bcryptCost: opts.BcryptCost,
		log:        observability.NewStoreLogger(),
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	return s
}

// Version increases by one for every committed command.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) flagEnabled(name, userID string) bool {
	return s.flags != nil && s.flags.Enabled(name, userID)
}

// execute builds a command, plans it under the lock, journals it, commits it,
// then publishes its events after the lock is released.
func (s *Store) execute(ctx context.Context, op Op, actorID string, payload any) (any, error) {
	span, ctx := observability.StartStoreSpan(ctx, string(op), actorID)
	defer span.End()

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	cmd := Command{
		ID:      uuid.NewString(),
		Op:      op,
		ActorID: actorID,
		At:      s.clock().UTC(),
		Payload: raw,
	}
	plan, err := s.planner(cmd)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	tx := &txn{cmd: cmd}

	s.mu.Lock()
	commit, err := plan(tx)
	if err != nil {
		s.mu.Unlock()
		span.SetError(err)
		s.reject(ctx, cmd, err)
		return nil, err
	}
	if commit == nil {
		s.mu.Unlock()
		observability.RecordCommand(string(op), "noop")
		return tx.result, nil
	}
	if s.journal != nil {
		if err := s.journal.Append(ctx, cmd); err != nil {
			s.mu.Unlock()
			span.SetError(err)
			s.log.LogError(ctx, string(op), err, "journal")
			observability.RecordCommand(string(op), "error")
			return nil, models.NewInternalError(err)
		}
	}
	commit()
	s.version++
	s.mu.Unlock()

	observability.RecordCommand(string(op), "committed")
	for _, m := range tx.moves {
		observability.RecordCredit(m.amount, m.reason)
	}
	s.log.LogCommitted(ctx, string(op), actorID, len(tx.events))
	s.publish(ctx, tx.events)
	return tx.result, nil
}

func (s *Store) reject(ctx context.Context, cmd Command, err error) {
	code := models.ErrorCode(err)
	if code == "" || code == models.CodeInternal {
		s.log.LogError(ctx, string(cmd.Op), err, "plan")
		observability.RecordCommand(string(cmd.Op), "error")
		return
	}
	s.log.LogRejected(ctx, string(cmd.Op), cmd.ActorID, code, err)
	observability.RecordCommand(string(cmd.Op), "rejected")
}

func (s *Store) publish(ctx context.Context, events []models.Event) {
	if s.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.LogError(ctx, string(ev.Type), err, "publish")
		}
	}
}

// Replay applies journaled commands in order without journaling or
// publishing them again.
func (s *Store) Replay(ctx context.Context, cmds []Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		plan, err := s.planner(cmd)
		if err != nil {
			return fmt.Errorf("replay command %d: %w", i, err)
		}
		commit, err := plan(&txn{cmd: cmd})
		if err != nil {
			return fmt.Errorf("replay command %d (%s %s): %w", i, cmd.Op, cmd.ID, err)
		}
		if commit != nil {
			commit()
			s.version++
		}
	}
	return nil
}

// result casts an execute result, passing errors through.
func result[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
