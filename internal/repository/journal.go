// Package repository provides the GORM-backed command journal and the
// relational projection of store state.
package repository

import (
	"context"
	"encoding/json"

	"confide/internal/models"
	"confide/internal/observability"
	"confide/internal/store"

	"gorm.io/gorm"
)

// JournalRepository persists store commands in commit order.
type JournalRepository interface {
	Append(ctx context.Context, cmd store.Command) error
	LoadAll(ctx context.Context) ([]store.Command, error)
	Count(ctx context.Context) (int64, error)
}

type journalRepository struct {
	db *gorm.DB
}

// NewJournalRepository creates a journal over db. It satisfies store.Journal.
func NewJournalRepository(db *gorm.DB) JournalRepository {
	return &journalRepository{db: db}
}

func (r *journalRepository) Append(ctx context.Context, cmd store.Command) error {
	defer observability.TrackQuery("insert", "store_commands")()

	rec := models.CommandRecord{
		CommandID: cmd.ID,
		Op:        string(cmd.Op),
		ActorID:   cmd.ActorID,
		At:        cmd.At,
		Payload:   string(cmd.Payload),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *journalRepository) LoadAll(ctx context.Context) ([]store.Command, error) {
	defer observability.TrackQuery("select", "store_commands")()

	var recs []models.CommandRecord
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&recs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	cmds := make([]store.Command, 0, len(recs))
	for _, rec := range recs {
		cmd := store.Command{
			ID:      rec.CommandID,
			Op:      store.Op(rec.Op),
			ActorID: rec.ActorID,
			At:      rec.At.UTC(),
		}
		if rec.Payload != "" {
			cmd.Payload = json.RawMessage(rec.Payload)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func (r *journalRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.CommandRecord{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
