package repository

import (
	"context"
	"time"

	"confide/internal/models"
	"confide/internal/observability"
	"confide/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckpointName identifies the snapshot projection's checkpoint row.
const CheckpointName = "snapshot"

const batchSize = 200

// ProjectionRepository mirrors store snapshots into relational tables for
// reporting and the admin CLI. The store stays the source of truth.
type ProjectionRepository interface {
	Write(ctx context.Context, snap store.Snapshot) error
	Checkpoint(ctx context.Context) (*models.ProjectionCheckpoint, error)
	Users(ctx context.Context) ([]models.User, error)
	Rooms(ctx context.Context) ([]models.ChatRoom, error)
	RoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	Counts(ctx context.Context) (map[string]int64, error)
}

type projectionRepository struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewProjectionRepository creates a projection over db.
func NewProjectionRepository(db *gorm.DB) ProjectionRepository {
	return &projectionRepository{db: db, clock: time.Now}
}

// Write upserts every entity of snap, drops confessions and comments that no
// longer exist, and advances the checkpoint, all in one transaction.
func (r *projectionRepository) Write(ctx context.Context, snap store.Snapshot) error {
	defer observability.TrackQuery("upsert", "projection")()

	var comments []models.ConfessionComment
	confessionIDs := make([]string, 0, len(snap.Confessions))
	for _, c := range snap.Confessions {
		confessionIDs = append(confessionIDs, c.ID)
		comments = append(comments, c.Comments...)
	}
	commentIDs := make([]string, 0, len(comments))
	for _, cm := range comments {
		commentIDs = append(commentIDs, cm.ID)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, snap.Users); err != nil {
			return err
		}
		if err := upsert(tx, snap.Rooms); err != nil {
			return err
		}
		if err := upsert(tx, snap.Messages); err != nil {
			return err
		}
		if err := upsert(tx, snap.Confessions, clause.Associations); err != nil {
			return err
		}
		if err := upsert(tx, comments); err != nil {
			return err
		}
		if err := upsert(tx, snap.FriendRequests); err != nil {
			return err
		}
		if err := upsert(tx, snap.Notifications); err != nil {
			return err
		}
		if err := upsert(tx, snap.ReferralLinks); err != nil {
			return err
		}

		if err := deleteMissing(tx, &models.ConfessionComment{}, commentIDs); err != nil {
			return err
		}
		if err := deleteMissing(tx, &models.Confession{}, confessionIDs); err != nil {
			return err
		}

		cp := models.ProjectionCheckpoint{Name: CheckpointName, Version: snap.Version, FlushedAt: r.clock().UTC()}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "flushed_at"}),
		}).Create(&cp).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func upsert[T any](tx *gorm.DB, rows []T, omit ...string) error {
	if len(rows) == 0 {
		return nil
	}
	q := tx.Clauses(clause.OnConflict{UpdateAll: true})
	if len(omit) > 0 {
		q = q.Omit(omit...)
	}
	return q.CreateInBatches(rows, batchSize).Error
}

func deleteMissing(tx *gorm.DB, model interface{}, keep []string) error {
	if len(keep) == 0 {
		return tx.Where("1 = 1").Delete(model).Error
	}
	return tx.Where("id NOT IN ?", keep).Delete(model).Error
}

func (r *projectionRepository) Checkpoint(ctx context.Context) (*models.ProjectionCheckpoint, error) {
	var cp models.ProjectionCheckpoint
	err := r.db.WithContext(ctx).Where("name = ?", CheckpointName).Limit(1).Find(&cp).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if cp.Name == "" {
		return nil, nil
	}
	return &cp, nil
}

func (r *projectionRepository) Users(ctx context.Context) ([]models.User, error) {
	defer observability.TrackQuery("select", "users")()

	var users []models.User
	if err := r.db.WithContext(ctx).Order("joined_at ASC, id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *projectionRepository) Rooms(ctx context.Context) ([]models.ChatRoom, error) {
	defer observability.TrackQuery("select", "chat_rooms")()

	var rooms []models.ChatRoom
	if err := r.db.WithContext(ctx).Order("last_activity DESC, id ASC").Find(&rooms).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rooms, nil
}

func (r *projectionRepository) RoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	defer observability.TrackQuery("select", "messages")()

	if limit <= 0 {
		limit = 50
	}
	var msgs []models.Message
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// Counts returns the row count of every projected table.
func (r *projectionRepository) Counts(ctx context.Context) (map[string]int64, error) {
	tables := []interface{ TableName() string }{
		models.User{},
		models.Message{},
		models.ChatRoom{},
		models.Confession{},
		models.ConfessionComment{},
		models.FriendRequest{},
		models.Notification{},
		models.ReferralLink{},
	}
	out := make(map[string]int64, len(tables))
	for _, t := range tables {
		var n int64
		if err := r.db.WithContext(ctx).Table(t.TableName()).Count(&n).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		out[t.TableName()] = n
	}
	return out, nil
}
