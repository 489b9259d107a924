package database

import "confide/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.CommandRecord{},
		&models.ProjectionCheckpoint{},
		&models.User{},
		&models.Message{},
		&models.ChatRoom{},
		&models.Confession{},
		&models.ConfessionComment{},
		&models.FriendRequest{},
		&models.Notification{},
		&models.ReferralLink{},
	}
}
