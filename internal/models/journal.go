package models

import "time"

// CommandRecord is one row of the command journal. Seq orders replay.
type CommandRecord struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement" json:"seq"`
	CommandID string    `gorm:"size:36;uniqueIndex;not null" json:"command_id"`
	Op        string    `gorm:"size:40;not null;index" json:"op"`
	ActorID   string    `gorm:"size:36;index" json:"actor_id,omitempty"`
	At        time.Time `gorm:"not null" json:"at"`
	Payload   string    `gorm:"type:text" json:"payload"`
}

// TableName specifies the table name for GORM
func (CommandRecord) TableName() string {
	return "store_commands"
}

// ProjectionCheckpoint records the store version last written to the read tables.
type ProjectionCheckpoint struct {
	Name      string    `gorm:"primaryKey;size:40" json:"name"`
	Version   uint64    `gorm:"not null" json:"version"`
	FlushedAt time.Time `json:"flushed_at"`
}

// TableName specifies the table name for GORM
func (ProjectionCheckpoint) TableName() string {
	return "projection_checkpoints"
}
