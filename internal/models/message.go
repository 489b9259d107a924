package models

import "time"

// MessageType distinguishes text and image messages.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// Message is either a private message (ReceiverID set) or a room message (RoomID set).
type Message struct {
	ID         string      `gorm:"primaryKey;size:36" json:"id"`
	SenderID   string      `gorm:"size:36;not null;index" json:"sender_id"`
	ReceiverID string      `gorm:"size:36;index" json:"receiver_id,omitempty"`
	RoomID     string      `gorm:"size:36;index" json:"room_id,omitempty"`
	Content    string      `gorm:"type:text;not null" json:"content"`
	Type       MessageType `gorm:"size:10;default:'text'" json:"type"`
	ImageURL   string      `json:"image_url,omitempty"`
	CreatedAt  time.Time   `json:"timestamp"`
	IsRead     bool        `gorm:"default:false" json:"is_read"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// IsPrivate reports whether the message is addressed to a single user.
func (m *Message) IsPrivate() bool {
	return m.ReceiverID != ""
}

// Clone returns a copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}
