package models

import "time"

// NotificationType categorizes a notification.
type NotificationType string

const (
	NotificationFriendRequest NotificationType = "friend_request"
	NotificationMessage       NotificationType = "message"
	NotificationAdmin         NotificationType = "admin"
	NotificationSystem        NotificationType = "system"
	NotificationReferralBonus NotificationType = "referral_bonus"
	NotificationMention       NotificationType = "mention"
)

// Notification is addressed to a single user.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	UserID    string           `gorm:"size:36;not null;index" json:"user_id"`
	Type      NotificationType `gorm:"size:20;not null" json:"type"`
	Title     string           `gorm:"size:200" json:"title"`
	Content   string           `gorm:"type:text" json:"content"`
	CreatedAt time.Time        `json:"timestamp"`
	IsRead    bool             `gorm:"default:false" json:"is_read"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// Clone returns a copy of the notification.
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	out := *n
	return &out
}
