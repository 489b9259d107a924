package models

import "time"

// FriendRequestStatus represents the status of a friend request.
type FriendRequestStatus string

const (
	// FriendRequestPending indicates a request awaiting the receiver's answer.
	FriendRequestPending FriendRequestStatus = "pending"
	// FriendRequestAccepted indicates the users are friends.
	FriendRequestAccepted FriendRequestStatus = "accepted"
	// FriendRequestDeclined indicates the receiver turned the request down.
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// FriendRequest is a directed request from SenderID to ReceiverID.
type FriendRequest struct {
	ID             string              `gorm:"primaryKey;size:36" json:"id"`
	SenderID       string              `gorm:"size:36;not null;index" json:"sender_id"`
	ReceiverID     string              `gorm:"size:36;not null;index" json:"receiver_id"`
	SenderUsername string              `gorm:"size:50" json:"sender_username"`
	Status         FriendRequestStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CreatedAt      time.Time           `json:"timestamp"`
}

// TableName specifies the table name for GORM
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// Involves reports whether the request connects a and b in either direction.
func (r *FriendRequest) Involves(a, b string) bool {
	return (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a)
}

// Clone returns a copy of the request.
func (r *FriendRequest) Clone() *FriendRequest {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
