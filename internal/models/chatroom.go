package models

import "time"

// RoomCategory groups rooms by topic.
type RoomCategory string

const (
	RoomCategoryGeneral       RoomCategory = "general"
	RoomCategoryGaming        RoomCategory = "gaming"
	RoomCategoryStudy         RoomCategory = "study"
	RoomCategoryWork          RoomCategory = "work"
	RoomCategoryEntertainment RoomCategory = "entertainment"
	RoomCategorySupport       RoomCategory = "support"
	RoomCategoryOther         RoomCategory = "other"
)

// Valid reports whether c is a known category.
func (c RoomCategory) Valid() bool {
	switch c {
	case RoomCategoryGeneral, RoomCategoryGaming, RoomCategoryStudy, RoomCategoryWork,
		RoomCategoryEntertainment, RoomCategorySupport, RoomCategoryOther:
		return true
	}
	return false
}

// RoomTier is the privacy tier of a room, which also sets its price.
type RoomTier string

const (
	RoomTierPublic      RoomTier = "public"
	RoomTierPrivate     RoomTier = "private"
	RoomTierSuperSecret RoomTier = "super_secret"
)

// TierFor derives the tier from the privacy flags. Super secret wins over private.
func TierFor(isPrivate, isSuperSecret bool) RoomTier {
	switch {
	case isSuperSecret:
		return RoomTierSuperSecret
	case isPrivate:
		return RoomTierPrivate
	default:
		return RoomTierPublic
	}
}

// Cost returns the credits needed to create a room of this tier.
func (t RoomTier) Cost() int {
	switch t {
	case RoomTierSuperSecret:
		return CostSuperSecretRoom
	case RoomTierPrivate:
		return CostPrivateRoom
	default:
		return CostPublicRoom
	}
}

// ChatRoom is a topic room with membership and moderation state.
//
// The creator is always in Members and Admins, banned users are never
// members, and IsSuperSecret implies IsPrivate.
type ChatRoom struct {
	ID            string       `gorm:"primaryKey;size:36" json:"id"`
	Name          string       `gorm:"size:80;not null" json:"name"`
	Description   string       `gorm:"type:text" json:"description"`
	Category      RoomCategory `gorm:"size:20;not null" json:"category"`
	CreatorID     string       `gorm:"size:36;not null;index" json:"creator_id"`
	IsPrivate     bool         `gorm:"default:false" json:"is_private"`
	IsSuperSecret bool         `gorm:"default:false" json:"is_super_secret"`
	PasswordHash  string       `json:"-"`
	RoomCode      *string      `gorm:"size:32;uniqueIndex" json:"room_code,omitempty"`
	MemberLimit   int          `gorm:"default:100" json:"member_limit"`
	MemberCount   int          `json:"member_count"`
	OnlineCount   int          `json:"online_count"`
	Members       IDSet        `json:"members"`
	Admins        IDSet        `json:"admins"`
	BannedUsers   IDSet        `json:"banned_users"`
	CreatedAt     time.Time    `json:"created_at"`
	LastActivity  time.Time    `json:"last_activity"`
}

// TableName specifies the table name for GORM
func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// Tier returns the room's privacy tier.
func (r *ChatRoom) Tier() RoomTier {
	return TierFor(r.IsPrivate, r.IsSuperSecret)
}

// HasPassword reports whether joining requires a password.
func (r *ChatRoom) HasPassword() bool {
	return r.PasswordHash != ""
}

// CanModerate reports whether userID may kick or ban in this room.
func (r *ChatRoom) CanModerate(userID string) bool {
	return r.CreatorID == userID || r.Admins.Has(userID)
}

// Clone returns a deep copy of the room.
func (r *ChatRoom) Clone() *ChatRoom {
	if r == nil {
		return nil
	}
	out := *r
	if r.RoomCode != nil {
		code := *r.RoomCode
		out.RoomCode = &code
	}
	out.Members = r.Members.Clone()
	out.Admins = r.Admins.Clone()
	out.BannedUsers = r.BannedUsers.Clone()
	return &out
}
