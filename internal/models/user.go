// Package models contains data structures for the application's domain models.
package models

import "time"

// Credit prices and payouts.
const (
	StartingCredits         = 100
	CostSendMessage         = 1
	CostPublicRoom          = 50
	CostPrivateRoom         = 25
	CostSuperSecretRoom     = 150
	ReferralBonus           = 250
	ReferralSignupBonus     = 100
	MaxTopUp                = 1000
	DefaultRoomMemberLimit  = 100
	MaxMessageContentLength = 10000
)

// User represents an account holding a credit balance.
type User struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	Username     string          `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string          `gorm:"not null" json:"-"`
	Credits      int             `gorm:"not null;default:0" json:"credits"`
	JoinedAt     time.Time       `json:"join_date"`
	IsOnline     bool            `gorm:"default:false" json:"is_online"`
	LastSeen     *time.Time      `json:"last_seen,omitempty"`
	Preferences  UserPreferences `gorm:"serializer:json;type:text" json:"-"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.LastSeen != nil {
		ls := *u.LastSeen
		out.LastSeen = &ls
	}
	return &out
}

// FontSize is the preferred UI text size.
type FontSize string

const (
	FontSizeSmall  FontSize = "small"
	FontSizeMedium FontSize = "medium"
	FontSizeLarge  FontSize = "large"
)

// Valid reports whether f is one of the known sizes.
func (f FontSize) Valid() bool {
	switch f {
	case FontSizeSmall, FontSizeMedium, FontSizeLarge:
		return true
	}
	return false
}

// ThemeSettings holds display preferences.
type ThemeSettings struct {
	IsDark   bool     `json:"is_dark"`
	FontSize FontSize `json:"font_size"`
	Language string   `json:"language"`
}

// NotificationSettings toggles notification categories.
type NotificationSettings struct {
	Messages       bool `json:"messages"`
	FriendRequests bool `json:"friend_requests"`
	Confessions    bool `json:"confessions"`
	Admin          bool `json:"admin"`
}

// PrivacySettings toggles what other users can see or do.
type PrivacySettings struct {
	ShowOnlineStatus    bool `json:"show_online_status"`
	AllowFriendRequests bool `json:"allow_friend_requests"`
}

// UserPreferences is per-user configuration.
type UserPreferences struct {
	Theme         ThemeSettings        `json:"theme"`
	Notifications NotificationSettings `json:"notifications"`
	Privacy       PrivacySettings      `json:"privacy"`
}

// DefaultPreferences returns the preferences a new account starts with.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Theme: ThemeSettings{FontSize: FontSizeMedium, Language: "en"},
		Notifications: NotificationSettings{
			Messages:       true,
			FriendRequests: true,
			Confessions:    true,
			Admin:          true,
		},
		Privacy: PrivacySettings{
			ShowOnlineStatus:    true,
			AllowFriendRequests: true,
		},
	}
}

// PreferencesPatch carries a partial preferences update; nil sections are left unchanged.
type PreferencesPatch struct {
	Theme         *ThemeSettings        `json:"theme,omitempty"`
	Notifications *NotificationSettings `json:"notifications,omitempty"`
	Privacy       *PrivacySettings      `json:"privacy,omitempty"`
}
