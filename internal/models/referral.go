package models

import "time"

// ReferralLink is a redeemable invite code owned by UserID.
// A redeemer appears at most once in UsedBy.
type ReferralLink struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;not null;index" json:"user_id"`
	Code        string    `gorm:"size:16;uniqueIndex;not null" json:"code"`
	CreatedAt   time.Time `json:"created_at"`
	UsedBy      IDSet     `json:"used_by"`
	TotalEarned int       `gorm:"default:0" json:"total_earned"`
}

// TableName specifies the table name for GORM
func (ReferralLink) TableName() string {
	return "referral_links"
}

// Clone returns a deep copy of the link.
func (l *ReferralLink) Clone() *ReferralLink {
	if l == nil {
		return nil
	}
	out := *l
	out.UsedBy = l.UsedBy.Clone()
	return &out
}
