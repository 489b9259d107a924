package models

import "time"

// ConfessionCategory groups confessions by topic.
type ConfessionCategory string

const (
	ConfessionCategoryWork          ConfessionCategory = "work"
	ConfessionCategoryFamily        ConfessionCategory = "family"
	ConfessionCategorySchool        ConfessionCategory = "school"
	ConfessionCategoryRelationships ConfessionCategory = "relationships"
	ConfessionCategoryHealth        ConfessionCategory = "health"
	ConfessionCategoryEntertainment ConfessionCategory = "entertainment"
	ConfessionCategoryOther         ConfessionCategory = "other"
)

// Valid reports whether c is a known category.
func (c ConfessionCategory) Valid() bool {
	switch c {
	case ConfessionCategoryWork, ConfessionCategoryFamily, ConfessionCategorySchool,
		ConfessionCategoryRelationships, ConfessionCategoryHealth,
		ConfessionCategoryEntertainment, ConfessionCategoryOther:
		return true
	}
	return false
}

// Confession is an anonymous post in the confession feed.
// Likes always equals len(LikedBy).
type Confession struct {
	ID             string              `gorm:"primaryKey;size:36" json:"id"`
	Title          string              `gorm:"size:200;not null" json:"title"`
	Content        string              `gorm:"type:text;not null" json:"content"`
	Category       ConfessionCategory  `gorm:"size:20;not null;index" json:"category"`
	AuthorID       string              `gorm:"size:36;not null;index" json:"author_id"`
	AuthorUsername string              `gorm:"size:50" json:"author_username"`
	CreatedAt      time.Time           `json:"timestamp"`
	Likes          int                 `gorm:"default:0" json:"likes"`
	LikedBy        IDSet               `json:"-"`
	SavedBy        IDSet               `json:"-"`
	Comments       []ConfessionComment `gorm:"foreignKey:ConfessionID;constraint:OnDelete:CASCADE" json:"comments"`
	IsEdited       bool                `gorm:"default:false" json:"is_edited"`

	// Viewer-relative flags, filled by ForViewer.
	IsLiked bool `gorm:"-" json:"is_liked"`
	IsSaved bool `gorm:"-" json:"is_saved"`
}

// TableName specifies the table name for GORM
func (Confession) TableName() string {
	return "confessions"
}

// ConfessionComment is a comment on a confession.
type ConfessionComment struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConfessionID   string    `gorm:"size:36;not null;index" json:"confession_id"`
	AuthorID       string    `gorm:"size:36;not null" json:"author_id"`
	AuthorUsername string    `gorm:"size:50" json:"author_username"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"timestamp"`
	Likes          int       `gorm:"default:0" json:"likes"`
	LikedBy        IDSet     `json:"-"`
	Mentions       IDSet     `json:"mentions"`

	IsLiked bool `gorm:"-" json:"is_liked"`
}

// TableName specifies the table name for GORM
func (ConfessionComment) TableName() string {
	return "confession_comments"
}

// Clone returns a deep copy of the confession and its comments.
func (c *Confession) Clone() *Confession {
	if c == nil {
		return nil
	}
	out := *c
	out.LikedBy = c.LikedBy.Clone()
	out.SavedBy = c.SavedBy.Clone()
	out.Comments = make([]ConfessionComment, len(c.Comments))
	for i, cm := range c.Comments {
		cm.LikedBy = cm.LikedBy.Clone()
		cm.Mentions = cm.Mentions.Clone()
		out.Comments[i] = cm
	}
	return &out
}

// ForViewer returns a copy with the viewer-relative flags set.
func (c *Confession) ForViewer(viewerID string) *Confession {
	out := c.Clone()
	out.IsLiked = out.LikedBy.Has(viewerID)
	out.IsSaved = out.SavedBy.Has(viewerID)
	for i := range out.Comments {
		out.Comments[i].IsLiked = out.Comments[i].LikedBy.Has(viewerID)
	}
	return out
}
