package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is the discussion board aggregate. Replies and reactions belong to
// exactly one post and are only ever mutated through the post they hang off.
type Post struct {
	gorm.Model
	AuthorID uint   `gorm:"column:author_id;not null;index" json:"author_id"`
	Content  string `gorm:"column:content;type:text;not null" json:"content"`
	IsActive bool   `gorm:"column:is_active;not null;default:true" json:"is_active"`

	Author    *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Replies   []Reply    `gorm:"foreignKey:PostID" json:"replies,omitempty"`
	Reactions []Reaction `gorm:"foreignKey:PostID" json:"reactions,omitempty"`
}

type Reply struct {
	gorm.Model
	PostID   uint   `gorm:"column:post_id;not null;index" json:"post_id"`
	AuthorID uint   `gorm:"column:author_id;not null" json:"author_id"`
	Text     string `gorm:"column:text;type:text;not null" json:"text"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// Reaction holds at most one row per (post, user); the composite unique
// index backs the ON CONFLICT upsert. No DeletedAt here: removed reactions
// are deleted for real, otherwise the dead row would keep blocking the
// unique index when the user reacts again.
type Reaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"column:post_id;not null;uniqueIndex:idx_reactions_post_user,priority:1" json:"post_id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_reactions_post_user,priority:2" json:"user_id"`
	Emoji     string    `gorm:"column:emoji;size:10;not null" json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Reaction) TableName() string {
	return "reactions"
}
