package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

type DisplayNamePreference string

const (
	PreferFullName  DisplayNamePreference = "FullName"
	PreferInitials  DisplayNamePreference = "Initials"
	PreferAnonymous DisplayNamePreference = "Anonymous"
)

func ParseDisplayNamePreference(s string) (DisplayNamePreference, bool) {
	switch p := DisplayNamePreference(strings.TrimSpace(s)); p {
	case PreferFullName, PreferInitials, PreferAnonymous:
		return p, true
	}
	return "", false
}

type Post struct {
	ID          uint64                      `gorm:"primaryKey"`
	AuthorID    uint64                      `gorm:"not null;index:idx_post_author_time,priority:1"`
	Text        string                      `gorm:"type:text;not null"`
	MediaURL    string                      `gorm:"size:512"`
	MediaType   MediaType                   `gorm:"size:16"`
	DisplayName string                      `gorm:"size:120;not null"` // 创建时快照，之后不再重算
	Tags        datatypes.JSONSlice[string] `gorm:"type:json"`
	CreatedAt   time.Time                   `gorm:"index;index:idx_post_author_time,priority:2"`
	UpdatedAt   time.Time

	Author *User `gorm:"foreignKey:AuthorID"`
}

func (Post) TableName() string { return "posts" }

type Comment struct {
	ID              uint64  `gorm:"primaryKey"`
	PostID          uint64  `gorm:"not null;index"`
	AuthorID        uint64  `gorm:"not null;index"`
	ParentCommentID *uint64 `gorm:"index"`
	Text            string  `gorm:"type:text;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Author *User `gorm:"foreignKey:AuthorID"`
}

func (Comment) TableName() string { return "comments" }
