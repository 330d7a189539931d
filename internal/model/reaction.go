package model

import (
	"strings"
	"time"
)

type ReactionType string

const (
	ReactionHeart     ReactionType = "HEART"
	ReactionSupport   ReactionType = "SUPPORT"
	ReactionLaugh     ReactionType = "LAUGH"
	ReactionSurprised ReactionType = "SURPRISED"
	ReactionAngry     ReactionType = "ANGRY"
	ReactionSad       ReactionType = "SAD"
	ReactionFire      ReactionType = "FIRE"
	ReactionClap      ReactionType = "CLAP"
)

func ParseReactionType(s string) (ReactionType, bool) {
	switch t := ReactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case ReactionHeart, ReactionSupport, ReactionLaugh, ReactionSurprised,
		ReactionAngry, ReactionSad, ReactionFire, ReactionClap:
		return t, true
	}
	return "", false
}

// Reaction 帖子表态，每个用户每个帖子最多一条
type Reaction struct {
	ID        uint64       `gorm:"primaryKey"`
	PostID    uint64       `gorm:"not null;uniqueIndex:uq_reaction_post_user,priority:1"`
	UserID    uint64       `gorm:"not null;uniqueIndex:uq_reaction_post_user,priority:2;index"`
	Type      ReactionType `gorm:"size:16;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Reaction) TableName() string { return "reactions" }

type CommentReactionType string

const (
	CommentUpvote   CommentReactionType = "UPVOTE"
	CommentDownvote CommentReactionType = "DOWNVOTE"
	CommentHelpful  CommentReactionType = "HELPFUL"
	CommentExpert   CommentReactionType = "EXPERT"
)

func ParseCommentReactionType(s string) (CommentReactionType, bool) {
	switch t := CommentReactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case CommentUpvote, CommentDownvote, CommentHelpful, CommentExpert:
		return t, true
	}
	return "", false
}

// ConflictsWith 赞和踩互斥，HELPFUL / EXPERT 可与任何类型叠加
func (t CommentReactionType) ConflictsWith(other CommentReactionType) bool {
	if t == other {
		return false
	}
	return t.isVote() && other.isVote()
}

func (t CommentReactionType) isVote() bool {
	return t == CommentUpvote || t == CommentDownvote
}

// CommentReaction 评论表态，每个用户每条评论每种类型最多一条
type CommentReaction struct {
	ID        uint64              `gorm:"primaryKey"`
	CommentID uint64              `gorm:"not null;uniqueIndex:uq_comment_reaction,priority:1"`
	UserID    uint64              `gorm:"not null;uniqueIndex:uq_comment_reaction,priority:2;index"`
	Type      CommentReactionType `gorm:"size:16;not null;uniqueIndex:uq_comment_reaction,priority:3"`
	CreatedAt time.Time
}

func (CommentReaction) TableName() string { return "comment_reactions" }

// ToggleResult 表态切换的结果
type ToggleResult string

const (
	ToggleAdded   ToggleResult = "added"
	ToggleRemoved ToggleResult = "removed"
	ToggleChanged ToggleResult = "changed"
)
