package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

const (
	EventPostCreated      = "post.created"
	EventPostDeleted      = "post.deleted"
	EventCommentCreated   = "comment.created"
	EventReactionToggled  = "reaction.toggled"
	EventCommentReaction  = "comment_reaction.toggled"
	EventModerationPrefix = "moderation."
)

// EventOutbox 内容事件表，与业务写入同一事务，由 OutboxRelayer 异步投递
type EventOutbox struct {
	ID          uint64         `gorm:"primaryKey"`
	EventType   string         `gorm:"size:48;not null"`
	AggregateID uint64         `gorm:"not null;index"`
	ActorID     uint64         `gorm:"not null"`
	Payload     datatypes.JSON `gorm:"type:json;not null"`
	Status      int8           `gorm:"not null;index"`
	Retry       int            `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (EventOutbox) TableName() string { return "event_outbox" }

// All 所有需要建表的模型
func All() []any {
	return []any{
		&User{},
		&Post{},
		&Comment{},
		&Reaction{},
		&CommentReaction{},
		&DiscussionAnalytics{},
		&Notification{},
		&Resource{},
		&Blog{},
		&Invitation{},
		&BroadcastMessage{},
		&EventOutbox{},
	}
}
