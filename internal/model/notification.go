package model

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotifyPostComment        NotificationType = "POST_COMMENT"
	NotifyCommentReply       NotificationType = "COMMENT_REPLY"
	NotifyPostReaction       NotificationType = "POST_REACTION"
	NotifyCommentReaction    NotificationType = "COMMENT_REACTION"
	NotifyContentModerated   NotificationType = "CONTENT_MODERATED"
	NotifyInvitationAccepted NotificationType = "INVITATION_ACCEPTED"
)

// Notification 除 IsRead 外创建后不再修改
type Notification struct {
	ID        uint64            `gorm:"primaryKey"`
	UserID    uint64            `gorm:"not null;index:idx_notification_user_read,priority:1"`
	Type      NotificationType  `gorm:"size:32;not null"`
	Title     string            `gorm:"size:200;not null"`
	Message   string            `gorm:"type:text;not null"`
	Data      datatypes.JSONMap `gorm:"type:json"`
	IsRead    bool              `gorm:"not null;index:idx_notification_user_read,priority:2"`
	CreatedAt time.Time         `gorm:"index"`
}

func (Notification) TableName() string { return "notifications" }
