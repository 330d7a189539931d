package model

import "time"

const (
	weightComment = 1.0
	weightReply   = 0.5
	weightUpvote  = 2.0
	weightDown    = 1.0
	weightExpert  = 3.0
)

// DiscussionAnalytics 每个帖子一行，评论或评论表态变化时整体重算
type DiscussionAnalytics struct {
	ID                 uint64 `gorm:"primaryKey"`
	PostID             uint64 `gorm:"not null;uniqueIndex"`
	TotalComments      int64  `gorm:"not null"`
	TotalReplies       int64  `gorm:"not null"`
	TotalUpvotes       int64  `gorm:"not null"`
	TotalDownvotes     int64  `gorm:"not null"`
	ExpertParticipants int64  `gorm:"not null"`
	DiscussionScore    float64
	LastActivity       time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (DiscussionAnalytics) TableName() string { return "discussion_analytics" }

func DiscussionScore(comments, replies, upvotes, downvotes, experts int64) float64 {
	return float64(comments)*weightComment +
		float64(replies)*weightReply +
		float64(upvotes)*weightUpvote -
		float64(downvotes)*weightDown +
		float64(experts)*weightExpert
}
