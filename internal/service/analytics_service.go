package service

import (
	"context"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"

	"gorm.io/gorm"
)

type AnalyticsView struct {
	PostID             uint64    `json:"postId"`
	TotalComments      int64     `json:"totalComments"`
	TotalReplies       int64     `json:"totalReplies"`
	TotalUpvotes       int64     `json:"totalUpvotes"`
	TotalDownvotes     int64     `json:"totalDownvotes"`
	ExpertParticipants int64     `json:"expertParticipants"`
	DiscussionScore    float64   `json:"discussionScore"`
	LastActivity       time.Time `json:"lastActivity"`
}

func toAnalyticsView(a *model.DiscussionAnalytics) *AnalyticsView {
	return &AnalyticsView{
		PostID:             a.PostID,
		TotalComments:      a.TotalComments,
		TotalReplies:       a.TotalReplies,
		TotalUpvotes:       a.TotalUpvotes,
		TotalDownvotes:     a.TotalDownvotes,
		ExpertParticipants: a.ExpertParticipants,
		DiscussionScore:    a.DiscussionScore,
		LastActivity:       a.LastActivity,
	}
}

type AnalyticsService struct {
	repo  *rdb.AnalyticsRepository
	posts *rdb.PostRepository
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{
		repo:  &rdb.AnalyticsRepository{DB: db},
		posts: &rdb.PostRepository{DB: db},
	}
}

// Get 帖子讨论指标，首次访问时计算
func (s *AnalyticsService) Get(ctx context.Context, postID uint64) (*AnalyticsView, error) {
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.NotFound("post not found")
	}
	row, err := s.repo.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	return toAnalyticsView(row), nil
}
