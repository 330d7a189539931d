package rdb

import (
	"context"
	"errors"
	"time"

	"PulseLoop/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnalyticsRepository struct {
	DB *gorm.DB
}

// Recompute 全量重算某个帖子的讨论指标并覆盖写入；在事务内调用时 DB 应为 tx
func (r *AnalyticsRepository) Recompute(ctx context.Context, postID uint64) (*model.DiscussionAnalytics, error) {
	db := r.DB.WithContext(ctx)

	var comments, replies, upvotes, downvotes, experts int64
	if err := db.Model(&model.Comment{}).
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Count(&comments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Comment{}).
		Where("post_id = ? AND parent_comment_id IS NOT NULL", postID).
		Count(&replies).Error; err != nil {
		return nil, err
	}
	if err := r.countVotes(db, postID, model.CommentUpvote, &upvotes); err != nil {
		return nil, err
	}
	if err := r.countVotes(db, postID, model.CommentDownvote, &downvotes); err != nil {
		return nil, err
	}
	if err := db.Model(&model.Comment{}).
		Select("COUNT(DISTINCT comments.author_id)").
		Joins("JOIN users ON users.id = comments.author_id").
		Where("comments.post_id = ? AND users.expertise_level = ?", postID, model.ExpertiseExpert).
		Scan(&experts).Error; err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := model.DiscussionAnalytics{
		PostID:             postID,
		TotalComments:      comments,
		TotalReplies:       replies,
		TotalUpvotes:       upvotes,
		TotalDownvotes:     downvotes,
		ExpertParticipants: experts,
		DiscussionScore:    model.DiscussionScore(comments, replies, upvotes, downvotes, experts),
		LastActivity:       now,
	}
	// 唯一键 post_id 上做 upsert，首次访问时顺带创建
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_comments", "total_replies", "total_upvotes", "total_downvotes",
			"expert_participants", "discussion_score", "last_activity", "updated_at",
		}),
	}).Create(&row).Error; err != nil {
		return nil, err
	}

	var saved model.DiscussionAnalytics
	if err := db.Where("post_id = ?", postID).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *AnalyticsRepository) countVotes(db *gorm.DB, postID uint64, t model.CommentReactionType, out *int64) error {
	return db.Model(&model.CommentReaction{}).
		Joins("JOIN comments ON comments.id = comment_reactions.comment_id").
		Where("comments.post_id = ? AND comment_reactions.type = ?", postID, t).
		Count(out).Error
}

// Get 读取分析数据，不存在时懒创建
func (r *AnalyticsRepository) Get(ctx context.Context, postID uint64) (*model.DiscussionAnalytics, error) {
	var row model.DiscussionAnalytics
	err := r.DB.WithContext(ctx).Where("post_id = ?", postID).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var out *model.DiscussionAnalytics
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e error
		out, e = (&AnalyticsRepository{DB: tx}).Recompute(ctx, postID)
		return e
	})
	return out, err
}

// recomputeMany 批量重算，忽略已删除的帖子
func recomputeMany(ctx context.Context, tx *gorm.DB, postIDs []uint64) error {
	if len(postIDs) == 0 {
		return nil
	}
	var alive []uint64
	if err := tx.Model(&model.Post{}).Where("id IN ?", postIDs).Pluck("id", &alive).Error; err != nil {
		return err
	}
	repo := &AnalyticsRepository{DB: tx}
	for _, id := range alive {
		if _, err := repo.Recompute(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
