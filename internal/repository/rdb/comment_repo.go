package rdb

import (
	"context"

	"PulseLoop/internal/model"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type CommentRepository struct {
	DB *gorm.DB
}

// Create 写入评论，同一事务内重算讨论指标并写 outbox
func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if _, err := (&AnalyticsRepository{DB: tx}).Recompute(ctx, c.PostID); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventCommentCreated, c.PostID, c.AuthorID, map[string]any{
			"comment_id":        c.ID,
			"parent_comment_id": c.ParentCommentID,
		})
	})
}

func (r *CommentRepository) FindByID(ctx context.Context, id uint64) (*model.Comment, error) {
	var c model.Comment
	if err := r.DB.WithContext(ctx).Preload("Author").First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByPost 按时间正序返回帖子下全部评论（含回复）
func (r *CommentRepository) ListByPost(ctx context.Context, postID uint64) ([]model.Comment, error) {
	var list []model.Comment
	err := r.DB.WithContext(ctx).Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

// Delete 删除评论及其所有后代回复，并重算所属帖子的指标
func (r *CommentRepository) Delete(ctx context.Context, c *model.Comment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := deleteCommentTreesTx(tx, []uint64{c.ID}); err != nil {
			return err
		}
		_, err := (&AnalyticsRepository{DB: tx}).Recompute(ctx, c.PostID)
		return err
	})
}

// deleteCommentTreesTx 删除若干评论子树，返回受影响的帖子 id
func deleteCommentTreesTx(tx *gorm.DB, roots []uint64) ([]uint64, error) {
	if len(roots) == 0 {
		return nil, nil
	}
	all := append([]uint64{}, roots...)
	frontier := roots
	for len(frontier) > 0 {
		var children []uint64
		if err := tx.Model(&model.Comment{}).
			Where("parent_comment_id IN ?", frontier).
			Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		children = lo.Without(children, all...)
		all = append(all, children...)
		frontier = children
	}

	var postIDs []uint64
	if err := tx.Model(&model.Comment{}).Where("id IN ?", all).Distinct().Pluck("post_id", &postIDs).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("comment_id IN ?", all).Delete(&model.CommentReaction{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id IN ?", all).Delete(&model.Comment{}).Error; err != nil {
		return nil, err
	}
	return postIDs, nil
}

// ReactionCounts 按评论与类型分组统计表态
func (r *CommentRepository) ReactionCounts(ctx context.Context, commentIDs []uint64) (map[uint64]map[string]int64, error) {
	out := make(map[uint64]map[string]int64, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}
	var rows []TypeCount
	if err := r.DB.WithContext(ctx).Model(&model.CommentReaction{}).
		Select("comment_id AS target_id, type, COUNT(*) AS n").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id, type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if out[row.TargetID] == nil {
			out[row.TargetID] = map[string]int64{}
		}
		out[row.TargetID][row.Type] = row.N
	}
	return out, nil
}

// UserReactions 当前用户在这些评论上的表态
func (r *CommentRepository) UserReactions(ctx context.Context, commentIDs []uint64, userID uint64) (map[uint64][]string, error) {
	out := make(map[uint64][]string)
	if len(commentIDs) == 0 || userID == 0 {
		return out, nil
	}
	var rows []model.CommentReaction
	if err := r.DB.WithContext(ctx).
		Where("comment_id IN ? AND user_id = ?", commentIDs, userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CommentID] = append(out[row.CommentID], string(row.Type))
	}
	return out, nil
}
