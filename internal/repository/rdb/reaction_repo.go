package rdb

import (
	"context"
	"errors"

	"PulseLoop/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReactionRepository struct {
	DB *gorm.DB
}

// TogglePost 帖子表态：同类型取消、不同类型替换、没有则新增。
// select for update 后再判断，并发下的重复插入由唯一索引兜底
func (r *ReactionRepository) TogglePost(ctx context.Context, postID, userID uint64, t model.ReactionType) (model.ToggleResult, error) {
	var result model.ToggleResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Reaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("post_id = ? AND user_id = ?", postID, userID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err = tx.Create(&model.Reaction{PostID: postID, UserID: userID, Type: t}).Error; err != nil {
				return err
			}
			result = model.ToggleAdded
		case err != nil:
			return err
		case existing.Type == t:
			if err = tx.Delete(&model.Reaction{}, existing.ID).Error; err != nil {
				return err
			}
			result = model.ToggleRemoved
		default:
			if err = tx.Model(&existing).Update("type", t).Error; err != nil {
				return err
			}
			result = model.ToggleChanged
		}

		if _, err = (&AnalyticsRepository{DB: tx}).Recompute(ctx, postID); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventReactionToggled, postID, userID, map[string]any{
			"type":   t,
			"result": result,
		})
	})
	return result, err
}

// ToggleComment 评论表态：同类型再次点击取消；否则先删掉与之互斥的类型再新增
func (r *ReactionRepository) ToggleComment(ctx context.Context, c *model.Comment, userID uint64, t model.CommentReactionType) (model.ToggleResult, error) {
	var result model.ToggleResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []model.CommentReaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("comment_id = ? AND user_id = ?", c.ID, userID).
			Find(&rows).Error; err != nil {
			return err
		}

		var sameID uint64
		var conflicting []uint64
		for _, row := range rows {
			switch {
			case row.Type == t:
				sameID = row.ID
			case row.Type.ConflictsWith(t):
				conflicting = append(conflicting, row.ID)
			}
		}

		if sameID != 0 {
			if err := tx.Delete(&model.CommentReaction{}, sameID).Error; err != nil {
				return err
			}
			result = model.ToggleRemoved
		} else {
			if len(conflicting) > 0 {
				if err := tx.Where("id IN ?", conflicting).Delete(&model.CommentReaction{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Create(&model.CommentReaction{CommentID: c.ID, UserID: userID, Type: t}).Error; err != nil {
				return err
			}
			result = model.ToggleAdded
		}

		if _, err := (&AnalyticsRepository{DB: tx}).Recompute(ctx, c.PostID); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventCommentReaction, c.PostID, userID, map[string]any{
			"comment_id": c.ID,
			"type":       t,
			"result":     result,
		})
	})
	return result, err
}

func (r *ReactionRepository) ListByPost(ctx context.Context, postID uint64) ([]model.Reaction, error) {
	var list []model.Reaction
	err := r.DB.WithContext(ctx).Where("post_id = ?", postID).Order("id ASC").Find(&list).Error
	return list, err
}

// CountsByPosts 按帖子与类型分组统计
func (r *ReactionRepository) CountsByPosts(ctx context.Context, postIDs []uint64) (map[uint64]map[string]int64, error) {
	out := make(map[uint64]map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []TypeCount
	if err := r.DB.WithContext(ctx).Model(&model.Reaction{}).
		Select("post_id AS target_id, type, COUNT(*) AS n").
		Where("post_id IN ?", postIDs).
		Group("post_id, type").
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

// UserReactions 当前用户在这些帖子上的表态类型
func (r *ReactionRepository) UserReactions(ctx context.Context, postIDs []uint64, userID uint64) (map[uint64]string, error) {
	out := make(map[uint64]string)
	if len(postIDs) == 0 || userID == 0 {
		return out, nil
	}
	var rows []model.Reaction
	if err := r.DB.WithContext(ctx).
		Where("post_id IN ? AND user_id = ?", postIDs, userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = string(row.Type)
	}
	return out, nil
}

// ListCommentReactions 某用户在一条评论上的全部表态
func (r *ReactionRepository) ListCommentReactions(ctx context.Context, commentID, userID uint64) ([]model.CommentReaction, error) {
	var rows []model.CommentReaction
	err := r.DB.WithContext(ctx).Where("comment_id = ? AND user_id = ?", commentID, userID).Order("id ASC").Find(&rows).Error
	return rows, err
}
