package rdb

import (
	"context"
	"errors"
	"strings"
	"time"

	"PulseLoop/internal/model"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

// Create 注册用户；带邀请码时在同一事务里把邀请标记为已接受
func (r *UserRepository) Create(ctx context.Context, user *model.User, invitationToken string) (*model.Invitation, error) {
	var inv *model.Invitation
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if invitationToken != "" {
			var found model.Invitation
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("token = ?", invitationToken).
				First(&found).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInvitationInvalid
				}
				return err
			}
			if found.Status != model.InvitationPending || !strings.EqualFold(found.InviteeEmail, user.Email) {
				return ErrInvitationInvalid
			}
			user.InvitedByUserID = &found.InviterID
			inv = &found
		}

		if err := tx.Create(user).Error; err != nil {
			return err
		}

		if inv != nil {
			now := time.Now().UTC()
			if err := tx.Model(inv).Updates(map[string]any{
				"status":      model.InvitationAccepted,
				"accepted_at": now,
			}).Error; err != nil {
				return err
			}
			inv.Status = model.InvitationAccepted
			inv.AcceptedAt = &now
		}
		return nil
	})
	return inv, err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID uint64, hash string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password", hash).Error
}

func (r *UserRepository) UpdateFields(ctx context.Context, userID uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(fields).Error
}

// ListByRole 按注册时间正序
func (r *UserRepository) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).Where("role = ?", role).Order("created_at ASC, id ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).Order("created_at DESC, id DESC").Find(&users).Error
	return users, err
}

// UpdateRoleFrom 条件更新：只有当前角色为 from 时才修改
func (r *UserRepository) UpdateRoleFrom(ctx context.Context, userID uint64, from, to model.Role) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND role = ?", userID, from).
		Update("role", to)
	return res.RowsAffected > 0, res.Error
}

// Delete 删除用户及其名下全部内容，返回需要清理的文件地址
func (r *UserRepository) Delete(ctx context.Context, userID uint64) ([]string, error) {
	var files []string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if user.AvatarURL != "" {
			files = append(files, user.AvatarURL)
		}

		// 用户参与过讨论但不属于自己的帖子，删除后需要重算
		var touched []uint64
		if err := tx.Model(&model.Comment{}).Where("author_id = ?", userID).Distinct().Pluck("post_id", &touched).Error; err != nil {
			return err
		}
		var reacted []uint64
		if err := tx.Model(&model.CommentReaction{}).
			Joins("JOIN comments ON comments.id = comment_reactions.comment_id").
			Where("comment_reactions.user_id = ?", userID).
			Distinct().Pluck("comments.post_id", &reacted).Error; err != nil {
			return err
		}

		var ownPosts []uint64
		if err := tx.Model(&model.Post{}).Where("author_id = ?", userID).Pluck("id", &ownPosts).Error; err != nil {
			return err
		}
		for _, id := range ownPosts {
			media, err := deletePostTx(tx, id)
			if err != nil {
				return err
			}
			if media != "" {
				files = append(files, media)
			}
		}

		var ownComments []uint64
		if err := tx.Model(&model.Comment{}).Where("author_id = ?", userID).Pluck("id", &ownComments).Error; err != nil {
			return err
		}
		if _, err := deleteCommentTreesTx(tx, ownComments); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.CommentReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("inviter_id = ?", userID).Delete(&model.Invitation{}).Error; err != nil {
			return err
		}

		var resources []model.Resource
		if err := tx.Where("author_id = ?", userID).Find(&resources).Error; err != nil {
			return err
		}
		var blogs []model.Blog
		if err := tx.Where("author_id = ?", userID).Find(&blogs).Error; err != nil {
			return err
		}
		files = append(files, lo.FilterMap(resources, func(res model.Resource, _ int) (string, bool) { return res.FileURL, res.FileURL != "" })...)
		files = append(files, lo.FilterMap(blogs, func(b model.Blog, _ int) (string, bool) { return b.CoverImageURL, b.CoverImageURL != "" })...)
		if err := tx.Where("author_id = ?", userID).Delete(&model.Resource{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", userID).Delete(&model.Blog{}).Error; err != nil {
			return err
		}

		if err := recomputeMany(ctx, tx, lo.Uniq(append(touched, reacted...))); err != nil {
			return err
		}
		return tx.Delete(&model.User{}, userID).Error
	})
	return files, err
}
