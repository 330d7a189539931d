package rdb

import (
	"context"

	"PulseLoop/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) List(ctx context.Context, userID uint64, offset, limit int, unreadOnly bool) ([]model.Notification, int64, error) {
	query := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
		if unreadOnly {
			q = q.Where("is_read = ?", false)
		}
		return q
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Notification
	if err := query().Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// MarkRead 只能标记自己的通知，不属于该用户时按不存在处理
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uint64) (*model.Notification, error) {
	var n model.Notification
	if err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, err
	}
	if n.IsRead {
		return &n, nil
	}
	if err := r.DB.WithContext(ctx).Model(&n).Update("is_read", true).Error; err != nil {
		return nil, err
	}
	n.IsRead = true
	return &n, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}
