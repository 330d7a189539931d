package rdb

import (
	"context"

	"PulseLoop/internal/model"

	"gorm.io/gorm"
)

type BroadcastRepository struct {
	DB *gorm.DB
}

// Active 当前生效的公告，没有时返回 nil
func (r *BroadcastRepository) Active(ctx context.Context) (*model.BroadcastMessage, error) {
	var list []model.BroadcastMessage
	if err := r.DB.WithContext(ctx).Where("is_active = ?", true).Order("updated_at DESC, id DESC").Limit(1).Find(&list).Error; err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r *BroadcastRepository) List(ctx context.Context) ([]model.BroadcastMessage, error) {
	var list []model.BroadcastMessage
	err := r.DB.WithContext(ctx).Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

// Create 新公告生效时，其余公告全部失效
func (r *BroadcastRepository) Create(ctx context.Context, msg *model.BroadcastMessage) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if msg.IsActive {
			if err := deactivateOthers(tx, 0); err != nil {
				return err
			}
		}
		return tx.Create(msg).Error
	})
}

func (r *BroadcastRepository) Update(ctx context.Context, id uint64, fields map[string]any) (*model.BroadcastMessage, error) {
	var msg model.BroadcastMessage
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, id).Error; err != nil {
			return err
		}
		if active, ok := fields["is_active"].(bool); ok && active {
			if err := deactivateOthers(tx, id); err != nil {
				return err
			}
		}
		if len(fields) > 0 {
			if err := tx.Model(&msg).Updates(fields).Error; err != nil {
				return err
			}
		}
		return tx.First(&msg, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *BroadcastRepository) Delete(ctx context.Context, id uint64) error {
	res := r.DB.WithContext(ctx).Delete(&model.BroadcastMessage{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func deactivateOthers(tx *gorm.DB, keepID uint64) error {
	return tx.Model(&model.BroadcastMessage{}).
		Where("is_active = ? AND id <> ?", true, keepID).
		Update("is_active", false).Error
}
