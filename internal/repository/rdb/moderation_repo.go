package rdb

import (
	"context"

	"PulseLoop/internal/model"

	"gorm.io/gorm"
)

// ModerationRepository 资源与博客共用的审核仓储，Kind 用于事件类型
type ModerationRepository[T model.Moderated] struct {
	DB   *gorm.DB
	Kind string
}

func (r *ModerationRepository[T]) Create(ctx context.Context, item *T) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *ModerationRepository[T]) FindByID(ctx context.Context, id uint64) (*T, error) {
	var item T
	if err := r.DB.WithContext(ctx).Preload("Author").First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByStatus 待审核列表按时间正序，其余倒序
func (r *ModerationRepository[T]) ListByStatus(ctx context.Context, status model.ContentStatus) ([]T, error) {
	order := "created_at DESC, id DESC"
	if status == model.StatusPending {
		order = "created_at ASC, id ASC"
	}
	var list []T
	err := r.DB.WithContext(ctx).Preload("Author").Where("status = ?", status).Order(order).Find(&list).Error
	return list, err
}

func (r *ModerationRepository[T]) ListByAuthor(ctx context.Context, authorID uint64) ([]T, error) {
	var list []T
	err := r.DB.WithContext(ctx).Preload("Author").Where("author_id = ?", authorID).Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

func (r *ModerationRepository[T]) ListAll(ctx context.Context) ([]T, error) {
	var list []T
	err := r.DB.WithContext(ctx).Preload("Author").Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

// Update 编辑内容字段，不改变审核状态
func (r *ModerationRepository[T]) Update(ctx context.Context, id uint64, fields map[string]any) (*T, error) {
	if len(fields) > 0 {
		if err := r.DB.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

// Transition 条件更新状态；当前状态不满足时返回 ErrStateMismatch
func (r *ModerationRepository[T]) Transition(ctx context.Context, id uint64, d model.Decision, reason string, actorID uint64) (*T, error) {
	from, to := d.Transition()
	if len(from) == 0 {
		return nil, ErrStateMismatch
	}
	updates := map[string]any{"status": to}
	switch d {
	case model.DecisionApprove:
		updates["rejection_reason"] = nil
	case model.DecisionReject:
		updates["rejection_reason"] = reason
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(new(T)).Where("id = ? AND status IN ?", id, from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateMismatch
		}
		return insertOutbox(tx, model.EventModerationPrefix+string(d), id, actorID, map[string]any{
			"kind":   r.Kind,
			"status": to,
		})
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *ModerationRepository[T]) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Delete(new(T), id).Error
}
