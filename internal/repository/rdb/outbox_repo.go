package rdb

import (
	"context"
	"encoding/json"
	"time"

	"PulseLoop/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// insertOutbox 必须在业务事务内调用
func insertOutbox(tx *gorm.DB, event string, aggregateID, actorID uint64, data map[string]any) error {
	body := map[string]any{
		"event":      event,
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"aggregate":  aggregateID,
		"actor":      actorID,
	}
	for k, v := range data {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tx.Create(&model.EventOutbox{
		EventType:   event,
		AggregateID: aggregateID,
		ActorID:     actorID,
		Payload:     datatypes.JSON(payload),
		Status:      model.OutboxPending,
	}).Error
}

// List 待投递或可重试的事件
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.EventOutbox, error) {
	var list []model.EventOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败，记录重试次数
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EventOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate 投递成功
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EventOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
