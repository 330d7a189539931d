package service

import (
	"context"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const outboxMaxRetry = 5

type Sender func(ctx context.Context, ob *model.EventOutbox) error

// OutboxRelayer 轮询 outbox 表，把内容事件投递到消息队列
type OutboxRelayer struct {
	repo      *rdb.OutboxRepository
	batchSize int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(db *gorm.DB, sender Sender) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      &rdb.OutboxRepository{DB: db},
		batchSize: 200,
		interval:  time.Second,
		sender:    sender,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.List(ctx, r.batchSize, outboxMaxRetry)
	if err != nil {
		pkg.Log.WithError(err).Error("outbox query failed")
		return
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			pkg.Log.WithFields(logrus.Fields{"outbox_id": ob.ID, "event": ob.EventType, "retry": ob.Retry, "err": err}).Warn("outbox send failed")
			if err = r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				pkg.Log.WithError(err).Error("outbox retry update failed")
			}
			continue
		}
		if err = r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			pkg.Log.WithError(err).Error("outbox success update failed")
		}
	}
}

// LogSender 未配置 kafka 时只打日志
func LogSender(_ context.Context, ob *model.EventOutbox) error {
	pkg.Log.WithFields(logrus.Fields{
		"event":     ob.EventType,
		"aggregate": ob.AggregateID,
		"actor":     ob.ActorID,
	}).Info(string(ob.Payload))
	return nil
}

// KafkaSender 以聚合 id 作为 key，同一帖子的事件保持有序
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.EventOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.AggregateID), ob.Payload, map[string]string{
			"event_type": ob.EventType,
		})
	}
}
