package service

import (
	"context"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const eventNewNotification = "new_notification"

// Pusher 实时推送通道：单实例直接走 Hub，多实例走 redis 转发
type Pusher interface {
	Push(ctx context.Context, userID uint64, event string, payload any) error
}

type NotificationView struct {
	ID        uint64         `json:"id"`
	UserID    uint64         `json:"userId"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	IsRead    bool           `json:"isRead"`
	CreatedAt time.Time      `json:"createdAt"`
}

func ToNotificationView(n model.Notification) NotificationView {
	data := map[string]any(n.Data)
	if data == nil {
		data = map[string]any{}
	}
	return NotificationView{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Data:      data,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

type NotificationPage struct {
	Notifications []NotificationView `json:"notifications"`
	Total         int64              `json:"total"`
	Pages         int                `json:"pages"`
	CurrentPage   int                `json:"current_page"`
}

type NotificationService struct {
	repo   *rdb.NotificationRepository
	pusher Pusher
}

func NewNotificationService(db *gorm.DB, pusher Pusher) *NotificationService {
	return &NotificationService{
		repo:   &rdb.NotificationRepository{DB: db},
		pusher: pusher,
	}
}

// Notify 写库后推送；推送失败不影响结果
func (s *NotificationService) Notify(ctx context.Context, userID uint64, typ model.NotificationType, title, message string, data map[string]any) (*model.Notification, error) {
	n := &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Data:    data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	if s.pusher != nil {
		if err := s.pusher.Push(ctx, userID, eventNewNotification, ToNotificationView(*n)); err != nil {
			pkg.Log.WithFields(logrus.Fields{"user_id": userID, "err": err}).Warn("notification push failed")
		}
	}
	return n, nil
}

// notifyQuietly 业务提交之后调用，失败只记日志
func (s *NotificationService) notifyQuietly(ctx context.Context, userID uint64, typ model.NotificationType, title, message string, data map[string]any) {
	if s == nil {
		return
	}
	if _, err := s.Notify(ctx, userID, typ, title, message, data); err != nil {
		pkg.Log.WithFields(logrus.Fields{"user_id": userID, "type": typ, "err": err}).Error("create notification failed")
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint64, page, limit int, unreadOnly bool) (*NotificationPage, error) {
	if page <= 0 {
		page = 1
	}
	offset, size := rdb.Page(page, limit, 20, 100)
	list, total, err := s.repo.List(ctx, userID, offset, size, unreadOnly)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: lo.Map(list, func(n model.Notification, _ int) NotificationView { return ToNotificationView(n) }),
		Total:         total,
		Pages:         int((total + int64(size) - 1) / int64(size)),
		CurrentPage:   page,
	}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint64) (*NotificationView, error) {
	n, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, repoErr(err, "notification not found")
	}
	v := ToNotificationView(*n)
	return &v, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}
