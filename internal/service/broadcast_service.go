package service

import (
	"context"
	"strings"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type BroadcastView struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsActive  bool      `json:"isActive"`
	CreatedBy uint64    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toBroadcastView(m model.BroadcastMessage) BroadcastView {
	return BroadcastView{
		ID:        m.ID,
		Title:     m.Title,
		Message:   m.Message,
		IsActive:  m.IsActive,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// BroadcastUpdate nil 字段不修改
type BroadcastUpdate struct {
	Title    *string
	Message  *string
	IsActive *bool
}

// BroadcastService 全站公告，同一时间最多一条生效
type BroadcastService struct {
	repo *rdb.BroadcastRepository
}

func NewBroadcastService(db *gorm.DB) *BroadcastService {
	return &BroadcastService{repo: &rdb.BroadcastRepository{DB: db}}
}

func (s *BroadcastService) Active(ctx context.Context) (*BroadcastView, error) {
	m, err := s.repo.Active(ctx)
	if err != nil || m == nil {
		return nil, err
	}
	v := toBroadcastView(*m)
	return &v, nil
}

func (s *BroadcastService) List(ctx context.Context) ([]BroadcastView, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(list, func(m model.BroadcastMessage, _ int) BroadcastView { return toBroadcastView(m) }), nil
}

func (s *BroadcastService) Create(ctx context.Context, adminID uint64, title, message string, active bool) (*BroadcastView, error) {
	title, message = strings.TrimSpace(title), strings.TrimSpace(message)
	if title == "" || message == "" {
		return nil, pkg.Validation("title and message are required")
	}
	m := &model.BroadcastMessage{Title: title, Message: message, IsActive: active, CreatedBy: adminID}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	v := toBroadcastView(*m)
	return &v, nil
}

func (s *BroadcastService) Update(ctx context.Context, id uint64, in BroadcastUpdate) (*BroadcastView, error) {
	fields := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, pkg.Validation("title cannot be empty")
		}
		fields["title"] = title
	}
	if in.Message != nil {
		msg := strings.TrimSpace(*in.Message)
		if msg == "" {
			return nil, pkg.Validation("message cannot be empty")
		}
		fields["message"] = msg
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	m, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, repoErr(err, "broadcast message not found")
	}
	v := toBroadcastView(*m)
	return &v, nil
}

func (s *BroadcastService) Delete(ctx context.Context, id uint64) error {
	return repoErr(s.repo.Delete(ctx, id), "broadcast message not found")
}
