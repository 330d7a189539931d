package rdb

import (
	"context"

	"PulseLoop/internal/model"

	"gorm.io/gorm"
)

type InvitationRepository struct {
	DB *gorm.DB
}

// InvitationStats 邀请人维度的统计
type InvitationStats struct {
	Pending  int64
	Accepted int64
	Total    int64
}

func (r *InvitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	return r.DB.WithContext(ctx).Create(inv).Error
}

func (r *InvitationRepository) FindByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	if err := r.DB.WithContext(ctx).Preload("Inviter").Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepository) HasPending(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Invitation{}).
		Where("invitee_email = ? AND status = ?", email, model.InvitationPending).
		Count(&n).Error
	return n > 0, err
}

func (r *InvitationRepository) ListByInviter(ctx context.Context, inviterID uint64) ([]model.Invitation, error) {
	var list []model.Invitation
	err := r.DB.WithContext(ctx).Where("inviter_id = ?", inviterID).Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

func (r *InvitationRepository) Stats(ctx context.Context, inviterID uint64) (InvitationStats, error) {
	var rows []struct {
		Status model.InvitationStatus
		N      int64
	}
	if err := r.DB.WithContext(ctx).Model(&model.Invitation{}).
		Select("status, COUNT(*) AS n").
		Where("inviter_id = ?", inviterID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return InvitationStats{}, err
	}
	var s InvitationStats
	for _, row := range rows {
		switch row.Status {
		case model.InvitationPending:
			s.Pending = row.N
		case model.InvitationAccepted:
			s.Accepted = row.N
		}
		s.Total += row.N
	}
	return s, nil
}
