package service

import (
	"context"
	"net/url"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type InvitationView struct {
	ID           uint64     `json:"id"`
	InviteeEmail string     `json:"inviteeEmail"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	AcceptedAt   *time.Time `json:"acceptedAt"`
}

func toInvitationView(inv model.Invitation) InvitationView {
	return InvitationView{
		ID:           inv.ID,
		InviteeEmail: inv.InviteeEmail,
		Status:       string(inv.Status),
		CreatedAt:    inv.CreatedAt,
		AcceptedAt:   inv.AcceptedAt,
	}
}

type InvitationStats struct {
	PendingInvitations  int64 `json:"pendingInvitations"`
	AcceptedInvitations int64 `json:"acceptedInvitations"`
	TotalInvitations    int64 `json:"totalInvitations"`
}

type InvitationCheck struct {
	Email       string `json:"email"`
	InviterName string `json:"inviterName"`
}

type InvitationService struct {
	repo        *rdb.InvitationRepository
	users       *rdb.UserRepository
	mailer      MailSender
	frontendURL string
}

func NewInvitationService(db *gorm.DB, mailer MailSender, frontendURL string) *InvitationService {
	return &InvitationService{
		repo:        &rdb.InvitationRepository{DB: db},
		users:       &rdb.UserRepository{DB: db},
		mailer:      mailer,
		frontendURL: frontendURL,
	}
}

// Create 生成邀请并发送邮件；邮件失败不影响邀请本身
func (s *InvitationService) Create(ctx context.Context, inviterID uint64, email string) (*InvitationView, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, pkg.Validation("email is required")
	}
	inviter, err := s.users.FindByID(ctx, inviterID)
	if err != nil {
		return nil, repoErr(err, "inviter not found")
	}
	registered, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, pkg.Conflict("a user with this email already exists")
	}
	pending, err := s.repo.HasPending(ctx, email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, pkg.Conflict("an invitation has already been sent to this email")
	}

	token, err := pkg.RandToken(32)
	if err != nil {
		return nil, err
	}
	inv := &model.Invitation{
		InviterID:    inviterID,
		InviteeEmail: email,
		Token:        token,
		Status:       model.InvitationPending,
	}
	if err = s.repo.Create(ctx, inv); err != nil {
		return nil, repoErr(err, "invitation not found")
	}

	if s.mailer != nil && s.mailer.Enabled() {
		link := s.frontendURL + "/signup?token=" + url.QueryEscape(token)
		if err = s.mailer.Send(email, "You're invited to join PulseLoop", pkg.InvitationHTML(inviter.Name, link)); err != nil {
			pkg.Log.WithFields(logrus.Fields{"invitation_id": inv.ID, "err": err}).Error("send invitation email failed")
		}
	} else {
		pkg.Log.WithField("invitation_id", inv.ID).Warn("smtp not configured, invitation email skipped")
	}
	v := toInvitationView(*inv)
	return &v, nil
}

// Validate 只有待接受的邀请有效
func (s *InvitationService) Validate(ctx context.Context, token string) (*InvitationCheck, error) {
	inv, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, repoErr(err, "invalid or expired invitation")
	}
	if inv.Status != model.InvitationPending {
		return nil, pkg.NotFound("invalid or expired invitation")
	}
	check := &InvitationCheck{Email: inv.InviteeEmail}
	if inv.Inviter != nil {
		check.InviterName = inv.Inviter.Name
	}
	return check, nil
}

func (s *InvitationService) ListSent(ctx context.Context, inviterID uint64) ([]InvitationView, error) {
	list, err := s.repo.ListByInviter(ctx, inviterID)
	if err != nil {
		return nil, err
	}
	return lo.Map(list, func(inv model.Invitation, _ int) InvitationView { return toInvitationView(inv) }), nil
}

func (s *InvitationService) Stats(ctx context.Context, inviterID uint64) (*InvitationStats, error) {
	st, err := s.repo.Stats(ctx, inviterID)
	if err != nil {
		return nil, err
	}
	return &InvitationStats{
		PendingInvitations:  st.Pending,
		AcceptedInvitations: st.Accepted,
		TotalInvitations:    st.Total,
	}, nil
}
