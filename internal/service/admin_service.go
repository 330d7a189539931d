package service

import (
	"context"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"
	"PulseLoop/internal/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdminService 用户审核与角色管理
type AdminService struct {
	repo     *rdb.UserRepository
	store    storage.Storage
	sessions SessionStore
}

func NewAdminService(db *gorm.DB, store storage.Storage, sessions SessionStore) *AdminService {
	return &AdminService{
		repo:     &rdb.UserRepository{DB: db},
		store:    store,
		sessions: sessions,
	}
}

func (s *AdminService) ListPendingUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListByRole(ctx, model.RolePending)
}

func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

// ApproveUser 只有 PENDING 用户可以被审核通过
func (s *AdminService) ApproveUser(ctx context.Context, userID uint64) (*model.User, error) {
	ok, err := s.repo.UpdateRoleFrom(ctx, userID, model.RolePending, model.RoleNurse)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.NotFound("user not found or not pending approval")
	}
	return s.find(ctx, userID)
}

func (s *AdminService) UpdateRole(ctx context.Context, userID uint64, role string) (*model.User, error) {
	next, ok := model.ParseRole(role)
	if !ok {
		return nil, pkg.Validation("invalid role")
	}
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Role.CanTransitionTo(next) {
		return nil, pkg.Validation("role cannot change from " + string(user.Role) + " to " + string(next))
	}
	changed, err := s.repo.UpdateRoleFrom(ctx, userID, user.Role, next)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, pkg.Conflict("role was changed concurrently, please retry")
	}
	// 旧 token 中的角色已失效
	if s.sessions != nil {
		if err = s.sessions.Delete(ctx, userID); err != nil {
			pkg.Log.WithFields(logrus.Fields{"user_id": userID, "err": err}).Warn("drop session after role change failed")
		}
	}
	user.Role = next
	return user, nil
}

func (s *AdminService) SetExpertise(ctx context.Context, userID uint64, level string) (*model.User, error) {
	lvl, ok := model.ParseExpertiseLevel(level)
	if !ok {
		return nil, pkg.Validation("invalid expertise level")
	}
	if _, err := s.find(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"expertise_level": lvl}); err != nil {
		return nil, err
	}
	return s.find(ctx, userID)
}

// DeleteUser 级联删除用户内容，文件在事务提交后清理
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID uint64) error {
	if adminID == userID {
		return pkg.Validation("admins cannot delete their own account")
	}
	files, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return repoErr(err, "user not found")
	}
	if s.sessions != nil {
		_ = s.sessions.Delete(ctx, userID)
	}
	for _, f := range files {
		discard(ctx, s.store, f)
	}
	return nil
}

func (s *AdminService) find(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user not found")
	}
	return user, nil
}
