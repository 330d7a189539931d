package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"
	"PulseLoop/internal/repository/redis"
	"PulseLoop/internal/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	minPasswordLen = 8
	resetScope     = "reset"
)

// SessionStore 单点登录的 token 存储，未配置 redis 时为 nil
type SessionStore interface {
	Save(ctx context.Context, userID uint64, token string) error
	Get(ctx context.Context, userID uint64) (string, error)
	Extend(ctx context.Context, userID uint64) error
	Delete(ctx context.Context, userID uint64) error
}

// CodeStore 邮件验证码存储
type CodeStore interface {
	SavePending(ctx context.Context, scope, email, code string) error
	Confirm(ctx context.Context, scope, email string) error
	DeletePending(ctx context.Context, scope, email string) error
	Consume(ctx context.Context, scope, email, code string) error
}

type MailSender interface {
	Enabled() bool
	Send(to, subject, html string) error
}

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	InvitationToken string
}

// ProfileUpdate nil 字段表示不修改
type ProfileUpdate struct {
	Name             *string
	Title            *string
	Department       *string
	State            *string
	Bio              *string
	ExpertiseAreas   *[]string
	NewsletterOptOut *bool
}

type UserService struct {
	repo     *rdb.UserRepository
	issuer   *pkg.TokenIssuer
	sessions SessionStore
	codes    CodeStore
	mailer   MailSender
	store    storage.Storage
	notifier *NotificationService
}

func NewUserService(db *gorm.DB, issuer *pkg.TokenIssuer, sessions SessionStore, codes CodeStore,
	mailer MailSender, store storage.Storage, notifier *NotificationService) *UserService {
	return &UserService{
		repo:     &rdb.UserRepository{DB: db},
		issuer:   issuer,
		sessions: sessions,
		codes:    codes,
		mailer:   mailer,
		store:    store,
		notifier: notifier,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", pkg.Validation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Signup 注册，新用户一律为 PENDING，等待管理员审核
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" {
		return nil, pkg.Validation("email and password are required")
	}
	if name == "" {
		return nil, pkg.Validation("name is required")
	}
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, pkg.Conflict("email is already registered")
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:           name,
		Email:          email,
		Password:       hash,
		Role:           model.RolePending,
		ExpertiseLevel: model.ExpertiseBeginner,
	}
	inv, err := s.repo.Create(ctx, user, strings.TrimSpace(in.InvitationToken))
	if err != nil {
		if pkg.KindOf(err) == pkg.KindConflict {
			return nil, pkg.Conflict("email is already registered")
		}
		return nil, repoErr(err, "invitation not found")
	}

	if inv != nil {
		s.notifier.notifyQuietly(ctx, inv.InviterID, model.NotifyInvitationAccepted,
			"Invitation accepted",
			user.Name+" accepted your invitation and joined PulseLoop",
			map[string]any{"invitation_id": inv.ID, "user_id": user.ID})
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*pkg.Pair, *model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, pkg.Validation("email and password are required")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkg.Unauthenticated("invalid credentials")
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, pkg.Unauthenticated("invalid credentials")
	}
	if user.Role == model.RoleInactive {
		return nil, nil, pkg.Forbidden("account is inactive")
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// issue 签发 token，并把 access token 写入 redis，挤掉旧的登录
func (s *UserService) issue(ctx context.Context, user *model.User) (*pkg.Pair, error) {
	pair, err := s.issuer.GeneratePair(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		if err = s.sessions.Save(ctx, user.ID, pair.AccessToken); err != nil {
			return nil, pkg.Unavailable("session store unavailable")
		}
	}
	return pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Delete(ctx, userID)
}

// Refresh 使用 refresh token 换取新的 token 对，角色以数据库为准
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, pkg.Unauthenticated("invalid refresh token")
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkg.Unauthenticated("user no longer exists")
		}
		return nil, err
	}
	if user.Role == model.RoleInactive {
		return nil, pkg.Forbidden("account is inactive")
	}
	return s.issue(ctx, user)
}

// ChangePassword 登录态修改密码，成功后需重新登录
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return repoErr(err, "user not found")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return pkg.Validation("old password is incorrect")
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return s.Logout(ctx, userID)
}

// SendResetCode 发送重置密码验证码；邮箱未注册时静默返回
func (s *UserService) SendResetCode(ctx context.Context, email string) error {
	if s.codes == nil || s.mailer == nil || !s.mailer.Enabled() {
		return pkg.Unavailable("password reset is not available")
	}
	email = normalizeEmail(email)
	if email == "" {
		return pkg.Validation("email is required")
	}
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	code, err := pkg.RandDigits(6)
	if err != nil {
		return err
	}
	// 先写 pending，邮件发出后再转为 confirmed
	if err = s.codes.SavePending(ctx, resetScope, email, code); err != nil {
		return pkg.Unavailable("code store unavailable")
	}
	if err = s.mailer.Send(email, "PulseLoop password reset code", pkg.ResetCodeHTML(code, redis.DefaultCodeTTL)); err != nil {
		_ = s.codes.DeletePending(ctx, resetScope, email)
		pkg.Log.WithFields(logrus.Fields{"email": email, "err": err}).Error("send reset code failed")
		return pkg.Unavailable("failed to send email")
	}
	if err = s.codes.Confirm(ctx, resetScope, email); err != nil {
		_ = s.codes.DeletePending(ctx, resetScope, email)
		return pkg.Unavailable("code store unavailable")
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if s.codes == nil {
		return pkg.Unavailable("password reset is not available")
	}
	email = normalizeEmail(email)
	if email == "" || code == "" {
		return pkg.Validation("email and code are required")
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err = s.codes.Consume(ctx, resetScope, email, code); err != nil {
		if errors.Is(err, redis.ErrCodeMismatch) {
			return pkg.Validation("invalid or expired code")
		}
		return pkg.Unavailable("code store unavailable")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return repoErr(err, "user not found")
	}
	if err = s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	return s.Logout(ctx, user.ID)
}

func (s *UserService) GetProfile(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "user not found")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, in ProfileUpdate) (*model.User, error) {
	fields := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, pkg.Validation("name cannot be empty")
		}
		fields["name"] = name
	}
	trimmed := map[string]*string{
		"title":      in.Title,
		"department": in.Department,
		"state":      in.State,
		"bio":        in.Bio,
	}
	for col, v := range trimmed {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	if in.ExpertiseAreas != nil {
		fields["expertise_areas"] = datatypes.JSONSlice[string](cleanList(*in.ExpertiseAreas))
	}
	if in.NewsletterOptOut != nil {
		fields["newsletter_opt_out"] = *in.NewsletterOptOut
	}

	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// UploadAvatar 新头像落库成功后再删除旧文件
func (s *UserService) UploadAvatar(ctx context.Context, userID uint64, r io.Reader, filename string) (*model.User, error) {
	if !storage.IsImage(filename) {
		return nil, pkg.Validation("avatar must be an image")
	}
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.store.Store(ctx, r, filename, storage.FolderAvatars)
	if err != nil {
		return nil, err
	}
	if err = s.repo.UpdateFields(ctx, userID, map[string]any{"avatar_url": url}); err != nil {
		discard(ctx, s.store, url)
		return nil, err
	}
	discard(ctx, s.store, user.AvatarURL)
	user.AvatarURL = url
	return user, nil
}
