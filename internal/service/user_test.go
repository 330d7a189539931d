package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/redis"
	"PulseLoop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memSessions struct {
	mu     sync.Mutex
	tokens map[uint64]string
}

func (m *memSessions) Save(_ context.Context, userID uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = token
	return nil
}

func (m *memSessions) Get(_ context.Context, userID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[userID], nil
}

func (m *memSessions) Extend(context.Context, uint64) error { return nil }

func (m *memSessions) Delete(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

// memCodes 与 redis 实现相同的两阶段语义
type memCodes struct {
	pending   map[string]string
	confirmed map[string]string
}

func newMemCodes() *memCodes {
	return &memCodes{pending: map[string]string{}, confirmed: map[string]string{}}
}

func (m *memCodes) SavePending(_ context.Context, scope, email, code string) error {
	m.pending[scope+email] = code
	return nil
}

func (m *memCodes) Confirm(_ context.Context, scope, email string) error {
	m.confirmed[scope+email] = m.pending[scope+email]
	delete(m.pending, scope+email)
	return nil
}

func (m *memCodes) DeletePending(_ context.Context, scope, email string) error {
	delete(m.pending, scope+email)
	return nil
}

func (m *memCodes) Consume(_ context.Context, scope, email, code string) error {
	if c, ok := m.confirmed[scope+email]; !ok || c != code {
		return redis.ErrCodeMismatch
	}
	delete(m.confirmed, scope+email)
	return nil
}

type userFixture struct {
	db       *gorm.DB
	sessions *memSessions
	codes    *memCodes
	mailer   *fakeMailer
	store    *memStore
	users    *UserService
	admin    *AdminService
	invites  *InvitationService
}

func newUserFixture(t *testing.T) *userFixture {
	db := testutil.NewDB(t)
	f := &userFixture{
		db:       db,
		sessions: &memSessions{tokens: map[uint64]string{}},
		codes:    newMemCodes(),
		mailer:   &fakeMailer{enabled: true},
		store:    newMemStore(),
	}
	issuer := pkg.NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	notifier := NewNotificationService(db, nil)
	f.users = NewUserService(db, issuer, f.sessions, f.codes, f.mailer, f.store, notifier)
	f.admin = NewAdminService(db, f.store, f.sessions)
	f.invites = NewInvitationService(db, f.mailer, "http://localhost:3000")
	return f
}

func TestSignupLoginFlow(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	u, err := f.users.Signup(ctx, SignupInput{Name: " Jane Smith ", Email: " Jane@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, model.RolePending, u.Role)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, "Jane Smith", u.Name)

	_, err = f.users.Signup(ctx, SignupInput{Name: "Dup", Email: "jane@example.com", Password: "password1"})
	assert.Equal(t, pkg.KindConflict, kindOf(err))
	_, err = f.users.Signup(ctx, SignupInput{Name: "Short", Email: "s@example.com", Password: "short"})
	assert.Equal(t, pkg.KindValidation, kindOf(err))

	_, _, err = f.users.Login(ctx, "jane@example.com", "wrong-password")
	assert.Equal(t, pkg.KindUnauthenticated, kindOf(err))
	_, _, err = f.users.Login(ctx, "nobody@example.com", "password1")
	assert.Equal(t, pkg.KindUnauthenticated, kindOf(err))

	pair, logged, err := f.users.Login(ctx, "JANE@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.Equal(t, pair.AccessToken, f.sessions.tokens[u.ID])

	refreshed, err := f.users.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, refreshed.AccessToken, f.sessions.tokens[u.ID])
	_, err = f.users.Refresh(ctx, pair.AccessToken)
	assert.Equal(t, pkg.KindUnauthenticated, kindOf(err))

	require.NoError(t, f.users.Logout(ctx, u.ID))
	assert.Empty(t, f.sessions.tokens)

	require.NoError(t, f.db.Model(u).Update("role", model.RoleInactive).Error)
	_, _, err = f.users.Login(ctx, "jane@example.com", "password1")
	assert.Equal(t, pkg.KindForbidden, kindOf(err))
}

func TestPasswordReset(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	_, err := f.users.Signup(ctx, SignupInput{Name: "Jane", Email: "jane@example.com", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, f.users.SendResetCode(ctx, "nobody@example.com"))
	assert.Empty(t, f.mailer.sent)

	require.NoError(t, f.users.SendResetCode(ctx, "Jane@example.com"))
	assert.Equal(t, []string{"jane@example.com"}, f.mailer.sent)
	code := f.codes.confirmed[resetScope+"jane@example.com"]
	require.Len(t, code, 6)

	err = f.users.ResetPassword(ctx, "jane@example.com", "000000x", "newpassword")
	assert.Equal(t, pkg.KindValidation, kindOf(err))

	require.NoError(t, f.users.ResetPassword(ctx, "jane@example.com", code, "newpassword"))
	_, _, err = f.users.Login(ctx, "jane@example.com", "newpassword")
	require.NoError(t, err)

	// 验证码只能使用一次
	err = f.users.ResetPassword(ctx, "jane@example.com", code, "another-one")
	assert.Equal(t, pkg.KindValidation, kindOf(err))

	f.mailer.enabled = false
	assert.Equal(t, pkg.KindUnavailable, kindOf(f.users.SendResetCode(ctx, "jane@example.com")))
}

func TestProfileAndAvatar(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, f.db, "Jane Smith", model.RoleNurse)

	title, bio := " RN ", "nights"
	areas := []string{" cardiology ", "", "icu"}
	got, err := f.users.UpdateProfile(ctx, u.ID, ProfileUpdate{Title: &title, Bio: &bio, ExpertiseAreas: &areas})
	require.NoError(t, err)
	assert.Equal(t, "RN", got.Title)
	assert.Equal(t, []string{"cardiology", "icu"}, []string(got.ExpertiseAreas))
	assert.Equal(t, 50, got.ProfileCompletion())

	empty := " "
	_, err = f.users.UpdateProfile(ctx, u.ID, ProfileUpdate{Name: &empty})
	assert.Equal(t, pkg.KindValidation, kindOf(err))

	got, err = f.users.UploadAvatar(ctx, u.ID, strings.NewReader("a"), "me.png")
	require.NoError(t, err)
	first := got.AvatarURL
	got, err = f.users.UploadAvatar(ctx, u.ID, strings.NewReader("b"), "me2.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/me2.jpg", got.AvatarURL)
	assert.Equal(t, []string{first}, f.store.deleted)

	_, err = f.users.UploadAvatar(ctx, u.ID, strings.NewReader("c"), "cv.pdf")
	assert.Equal(t, pkg.KindValidation, kindOf(err))
}

func TestChangePassword(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u, err := f.users.Signup(ctx, SignupInput{Name: "Jane", Email: "jane@example.com", Password: "password1"})
	require.NoError(t, err)

	assert.Equal(t, pkg.KindValidation, kindOf(f.users.ChangePassword(ctx, u.ID, "nope", "password2")))
	require.NoError(t, f.users.ChangePassword(ctx, u.ID, "password1", "password2"))
	_, _, err = f.users.Login(ctx, "jane@example.com", "password2")
	assert.NoError(t, err)
}

func TestAdminUserManagement(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	admin := testutil.SeedUser(t, f.db, "Ada Admin", model.RoleAdmin)
	pending := testutil.SeedUser(t, f.db, "Pat Pending", model.RolePending)
	second := testutil.SeedUser(t, f.db, "Sam Second", model.RolePending)

	list, err := f.admin.ListPendingUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	u, err := f.admin.ApproveUser(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleNurse, u.Role)
	_, err = f.admin.ApproveUser(ctx, pending.ID)
	assert.Equal(t, pkg.KindNotFound, kindOf(err))

	// 只有 PENDING 可以改角色
	_, err = f.admin.UpdateRole(ctx, pending.ID, "ADMIN")
	assert.Equal(t, pkg.KindValidation, kindOf(err))
	_, err = f.admin.UpdateRole(ctx, second.ID, "ruler")
	assert.Equal(t, pkg.KindValidation, kindOf(err))
	f.sessions.tokens[second.ID] = "stale"
	u, err = f.admin.UpdateRole(ctx, second.ID, "inactive")
	require.NoError(t, err)
	assert.Equal(t, model.RoleInactive, u.Role)
	assert.NotContains(t, f.sessions.tokens, second.ID)

	u, err = f.admin.SetExpertise(ctx, pending.ID, "expert")
	require.NoError(t, err)
	assert.Equal(t, model.ExpertiseExpert, u.ExpertiseLevel)
	_, err = f.admin.SetExpertise(ctx, pending.ID, "guru")
	assert.Equal(t, pkg.KindValidation, kindOf(err))

	assert.Equal(t, pkg.KindValidation, kindOf(f.admin.DeleteUser(ctx, admin.ID, admin.ID)))
	assert.Equal(t, pkg.KindNotFound, kindOf(f.admin.DeleteUser(ctx, admin.ID, 9999)))
}

func TestAdminDeleteUserCascades(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	admin := testutil.SeedUser(t, f.db, "Ada Admin", model.RoleAdmin)
	victim := testutil.SeedUser(t, f.db, "Vic Victim", model.RoleNurse)
	author := testutil.SeedUser(t, f.db, "Ava Author", model.RoleNurse)

	posts := NewPostService(f.db, f.store)
	comments := NewCommentService(f.db, nil)
	reactions := NewReactionService(f.db, nil)
	analytics := NewAnalyticsService(f.db)

	own, err := posts.CreatePost(ctx, CreatePostInput{
		AuthorID: victim.ID, Text: "mine", DisplayNamePreference: "FullName",
		Media: strings.NewReader("x"), MediaName: "pic.png",
	})
	require.NoError(t, err)
	theirs, err := posts.CreatePost(ctx, CreatePostInput{AuthorID: author.ID, Text: "theirs", DisplayNamePreference: "FullName"})
	require.NoError(t, err)
	c, err := comments.AddComment(ctx, theirs.ID, victim.ID, "hi", nil)
	require.NoError(t, err)
	_, err = comments.AddComment(ctx, theirs.ID, author.ID, "reply", &c.ID)
	require.NoError(t, err)
	_, err = reactions.ToggleCommentReaction(ctx, c.ID, author.ID, "UPVOTE")
	require.NoError(t, err)

	require.NoError(t, f.admin.DeleteUser(ctx, admin.ID, victim.ID))
	assert.Contains(t, f.store.deleted, own.MediaURL)

	var n int64
	require.NoError(t, f.db.Model(&model.Post{}).Where("author_id = ?", victim.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, f.db.Model(&model.Comment{}).Where("post_id = ?", theirs.ID).Count(&n).Error)
	assert.Zero(t, n)

	a, err := analytics.Get(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Zero(t, a.TotalComments)
	assert.Zero(t, a.TotalReplies)
	assert.Zero(t, a.TotalUpvotes)
}

func TestInvitationFlow(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	inviter := testutil.SeedUser(t, f.db, "Ina Inviter", model.RoleNurse)

	inv, err := f.invites.Create(ctx, inviter.ID, " New@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", inv.InviteeEmail)
	assert.Equal(t, "PENDING", inv.Status)
	assert.Equal(t, []string{"new@example.com"}, f.mailer.sent)

	_, err = f.invites.Create(ctx, inviter.ID, "new@example.com")
	assert.Equal(t, pkg.KindConflict, kindOf(err))
	_, err = f.invites.Create(ctx, inviter.ID, inviter.Email)
	assert.Equal(t, pkg.KindConflict, kindOf(err))

	var token string
	require.NoError(t, f.db.Model(&model.Invitation{}).Where("id = ?", inv.ID).Pluck("token", &token).Error)

	check, err := f.invites.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", check.Email)
	assert.Equal(t, "Ina Inviter", check.InviterName)
	_, err = f.invites.Validate(ctx, "bogus")
	assert.Equal(t, pkg.KindNotFound, kindOf(err))

	// 邀请码与邮箱不匹配
	_, err = f.users.Signup(ctx, SignupInput{Name: "X", Email: "x@example.com", Password: "password1", InvitationToken: token})
	assert.Equal(t, pkg.KindValidation, kindOf(err))

	u, err := f.users.Signup(ctx, SignupInput{Name: "Newbie", Email: "new@example.com", Password: "password1", InvitationToken: token})
	require.NoError(t, err)
	require.NotNil(t, u.InvitedByUserID)
	assert.Equal(t, inviter.ID, *u.InvitedByUserID)

	var notes []model.Notification
	require.NoError(t, f.db.Where("user_id = ?", inviter.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifyInvitationAccepted, notes[0].Type)

	_, err = f.invites.Validate(ctx, token)
	assert.Equal(t, pkg.KindNotFound, kindOf(err))

	// 已接受的邀请码不能再次注册，即使邮箱重新可用
	require.NoError(t, f.db.Unscoped().Delete(&model.User{}, u.ID).Error)
	_, err = f.users.Signup(ctx, SignupInput{Name: "Again", Email: "new@example.com", Password: "password1", InvitationToken: token})
	assert.Equal(t, pkg.KindValidation, kindOf(err))

	_, err = f.invites.Create(ctx, inviter.ID, "other@example.com")
	require.NoError(t, err)
	stats, err := f.invites.Stats(ctx, inviter.ID)
	require.NoError(t, err)
	assert.Equal(t, InvitationStats{PendingInvitations: 1, AcceptedInvitations: 1, TotalInvitations: 2}, *stats)

	sent, err := f.invites.ListSent(ctx, inviter.ID)
	require.NoError(t, err)
	assert.Len(t, sent, 2)
}
