package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PulseLoop/internal/config"
	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers map[uint64]*model.User

func (s stubUsers) GetProfile(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, pkg.NotFound("user not found")
}

type stubSessions map[uint64]string

func (s stubSessions) Save(_ context.Context, id uint64, tok string) error { s[id] = tok; return nil }
func (s stubSessions) Get(_ context.Context, id uint64) (string, error)    { return s[id], nil }
func (s stubSessions) Extend(context.Context, uint64) error                { return nil }
func (s stubSessions) Delete(_ context.Context, id uint64) error           { delete(s, id); return nil }

func newEngine(a *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(), RateLimit(config.RateLimitConfig{Enabled: true}, nil))
	r.GET("/me", a.Required(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "role": Role(c)})
	})
	r.GET("/admin", a.Required(), RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/feed", a.Optional(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c)})
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticator(t *testing.T) {
	issuer := pkg.NewTokenIssuer("a", "r", time.Minute, time.Hour)
	users := stubUsers{
		1: {ID: 1, Role: model.RoleNurse},
		2: {ID: 2, Role: model.RoleAdmin},
	}
	sessions := stubSessions{}
	r := newEngine(&Authenticator{Issuer: issuer, Sessions: sessions, Users: users})

	nurse, err := issuer.GeneratePair(1, "NURSE")
	require.NoError(t, err)
	admin, err := issuer.GeneratePair(2, "ADMIN")
	require.NoError(t, err)
	ghost, err := issuer.GeneratePair(3, "NURSE")
	require.NoError(t, err)
	sessions[1], sessions[2], sessions[3] = nurse.AccessToken, admin.AccessToken, ghost.AccessToken

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", nurse.RefreshToken).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", ghost.AccessToken).Code)

	w := do(r, "/me", nurse.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"role":"NURSE"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = do(r, "/me?token="+nurse.AccessToken, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, "/admin", nurse.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, w.Body.String())
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", admin.AccessToken).Code)

	// 新登录挤掉旧 token
	again, err := issuer.GeneratePair(1, "NURSE")
	require.NoError(t, err)
	sessions[1] = again.AccessToken + "-other"
	w = do(r, "/me", nurse.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "logging elsewhere")

	w = do(r, "/feed", "")
	assert.JSONEq(t, `{"id":0}`, w.Body.String())
	w = do(r, "/feed", admin.AccessToken)
	assert.JSONEq(t, `{"id":2}`, w.Body.String())
}

func TestAuthenticatorRejectsInactive(t *testing.T) {
	issuer := pkg.NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	users := stubUsers{
		4: {ID: 4, Name: "Ina", Role: model.RoleInactive},
	}
	// 未配置 redis 时只靠签名校验，停用必须在这里拦住
	r := newEngine(&Authenticator{Issuer: issuer, Users: users})

	pair, err := issuer.GeneratePair(4, "NURSE")
	require.NoError(t, err)

	w := do(r, "/me", pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "inactive")

	w = do(r, "/feed", pair.AccessToken)
	assert.JSONEq(t, `{"id":0}`, w.Body.String())
}
