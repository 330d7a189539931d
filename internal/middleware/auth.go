package middleware

import (
	"context"
	"net/http"
	"strings"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// UserLookup 鉴权时确认用户仍然存在，角色以数据库为准
type UserLookup interface {
	GetProfile(ctx context.Context, userID uint64) (*model.User, error)
}

type Authenticator struct {
	Issuer   *pkg.TokenIssuer
	Sessions service.SessionStore // 未配置 redis 时为 nil，只校验签名
	Users    UserLookup
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		// websocket 握手无法带 header
		return c.Query("token")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Required 必须登录
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}
		if status, msg := a.authenticate(c, tokenStr); status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Next()
	}
}

// Optional 带了合法 token 时注入用户，否则按游客处理
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := bearerToken(c); tokenStr != "" {
			_, _ = a.authenticate(c, tokenStr)
		}
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context, tokenStr string) (int, string) {
	ctx := c.Request.Context()
	claims, err := a.Issuer.ParseAccess(tokenStr)
	if err != nil {
		return http.StatusUnauthorized, "invalid or expired token"
	}

	// redis校验是否是正确的token
	if a.Sessions != nil {
		origin, err := a.Sessions.Get(ctx, claims.UserID)
		if err != nil || origin != tokenStr {
			return http.StatusUnauthorized, "Account has been logging elsewhere"
		}
		// 校验通过后更新过期时间
		if err = a.Sessions.Extend(ctx, claims.UserID); err != nil {
			pkg.Log.WithFields(logrus.Fields{"user_id": claims.UserID, "err": err}).Warn("extend session failed")
		}
	}

	user, err := a.Users.GetProfile(ctx, claims.UserID)
	if err != nil {
		if pkg.KindOf(err) == pkg.KindNotFound {
			return http.StatusUnauthorized, "user no longer exists"
		}
		pkg.Log.WithError(err).Error("load user for auth failed")
		return http.StatusInternalServerError, "internal server error"
	}

	// 被停用的账号即使 token 未过期也不能继续访问
	if user.Role == model.RoleInactive {
		return http.StatusForbidden, "account is inactive"
	}

	c.Set(ContextUserIDKey, user.ID)
	c.Set(ContextRoleKey, user.Role)
	return 0, ""
}

// UserID 未登录时返回 0
func UserID(c *gin.Context) uint64 {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(uint64); ok {
			return id
		}
	}
	return 0
}

func Role(c *gin.Context) model.Role {
	if v, ok := c.Get(ContextRoleKey); ok {
		if r, ok := v.(model.Role); ok {
			return r
		}
	}
	return ""
}
