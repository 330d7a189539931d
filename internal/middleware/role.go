package middleware

import (
	"net/http"

	"PulseLoop/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// RequireRole 必须挂在 Authenticator.Required 之后
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !lo.Contains(roles, Role(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
