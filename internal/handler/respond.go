package handler

import (
	"strconv"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// fail 统一错误出口；内部错误只返回 fallback，真实原因写日志
func fail(c *gin.Context, err error, fallback string) {
	kind := pkg.KindOf(err)
	if kind == pkg.KindInternal {
		pkg.Log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"err":    err,
		}).Error(fallback)
	}
	c.AbortWithStatusJSON(kind.HTTPStatus(), gin.H{"error": pkg.PublicMessage(err, fallback)})
}

func badRequest(c *gin.Context, msg string) {
	fail(c, pkg.Validation(msg), msg)
}

// pathID 解析路径上的数字 id
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

// UserView 对外的用户资料，不含密码
type UserView struct {
	ID                uint64    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	AvatarURL         string    `json:"avatarUrl"`
	Title             string    `json:"title"`
	Department        string    `json:"department"`
	State             string    `json:"state"`
	Bio               string    `json:"bio"`
	ExpertiseLevel    string    `json:"expertiseLevel"`
	ExpertiseAreas    []string  `json:"expertiseAreas"`
	NewsletterOptOut  bool      `json:"newsletterOptOut"`
	ProfileCompletion int       `json:"profileCompletion"`
	InvitedByUserID   *uint64   `json:"invitedByUserId"`
	CreatedAt         time.Time `json:"createdAt"`
}

func toUserView(u *model.User) UserView {
	areas := []string(u.ExpertiseAreas)
	if areas == nil {
		areas = []string{}
	}
	return UserView{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              string(u.Role),
		AvatarURL:         u.AvatarURL,
		Title:             u.Title,
		Department:        u.Department,
		State:             u.State,
		Bio:               u.Bio,
		ExpertiseLevel:    string(u.ExpertiseLevel),
		ExpertiseAreas:    areas,
		NewsletterOptOut:  u.NewsletterOptOut,
		ProfileCompletion: u.ProfileCompletion(),
		InvitedByUserID:   u.InvitedByUserID,
		CreatedAt:         u.CreatedAt,
	}
}

func toUserViews(list []model.User) []UserView {
	out := make([]UserView, 0, len(list))
	for i := range list {
		out = append(out, toUserView(&list[i]))
	}
	return out
}
