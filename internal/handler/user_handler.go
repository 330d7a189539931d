package handler

import (
	"net/http"

	"PulseLoop/internal/middleware"
	"PulseLoop/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *service.UserService
}

// SignupReq 注册请求体
type SignupReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	InvitationToken string `json:"invitationToken"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetReq 忘记密码请求体
type ResetReq struct {
	Email       string `json:"email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type ProfileReq struct {
	Name             *string   `json:"name"`
	Title            *string   `json:"title"`
	Department       *string   `json:"department"`
	State            *string   `json:"state"`
	Bio              *string   `json:"bio"`
	ExpertiseAreas   *[]string `json:"expertiseAreas"`
	NewsletterOptOut *bool     `json:"newsletterOptOut"`
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Signup 注册接口
func (h *UserHandler) Signup(c *gin.Context) {
	var req SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	user, err := h.svc.Signup(c.Request.Context(), service.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		InvitationToken: req.InvitationToken,
	})
	if err != nil {
		fail(c, err, "signup failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Signup successful. Your account is pending admin approval.",
		"user":    toUserView(user),
	})
}

// Login 登录接口
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	pair, user, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err, "login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         toUserView(user),
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.UserID(c)); err != nil {
		fail(c, err, "logout failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// TokenRefresh 刷新 token 接口
func (h *UserHandler) TokenRefresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		badRequest(c, "refreshToken is required")
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err, "refresh failed")
		return
	}
	c.JSON(http.StatusOK, pair)
}

// SendResetCode 发送重置密码验证码，邮箱是否注册都返回相同结果
func (h *UserHandler) SendResetCode(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.svc.SendResetCode(c.Request.Context(), req.Email); err != nil {
		fail(c, err, "send code failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a reset code has been sent"})
}

// ResetPassword 忘记密码接口
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req ResetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		fail(c, err, "reset password failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset"})
}

// ChangePassword 修改密码接口
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), middleware.UserID(c), req.OldPassword, req.NewPassword); err != nil {
		fail(c, err, "change password failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed, please login again"})
}

func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.svc.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "load profile failed")
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req ProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	user, err := h.svc.UpdateProfile(c.Request.Context(), middleware.UserID(c), service.ProfileUpdate{
		Name:             req.Name,
		Title:            req.Title,
		Department:       req.Department,
		State:            req.State,
		Bio:              req.Bio,
		ExpertiseAreas:   req.ExpertiseAreas,
		NewsletterOptOut: req.NewsletterOptOut,
	})
	if err != nil {
		fail(c, err, "update profile failed")
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

// UploadAvatar multipart 字段名 avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		badRequest(c, "avatar file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err, "read upload failed")
		return
	}
	defer f.Close()

	user, err := h.svc.UploadAvatar(c.Request.Context(), middleware.UserID(c), f, fh.Filename)
	if err != nil {
		fail(c, err, "upload avatar failed")
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}
