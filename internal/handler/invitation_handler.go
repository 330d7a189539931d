package handler

import (
	"net/http"

	"PulseLoop/internal/middleware"
	"PulseLoop/internal/service"

	"github.com/gin-gonic/gin"
)

type InvitationHandler struct {
	svc *service.InvitationService
}

func NewInvitationHandler(svc *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{svc: svc}
}

// Create 发送邀请接口
func (h *InvitationHandler) Create(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	inv, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req.Email)
	if err != nil {
		fail(c, err, "create invitation failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Invitation sent successfully", "invitation": inv})
}

// Validate 公开接口，注册页用来预填邮箱
func (h *InvitationHandler) Validate(c *gin.Context) {
	check, err := h.svc.Validate(c.Request.Context(), c.Param("token"))
	if err != nil {
		fail(c, err, "validate invitation failed")
		return
	}
	c.JSON(http.StatusOK, check)
}

func (h *InvitationHandler) ListSent(c *gin.Context) {
	list, err := h.svc.ListSent(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "list invitations failed")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *InvitationHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "load invitation stats failed")
		return
	}
	c.JSON(http.StatusOK, st)
}
