package handler

import (
	"net/http"

	"PulseLoop/internal/middleware"
	"PulseLoop/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	svc *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) PendingUsers(c *gin.Context) {
	list, err := h.svc.ListPendingUsers(c.Request.Context())
	if err != nil {
		fail(c, err, "list users failed")
		return
	}
	c.JSON(http.StatusOK, toUserViews(list))
}

func (h *AdminHandler) Users(c *gin.Context) {
	list, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err, "list users failed")
		return
	}
	c.JSON(http.StatusOK, toUserViews(list))
}

func (h *AdminHandler) ApproveUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.ApproveUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "approve user failed")
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

func (h *AdminHandler) UpdateRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	user, err := h.svc.UpdateRole(c.Request.Context(), id, req.Role)
	if err != nil {
		fail(c, err, "update role failed")
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

func (h *AdminHandler) SetExpertise(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ExpertiseLevel string `json:"expertiseLevel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	user, err := h.svc.SetExpertise(c.Request.Context(), id, req.ExpertiseLevel)
	if err != nil {
		fail(c, err, "update expertise failed")
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), middleware.UserID(c), id); err != nil {
		fail(c, err, "delete user failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
