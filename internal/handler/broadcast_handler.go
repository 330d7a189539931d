package handler

import (
	"net/http"

	"PulseLoop/internal/middleware"
	"PulseLoop/internal/service"

	"github.com/gin-gonic/gin"
)

type BroadcastHandler struct {
	svc *service.BroadcastService
}

type BroadcastReq struct {
	Title    *string `json:"title"`
	Message  *string `json:"message"`
	IsActive *bool   `json:"isActive"`
}

func NewBroadcastHandler(svc *service.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{svc: svc}
}

// Active 公开接口，没有生效公告时 message 为 null
func (h *BroadcastHandler) Active(c *gin.Context) {
	msg, err := h.svc.Active(c.Request.Context())
	if err != nil {
		fail(c, err, "load broadcast failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *BroadcastHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		fail(c, err, "list broadcasts failed")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *BroadcastHandler) Create(c *gin.Context) {
	var req BroadcastReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == nil || req.Message == nil {
		badRequest(c, "title and message are required")
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	msg, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), *req.Title, *req.Message, active)
	if err != nil {
		fail(c, err, "create broadcast failed")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *BroadcastHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req BroadcastReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	msg, err := h.svc.Update(c.Request.Context(), id, service.BroadcastUpdate{
		Title: req.Title, Message: req.Message, IsActive: req.IsActive,
	})
	if err != nil {
		fail(c, err, "update broadcast failed")
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *BroadcastHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		fail(c, err, "delete broadcast failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Broadcast message deleted"})
}
