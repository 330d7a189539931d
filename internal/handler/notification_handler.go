package handler

import (
	"net/http"

	"PulseLoop/internal/middleware"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/realtime"
	"PulseLoop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type NotificationHandler struct {
	svc *service.NotificationService
	hub *realtime.Hub
}

func NewNotificationHandler(svc *service.NotificationService, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{svc: svc, hub: hub}
}

func (h *NotificationHandler) List(c *gin.Context) {
	page, err := h.svc.List(c.Request.Context(), middleware.UserID(c),
		queryInt(c, "page"), queryInt(c, "limit"), c.Query("unread_only") == "true")
	if err != nil {
		fail(c, err, "list notifications failed")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "count notifications failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		fail(c, err, "mark notification failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read", "notification": n})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "mark notifications failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}

// Socket 升级为 websocket，阻塞到连接关闭
func (h *NotificationHandler) Socket(c *gin.Context) {
	userID := middleware.UserID(c)
	if err := h.hub.Accept(c.Writer, c.Request, userID); err != nil {
		pkg.Log.WithFields(logrus.Fields{"user_id": userID, "err": err}).Warn("websocket upgrade failed")
	}
}
