package handler

import (
	"net/http"

	"PulseLoop/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req struct {
		Message string             `json:"message"`
		History []service.ChatTurn `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	reply, err := h.svc.Chat(c.Request.Context(), req.Message, req.History)
	if err != nil {
		fail(c, err, "Failed to get response from AI")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
