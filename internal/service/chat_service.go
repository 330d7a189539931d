package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PulseLoop/internal/pkg"

	"github.com/sirupsen/logrus"
)

const chatSystemPrompt = "You are a helpful AI assistant for nurses and healthcare professionals. Provide concise, accurate, and supportive information."

// ChatTurn 前端的历史消息，sender 为 USER 时视为用户发言
type ChatTurn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type ChatConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ChatService 转发到 OpenAI 兼容的 chat completions 接口
type ChatService struct {
	cfg    ChatConfig
	client *http.Client
}

func NewChatService(cfg ChatConfig) *ChatService {
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ChatService{cfg: cfg, client: &http.Client{Timeout: 60 * time.Second}}
}

func (s *ChatService) Chat(ctx context.Context, message string, history []ChatTurn) (string, error) {
	if s.cfg.APIKey == "" {
		return "", pkg.Unavailable("AI service is not configured on the server")
	}
	if strings.TrimSpace(message) == "" {
		return "", pkg.Validation("message is required")
	}

	msgs := make([]chatMessage, 0, len(history)+2)
	msgs = append(msgs, chatMessage{Role: "system", Content: chatSystemPrompt})
	for _, h := range history {
		role := "assistant"
		if h.Sender == "USER" {
			role = "user"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: h.Text})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: message})

	body, err := json.Marshal(chatRequest{Model: s.cfg.Model, Messages: msgs})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call chat completions: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		pkg.Log.WithFields(logrus.Fields{"status": resp.StatusCode, "body": string(raw)}).Error("chat completions returned error")
		return "", fmt.Errorf("chat completions status %d", resp.StatusCode)
	}
	var out chatResponse
	if err = json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode chat completions: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completions returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
