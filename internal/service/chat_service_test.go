package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"PulseLoop/internal/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatForwardsHistory(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hydrate and rest."}}]}`))
	}))
	defer srv.Close()

	svc := NewChatService(ChatConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})
	reply, err := svc.Chat(context.Background(), "tips for night shift?", []ChatTurn{
		{Sender: "USER", Text: "hi"},
		{Sender: "AI", Text: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hydrate and rest.", reply)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, chatMessage{Role: "user", Content: "tips for night shift?"}, got.Messages[3])
}

func TestChatErrors(t *testing.T) {
	_, err := NewChatService(ChatConfig{}).Chat(context.Background(), "hi", nil)
	assert.Equal(t, pkg.KindUnavailable, kindOf(err))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	svc := NewChatService(ChatConfig{APIKey: "k", BaseURL: srv.URL})

	_, err = svc.Chat(context.Background(), "  ", nil)
	assert.Equal(t, pkg.KindValidation, kindOf(err))
	_, err = svc.Chat(context.Background(), "hi", nil)
	assert.Error(t, err)
	assert.Equal(t, pkg.KindInternal, kindOf(err))
}
