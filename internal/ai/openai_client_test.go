package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"artstory-server/internal/config"
	"artstory-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		AIClientType:     "openai",
		AIAPIKey:         "sk-test",
		AIBaseURL:        baseURL,
		AIModel:          "gpt-4o",
		AITimeout:        5 * time.Second,
		AIRateLimitRPS:   100,
		AIRateLimitBurst: 10,
	}
}

func TestOpenAIClient_ChatWithImage(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1", "object": "chat.completion", "model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"style\":\"oil\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128}
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	text, usage, err := client.Chat(context.Background(), ChatRequest{
		Operation:    OperationAnalysis,
		SystemPrompt: "You are an art critic.",
		UserPrompt:   "Please analyze this artwork:",
		Image:        &Image{MIMEType: "image/png", Data: []byte{0x89, 0x50}},
		JSONMode:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"style":"oil"}`, text)
	assert.Equal(t, 128, usage.TotalTokens)
	assert.False(t, usage.Estimated)

	assert.Equal(t, "gpt-4o", captured["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, captured["response_format"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	assert.Equal(t, "data:image/png;base64,iVA=", imagePart["image_url"].(map[string]any)["url"])
}

func TestOpenAIClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit", "type": "requests"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, _, err = client.Chat(context.Background(), ChatRequest{SystemPrompt: "s", UserPrompt: "u"})
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestOpenAIClient_EmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, _, err = client.Chat(context.Background(), ChatRequest{SystemPrompt: "s", UserPrompt: "u"})
	assert.ErrorIs(t, err, models.ErrUpstream)

	_, _, err = client.Chat(context.Background(), ChatRequest{UserPrompt: "u"})
	assert.ErrorIs(t, err, models.ErrUpstream, "empty system prompt is rejected before the call")
}

func TestNewClient_UnknownType(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.AIClientType = "bard"
	_, err := NewClient(cfg, zap.NewNop())
	assert.Error(t, err)
}
