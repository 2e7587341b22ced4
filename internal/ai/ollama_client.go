package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"artstory-server/internal/config"
	"artstory-server/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ollamaClient - реализация Client поверх нативного API Ollama.
type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newOllamaClient(cfg *config.Config, logger *zap.Logger) (*ollamaClient, error) {
	baseURL := strings.TrimSuffix(cfg.AIBaseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL '%s': %w", baseURL, err)
	}

	return &ollamaClient{
		client:  api.NewClient(parsedURL, &http.Client{Timeout: cfg.AITimeout}),
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
		logger:  logger.Named("OllamaClient"),
	}, nil
}

func (c *ollamaClient) Chat(ctx context.Context, req ChatRequest) (string, Usage, error) {
	op := operationLabel(req.Operation)
	if strings.TrimSpace(req.SystemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "operation": op, "status": "error"}).Inc()
		return "", Usage{}, fmt.Errorf("%w: system prompt is empty", models.ErrUpstream)
	}

	user := api.Message{Role: "user", Content: req.UserPrompt}
	if req.Image != nil {
		user.Images = []api.ImageData{req.Image.Data}
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    c.model,
		Messages: []api.Message{{Role: "system", Content: req.SystemPrompt}, user},
		Stream:   &stream,
		Options:  map[string]interface{}{},
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}
	if req.JSONMode {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, chatReq, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("Ollama API timeout", zap.Duration("timeout", c.timeout), zap.String("operation", op))
		} else {
			c.logger.Warn("Ollama API call failed", zap.String("operation", op), zap.Error(err))
		}
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "operation": op, "status": "error"}).Inc()
		return "", Usage{}, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	if resp.Message.Content == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "operation": op, "status": "error_empty_response"}).Inc()
		return "", Usage{}, fmt.Errorf("%w: empty response", models.ErrUpstream)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "operation": op, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model, "operation": op}).Observe(duration.Seconds())

	usage := Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(c.model, req, resp.Message.Content)
	}
	observeUsage(c.model, op, usage)

	return resp.Message.Content, usage, nil
}
