package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"artstory-server/internal/config"
	"artstory-server/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIClient - реализация Client поверх OpenAI-совместимого API.
type openAIClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func newOpenAIClient(cfg *config.Config, logger *zap.Logger) *openAIClient {
	openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
	if cfg.AIBaseURL != "" {
		openaiConfig.BaseURL = cfg.AIBaseURL
	}
	openaiConfig.HTTPClient = &http.Client{Timeout: cfg.AITimeout}

	return &openAIClient{
		client: openaigo.NewClientWithConfig(openaiConfig),
		model:  cfg.AIModel,
		logger: logger.Named("OpenAIClient"),
	}
}

func (c *openAIClient) Chat(ctx context.Context, req ChatRequest) (string, Usage, error) {
	op := operationLabel(req.Operation)
	if strings.TrimSpace(req.SystemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "operation": op, "status": "error"}).Inc()
		return "", Usage{}, fmt.Errorf("%w: system prompt is empty", models.ErrUpstream)
	}

	request := openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: req.SystemPrompt},
			userMessage(req),
		},
	}
	if req.Temperature != nil {
		request.Temperature = float32(*req.Temperature)
	}
	if req.JSONMode {
		request.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	c.logger.Debug("Sending request to AI",
		zap.String("model", c.model),
		zap.String("operation", op),
		zap.Int("systemPromptBytes", len(req.SystemPrompt)),
		zap.Int("userPromptBytes", len(req.UserPrompt)),
		zap.Bool("withImage", req.Image != nil),
	)

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)

	if err != nil {
		status := "error"
		var apiErr *openaigo.APIError
		if errors.As(err, &apiErr) {
			status = fmt.Sprintf("error_%d", apiErr.HTTPStatusCode)
		}
		c.logger.Warn("AI API call failed", zap.String("operation", op), zap.Duration("duration", duration), zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "operation": op, "status": status}).Inc()
		return "", Usage{}, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "operation": op, "status": "error_empty_response"}).Inc()
		return "", Usage{}, fmt.Errorf("%w: empty response", models.ErrUpstream)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "operation": op, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model, "operation": op}).Observe(duration.Seconds())

	text := resp.Choices[0].Message.Content
	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(c.model, req, text)
	}
	observeUsage(c.model, op, usage)

	c.logger.Debug("AI response received",
		zap.String("operation", op),
		zap.Duration("duration", duration),
		zap.Int("replyBytes", len(text)),
		zap.Int("totalTokens", usage.TotalTokens),
		zap.Bool("estimatedUsage", usage.Estimated),
	)
	return text, usage, nil
}

// userMessage собирает сообщение пользователя. С изображением - multi-content с data URL.
func userMessage(req ChatRequest) openaigo.ChatCompletionMessage {
	if req.Image == nil {
		return openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: req.UserPrompt}
	}
	return openaigo.ChatCompletionMessage{
		Role: openaigo.ChatMessageRoleUser,
		MultiContent: []openaigo.ChatMessagePart{
			{Type: openaigo.ChatMessagePartTypeText, Text: req.UserPrompt},
			{
				Type: openaigo.ChatMessagePartTypeImageURL,
				ImageURL: &openaigo.ChatMessageImageURL{
					URL:    DataURL(req.Image),
					Detail: openaigo.ImageURLDetailAuto,
				},
			},
		},
	}
}

// DataURL кодирует изображение в data:<mime>;base64,...
func DataURL(img *Image) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
