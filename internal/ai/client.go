package ai

import (
	"context"
	"fmt"
	"strings"

	"artstory-server/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artstory_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "operation", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artstory_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"model", "operation"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artstory_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model", "operation"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artstory_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"model", "operation"},
	)
)

// Операции - значения метки operation.
const (
	OperationAnalysis = "analysis"
	OperationStory    = "story"
	OperationSegment  = "segment"
)

// Image - изображение для vision-модели.
type Image struct {
	MIMEType string
	Data     []byte
}

// ChatRequest - один запрос к модели: системный промт, пользовательский ввод и, опционально, изображение.
type ChatRequest struct {
	Operation    string
	SystemPrompt string
	UserPrompt   string
	Image        *Image
	// JSONMode просит модель ответить JSON-объектом.
	JSONMode    bool
	Temperature *float64
}

// Usage - расход токенов. Estimated=true, если провайдер не вернул usage и он посчитан локально.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool
}

// Client - провайдер-независимый клиент языковой модели.
// Все ошибки вызова оборачивают models.ErrUpstream.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (string, Usage, error)
}

// NewClient создаёт клиент по AI_CLIENT_TYPE и оборачивает его лимитером.
func NewClient(cfg *config.Config, logger *zap.Logger) (Client, error) {
	var inner Client
	switch strings.ToLower(cfg.AIClientType) {
	case "openai":
		logger.Info("Using AI client implementation: OpenAI",
			zap.String("baseURL", cfg.AIBaseURL), zap.String("model", cfg.AIModel), zap.Duration("timeout", cfg.AITimeout))
		inner = newOpenAIClient(cfg, logger)
	case "ollama":
		logger.Info("Using AI client implementation: Ollama",
			zap.String("baseURL", cfg.AIBaseURL), zap.String("model", cfg.AIModel), zap.Duration("timeout", cfg.AITimeout))
		c, err := newOllamaClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		inner = c
	default:
		return nil, fmt.Errorf("unknown AI client type: '%s'", cfg.AIClientType)
	}
	return NewRateLimitedClient(inner, cfg.AIRateLimitRPS, cfg.AIRateLimitBurst), nil
}

func observeUsage(model, operation string, usage Usage) {
	if usage.TotalTokens == 0 {
		return
	}
	labels := prometheus.Labels{"model": model, "operation": operation}
	aiPromptTokens.With(labels).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.With(labels).Observe(float64(usage.CompletionTokens))
}

func operationLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
