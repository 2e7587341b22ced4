package ai

import (
	"context"
	"fmt"

	"artstory-server/internal/models"

	"golang.org/x/time/rate"
)

// rateLimitedClient ограничивает частоту исходящих вызовов модели.
// Лимитер ждёт свободный токен и никогда не повторяет вызов.
type rateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

func NewRateLimitedClient(next Client, rps float64, burst int) Client {
	return &rateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *rateLimitedClient) Chat(ctx context.Context, req ChatRequest) (string, Usage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		aiRequestsTotal.WithLabelValues("", operationLabel(req.Operation), "rate_limited").Inc()
		return "", Usage{}, fmt.Errorf("%w: rate limiter: %v", models.ErrUpstream, err)
	}
	return c.next.Chat(ctx, req)
}
