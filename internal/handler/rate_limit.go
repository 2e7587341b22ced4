package handler

import (
	"fmt"
	"net/http"
	"time"

	"artstory-server/internal/models"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// NewRateLimiter ограничивает число запросов с одного IP в минуту.
// Без Redis счётчики хранятся в памяти процесса.
func NewRateLimiter(redisClient *redis.Client, perMinute uint) gin.HandlerFunc {
	options := &rateli.Options{
		ErrorHandler: RateLimitExceeded,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
	if redisClient != nil {
		return rateli.RateLimiter(rateli.RedisStore(&rateli.RedisOptions{
			RedisClient: redisClient,
			Rate:        time.Minute,
			Limit:       perMinute,
		}), options)
	}
	return rateli.RateLimiter(rateli.InMemoryStore(&rateli.InMemoryOptions{
		Rate:  time.Minute,
		Limit: perMinute,
	}), options)
}

// RateLimitExceeded отвечает 429 в общем формате ошибок.
func RateLimitExceeded(c *gin.Context, info rateli.Info) {
	rateLimitedRequestsTotal.WithLabelValues(c.FullPath()).Inc()
	retryAfter := time.Until(info.ResetTime).Round(time.Second)
	if retryAfter < 0 {
		retryAfter = 0
	}
	c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
		Error: "Too many requests. Try again in " + retryAfter.String(),
	})
}
