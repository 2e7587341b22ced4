package handler

import (
	"errors"
	"net/http"

	"artstory-server/internal/middleware"
	"artstory-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError переводит ошибку сервиса в HTTP-ответ {error: message}.
func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	message := err.Error()

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, models.ErrProtectedDefault),
		errors.Is(err, models.ErrSessionCompleted),
		errors.Is(err, models.ErrConflict):
		statusCode = http.StatusConflict
	case errors.Is(err, models.ErrFetchFailed),
		errors.Is(err, models.ErrUpstream),
		errors.Is(err, models.ErrUpstreamParse),
		errors.Is(err, models.ErrSegmentGeneration):
		statusCode = http.StatusBadGateway
	case errors.Is(err, models.ErrMissingField):
		statusCode = http.StatusInternalServerError
	default:
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal error occurred"
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", statusCode),
		zap.String("path", c.FullPath()),
		zap.String("request_id", middleware.RequestID(c)),
	}
	if statusCode >= http.StatusInternalServerError {
		zap.L().Error("Request failed", fields...)
	} else {
		zap.L().Warn("Request rejected", fields...)
	}

	c.AbortWithStatusJSON(statusCode, models.ErrorResponse{Error: message})
}

// badRequest - ошибка разбора запроса до вызова сервиса.
func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: message})
}
