package models

import (
	"errors"
	"fmt"
)

// Общие ошибки сервиса. Хендлеры классифицируют их через errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("record not found")
	ErrProtectedDefault  = errors.New("default record cannot be deleted")
	ErrFetchFailed       = errors.New("failed to fetch image")
	ErrUpstream          = errors.New("upstream model call failed")
	ErrUpstreamParse     = errors.New("failed to parse upstream model reply")
	ErrSegmentGeneration = errors.New("failed to generate story segment")
	ErrMissingField      = errors.New("required field is missing")
	ErrSessionCompleted  = errors.New("story session is completed")
	ErrConflict          = errors.New("conflicting concurrent update")
)

// FetchError описывает неудачную загрузку изображения.
type FetchError struct {
	URL        string
	StatusCode int // 0, если ответа не было
	Message    string
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch image from %s: status %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("failed to fetch image from %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return ErrFetchFailed
}
