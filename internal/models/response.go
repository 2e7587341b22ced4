package models

// ErrorResponse - тело ответа при ошибке.
type ErrorResponse struct {
	Error string `json:"error"`
}
