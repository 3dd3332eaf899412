package domain

import "net/http"

// ErrorCode é a taxonomia plana de erros que atravessa servidor e cliente.
type ErrorCode string

const (
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeAlreadyExists ErrorCode = "EMAIL_ALREADY_EXISTS"
	CodeRateLimited   ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeNetwork       ErrorCode = "NETWORK_ERROR"
	CodeWebhook       ErrorCode = "WEBHOOK_ERROR"
	CodeTimeout       ErrorCode = "TIMEOUT_ERROR"
	CodeServer        ErrorCode = "SERVER_ERROR"
	CodeUnknown       ErrorCode = "UNKNOWN_ERROR"
)

// CodeForStatus classifica o status HTTP de uma resposta do webhook.
func CodeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusConflict:
		return CodeAlreadyExists
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusRequestTimeout:
		return CodeTimeout
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CodeServer
	default:
		return CodeUnknown
	}
}
