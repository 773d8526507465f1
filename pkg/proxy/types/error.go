package types

import (
	"encoding/json"
	"net/http"
)

// Error codes returned by the proxy. Upstream gateway errors pass through
// untouched; these codes only appear on errors the proxy generates itself.
const (
	CodeBadRequest         = "bad_request"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeRateLimited        = "rate_limit_exceeded"
	CodeRequestTooLarge    = "request_too_large"
	CodeServerError        = "server_error"
	CodeBadGateway         = "bad_gateway"
	CodeServiceUnavailable = "service_unavailable"
	CodeGatewayTimeout     = "gateway_timeout"
)

// ErrorResponse is the JSON error body the proxy returns for errors it
// generates. The shape matches the gateway API so clients handle both the
// same way.
type ErrorResponse struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Code categorizes the error.
	Code string `json:"code"`
}

// NewBadRequestError creates a 400 error response.
func NewBadRequestError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeBadRequest}
}

// NewAuthError creates a 401 error response.
func NewAuthError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeUnauthorized}
}

// NewForbiddenError creates a 403 error response.
func NewForbiddenError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeForbidden}
}

// NewNotFoundError creates a 404 error response.
func NewNotFoundError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeNotFound}
}

// NewRateLimitError creates a 429 error response.
func NewRateLimitError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeRateLimited}
}

// NewRequestTooLargeError creates a 413 error response.
func NewRequestTooLargeError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeRequestTooLarge}
}

// NewServerError creates a 500 error response.
func NewServerError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeServerError}
}

// NewBadGatewayError creates a 502 error response.
func NewBadGatewayError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeBadGateway}
}

// NewServiceUnavailableError creates a 503 error response.
func NewServiceUnavailableError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeServiceUnavailable}
}

// NewGatewayTimeoutError creates a 504 error response.
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: CodeGatewayTimeout}
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeBadGateway:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes an error response as JSON with the status implied by
// its code.
func WriteError(w http.ResponseWriter, resp *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(resp.Code))
	_ = json.NewEncoder(w).Encode(resp)
}
