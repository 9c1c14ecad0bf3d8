package services

import (
	"errors"
	"net/http"
)

// ServiceError is a domain failure with a stable code and the HTTP status it maps to
type ServiceError struct {
	Code    string
	Message string
	Status  int
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Is matches any ServiceError carrying the same code, so sentinels work with errors.Is
// even after WithMessage has replaced the text.
func (e *ServiceError) Is(target error) bool {
	var t *ServiceError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of the error with a request-specific message
func (e *ServiceError) WithMessage(msg string) *ServiceError {
	return &ServiceError{Code: e.Code, Message: msg, Status: e.Status}
}

func newServiceError(code string, status int, msg string) *ServiceError {
	return &ServiceError{Code: code, Message: msg, Status: status}
}

var (
	ErrValidation         = newServiceError("VALIDATION_ERROR", http.StatusBadRequest, "Invalid request")
	ErrInvalidCredentials = newServiceError("INVALID_CREDENTIALS", http.StatusUnauthorized, "Invalid username or password")
	ErrInvalidCode        = newServiceError("INVALID_CODE", http.StatusUnauthorized, "Invalid or expired verification code")
	ErrInvalidToken       = newServiceError("INVALID_TOKEN", http.StatusUnauthorized, "Invalid token")
	ErrUnauthorized       = newServiceError("UNAUTHORIZED", http.StatusUnauthorized, "Authentication required")
	ErrForbidden          = newServiceError("FORBIDDEN", http.StatusForbidden, "Access denied")
	ErrNotFound           = newServiceError("NOT_FOUND", http.StatusNotFound, "Not found")
	ErrConflict           = newServiceError("CONFLICT", http.StatusConflict, "Already exists")
	ErrAlreadyResponded   = newServiceError("ALREADY_RESPONDED", http.StatusConflict, "You have already responded to this order")
	ErrOrderNotOpen       = newServiceError("ORDER_NOT_OPEN", http.StatusConflict, "Order is not open")
	ErrInvalidTransition  = newServiceError("INVALID_TRANSITION", http.StatusConflict, "Response has already been processed")
	ErrInsufficientFunds  = newServiceError("INSUFFICIENT_FUNDS", http.StatusBadRequest, "Insufficient funds")
	ErrInvalidAmount      = newServiceError("INVALID_AMOUNT", http.StatusBadRequest, "Amount must be positive")
	ErrEmptyMessage       = newServiceError("EMPTY_MESSAGE", http.StatusBadRequest, "Message must not be empty")
	ErrRateLimited        = newServiceError("RATE_LIMITED", http.StatusTooManyRequests, "Too many requests")
	ErrUpstream           = newServiceError("UPSTREAM_ERROR", http.StatusBadGateway, "Identity provider unavailable")
	ErrUpstreamTimeout    = newServiceError("UPSTREAM_TIMEOUT", http.StatusGatewayTimeout, "Identity provider timed out")
)

// AsServiceError unwraps err into a ServiceError when it is one
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
