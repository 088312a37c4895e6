package http

import (
	"fmt"
	"net/http"
)

// Stable error codes carried in error payloads.
const (
	CodeNotFound    = "ERR_NOT_FOUND"
	CodeRateLimited = "ERR_RATE_LIMITED"
	CodeInternal    = "ERR_INTERNAL"
)

// AppError is an error that knows its HTTP status. Err is kept for logs and
// never serialized.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithError attaches the cause.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func appError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func NotFoundError(message string) *AppError {
	return appError(http.StatusNotFound, CodeNotFound, message)
}

func TooManyRequestsError(message string) *AppError {
	return appError(http.StatusTooManyRequests, CodeRateLimited, message)
}

func InternalError(message string) *AppError {
	return appError(http.StatusInternalServerError, CodeInternal, message)
}
