package api

import (
	"fmt"
	"net/http"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorCode represents error codes used in API responses.
type ErrorCode string

const (
	ErrorCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrorCodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeConflict         ErrorCode = "CONFLICT"
	ErrorCodeTooLarge         ErrorCode = "REQUEST_TOO_LARGE"
	ErrorCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrorCodeUnavailable      ErrorCode = "UNAVAILABLE"
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// APIError is an error with an HTTP status and error code.
type APIError struct {
	Code       ErrorCode
	StatusCode int
	Message    string
}

// NewAPIError creates a new API error.
func NewAPIError(code ErrorCode, statusCode int, message string) *APIError {
	return &APIError{Code: code, StatusCode: statusCode, Message: message}
}

func (e *APIError) Error() string {
	return e.Message
}

// NewInvalidRequestError creates a 400 error.
func NewInvalidRequestError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeInvalidRequest, http.StatusBadRequest, fmt.Sprintf(message, args...))
}

// NewLimitError creates a 422 error for gas values outside their bounds.
func NewLimitError(err error) *APIError {
	return NewAPIError(ErrorCodeLimitExceeded, http.StatusUnprocessableEntity, err.Error())
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeNotFound, http.StatusNotFound, fmt.Sprintf(message, args...))
}

// NewConflictError creates a 409 error.
func NewConflictError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeConflict, http.StatusConflict, fmt.Sprintf(message, args...))
}

// NewInternalServerError creates a 500 error.
func NewInternalServerError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeInternalError, http.StatusInternalServerError, fmt.Sprintf(message, args...))
}
