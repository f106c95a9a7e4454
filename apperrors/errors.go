package apperrors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError is the error type every workflow returns to the HTTP layer.
// HTTPCode and the wrapped cause never leave the process; only Code,
// Message and Details are serialized to callers.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError with no underlying cause.
func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, HTTPCode: httpCode}
}

// Wrap attaches an underlying cause to a new AppError.
func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, Err: err, HTTPCode: httpCode}
}

// WithDetails returns a copy carrying structured details, so the
// predefined errors below stay immutable.
func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(&alias{Code: e.Code, Message: e.Message, Details: e.Details})
}

// Predefined errors. Login failures and token failures are intentionally
// generic: callers cannot distinguish a missing account from a wrong
// password, or a wrong token from an expired one.
var (
	ErrValidationFailed   = New(CodeValidationFailed, "Validation failed", http.StatusBadRequest)
	ErrInvalidCredentials = New(CodeAuthFailed, "Invalid credentials", http.StatusUnauthorized)
	ErrUnauthorized       = New(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrInvalidToken       = New(CodeInvalidToken, "Invalid or expired token", http.StatusBadRequest)
)

// ValidationError reports per-field validation messages.
func ValidationError(details interface{}) *AppError {
	return ErrValidationFailed.WithDetails(details)
}

// Duplicate reports a uniqueness violation.
func Duplicate(message string) *AppError {
	return New(CodeDuplicate, message, http.StatusConflict)
}

// NotFound reports a missing entity.
func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// StoreError wraps an unexpected persistence failure. The cause is kept
// for logging but never serialized.
func StoreError(err error) *AppError {
	return Wrap(err, CodeStoreFailure, "Server error", http.StatusInternalServerError)
}

// Internal wraps any other unexpected failure.
func Internal(err error) *AppError {
	return Wrap(err, CodeInternalError, "Internal server error", http.StatusInternalServerError)
}
