package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the application error type surfaced at the HTTP boundary
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped error to errors.Is / errors.As
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

func newError(status int, code ErrorCode, raw error, message string) AppError {
	return AppError{Raw: raw, HTTPCode: status, Code: code, Message: message}
}

// Request errors

// ErrInternal wraps an error that has no more specific mapping
func ErrInternal(err error) AppError {
	return newError(http.StatusInternalServerError, ErrorCode_INTERNAL, err, "Internal server error")
}

func ErrInvalidArgument(message string) AppError {
	return newError(http.StatusBadRequest, ErrorCode_INVALID_ARGUMENT, nil, message)
}

func ErrNotFound(resource string) AppError {
	return newError(http.StatusNotFound, ErrorCode_NOT_FOUND, nil, resource+" not found")
}

func ErrUnauthenticated() AppError {
	return newError(http.StatusUnauthorized, ErrorCode_UNAUTHENTICATED, nil, "Authentication required")
}

// ErrMisconfigured reports a missing secret or credential on the server side.
func ErrMisconfigured(setting string) AppError {
	return newError(http.StatusInternalServerError, ErrorCode_MISCONFIGURED, nil, "Server is not configured for this operation").
		WithDetail("setting", setting)
}

func ErrInvalidPayload() AppError {
	return newError(http.StatusBadRequest, ErrorCode_INVALID_PAYLOAD, nil, "Invalid payload")
}

func ErrValidationFailed(err error) AppError {
	return newError(http.StatusUnprocessableEntity, ErrorCode_INVALID_PAYLOAD, err, "Payload validation failed")
}

// Pipeline errors

func ErrStageFailed(stage string, err error) AppError {
	return newError(http.StatusInternalServerError, ErrorCode_STAGE_FAILED, err, "Pipeline stage failed: "+stage).
		WithDetail("stage", stage)
}

func ErrStageBusy(stage string) AppError {
	return newError(http.StatusConflict, ErrorCode_STAGE_BUSY, nil, "Pipeline stage is already running").
		WithDetail("stage", stage)
}

// ErrLockFailed means the lock backend could not be reached, so the stage did not start
func ErrLockFailed(stage string, err error) AppError {
	return newError(http.StatusServiceUnavailable, ErrorCode_LOCK_FAILED, err, "Stage lock unavailable").
		WithDetail("stage", stage)
}

// Backing store errors

func ErrStorageFailed(operation string, err error) AppError {
	return newError(http.StatusInternalServerError, ErrorCode_STORAGE_FAILED, err, "Storage operation failed: "+operation)
}

func ErrDBConnectionFailed(err error) AppError {
	return newError(http.StatusServiceUnavailable, ErrorCode_DB_CONNECTION_FAILED, err, "Database connection failed")
}

func ErrDBQueryFailed(operation string, err error) AppError {
	return newError(http.StatusInternalServerError, ErrorCode_DB_QUERY_FAILED, err, "Database query failed").
		WithDetail("operation", operation)
}
