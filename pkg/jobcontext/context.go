package jobcontext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

type KeyContext string

var (
	keyRunID     KeyContext = "run_id"
	keyStage     KeyContext = "stage"
	keyStartTime KeyContext = "stage_start_time"
)

// StageMetadata holds metadata for one stage execution
type StageMetadata struct {
	RunID     uuid.UUID
	Stage     string
	StartTime time.Time
}

// StageBegin derives a stage context carrying run metadata and a deadline.
// A non-positive timeout leaves the parent deadline in place.
func StageBegin(parentCtx context.Context, runID uuid.UUID, stage string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := parentCtx, context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, timeout)
	}

	ctx = context.WithValue(ctx, keyRunID, runID)
	ctx = context.WithValue(ctx, keyStage, stage)
	ctx = context.WithValue(ctx, keyStartTime, time.Now())

	return ctx, cancel
}

// PanicError is returned by Guard when fn panics
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.Value)
}

// Guard runs fn and converts a panic into a *PanicError
func Guard(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: string(debug.Stack())}
		}
	}()

	if ctx.Err() != nil {
		return fmt.Errorf("context cancelled before execution: %w", ctx.Err())
	}
	return fn(ctx)
}

// RetryPolicy tunes Retry
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy is used for external API calls
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 1 * time.Second,
	MaxInterval:     10 * time.Second,
	MaxElapsedTime:  30 * time.Second,
}

// Retry runs fn with exponential backoff. Errors that IsRetryableError rejects
// stop the loop immediately.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.MaxInterval = policy.MaxInterval
	bo.MaxElapsedTime = policy.MaxElapsedTime

	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// GetRunID extracts the run id from context
func GetRunID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(keyRunID).(uuid.UUID)
	return id, ok
}

// GetStage extracts the stage name from context
func GetStage(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(keyStage).(string)
	return stage, ok
}

// GetStartTime extracts the stage start time from context
func GetStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(keyStartTime).(time.Time)
	return t, ok
}

// GetStageMetadata extracts all stage metadata from context
func GetStageMetadata(ctx context.Context) *StageMetadata {
	runID, _ := GetRunID(ctx)
	stage, _ := GetStage(ctx)
	start, _ := GetStartTime(ctx)
	return &StageMetadata{RunID: runID, Stage: stage, StartTime: start}
}

// StatusError carries an HTTP status from an upstream API
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// IsRetryableError checks if an error should trigger a retry
// Retryable errors include: network errors, timeouts, deadlocks, rate limits
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// The caller's own deadline or cancellation ends the loop
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 429 || se.StatusCode >= 500
	}

	// Transport failures, however the client words them
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Network errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "network unreachable") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "unexpected eof") {
		return true
	}

	// Database deadlock/lock errors (Postgres)
	if strings.Contains(errStr, "deadlock") ||
		strings.Contains(errStr, "40001") || // serialization_failure
		strings.Contains(errStr, "40p01") { // deadlock_detected
		return true
	}

	// API rate limiting
	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") {
		return true
	}

	// Server errors (5xx)
	if strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") {
		return true
	}

	// Temporary failures
	if strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "try again") {
		return true
	}

	return false
}
