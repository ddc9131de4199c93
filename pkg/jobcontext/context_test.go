package jobcontext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
	MaxElapsedTime:  time.Second,
}

func TestStageBegin_CarriesMetadata(t *testing.T) {
	runID := uuid.New()
	ctx, cancel := StageBegin(context.Background(), runID, "transcribe", time.Minute)
	defer cancel()

	meta := GetStageMetadata(ctx)
	assert.Equal(t, runID, meta.RunID)
	assert.Equal(t, "transcribe", meta.Stage)
	assert.False(t, meta.StartTime.IsZero())

	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestGuard_RecoversPanic(t *testing.T) {
	err := Guard(context.Background(), func(context.Context) error {
		panic("boom")
	})
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestGuard_SkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := Guard(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestRetry_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastPolicy, func() error {
		attempts++
		if attempts < 3 {
			return &StatusError{Service: "crm", StatusCode: 503}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnPermanentErrors(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastPolicy, func() error {
		attempts++
		return &StatusError{Service: "crm", StatusCode: 401}
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(&StatusError{StatusCode: 429}))
	assert.True(t, IsRetryableError(fmt.Errorf("wrapped: %w", &StatusError{StatusCode: 502})))
	assert.False(t, IsRetryableError(&StatusError{StatusCode: 400}))
	assert.True(t, IsRetryableError(errors.New("dial tcp: connection refused")))
	assert.False(t, IsRetryableError(context.DeadlineExceeded))
	assert.False(t, IsRetryableError(errors.New("invalid character in JSON")))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "awaiting headers" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableError_TypedTransportErrors(t *testing.T) {
	// Messages deliberately avoid the wording matched for untyped errors
	assert.True(t, IsRetryableError(&url.Error{Op: "Post", URL: "https://api.example.com", Err: timeoutErr{}}))
	assert.True(t, IsRetryableError(fmt.Errorf("search calls: %w", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("peer went away")})))
	assert.True(t, IsRetryableError(fmt.Errorf("submit: %w", syscall.ECONNRESET)))
	assert.True(t, IsRetryableError(fmt.Errorf("decode: %w", io.ErrUnexpectedEOF)))
	assert.False(t, IsRetryableError(&url.Error{Op: "Post", URL: "https://api.example.com", Err: errors.New("unsupported protocol scheme")}))
}
