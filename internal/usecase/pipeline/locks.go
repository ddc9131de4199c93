package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/pkg/jobcontext"
)

type noopLocker struct{}

func (noopLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

// withStage runs fn under the stage lock and the stage deadline. The lock
// only avoids duplicate work; every write below it is idempotent.
func (s *pipelineService) withStage(ctx context.Context, stage string, ttl time.Duration, fn func(context.Context) error) error {
	release, ok, err := s.locker.TryLock(ctx, stage, ttl)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLockUnavailable, stage, err)
	}
	if !ok {
		s.logger.Warn("⏳ Stage already running, skipping", zap.String("stage", stage))
		return fmt.Errorf("%s: %w", stage, ErrStageBusy)
	}
	defer func() {
		// The stage context may already be done; release on a fresh one
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(relCtx); err != nil {
			s.logger.Warn("failed to release stage lock", zap.String("stage", stage), zap.Error(err))
		}
	}()

	runID, ok := jobcontext.GetRunID(ctx)
	if !ok {
		runID = uuid.New()
	}
	stageCtx, cancel := jobcontext.StageBegin(ctx, runID, stage, ttl)
	defer cancel()

	return fn(stageCtx)
}
