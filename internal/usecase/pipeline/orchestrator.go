package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/pkg/jobcontext"
)

type stageFunc func(ctx context.Context) (interface{}, error)

// RunPipeline runs enrich, transcribe, score and aggregate in that order. A
// failed stage is recorded and the next one still runs.
func (s *pipelineService) RunPipeline(ctx context.Context, trigger string) (*RunResult, error) {
	if trigger == "" {
		trigger = "manual"
	}

	// Four stages back to back, plus slack for the bookkeeping
	ttl := 4*s.opts.StageTimeout + time.Minute
	release, ok, err := s.locker.TryLock(ctx, StagePipeline, ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLockUnavailable, StagePipeline, err)
	}
	if !ok {
		s.logger.Warn("⏳ Pipeline already running, skipping", zap.String("trigger", trigger))
		return nil, ErrStageBusy
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(relCtx); err != nil {
			s.logger.Warn("failed to release pipeline lock", zap.Error(err))
		}
	}()

	runID := uuid.New()
	runCtx, cancel := jobcontext.StageBegin(ctx, runID, StagePipeline, 0)
	defer cancel()

	started := s.now()
	result := &RunResult{
		RunID:     runID,
		Trigger:   trigger,
		StartedAt: started,
		Stages:    make([]StageReport, 0, 4),
	}

	s.logger.Info("🚀 Pipeline run started",
		zap.String("run_id", runID.String()),
		zap.String("trigger", trigger),
	)

	stages := []struct {
		name string
		fn   stageFunc
	}{
		{StageEnrich, func(ctx context.Context) (interface{}, error) {
			r, err := s.Enrich(ctx, 0)
			if err != nil {
				return nil, err
			}
			return r, nil
		}},
		{StageTranscribe, func(ctx context.Context) (interface{}, error) {
			r, err := s.Transcribe(ctx)
			if err != nil {
				return nil, err
			}
			return r, nil
		}},
		{StageScore, func(ctx context.Context) (interface{}, error) {
			r, err := s.Score(ctx)
			if err != nil {
				return nil, err
			}
			return r, nil
		}},
		{StageAggregate, func(ctx context.Context) (interface{}, error) {
			r, err := s.Aggregate(ctx, time.Time{})
			if err != nil {
				return nil, err
			}
			return r, nil
		}},
	}

	result.AllSucceeded = true
	for _, st := range stages {
		report := s.runStage(runCtx, st.name, st.fn)
		if !report.Success {
			result.AllSucceeded = false
		}
		result.Stages = append(result.Stages, report)
	}

	result.FinishedAt = s.now()
	result.DurationMs = result.FinishedAt.Sub(started).Milliseconds()
	result.Status = entities.PipelineRunSuccess
	if !result.AllSucceeded {
		result.Status = entities.PipelineRunPartial
	}

	s.logger.Info("🏁 Pipeline run finished",
		zap.String("run_id", runID.String()),
		zap.String("status", string(result.Status)),
		zap.Int64("duration_ms", result.DurationMs),
	)

	s.recordRun(ctx, result)
	return result, nil
}

// runStage times one stage and turns panics and errors into a failed report
func (s *pipelineService) runStage(ctx context.Context, name string, fn stageFunc) StageReport {
	start := s.now()
	report := StageReport{Stage: name}

	err := jobcontext.Guard(ctx, func(ctx context.Context) error {
		res, err := fn(ctx)
		if err != nil {
			return err
		}
		report.Result = res
		return nil
	})

	report.DurationMs = s.now().Sub(start).Milliseconds()
	if err != nil {
		s.logger.Error("❌ Stage failed", zap.String("stage", name), zap.Error(err))
		report.Error = err.Error()
		return report
	}
	report.Success = true
	return report
}

// recordRun persists and archives the run. Failures here never fail the run.
func (s *pipelineService) recordRun(ctx context.Context, result *RunResult) {
	stages, err := json.Marshal(result.Stages)
	if err != nil {
		s.logger.Error("failed to encode stage reports", zap.Error(err))
		return
	}
	run := &entities.PipelineRun{
		ID:         result.RunID,
		Trigger:    result.Trigger,
		Status:     result.Status,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		DurationMs: result.DurationMs,
		Stages:     datatypes.JSON(stages),
	}

	// The request context may be close to its deadline after a long run
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if s.runs != nil {
		if err := s.runs.SaveRun(saveCtx, run); err != nil {
			s.logger.Error("failed to save pipeline run", zap.String("run_id", run.ID.String()), zap.Error(err))
		}
	}
	if s.archiver != nil {
		object, err := s.archiver.ArchiveRun(saveCtx, run, result)
		if err != nil {
			s.logger.Error("failed to archive pipeline run", zap.String("run_id", run.ID.String()), zap.Error(err))
			return
		}
		s.logger.Info("🗄️ Pipeline run archived", zap.String("object", object))
	}
}
