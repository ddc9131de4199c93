package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/internal/domain/repositories"
	"github.com/johnquangdev/call-coach/pkg/ai"
)

// Score analyzes transcribed calls that have no analysis yet
func (s *pipelineService) Score(ctx context.Context) (*ScoreResult, error) {
	if s.llm == nil {
		return nil, ErrLLMNotConfigured
	}

	var result *ScoreResult
	err := s.withStage(ctx, StageScore, s.opts.StageTimeout, func(ctx context.Context) error {
		var err error
		result, err = s.score(ctx)
		return err
	})
	return result, err
}

func (s *pipelineService) score(ctx context.Context) (*ScoreResult, error) {
	calls, err := s.calls.FindCallsMissingAnalysis(ctx, s.opts.ScoreLimit)
	if err != nil {
		return nil, storeError("select calls", err)
	}

	result := &ScoreResult{Selected: len(calls), Errors: []ItemError{}}
	if len(calls) == 0 {
		return result, nil
	}

	// Re-check the whole batch at once: another run may have scored some of these
	ids := make([]uuid.UUID, 0, len(calls))
	for _, c := range calls {
		ids = append(ids, c.ID)
	}
	analyzed, err := s.analyses.AnalyzedCallIDs(ctx, ids)
	if err != nil {
		return nil, storeError("check existing analyses", err)
	}

	for _, call := range calls {
		if _, done := analyzed[call.ID]; done {
			result.SkippedExisting++
			continue
		}

		err := s.scoreCall(ctx, call)
		switch {
		case err == nil:
			result.Scored++
		case errors.Is(err, repositories.ErrDuplicateAnalysis):
			result.SkippedExisting++
		default:
			s.logger.Error("❌ Scoring failed",
				zap.String("call_id", call.ID.String()),
				zap.String("external_id", call.ExternalID),
				zap.Error(err),
			)
			result.Failed++
			result.Errors = append(result.Errors, itemError(call, err))
		}
	}

	s.logger.Info("📊 Scoring finished",
		zap.Int("selected", result.Selected),
		zap.Int("scored", result.Scored),
		zap.Int("skipped_existing", result.SkippedExisting),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *pipelineService) scoreCall(ctx context.Context, call *entities.Call) error {
	if call.TranscriptText() == "" {
		return entities.ErrNoTranscript
	}

	resp, raw, err := s.requestScore(ctx, call)
	if err != nil {
		return err
	}

	analysis, filled := resp.ToAnalysis(call)
	analysis.RawResponse = raw
	analysis.Model = s.llm.Model()
	if len(filled) > 0 {
		s.logger.Info("🩹 Synthesized missing breakdown entries",
			zap.String("call_id", call.ID.String()),
			zap.Any("areas", filled),
		)
	}

	return s.analyses.InsertAnalysis(ctx, analysis)
}

// requestScore runs the scoring prompt for a call and parses the reply
func (s *pipelineService) requestScore(ctx context.Context, call *entities.Call) (*ScoreResponse, string, error) {
	raw, err := s.llm.Complete(ctx, ai.CompletionRequest{
		System:      scoreSystemPrompt,
		Prompt:      BuildScorePrompt(call),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, "", err
	}

	resp, err := ParseScoreResponse(raw)
	if err != nil {
		return nil, raw, err
	}
	return resp, raw, nil
}
