package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
)

// Transcribe fetches diarized transcripts for calls that have a recording but no transcript
func (s *pipelineService) Transcribe(ctx context.Context) (*TranscribeResult, error) {
	if s.transcriber == nil {
		return nil, ErrTranscriberNotConfigured
	}

	var result *TranscribeResult
	err := s.withStage(ctx, StageTranscribe, s.opts.StageTimeout, func(ctx context.Context) error {
		var err error
		result, err = s.transcribe(ctx)
		return err
	})
	return result, err
}

func (s *pipelineService) transcribe(ctx context.Context) (*TranscribeResult, error) {
	calls, err := s.calls.FindCallsMissingTranscript(ctx, s.opts.TranscribeLimit)
	if err != nil {
		return nil, storeError("select calls", err)
	}

	result := &TranscribeResult{Selected: len(calls), Errors: []ItemError{}}
	minMs := s.opts.MinTranscribeDuration.Milliseconds()

	for _, call := range calls {
		// Short calls are voicemails and misdials: mark done so they are never reselected
		if call.DurationMs < minMs {
			if err := s.calls.UpdateTranscript(ctx, call.ID, nil); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, itemError(call, err))
				continue
			}
			result.SkippedShort++
			continue
		}

		if err := s.transcribeCall(ctx, call); err != nil {
			s.logger.Error("❌ Transcription failed",
				zap.String("call_id", call.ID.String()),
				zap.String("external_id", call.ExternalID),
				zap.Error(err),
			)
			result.Failed++
			result.Errors = append(result.Errors, itemError(call, err))
			continue
		}
		result.Transcribed++
	}

	s.logger.Info("🎙️ Transcription finished",
		zap.Int("selected", result.Selected),
		zap.Int("transcribed", result.Transcribed),
		zap.Int("skipped_short", result.SkippedShort),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *pipelineService) transcribeCall(ctx context.Context, call *entities.Call) error {
	if call.RecordingURL == nil {
		return fmt.Errorf("call has no recording url")
	}

	transcript, err := s.transcriber.Transcribe(ctx, *call.RecordingURL)
	if err != nil {
		return err
	}

	text := TranscriptText(transcript)
	if text == "" {
		return entities.ErrEmptyTranscription
	}
	return s.calls.UpdateTranscript(ctx, call.ID, &text)
}

func itemError(call *entities.Call, err error) ItemError {
	return ItemError{ID: call.ID.String(), ExternalID: call.ExternalID, Message: err.Error()}
}
