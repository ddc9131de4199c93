package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/pkg/isoweek"
)

// RepairBreakdowns re-scores analyses of an ISO week whose breakdown lacks an
// entry for a scored area, and patches only the missing entries.
func (s *pipelineService) RepairBreakdowns(ctx context.Context, isoYear, isoWeek int) (*RepairResult, error) {
	week := isoweek.Week{Year: isoYear, Week: isoWeek}
	if !week.Valid() {
		return nil, fmt.Errorf("%w: %d-W%02d", ErrInvalidWeek, isoYear, isoWeek)
	}
	if s.llm == nil {
		return nil, ErrLLMNotConfigured
	}

	var result *RepairResult
	err := s.withStage(ctx, StageRepair, s.opts.StageTimeout, func(ctx context.Context) error {
		var err error
		result, err = s.repair(ctx, week)
		return err
	})
	return result, err
}

func (s *pipelineService) repair(ctx context.Context, week isoweek.Week) (*RepairResult, error) {
	from, to := week.Bounds()
	analyses, err := s.analyses.ListAnalysesInRange(ctx, from, to)
	if err != nil {
		return nil, storeError("list analyses", err)
	}

	result := &RepairResult{ISOYear: week.Year, ISOWeek: week.Week, Checked: len(analyses), Errors: []ItemError{}}

	broken := make([]*entities.CallAnalysis, 0)
	for _, a := range analyses {
		if len(a.MissingBreakdown()) > 0 {
			broken = append(broken, a)
		}
	}
	result.NeedingRepair = len(broken)
	if len(broken) > s.opts.RepairLimit {
		broken = broken[:s.opts.RepairLimit]
	}
	if len(broken) == 0 {
		return result, nil
	}

	callIDs := make([]uuid.UUID, 0, len(broken))
	for _, a := range broken {
		callIDs = append(callIDs, a.CallID)
	}
	calls, err := s.calls.FindByIDs(ctx, callIDs)
	if err != nil {
		return nil, storeError("load calls", err)
	}

	for _, a := range broken {
		if err := s.repairAnalysis(ctx, a, calls[a.CallID]); err != nil {
			s.logger.Error("❌ Breakdown repair failed",
				zap.String("analysis_id", a.ID.String()),
				zap.Error(err),
			)
			result.Failed++
			result.Errors = append(result.Errors, ItemError{ID: a.ID.String(), Message: err.Error()})
			continue
		}
		result.Repaired++
	}

	s.logger.Info("🩹 Breakdown repair finished",
		zap.Int("iso_year", week.Year),
		zap.Int("iso_week", week.Week),
		zap.Int("needing_repair", result.NeedingRepair),
		zap.Int("repaired", result.Repaired),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *pipelineService) repairAnalysis(ctx context.Context, a *entities.CallAnalysis, call *entities.Call) error {
	if call == nil {
		return entities.ErrCallNotFound
	}
	if call.TranscriptText() == "" {
		return entities.ErrNoTranscript
	}

	resp, _, err := s.requestScore(ctx, call)
	if err != nil {
		return err
	}

	breakdown, scores := PatchBreakdown(a, resp.Breakdown())
	return s.analyses.UpdateBreakdown(ctx, a.ID, breakdown, scores)
}

// PatchBreakdown fills the areas a is missing from fresh. An area the fresh
// reply covers takes its entry and score; any other gets a generic entry for
// the stored score. Existing entries are never replaced. Returns the full
// breakdown and the score columns to write.
func PatchBreakdown(a *entities.CallAnalysis, fresh entities.AreaBreakdown) (entities.AreaBreakdown, map[entities.SkillArea]*float64) {
	current := a.Breakdown()
	out := make(entities.AreaBreakdown, len(current)+len(entities.SkillAreas))
	for area, entry := range current {
		out[area] = entry
	}

	scores := make(map[entities.SkillArea]*float64)
	for _, area := range a.MissingBreakdown() {
		if entry, ok := fresh[area]; ok && entry.Score != nil {
			v := clampScore(*entry.Score)
			entry.Score = &v
			out[area] = entry
			scores[area] = &v
			continue
		}
		v := *a.SkillScores.Get(area)
		out[area] = entities.GenericBreakdownEntry(area, v)
		scores[area] = &v
	}
	return out, scores
}
