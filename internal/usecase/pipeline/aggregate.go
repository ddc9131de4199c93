package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/internal/domain/repositories"
	"github.com/johnquangdev/call-coach/pkg/ai"
	"github.com/johnquangdev/call-coach/pkg/isoweek"
)

const maxImprovementNotes = 10

// Aggregate computes daily stats and daily focus for date, and the weekly
// summary when date is a Sunday. The zero date means yesterday.
func (s *pipelineService) Aggregate(ctx context.Context, date time.Time) (*AggregateResult, error) {
	if date.IsZero() {
		date = s.now().UTC().AddDate(0, 0, -1)
	}
	date = entities.DateOnly(date)

	var result *AggregateResult
	err := s.withStage(ctx, StageAggregate, s.opts.StageTimeout, func(ctx context.Context) error {
		var err error
		result, err = s.aggregate(ctx, date)
		return err
	})
	return result, err
}

func (s *pipelineService) aggregate(ctx context.Context, date time.Time) (*AggregateResult, error) {
	sdrs, err := s.sdrs.ListActive(ctx)
	if err != nil {
		return nil, storeError("list active sdrs", err)
	}

	week := isoweek.Of(date)
	result := &AggregateResult{
		Date:      date.Format(time.DateOnly),
		WeeklyRan: isoweek.IsWeekEnd(date),
		ISOYear:   week.Year,
		ISOWeek:   week.Week,
		SDRs:      make([]SDRAggregateResult, 0, len(sdrs)),
	}

	s.logger.Info("📈 Aggregation started",
		zap.String("date", result.Date),
		zap.Int("sdrs", len(sdrs)),
		zap.Bool("weekly", result.WeeklyRan),
	)

	for _, sdr := range sdrs {
		res := SDRAggregateResult{SDRID: sdr.ID, SDRName: sdr.Name, Errors: []string{}}
		s.aggregateSDR(ctx, sdr, date, result.WeeklyRan, &res)
		result.SDRs = append(result.SDRs, res)
	}

	s.logger.Info("✅ Aggregation finished", zap.String("date", result.Date))
	return result, nil
}

// aggregateSDR runs the three steps for one rep. A failing step is recorded
// on res and never undoes an earlier one.
func (s *pipelineService) aggregateSDR(ctx context.Context, sdr *entities.SDR, date time.Time, weekly bool, res *SDRAggregateResult) {
	if err := s.writeDailyStats(ctx, sdr, date, res); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("daily stats: %v", err))
	}
	if err := s.writeDailyFocus(ctx, sdr, date, res); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("daily focus: %v", err))
	}
	if weekly {
		if err := s.writeWeeklySummary(ctx, sdr, isoweek.Of(date), res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("weekly summary: %v", err))
		}
	}
	if len(res.Errors) > 0 {
		s.logger.Warn("⚠️ Aggregation had errors",
			zap.String("sdr_id", sdr.ID.String()),
			zap.Strings("errors", res.Errors),
		)
	}
}

func (s *pipelineService) writeDailyStats(ctx context.Context, sdr *entities.SDR, date time.Time, res *SDRAggregateResult) error {
	calls, err := s.calls.ListCallsForSDRDate(ctx, sdr.ID, date)
	if err != nil {
		return err
	}
	stats := ComputeDailyStats(sdr.ID, date, calls)
	res.TotalDials = stats.TotalDials
	res.ConnectedCalls = stats.ConnectedCalls
	res.ConnectionRate = stats.ConnectionRate

	if err := s.aggregates.UpsertDailyStats(ctx, stats); err != nil {
		return err
	}
	res.StatsWritten = true
	return nil
}

func (s *pipelineService) writeDailyFocus(ctx context.Context, sdr *entities.SDR, date time.Time, res *SDRAggregateResult) error {
	analyses, err := s.analyses.ListAnalysesForSDRRange(ctx, sdr.ID, date, date)
	if err != nil {
		return err
	}
	if len(analyses) == 0 {
		return nil
	}
	if s.llm == nil {
		return ErrLLMNotConfigured
	}

	raw, err := s.llm.Complete(ctx, ai.CompletionRequest{
		System:      dailyFocusSystemPrompt,
		Prompt:      BuildDailyFocusPrompt(sdr.Name, date, summarizeAnalyses(analyses)),
		MaxTokens:   500,
		Temperature: s.opts.Temperature,
		JSON:        true,
	})
	if err != nil {
		return err
	}
	focus, err := ParseDailyFocus(raw)
	if err != nil {
		return err
	}

	if err := s.aggregates.UpsertDailyFocus(ctx, &entities.DailyFocus{
		SDRID:         sdr.ID,
		FocusDate:     date,
		Instruction:   focus.Instruction,
		CallsAnalyzed: len(analyses),
		Pattern:       focus.Pattern,
	}); err != nil {
		return err
	}
	res.FocusWritten = true
	return nil
}

func (s *pipelineService) writeWeeklySummary(ctx context.Context, sdr *entities.SDR, week isoweek.Week, res *SDRAggregateResult) error {
	from, to := week.BusinessBounds()
	analyses, err := s.analyses.ListAnalysesForSDRRange(ctx, sdr.ID, from, to)
	if err != nil {
		return err
	}

	summary := BuildWeeklySummary(sdr.ID, week, analyses)
	if summary == nil {
		return nil
	}

	prev := week.Previous()
	previous, err := s.aggregates.GetWeeklySummary(ctx, sdr.ID, prev.Week, prev.Year)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		previous = nil
	case err != nil:
		return fmt.Errorf("failed to load previous week: %w", err)
	}
	summary.OverallDelta = OverallDelta(summary.OverallAverage, previous)

	// The card is optional. When generation fails, a card stored by an earlier
	// run for the same focus area is kept; otherwise the payload stays empty.
	if summary.FocusAreaName != nil {
		focus, err := s.weekFocus(ctx, sdr, *summary.FocusAreaName, *summary.FocusAreaScore, analyses)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("week focus: %v", err))
			if kept, ok := s.storedWeekFocus(ctx, sdr.ID, week, *summary.FocusAreaName); ok {
				summary.WeekFocus = kept
			}
		} else {
			summary.WeekFocus = datatypes.NewJSONType(*focus)
		}
	}

	if err := s.aggregates.UpsertWeeklySummary(ctx, summary); err != nil {
		return err
	}
	res.WeeklyWritten = true
	return nil
}

func (s *pipelineService) storedWeekFocus(ctx context.Context, sdrID uuid.UUID, week isoweek.Week, area entities.SkillArea) (datatypes.JSONType[entities.WeekFocus], bool) {
	existing, err := s.aggregates.GetWeeklySummary(ctx, sdrID, week.Week, week.Year)
	if err != nil || existing.FocusAreaName == nil || *existing.FocusAreaName != area {
		return datatypes.JSONType[entities.WeekFocus]{}, false
	}
	if existing.WeekFocus.Data().IsEmpty() {
		return datatypes.JSONType[entities.WeekFocus]{}, false
	}
	return existing.WeekFocus, true
}

func (s *pipelineService) weekFocus(ctx context.Context, sdr *entities.SDR, area entities.SkillArea, score float64, analyses []*entities.CallAnalysis) (*entities.WeekFocus, error) {
	if s.llm == nil {
		return nil, ErrLLMNotConfigured
	}
	raw, err := s.llm.Complete(ctx, ai.CompletionRequest{
		System:      weekFocusSystemPrompt,
		Prompt:      BuildWeekFocusPrompt(sdr.Name, area, score, improvementNotes(analyses, maxImprovementNotes)),
		MaxTokens:   1000,
		Temperature: s.opts.Temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	return ParseWeekFocus(raw)
}
