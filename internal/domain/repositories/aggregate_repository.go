package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
)

// AggregateRepository defines persistence operations for derived aggregates
type AggregateRepository interface {
	UpsertDailyStats(ctx context.Context, s *entities.DailyStats) error
	UpsertDailyFocus(ctx context.Context, f *entities.DailyFocus) error
	UpsertWeeklySummary(ctx context.Context, w *entities.WeeklySummary) error
	GetWeeklySummary(ctx context.Context, sdrID uuid.UUID, week, year int) (*entities.WeeklySummary, error)
	GetMonthlyBenchmark(ctx context.Context, year, month int) (*entities.MonthlyBenchmark, error)
}
