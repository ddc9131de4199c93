package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	repo "github.com/johnquangdev/call-coach/internal/domain/repositories"
)

type aggregateRepository struct {
	db *gorm.DB
}

// NewAggregateRepository creates a new aggregate repository backed by GORM
func NewAggregateRepository(db *gorm.DB) repo.AggregateRepository {
	return &aggregateRepository{db: db}
}

// Upserts replace every derived column so recomputation never accumulates

func (r *aggregateRepository) UpsertDailyStats(ctx context.Context, s *entities.DailyStats) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.StatDate = entities.DateOnly(s.StatDate)
	s.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sdr_id"}, {Name: "stat_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_dials", "connected_calls", "connection_rate", "calls_over_5_min", "updated_at",
		}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily stats: %w", err)
	}
	return nil
}

func (r *aggregateRepository) UpsertDailyFocus(ctx context.Context, f *entities.DailyFocus) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.FocusDate = entities.DateOnly(f.FocusDate)
	f.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sdr_id"}, {Name: "focus_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"instruction", "calls_analyzed", "pattern", "updated_at"}),
	}).Create(f).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily focus: %w", err)
	}
	return nil
}

func (r *aggregateRepository) UpsertWeeklySummary(ctx context.Context, w *entities.WeeklySummary) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.UpdatedAt = time.Now().UTC()

	columns := []string{
		"week_start", "week_end", "calls_reviewed", "demos_booked",
		"overall_average", "overall_delta", "focus_area_name", "focus_area_score",
		"week_focus", "updated_at",
	}
	for _, area := range entities.SkillAreas {
		columns = append(columns, "avg_"+area.ScoreColumn())
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sdr_id"}, {Name: "week_number"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(w).Error
	if err != nil {
		return fmt.Errorf("failed to upsert weekly summary: %w", err)
	}
	return nil
}

func (r *aggregateRepository) GetWeeklySummary(ctx context.Context, sdrID uuid.UUID, week, year int) (*entities.WeeklySummary, error) {
	var w entities.WeeklySummary
	err := r.db.WithContext(ctx).
		Where("sdr_id = ? AND week_number = ? AND year = ?", sdrID, week, year).
		First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get weekly summary: %w", err)
	}
	return &w, nil
}

func (r *aggregateRepository) GetMonthlyBenchmark(ctx context.Context, year, month int) (*entities.MonthlyBenchmark, error) {
	var b entities.MonthlyBenchmark
	if err := r.db.WithContext(ctx).Where("year = ? AND month = ?", year, month).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get monthly benchmark: %w", err)
	}
	return &b, nil
}
