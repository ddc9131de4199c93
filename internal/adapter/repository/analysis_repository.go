package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	repo "github.com/johnquangdev/call-coach/internal/domain/repositories"
)

type analysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new analysis repository backed by GORM
func NewAnalysisRepository(db *gorm.DB) repo.AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) AnalyzedCallIDs(ctx context.Context, callIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{}, len(callIDs))
	if len(callIDs) == 0 {
		return out, nil
	}
	var found []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&entities.CallAnalysis{}).
		Where("call_id IN ?", callIDs).
		Pluck("call_id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch analyzed call ids: %w", err)
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

// InsertAnalysis checks for an existing row first and relies on the unique
// call_id index for callers racing past the check.
func (r *analysisRepository) InsertAnalysis(ctx context.Context, a *entities.CallAnalysis) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.CallAnalysis{}).Where("call_id = ?", a.CallID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check existing analysis: %w", err)
		}
		if count > 0 {
			return repo.ErrDuplicateAnalysis
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "call_id"}},
			DoNothing: true,
		}).Create(a)
		if res.Error != nil {
			return fmt.Errorf("failed to insert analysis: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return repo.ErrDuplicateAnalysis
		}
		return nil
	})
}

func (r *analysisRepository) ListAnalysesForSDRRange(ctx context.Context, sdrID uuid.UUID, from, to time.Time) ([]*entities.CallAnalysis, error) {
	var rows []*entities.CallAnalysis
	err := r.db.WithContext(ctx).
		Where("sdr_id = ? AND analysis_date BETWEEN ? AND ?", sdrID, entities.DateOnly(from), entities.DateOnly(to)).
		Order("analysis_date ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for sdr: %w", err)
	}
	return rows, nil
}

func (r *analysisRepository) ListAnalysesInRange(ctx context.Context, from, to time.Time) ([]*entities.CallAnalysis, error) {
	var rows []*entities.CallAnalysis
	err := r.db.WithContext(ctx).
		Where("analysis_date BETWEEN ? AND ?", entities.DateOnly(from), entities.DateOnly(to)).
		Order("analysis_date ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses in range: %w", err)
	}
	return rows, nil
}

func (r *analysisRepository) UpdateBreakdown(ctx context.Context, id uuid.UUID, breakdown entities.AreaBreakdown, scores map[entities.SkillArea]*float64) error {
	updates := map[string]interface{}{
		"area_breakdown": datatypes.NewJSONType(breakdown),
		"updated_at":     time.Now().UTC(),
	}
	for area, score := range scores {
		if !area.IsValid() {
			return fmt.Errorf("%w: %s", entities.ErrInvalidSkillArea, area)
		}
		updates[area.ScoreColumn()] = score
	}

	res := r.db.WithContext(ctx).Model(&entities.CallAnalysis{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update breakdown: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
