package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	repo "github.com/johnquangdev/call-coach/internal/domain/repositories"
)

type pipelineRunRepository struct {
	db *gorm.DB
}

// NewPipelineRunRepository creates a new run history repository backed by GORM
func NewPipelineRunRepository(db *gorm.DB) repo.PipelineRunRepository {
	return &pipelineRunRepository{db: db}
}

func (r *pipelineRunRepository) SaveRun(ctx context.Context, run *entities.PipelineRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save pipeline run: %w", err)
	}
	return nil
}

func (r *pipelineRunRepository) ListRecentRuns(ctx context.Context, limit int) ([]*entities.PipelineRun, error) {
	var runs []*entities.PipelineRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	return runs, nil
}
