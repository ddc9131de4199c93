package repositories

import (
	"context"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
)

// PipelineRunRepository stores orchestrated run history
type PipelineRunRepository interface {
	SaveRun(ctx context.Context, run *entities.PipelineRun) error
	ListRecentRuns(ctx context.Context, limit int) ([]*entities.PipelineRun, error)
}
