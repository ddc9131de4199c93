package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
)

// AnalysisRepository defines persistence operations for call analyses
type AnalysisRepository interface {
	// AnalyzedCallIDs returns the subset of ids that already have an analysis
	AnalyzedCallIDs(ctx context.Context, callIDs []uuid.UUID) (map[uuid.UUID]struct{}, error)
	// InsertAnalysis returns ErrDuplicateAnalysis when the call is already analyzed
	InsertAnalysis(ctx context.Context, a *entities.CallAnalysis) error

	// Date ranges are inclusive calendar days
	ListAnalysesForSDRRange(ctx context.Context, sdrID uuid.UUID, from, to time.Time) ([]*entities.CallAnalysis, error)
	ListAnalysesInRange(ctx context.Context, from, to time.Time) ([]*entities.CallAnalysis, error)

	// UpdateBreakdown patches the breakdown and the listed score columns only
	UpdateBreakdown(ctx context.Context, id uuid.UUID, breakdown entities.AreaBreakdown, scores map[entities.SkillArea]*float64) error
}
