package repositories

import (
	"context"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
)

// SDRRepository defines read operations for reps. Lookups return ErrNotFound
// when no active rep matches.
type SDRRepository interface {
	ListActive(ctx context.Context) ([]*entities.SDR, error)
	FindByCRMOwnerID(ctx context.Context, ownerID string) (*entities.SDR, error)
	FindBySlug(ctx context.Context, slug string) (*entities.SDR, error)
}
