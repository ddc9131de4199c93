package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	repo "github.com/johnquangdev/call-coach/internal/domain/repositories"
)

type sdrRepository struct {
	db *gorm.DB
}

// NewSDRRepository creates a new SDR repository backed by GORM
func NewSDRRepository(db *gorm.DB) repo.SDRRepository {
	return &sdrRepository{db: db}
}

// ListActive returns active reps ordered by name
func (r *sdrRepository) ListActive(ctx context.Context) ([]*entities.SDR, error) {
	var sdrs []*entities.SDR
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&sdrs).Error; err != nil {
		return nil, fmt.Errorf("failed to list active sdrs: %w", err)
	}
	return sdrs, nil
}

// FindByCRMOwnerID finds an active rep by CRM owner id
func (r *sdrRepository) FindByCRMOwnerID(ctx context.Context, ownerID string) (*entities.SDR, error) {
	var sdr entities.SDR
	if err := r.db.WithContext(ctx).
		Where("crm_owner_id = ? AND is_active = ?", ownerID, true).
		First(&sdr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find sdr by owner id: %w", err)
	}
	return &sdr, nil
}

// FindBySlug finds an active rep by slug
func (r *sdrRepository) FindBySlug(ctx context.Context, slug string) (*entities.SDR, error) {
	var sdr entities.SDR
	if err := r.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&sdr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find sdr by slug: %w", err)
	}
	return &sdr, nil
}
