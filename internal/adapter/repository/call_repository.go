package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	repo "github.com/johnquangdev/call-coach/internal/domain/repositories"
)

// mergeColumns are the columns MergeFrom may fill on an existing call
var mergeColumns = []string{
	"company", "prospect_name", "recording_url", "transcript", "has_transcript",
	"call_timestamp", "duration_ms", "disposition_id", "disposition_label",
	"disposition_outcome", "connected", "updated_at",
}

type callRepository struct {
	db *gorm.DB
}

// NewCallRepository creates a new call repository backed by GORM
func NewCallRepository(db *gorm.DB) repo.CallRepository {
	return &callRepository{db: db}
}

// UpsertCall inserts when the external id is new. Otherwise it locks the row
// and fills only the fields that are still unset.
func (r *callRepository) UpsertCall(ctx context.Context, u entities.CallUpsert) (repo.UpsertOutcome, error) {
	u.Normalize()
	if u.ExternalID == "" {
		return "", entities.ErrMissingExternalID
	}
	if u.CallDate.IsZero() {
		return "", entities.ErrMissingCallDate
	}

	outcome := repo.UpsertUnchanged
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		call := entities.NewCall(u)
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).Create(call)
		if res.Error != nil {
			return fmt.Errorf("insert call: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			outcome = repo.UpsertInserted
			return nil
		}

		var existing entities.Call
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_id = ?", u.ExternalID).
			First(&existing).Error; err != nil {
			return fmt.Errorf("lock call: %w", err)
		}
		if !existing.MergeFrom(u) {
			return nil
		}
		existing.UpdatedAt = time.Now().UTC()
		if err := tx.Model(&existing).Select(mergeColumns).Updates(&existing).Error; err != nil {
			return fmt.Errorf("merge call: %w", err)
		}
		outcome = repo.UpsertMerged
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (r *callRepository) FindByExternalID(ctx context.Context, externalID string) (*entities.Call, error) {
	var call entities.Call
	if err := r.db.WithContext(ctx).Where("external_id = ?", strings.TrimSpace(externalID)).First(&call).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find call by external id: %w", err)
	}
	return &call, nil
}

func (r *callRepository) FindCallsMissingTranscript(ctx context.Context, limit int) ([]*entities.Call, error) {
	var calls []*entities.Call
	err := r.db.WithContext(ctx).
		Where("recording_url IS NOT NULL AND recording_url <> '' AND has_transcript = ?", false).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&calls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select calls missing transcript: %w", err)
	}
	return calls, nil
}

func (r *callRepository) FindCallsMissingAnalysis(ctx context.Context, limit int) ([]*entities.Call, error) {
	var calls []*entities.Call
	err := r.db.WithContext(ctx).
		Where("transcript IS NOT NULL AND transcript <> ''").
		Where("NOT EXISTS (SELECT 1 FROM call_analyses ca WHERE ca.call_id = calls.id)").
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&calls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select calls missing analysis: %w", err)
	}
	return calls, nil
}

func (r *callRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.Call, error) {
	out := make(map[uuid.UUID]*entities.Call, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var calls []*entities.Call
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("failed to load calls: %w", err)
	}
	for _, c := range calls {
		out[c.ID] = c
	}
	return out, nil
}

func (r *callRepository) UpdateTranscript(ctx context.Context, callID uuid.UUID, transcript *string) error {
	res := r.db.WithContext(ctx).
		Model(&entities.Call{}).
		Where("id = ?", callID).
		Updates(map[string]interface{}{
			"transcript":     transcript,
			"has_transcript": true,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update transcript: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *callRepository) ListCallsForSDRDate(ctx context.Context, sdrID uuid.UUID, date time.Time) ([]*entities.Call, error) {
	var calls []*entities.Call
	err := r.db.WithContext(ctx).
		Where("sdr_id = ? AND call_date = ?", sdrID, entities.DateOnly(date)).
		Order("call_timestamp ASC NULLS LAST, created_at ASC").
		Find(&calls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list calls for sdr date: %w", err)
	}
	return calls, nil
}
