package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateAnalysis is returned when a call already has an analysis
	ErrDuplicateAnalysis = errors.New("analysis already exists for call")
)

// UpsertOutcome reports what UpsertCall did
type UpsertOutcome string

const (
	UpsertInserted  UpsertOutcome = "inserted"
	UpsertMerged    UpsertOutcome = "merged"
	UpsertUnchanged UpsertOutcome = "unchanged"
)

// CallRepository defines persistence operations for calls
type CallRepository interface {
	// UpsertCall inserts a new call or merges unset fields into the existing row
	UpsertCall(ctx context.Context, u entities.CallUpsert) (UpsertOutcome, error)
	FindByExternalID(ctx context.Context, externalID string) (*entities.Call, error)

	// Work selection, oldest first
	FindCallsMissingTranscript(ctx context.Context, limit int) ([]*entities.Call, error)
	FindCallsMissingAnalysis(ctx context.Context, limit int) ([]*entities.Call, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.Call, error)

	// UpdateTranscript writes only the transcript columns. A nil transcript marks
	// the call as done without text.
	UpdateTranscript(ctx context.Context, callID uuid.UUID, transcript *string) error

	ListCallsForSDRDate(ctx context.Context, sdrID uuid.UUID, date time.Time) ([]*entities.Call, error)
}
