package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/internal/infrastructure/database"
)

// openTestDB connects to TEST_DATABASE_URL and applies the schema. Tests that
// need Postgres skip when it is unset. Every test writes rows under its own rep
// so runs can share a database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })

	_, err = database.Migrate(db, migrate.Up, zap.NewNop())
	require.NoError(t, err)
	return db
}

func createSDR(t *testing.T, db *gorm.DB) *entities.SDR {
	t.Helper()
	owner := "owner-" + uuid.NewString()
	sdr := &entities.SDR{
		ID:         uuid.New(),
		Name:       "Test Rep",
		Slug:       "rep-" + uuid.NewString(),
		CRMOwnerID: &owner,
		IsActive:   true,
	}
	require.NoError(t, db.Create(sdr).Error)
	return sdr
}

// createCall inserts a transcribed call for sdr and returns the stored row
func createCall(t *testing.T, db *gorm.DB, sdr *entities.SDR, date time.Time) *entities.Call {
	t.Helper()
	ctx := context.Background()
	calls := NewCallRepository(db)

	externalID := "call-" + uuid.NewString()
	transcript := "Speaker 1: Hi, is this Dana?\nSpeaker 2: Speaking."
	_, err := calls.UpsertCall(ctx, entities.CallUpsert{
		ExternalID: externalID,
		SDRID:      sdr.ID,
		CallDate:   date,
		Transcript: &transcript,
	})
	require.NoError(t, err)

	call, err := calls.FindByExternalID(ctx, externalID)
	require.NoError(t, err)
	return call
}

func strPtr(s string) *string    { return &s }
func floatPtr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64     { return &v }
