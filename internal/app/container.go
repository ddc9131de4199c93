// Package app wires the pipeline service from configuration. It is shared by
// the HTTP server and the CLI.
package app

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnquangdev/call-coach/internal/adapter/repository"
	"github.com/johnquangdev/call-coach/internal/infrastructure/cache"
	"github.com/johnquangdev/call-coach/internal/infrastructure/database"
	"github.com/johnquangdev/call-coach/internal/infrastructure/storage"
	"github.com/johnquangdev/call-coach/internal/usecase/pipeline"
	"github.com/johnquangdev/call-coach/pkg/ai"
	"github.com/johnquangdev/call-coach/pkg/config"
	"github.com/johnquangdev/call-coach/pkg/hubspot"
)

const lockPrefix = "pipeline:lock:"

// Container owns the long-lived resources behind the pipeline service
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Pipeline pipeline.Service
	// Archive is nil unless STORAGE_ENABLED
	Archive *storage.MinIOClient

	redis *redis.Client
	names *cache.NameCache
}

// New connects to the database and builds every configured client. Missing
// stage credentials are not fatal; the stage reports it when it runs.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Logger: logger, DB: db}

	deps := pipeline.Deps{
		Calls:      repository.NewCallRepository(db),
		Analyses:   repository.NewAnalysisRepository(db),
		Aggregates: repository.NewAggregateRepository(db),
		SDRs:       repository.NewSDRRepository(db),
		Runs:       repository.NewPipelineRunRepository(db),
		Logger:     logger,
	}

	if crm, err := hubspot.NewClient(&cfg.HubSpot); err == nil {
		deps.CRM = crm
	} else if stdErrors.Is(err, hubspot.ErrNotConfigured) {
		logger.Warn("⚠️ HUBSPOT_ACCESS_TOKEN not set, enrichment disabled")
	} else {
		c.Close()
		return nil, fmt.Errorf("failed to create hubspot client: %w", err)
	}

	if stt, err := ai.NewAssemblyAIClient(&cfg.Assembly); err == nil {
		deps.Transcriber = stt
	} else {
		logger.Warn("⚠️ ASSEMBLYAI_API_KEY not set, transcription disabled")
	}

	if llm, err := ai.NewCompleter(cfg); err == nil {
		deps.LLM = llm
		logger.Info("🤖 LLM provider ready", zap.String("provider", cfg.LLM.Provider), zap.String("model", llm.Model()))
	} else if stdErrors.Is(err, ai.ErrNotConfigured) {
		logger.Warn("⚠️ LLM credentials not set, scoring disabled", zap.String("provider", cfg.LLM.Provider))
	} else {
		c.Close()
		return nil, err
	}

	c.names = cache.NewNameCache(cfg.HubSpot.NameCacheTTL)
	deps.Names = c.names

	rdb, err := cache.NewRedisClient(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	if rdb != nil {
		c.redis = rdb
		deps.Locker = cache.NewRedisLocker(rdb, lockPrefix, logger)
		logger.Info("🔒 Stage locks backed by Redis", zap.String("addr", cfg.GetRedisAddr()))
	} else {
		deps.Locker = cache.NoopLocker{}
	}

	if cfg.Storage.Enabled {
		archive, err := storage.NewMinIOClient(ctx, &cfg.Storage)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Archive = archive
		deps.Archiver = archive
		logger.Info("📦 Run reports archived", zap.String("bucket", cfg.Storage.BucketName))
	}

	c.Pipeline = pipeline.NewPipelineService(deps, pipeline.OptionsFromConfig(cfg))
	return c, nil
}

// Close releases the database, Redis and cache resources
func (c *Container) Close() {
	if c.names != nil {
		c.names.Stop()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := database.CloseDB(c.DB); err != nil {
			c.Logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}
