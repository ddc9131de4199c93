package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/internal/adapter/handler"
	"github.com/johnquangdev/call-coach/internal/app"
	"github.com/johnquangdev/call-coach/internal/infrastructure/database"
	"github.com/johnquangdev/call-coach/pkg/config"
	pkglogger "github.com/johnquangdev/call-coach/pkg/logger"
	pkgvalidator "github.com/johnquangdev/call-coach/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := pkglogger.New(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: cfg.Server.RequestTimeout,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	logger.Info("🔧 Initializing dependencies...")
	container, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer container.Close()

	// Production deployments apply the schema with `pipeline migrate` in CI/CD
	if cfg.Database.AutoMigrate {
		if cfg.IsProduction() {
			logger.Fatal("DB_AUTO_MIGRATE is enabled in production; run `pipeline migrate` instead")
		}
		if _, err := database.Migrate(container.DB, migrate.Up, logger); err != nil {
			logger.Fatal("Failed to migrate", zap.Error(err))
		}
	}

	var archive handler.RunLister
	if container.Archive != nil {
		archive = container.Archive
	}

	logger.Info("🛣️  Setting up routes...")
	router := handler.NewRouter(
		cfg,
		handler.NewCron(container.Pipeline, logger),
		handler.NewCallWebhook(container.Pipeline, logger),
		handler.NewArchive(archive, logger),
		logger,
	)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("🚀 Starting server", zap.String("addr", addr), zap.String("environment", cfg.Server.Environment))

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("❌ Server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("✅ Server stopped gracefully")
}
