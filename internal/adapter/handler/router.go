package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	httpmw "github.com/johnquangdev/call-coach/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/call-coach/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg         *config.Config
	cron        *Cron
	callWebhook *CallWebhook
	archive     *Archive
	logger      *zap.Logger
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, cron *Cron, callWebhook *CallWebhook, archive *Archive, logger *zap.Logger) *Router {
	return &Router{
		cfg:         cfg,
		cron:        cron,
		callWebhook: callWebhook,
		archive:     archive,
		logger:      logger,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	v1 := e.Group("/v1")
	rt.setupCronRoutes(v1)
	rt.setupWebhookRoutes(v1)
}

// setupCronRoutes configures the scheduled trigger endpoints. Schedulers differ
// in the verb they send, so stage triggers accept both GET and POST.
func (rt *Router) setupCronRoutes(g *echo.Group) {
	cron := g.Group("/cron", httpmw.CronSecret(rt.cfg.Secrets.CronSecret, rt.logger))

	both := func(path string, h echo.HandlerFunc) {
		cron.GET(path, h)
		cron.POST(path, h)
	}
	both("/enrich", rt.cron.Enrich)
	both("/transcribe", rt.cron.Transcribe)
	both("/score", rt.cron.Score)
	both("/aggregate", rt.cron.Aggregate)
	both("/pipeline", rt.cron.Pipeline)
	both("/repair/breakdown", rt.cron.RepairBreakdown)

	cron.GET("/benchmarks/:year/:month", rt.cron.Benchmark)
	cron.GET("/runs", rt.cron.Runs)
	cron.GET("/runs/archive", rt.archive.ListRuns)
}

// setupWebhookRoutes configures inbound webhooks
func (rt *Router) setupWebhookRoutes(g *echo.Group) {
	hooks := g.Group("/webhooks")
	hooks.POST("/calls", rt.callWebhook.IngestCall, httpmw.WebhookSecret(rt.cfg.Secrets.WebhookSecret, rt.logger))
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
