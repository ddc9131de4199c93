package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/errors"
	"github.com/johnquangdev/call-coach/internal/adapter/presenter"
	"github.com/johnquangdev/call-coach/internal/usecase/pipeline"
	"github.com/johnquangdev/call-coach/pkg/isoweek"
)

// maxLookbackDays bounds the ?days= backfill override
const maxLookbackDays = 31

// Cron exposes one trigger per pipeline stage plus the combined run
type Cron struct {
	svc    pipeline.Service
	logger *zap.Logger
	now    func() time.Time
}

// NewCron creates the trigger handler
func NewCron(svc pipeline.Service, logger *zap.Logger) *Cron {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cron{svc: svc, logger: logger, now: time.Now}
}

// Enrich pulls recent calls from the CRM. ?days overrides the lookback window.
func (h *Cron) Enrich(c echo.Context) error {
	days := 0
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxLookbackDays {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("days must be an integer between 0 and 31"))
		}
		days = n
	}

	res, err := h.svc.Enrich(c.Request().Context(), days)
	if err != nil {
		return HandleError(h.logger, c, pipelineError(pipeline.StageEnrich, err))
	}
	return HandleSuccess(h.logger, c, res)
}

// Transcribe converts a batch of recordings into transcripts
func (h *Cron) Transcribe(c echo.Context) error {
	res, err := h.svc.Transcribe(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, pipelineError(pipeline.StageTranscribe, err))
	}
	return HandleSuccess(h.logger, c, res)
}

// Score sends a batch of transcribed calls to the LLM
func (h *Cron) Score(c echo.Context) error {
	res, err := h.svc.Score(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, pipelineError(pipeline.StageScore, err))
	}
	return HandleSuccess(h.logger, c, res)
}

// Aggregate rolls up yesterday, or ?date=YYYY-MM-DD for a backfill
func (h *Cron) Aggregate(c echo.Context) error {
	var date time.Time
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("date must be formatted YYYY-MM-DD"))
		}
		date = d
	}

	res, err := h.svc.Aggregate(c.Request().Context(), date)
	if err != nil {
		return HandleError(h.logger, c, pipelineError(pipeline.StageAggregate, err))
	}
	return HandleSuccess(h.logger, c, res)
}

// Pipeline runs every stage in order. A partial run answers 207.
func (h *Cron) Pipeline(c echo.Context) error {
	trigger := c.QueryParam("trigger")
	if trigger == "" {
		trigger = "cron"
	}

	res, err := h.svc.RunPipeline(c.Request().Context(), trigger)
	if err != nil {
		return HandleError(h.logger, c, pipelineError(pipeline.StagePipeline, err))
	}
	if !res.AllSucceeded {
		h.logger.Warn("⚠️ Pipeline finished with failed stages", zap.String("run_id", res.RunID.String()))
		return HandleStatus(h.logger, c, http.StatusMultiStatus, "partial", res)
	}
	return HandleSuccess(h.logger, c, res)
}

// RepairBreakdown backfills missing per-area breakdowns for ?year=&week=,
// defaulting to the last complete ISO week
func (h *Cron) RepairBreakdown(c echo.Context) error {
	week := isoweek.Of(h.now().UTC()).Previous()
	if raw := c.QueryParam("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("year must be an integer"))
		}
		week.Year = y
	}
	if raw := c.QueryParam("week"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("week must be an integer"))
		}
		week.Week = w
	}

	res, err := h.svc.RepairBreakdowns(c.Request().Context(), week.Year, week.Week)
	if err != nil {
		return HandleError(h.logger, c, pipelineError(pipeline.StageRepair, err))
	}
	return HandleSuccess(h.logger, c, res)
}

// Benchmark returns the team comparator row for /:year/:month
func (h *Cron) Benchmark(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("year must be an integer"))
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("month must be between 1 and 12"))
	}

	b, err := h.svc.MonthlyBenchmark(c.Request().Context(), year, month)
	if err != nil {
		return HandleError(h.logger, c, pipelineError("benchmark", err))
	}
	return HandleSuccess(h.logger, c, b)
}

// Runs lists recent orchestrated runs. ?limit defaults to 20.
func (h *Cron) Runs(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("limit must be a positive integer"))
		}
		limit = n
	}

	runs, err := h.svc.RecentRuns(c.Request().Context(), limit)
	if err != nil {
		return HandleError(h.logger, c, pipelineError("runs", err))
	}
	return HandleSuccess(h.logger, c, presenter.ToRunResponses(runs))
}
