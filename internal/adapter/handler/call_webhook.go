package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/errors"
	"github.com/johnquangdev/call-coach/internal/adapter/dto/call"
	"github.com/johnquangdev/call-coach/internal/usecase/pipeline"
	pkgvalidator "github.com/johnquangdev/call-coach/pkg/validator"
)

// CallWebhook receives single calls pushed by the dialer. Authentication is
// done by the webhook middleware before the body is bound.
type CallWebhook struct {
	svc    pipeline.Service
	logger *zap.Logger
}

// NewCallWebhook creates the ingestion handler
func NewCallWebhook(svc pipeline.Service, logger *zap.Logger) *CallWebhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallWebhook{svc: svc, logger: logger}
}

// IngestCall normalizes and upserts one call
func (h *CallWebhook) IngestCall(c echo.Context) error {
	var req call.IngestCallRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("Failed to bind call webhook", zap.Error(err))
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		appErr := errors.ErrValidationFailed(err)
		for field, tag := range pkgvalidator.FieldErrors(err) {
			appErr = appErr.WithDetail(field, tag)
		}
		return HandleError(h.logger, c, appErr)
	}

	res, err := h.svc.IngestCall(c.Request().Context(), req.ToIngest())
	if err != nil {
		return HandleError(h.logger, c, pipelineError("ingest", err))
	}

	h.logger.Info("📥 Call ingested",
		zap.String("external_id", res.ExternalID),
		zap.String("upsert", string(res.Upsert)),
	)
	return HandleSuccess(h.logger, c, res)
}
