package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/errors"
	"github.com/johnquangdev/call-coach/internal/adapter/dto/run"
)

// RunLister lists archived run reports by object prefix
type RunLister interface {
	ListRuns(ctx context.Context, prefix string) ([]string, error)
}

// Archive browses the run reports copied to object storage
type Archive struct {
	lister RunLister
	logger *zap.Logger
}

// NewArchive creates the archive handler. lister is nil when storage is disabled.
func NewArchive(lister RunLister, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{lister: lister, logger: logger}
}

// ListRuns lists archived reports for ?date=YYYY-MM-DD or ?month=YYYY-MM
func (h *Archive) ListRuns(c echo.Context) error {
	if h.lister == nil {
		return HandleError(h.logger, c, errors.ErrMisconfigured("STORAGE_ENABLED"))
	}

	prefix := "runs/"
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("date must be formatted YYYY-MM-DD"))
		}
		prefix = fmt.Sprintf("runs/%04d/%02d/%02d/", d.Year(), int(d.Month()), d.Day())
	} else if raw := c.QueryParam("month"); raw != "" {
		m, err := time.Parse("2006-01", raw)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("month must be formatted YYYY-MM"))
		}
		prefix = fmt.Sprintf("runs/%04d/%02d/", m.Year(), int(m.Month()))
	}

	objects, err := h.lister.ListRuns(c.Request().Context(), prefix)
	if err != nil {
		h.logger.Error("failed to list archived runs", zap.String("prefix", prefix), zap.Error(err))
		return HandleError(h.logger, c, errors.ErrStorageFailed("list", err))
	}
	if objects == nil {
		objects = []string{}
	}

	return HandleSuccess(h.logger, c, run.ArchiveListResponse{
		Prefix:  prefix,
		Count:   len(objects),
		Objects: objects,
	})
}
