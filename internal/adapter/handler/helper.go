package handler

import (
	"database/sql"
	"database/sql/driver"
	stdErrors "errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/errors"
	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/internal/domain/repositories"
	"github.com/johnquangdev/call-coach/internal/usecase/pipeline"
)

// Response shapes
type success struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errs struct {
	Code    interface{}       `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Info    string            `json:"info,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// getRequestID tries to read X-Request-ID from the request
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// HandleSuccess writes a standardized 200 response using provided logger
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	return HandleStatus(logger, c, http.StatusOK, "success", data)
}

// HandleStatus writes a standardized success body with an explicit status,
// used for 207 partial pipeline runs
func HandleStatus(logger *zap.Logger, c echo.Context, status int, message string, data interface{}) error {
	resp := success{
		Code:    int(errors.ErrorCode_HTTP_OK),
		Message: message,
		Data:    data,
	}
	if status == http.StatusMultiStatus {
		resp.Code = errors.ErrorCode_PIPELINE_PARTIAL
	}

	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
			zap.Int("status", status),
		)
	}

	return c.JSON(status, resp)
}

// HandleError centralizes error handling and logging using provided logger
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	reqID := getRequestID(c)

	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		if logger != nil {
			logger.Error("http.response.error",
				zap.String("request_id", reqID),
				zap.String("path", c.Path()),
				zap.Any("app_code", appErr.Code),
				zap.Error(err),
			)
		}

		info := ""
		if appErr.Raw != nil {
			info = appErr.Raw.Error()
		}

		body := errs{
			Code:    appErr.Code,
			Message: appErr.Message,
			Info:    info,
			Details: appErr.Details,
		}

		return c.JSON(appErr.HTTPCode, body)
	}

	return HandleError(logger, c, errors.ErrInternal(err))
}

// pipelineError maps pipeline and domain errors to their HTTP form
func pipelineError(stage string, err error) error {
	switch {
	case stdErrors.Is(err, pipeline.ErrStageBusy):
		return errors.ErrStageBusy(stage)
	case stdErrors.Is(err, pipeline.ErrCRMNotConfigured):
		return errors.ErrMisconfigured("HUBSPOT_ACCESS_TOKEN")
	case stdErrors.Is(err, pipeline.ErrTranscriberNotConfigured):
		return errors.ErrMisconfigured("ASSEMBLYAI_API_KEY")
	case stdErrors.Is(err, pipeline.ErrLLMNotConfigured):
		return errors.ErrMisconfigured("LLM_PROVIDER")
	case stdErrors.Is(err, pipeline.ErrInvalidWeek):
		return errors.ErrInvalidArgument(err.Error())
	case stdErrors.Is(err, entities.ErrSDRNotFound):
		return errors.ErrNotFound("sdr")
	case stdErrors.Is(err, repositories.ErrNotFound):
		return errors.ErrNotFound("record")
	case stdErrors.Is(err, entities.ErrMissingExternalID),
		stdErrors.Is(err, entities.ErrInvalidDuration),
		stdErrors.Is(err, entities.ErrInvalidCallDate):
		return errors.ErrValidationFailed(err)
	case stdErrors.Is(err, pipeline.ErrLockUnavailable):
		return errors.ErrLockFailed(stage, err)
	}

	var storeErr *pipeline.StoreError
	if stdErrors.As(err, &storeErr) {
		if isConnectionError(storeErr.Err) {
			return errors.ErrDBConnectionFailed(err)
		}
		return errors.ErrDBQueryFailed(storeErr.Op, err)
	}
	return errors.ErrStageFailed(stage, err)
}

// isConnectionError reports whether a store error came from the connection
// rather than the statement
func isConnectionError(err error) bool {
	if stdErrors.Is(err, driver.ErrBadConn) || stdErrors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return stdErrors.As(err, &netErr)
}

// ErrorHandler is installed as echo's HTTPErrorHandler so errors returned from
// middleware get the same body as handler errors.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if stdErrors.As(err, &he) {
			code := errors.ErrorCode_INTERNAL
			switch he.Code {
			case http.StatusNotFound:
				code = errors.ErrorCode_NOT_FOUND
			case http.StatusUnauthorized:
				code = errors.ErrorCode_UNAUTHENTICATED
			case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusRequestEntityTooLarge:
				code = errors.ErrorCode_INVALID_ARGUMENT
			}
			err = errors.AppError{
				Raw:      he,
				HTTPCode: he.Code,
				Code:     code,
				Message:  http.StatusText(he.Code),
			}
		}
		if writeErr := HandleError(logger, c, err); writeErr != nil && logger != nil {
			logger.Error("http.response.write_failed", zap.Error(writeErr))
		}
	}
}
