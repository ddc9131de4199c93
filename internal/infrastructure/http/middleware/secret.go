package middleware

import (
	"bytes"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/errors"
	"github.com/johnquangdev/call-coach/pkg/ai"
)

const (
	HeaderCronSecret    = "X-Cron-Secret"
	HeaderWebhookSecret = "X-Webhook-Secret"
	HeaderSignature     = "X-Signature"

	// maxWebhookBody caps what the signature check will buffer
	maxWebhookBody = 1 << 20
)

// CronSecret guards the scheduled trigger endpoints. The secret may be sent as
// a bearer token, in X-Cron-Secret, or as ?secret= for schedulers that cannot
// set headers.
func CronSecret(secret string, logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				logger.Error("❌ CRON_SECRET is not set, refusing trigger", zap.String("path", c.Path()))
				return errors.ErrMisconfigured("CRON_SECRET")
			}
			if !ai.VerifySecret(secret, presentedCronSecret(c)) {
				logger.Warn("🔒 Rejected trigger with bad secret",
					zap.String("path", c.Path()),
					zap.String("remote_ip", c.RealIP()),
				)
				return errors.ErrUnauthenticated()
			}
			return next(c)
		}
	}
}

func presentedCronSecret(c echo.Context) string {
	req := c.Request()
	if auth := req.Header.Get(echo.HeaderAuthorization); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if v := req.Header.Get(HeaderCronSecret); v != "" {
		return v
	}
	return c.QueryParam("secret")
}

// WebhookSecret authenticates the call ingestion webhook, either by a shared
// secret header or by an HMAC-SHA256 hex signature of the raw body. The body is
// restored for the handler after it has been read.
func WebhookSecret(secret string, logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				logger.Error("❌ WEBHOOK_SECRET is not set, refusing webhook")
				return errors.ErrMisconfigured("WEBHOOK_SECRET")
			}

			req := c.Request()
			if ai.VerifySecret(secret, req.Header.Get(HeaderWebhookSecret)) {
				return next(c)
			}

			signature := req.Header.Get(HeaderSignature)
			if signature == "" {
				logger.Warn("🔒 Webhook without credentials", zap.String("remote_ip", c.RealIP()))
				return errors.ErrUnauthenticated()
			}

			body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
			if err != nil {
				return errors.ErrInvalidPayload()
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			if !ai.VerifyHMAC(secret, body, signature) {
				logger.Warn("🔒 Webhook signature mismatch", zap.String("remote_ip", c.RealIP()))
				return errors.ErrUnauthenticated()
			}
			return next(c)
		}
	}
}
