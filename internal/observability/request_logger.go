package observability

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/matchmaking-service/internal/auth"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// RequestLogger logs one line per request and feeds the metrics counters.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		route := RouteOf(c)
		metrics.RecordRequest(route, c.Method(), status, latency)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		if id := AccountIDOf(c); id != "" {
			fields = append(fields, zap.String("account_id", id))
		}
		if status >= fiber.StatusInternalServerError {
			logger.Warn("request", fields...)
		} else {
			logger.Info("request", fields...)
		}
		return err
	}
}

// RouteOf returns the matched route pattern, falling back to the raw path.
func RouteOf(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
		return r.Path
	}
	return c.Path()
}

// AccountIDOf returns the authenticated caller's id, or "".
func AccountIDOf(c *fiber.Ctx) string {
	if p, ok := auth.PrincipalFromContext(c); ok && p.Account != nil {
		return p.Account.ID
	}
	return ""
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperrors.ToDomainError(err).HTTPStatus
}
