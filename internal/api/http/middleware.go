package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/spec-kit/matchmaking-service/internal/observability"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// MiddlewareConfig tunes the global middleware chain.
type MiddlewareConfig struct {
	Timeout     time.Duration
	CORSOrigins string
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, cfg MiddlewareConfig) {
	if cfg.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		}))
	}
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("route", observability.RouteOf(c)),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}

			domainErr := toDomainError(err)
			metrics.RecordError(observability.RouteOf(c), c.Method(), domainErr.Code)
			if domainErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("route", observability.RouteOf(c)),
					zap.String("account_id", observability.AccountIDOf(c)),
					zap.Error(domainErr))
			}

			body := fiber.Map{"code": domainErr.Code}
			if domainErr.Reason != "" {
				body["reason"] = domainErr.Reason
			}
			if len(domainErr.Details) > 0 {
				body["details"] = domainErr.Details
			}
			c.Status(domainErr.HTTPStatus)
			_ = c.JSON(fiber.Map{"success": false, "message": domainErr.Message, "error": body})
			err = nil
		}()
		return c.Next()
	}
}

// toDomainError also maps fiber's own errors (unknown route, body too large).
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return apperrors.ToDomainError(err)
	}
	switch fe.Code {
	case http.StatusNotFound:
		return apperrors.NewDomainError(apperrors.CodeNotFound, "ROUTE_NOT_FOUND", fe.Message, fe.Code, nil)
	case http.StatusMethodNotAllowed:
		return apperrors.NewDomainError(apperrors.CodeNotFound, "METHOD_NOT_ALLOWED", fe.Message, fe.Code, nil)
	case http.StatusRequestEntityTooLarge:
		return apperrors.NewDomainError(apperrors.CodeValidation, "PAYLOAD_TOO_LARGE", fe.Message, fe.Code, nil)
	case http.StatusUnauthorized:
		return apperrors.NewUnauthenticated(fe.Message)
	case http.StatusForbidden:
		return apperrors.NewPermissionDenied("FORBIDDEN", fe.Message)
	}
	if fe.Code >= http.StatusInternalServerError {
		return apperrors.NewInternalError(fe)
	}
	return apperrors.NewDomainError(apperrors.CodeValidation, "", fe.Message, fe.Code, nil)
}
