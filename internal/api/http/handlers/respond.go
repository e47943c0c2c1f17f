package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/matchmaking-service/internal/auth"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

const dateLayout = "2006-01-02"

func ok(c *fiber.Ctx, message string, data any) error {
	return c.JSON(fiber.Map{"success": true, "message": message, "data": data})
}

func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "message": message, "data": data})
}

func callerID(c *fiber.Ctx) (string, error) {
	principal, found := auth.PrincipalFromContext(c)
	if !found || principal.Account == nil {
		return "", apperrors.NewUnauthenticated("login required")
	}
	return principal.AccountID(), nil
}

// parseID validates a client-supplied id and returns its canonical form.
func parseID(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperrors.NewValidationError("please correct the highlighted fields", map[string]any{field: "is required"})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewValidationError("please correct the highlighted fields", map[string]any{field: "must be a valid id"})
	}
	return id.String(), nil
}

func paramID(c *fiber.Ctx, name string) (string, error) {
	return parseID(name, c.Params(name))
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD; empty input yields the zero time.
func parseDate(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("please correct the highlighted fields",
			map[string]any{field: "must be a date in YYYY-MM-DD format"})
	}
	return t, nil
}

func optionalInt(c *fiber.Ctx, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("please correct the highlighted fields",
			map[string]any{key: "must be a number"})
	}
	return &v, nil
}

func intQuery(c *fiber.Ctx, key string) (int, error) {
	v, err := optionalInt(c, key)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}
