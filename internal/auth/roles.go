package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.AccountRole) fiber.Handler {
	allowedSet := make(map[domain.AccountRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Account == nil {
			return apperrors.NewUnauthenticated("login required")
		}
		if _, exists := allowedSet[principal.Account.Role]; !exists {
			return apperrors.NewPermissionDenied("ROLE_REQUIRED", "you are not allowed to perform this action")
		}
		return c.Next()
	}
}
