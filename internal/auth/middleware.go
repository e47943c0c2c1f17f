package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/repository"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"
	touchedKey   = "auth_touched"
)

// Principal represents the authenticated caller.
type Principal struct {
	Account *domain.Account
	Session domain.Session
}

// AccountID is a shorthand for Principal.Account.ID.
func (p *Principal) AccountID() string {
	return p.Account.ID
}

// IsAdmin reports whether the caller holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Account.Role == domain.AccountRoleAdmin
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
	revoker  TokenRevoker
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthMiddleware constructs middleware. A nil logger discards output.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository, revoker TokenRevoker, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, accounts: accounts, revoker: revoker, logger: logger, now: time.Now}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	// Group prefixes overlap ("/me" and "/messages"), so the guard may run twice.
	if _, ok := PrincipalFromContext(c); ok {
		return c.Next()
	}
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}

	ctx := c.UserContext()
	revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if revoked {
		return apperrors.NewUnauthenticated("session has ended, please log in again")
	}

	account, err := m.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewUnauthenticated("account not found")
		}
		return apperrors.ToDomainError(err)
	}
	if !account.IsActive() {
		return StatusDenied(account.Status)
	}

	c.Locals(principalKey, &Principal{Account: account, Session: claims.Session()})
	return c.Next()
}

// TouchActivity stamps last-activity for the authenticated caller. Failures
// never block the request.
func (m *AuthMiddleware) TouchActivity(c *fiber.Ctx) error {
	if c.Locals(touchedKey) != nil {
		return c.Next()
	}
	if principal, ok := PrincipalFromContext(c); ok {
		if err := m.accounts.TouchLastActive(c.UserContext(), principal.AccountID(), m.now()); err != nil {
			m.logger.Warn("touch last activity",
				zap.String("account_id", principal.AccountID()),
				zap.Error(err))
		}
		c.Locals(touchedKey, true)
	}
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// StatusDenied is the error returned for accounts that may not sign in.
func StatusDenied(status domain.AccountStatus) *apperrors.DomainError {
	switch status {
	case domain.AccountStatusSuspended:
		return apperrors.NewPermissionDenied("ACCOUNT_SUSPENDED", "your account has been suspended, please contact support")
	case domain.AccountStatusPending:
		return apperrors.NewPermissionDenied("ACCOUNT_PENDING", "your account is pending approval")
	case domain.AccountStatusInactive:
		return apperrors.NewPermissionDenied("ACCOUNT_INACTIVE", "your account is inactive, please contact support")
	case domain.AccountStatusActive:
		return nil
	default:
		return apperrors.NewPermissionDenied("ACCOUNT_INACTIVE", "your account is not active")
	}
}
