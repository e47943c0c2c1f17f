package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matchmaking-service/internal/api/dto"
	"github.com/spec-kit/matchmaking-service/internal/auth"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/service"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// AuthHandler exposes registration, login and password endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	birth, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return err
	}

	account, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Gender:          domain.Gender(strings.ToUpper(strings.TrimSpace(req.Gender))),
		BirthDate:       birth,
		Religion:        req.Religion,
		MaritalStatus:   req.MaritalStatus,
		Education:       req.Education,
		IncomeRange:     req.IncomeRange,
		City:            req.City,
		Phone:           req.Phone,
		AboutMe:         req.AboutMe,
	})
	if err != nil {
		return err
	}
	return created(c, "registration successful, you can now log in", accountResponse(account))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		return err
	}

	message := "login successful"
	if res.Package.Downgraded {
		message = "login successful, your package has expired and you have been moved to the Free package"
	}
	return ok(c, message, fiber.Map{
		"account": accountResponse(res.Account),
		"package": packageStatusResponse(res.Package),
		"auth":    dto.AuthResponse{Token: res.Token, ExpiresAt: res.Session.ExpiresAt},
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, found := auth.PrincipalFromContext(c)
	if !found {
		return apperrors.NewUnauthenticated("login required")
	}
	if err := h.auth.Logout(c.UserContext(), principal.Session); err != nil {
		return err
	}
	return ok(c, "logged out", nil)
}

// RequestPasswordReset handles POST /auth/password/reset/request. The
// response is the same whether or not the email is registered.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("please correct the highlighted fields", map[string]any{"email": "is required"})
	}
	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return ok(c, "if that email is registered, a reset link has been sent", nil)
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirm
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return ok(c, "password has been reset", nil)
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), id, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, "password changed", nil)
}

// SetAccountStatus handles PATCH /admin/accounts/:id/status.
func (h *AuthHandler) SetAccountStatus(c *fiber.Ctx) error {
	adminID, err := callerID(c)
	if err != nil {
		return err
	}
	accountID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AccountStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	status := domain.AccountStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := h.auth.SetAccountStatus(c.UserContext(), adminID, accountID, status); err != nil {
		return err
	}
	return ok(c, "account status updated", fiber.Map{"id": accountID, "status": status})
}
