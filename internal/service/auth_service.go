package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/matchmaking-service/internal/auth"
	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

// AuthService coordinates registration, login and password flows.
type AuthService struct {
	tx         repository.Transactor
	accounts   repository.AccountRepository
	resets     repository.PasswordResetRepository
	privacy    repository.PrivacyRepository
	activities repository.ActivityRepository
	access     *AccessService
	throttle   auth.LoginThrottle
	revoker    auth.TokenRevoker
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
	bcryptCost int
	sessionTTL time.Duration
	rememberMe time.Duration
	resetTTL   time.Duration
	policy     config.PolicyConfig
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	Transactor        repository.Transactor
	AccountRepo       repository.AccountRepository
	PasswordResetRepo repository.PasswordResetRepository
	PrivacyRepo       repository.PrivacyRepository
	ActivityRepo      repository.ActivityRepository
	Access            *AccessService
	Throttle          auth.LoginThrottle
	Revoker           auth.TokenRevoker
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		tx:         deps.Transactor,
		accounts:   deps.AccountRepo,
		resets:     deps.PasswordResetRepo,
		privacy:    deps.PrivacyRepo,
		activities: deps.ActivityRepo,
		access:     deps.Access,
		throttle:   deps.Throttle,
		revoker:    deps.Revoker,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret),
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		sessionTTL: time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute,
		rememberMe: time.Duration(cfg.Auth.RememberMeTTLHours) * time.Hour,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		policy:     cfg.Policy,
		now:        time.Now,
	}
}

// WithClock overrides the time source for the service and its tokens.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	s.tokenMgr.WithClock(now)
	return s
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Gender          domain.Gender
	BirthDate       time.Time
	Religion        string
	MaritalStatus   string
	Education       string
	IncomeRange     string
	City            string
	Phone           string
	AboutMe         string
}

// Register creates an active account on the free package.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	now := s.now()
	errs := fieldErrors{}
	email := errs.email("email", in.Email)
	errs.password("password", in.Password)
	if in.ConfirmPassword != in.Password {
		errs.add("confirm_password", "passwords do not match")
	}
	errs.name("first_name", in.FirstName)
	errs.name("last_name", in.LastName)
	if !in.Gender.Valid() {
		errs.add("gender", "must be MALE or FEMALE")
	}
	errs.birthDate("birth_date", in.BirthDate, now)
	errs.oneOf("religion", in.Religion, domain.Religions)
	errs.oneOf("marital_status", in.MaritalStatus, domain.MaritalStatus)
	errs.oneOf("education", in.Education, domain.EducationLevel)
	errs.oneOf("income_range", in.IncomeRange, domain.IncomeRanges)
	errs.maxLen("city", in.City, maxNameLength)
	errs.maxLen("about_me", strings.TrimSpace(in.AboutMe), maxAboutLength)
	phone := errs.phone("phone", in.Phone)
	if err := errs.err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Email:              email,
		PasswordHash:       hash,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		Gender:             in.Gender,
		BirthDate:          in.BirthDate,
		Religion:           in.Religion,
		MaritalStatus:      in.MaritalStatus,
		Education:          in.Education,
		IncomeRange:        in.IncomeRange,
		AboutMe:            strings.TrimSpace(in.AboutMe),
		City:               strings.TrimSpace(in.City),
		Country:            "Sri Lanka",
		Phone:              phone,
		Status:             domain.AccountStatusActive,
		Role:               domain.AccountRoleMember,
		PackageCode:        domain.PackageFree,
		EmailNotifications: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create account: %w", err)
		}
		if err := s.privacy.Upsert(ctx, domain.DefaultPrivacy(account.ID)); err != nil {
			return fmt.Errorf("default privacy: %w", err)
		}
		return recordActivity(ctx, s.activities, account.ID, domain.ActivityRegistration, "Account created", now)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// LoginResult is a successful login.
type LoginResult struct {
	Account *domain.Account
	Token   string
	Session domain.Session
	Package *PackageStatus
}

// Login authenticates by email and password. Repeated failures for the same
// email are throttled. A lapsed package is downgraded before the session is
// issued so the returned package status is current.
func (s *AuthService) Login(ctx context.Context, email, password string, remember bool) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid(map[string]any{"email": "is required", "password": "is required"})
	}

	failures, err := s.throttle.Failures(ctx, email)
	if err != nil {
		return nil, err
	}
	if failures >= s.policy.LoginMaxFailures {
		return nil, ErrLoginThrottled.WithDetails(map[string]any{"retry_after_minutes": s.policy.LoginLockoutMinutes})
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}
	if account == nil || auth.ComparePassword(account.PasswordHash, password) != nil {
		if err := s.throttle.RecordFailure(ctx, email); err != nil {
			s.logger.Warn("record login failure", zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}
	if !account.IsActive() {
		return nil, auth.StatusDenied(account.Status)
	}
	if err := s.throttle.Reset(ctx, email); err != nil {
		s.logger.Warn("reset login throttle", zap.Error(err))
	}
	if auth.NeedsRehash(account.PasswordHash, s.bcryptCost) {
		if hash, err := auth.HashPassword(password, s.bcryptCost); err == nil {
			if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
				s.logger.Warn("upgrade password hash", zap.String("account_id", account.ID), zap.Error(err))
			}
		}
	}

	pkg, account, err := s.access.ResolvePackage(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.TouchLastActive(ctx, account.ID, now); err != nil {
			return fmt.Errorf("touch last active: %w", err)
		}
		return recordActivity(ctx, s.activities, account.ID, domain.ActivityLogin, "Logged in", now)
	})
	if err != nil {
		return nil, err
	}
	account.LastActiveAt = &now

	ttl := s.sessionTTL
	if remember {
		ttl = s.rememberMe
	}
	token, session, err := s.tokenMgr.GenerateToken(account.ID, account.Role, ttl)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Account: account, Token: token, Session: session, Package: pkg}, nil
}

// Logout revokes the session until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, session domain.Session) error {
	if session.TokenID == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, session.TokenID, session.ExpiresAt)
}

// RequestPasswordReset issues a single-use token. Unknown emails succeed
// silently so the endpoint cannot be used to discover accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}

	now := s.now()
	token := &domain.PasswordResetToken{
		AccountID: account.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventPasswordResetRequested,
		AccountID: account.ID,
		Payload: events.PasswordResetRequestedPayload{
			Email:     account.Email,
			Token:     token.Token,
			ExpiresAt: token.ExpiresAt,
		},
	}, now)
	return nil
}

// ConfirmPasswordReset validates the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	errs := fieldErrors{}
	errs.password("password", newPassword)
	if err := errs.err(); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	now := s.now()
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		token, err := s.resets.GetByToken(ctx, tokenStr)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrResetTokenInvalid
			}
			return err
		}
		if token.UsedAt != nil || !now.Before(token.ExpiresAt) {
			return ErrResetTokenInvalid
		}
		if err := s.resets.MarkUsed(ctx, token.ID, now); err != nil {
			if repository.IsNotFound(err) {
				return ErrResetTokenInvalid
			}
			return err
		}
		if err := s.accounts.UpdatePassword(ctx, token.AccountID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return recordActivity(ctx, s.activities, token.AccountID, domain.ActivityPasswordChange, "Password reset", now)
	})
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	errs := fieldErrors{}
	errs.password("new_password", newPassword)
	if err := errs.err(); err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return err
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return ErrWrongPassword
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return recordActivity(ctx, s.activities, accountID, domain.ActivityPasswordChange, "Password changed", s.now())
	})
}

// SetAccountStatus lets an administrator suspend or reinstate a member.
func (s *AuthService) SetAccountStatus(ctx context.Context, adminID, accountID string, status domain.AccountStatus) error {
	if !status.Valid() {
		return invalid(map[string]any{"status": "must be ACTIVE, INACTIVE, SUSPENDED or PENDING"})
	}
	accountID = canonicalID(accountID)
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.UpdateStatus(ctx, accountID, status); err != nil {
			if repository.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		s.logger.Info("account status changed",
			zap.String("admin_id", adminID),
			zap.String("account_id", accountID),
			zap.String("status", string(status)))
		return recordActivity(ctx, s.activities, accountID, domain.ActivityStatusChange,
			fmt.Sprintf("Status set to %s by administrator", status), s.now())
	})
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
