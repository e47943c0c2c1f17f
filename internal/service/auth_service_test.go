package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

func validRegistration(email string) RegisterInput {
	return RegisterInput{
		Email:           email,
		Password:        "secret123",
		ConfirmPassword: "secret123",
		FirstName:       "Nimal",
		LastName:        "Perera",
		Gender:          domain.GenderMale,
		BirthDate:       time.Date(1994, 1, 10, 0, 0, 0, 0, time.UTC),
		Religion:        "Buddhist",
		MaritalStatus:   "Single",
		Education:       "Degree",
		IncomeRange:     "50k-100k",
		City:            "Kandy",
		Phone:           "071 234 5678",
	}
}

func TestRegisterCreatesFreeAccount(t *testing.T) {
	h := newHarness(t)

	account, err := h.auth.Register(h.ctx, validRegistration(" Nimal@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "nimal@example.com", account.Email)
	assert.Equal(t, "0712345678", account.Phone)
	assert.NotEqual(t, "secret123", account.PasswordHash)

	stored := h.account(t, account.ID)
	assert.Equal(t, domain.AccountStatusActive, stored.Status)
	assert.Equal(t, domain.AccountRoleMember, stored.Role)
	assert.Equal(t, domain.PackageFree, stored.PackageCode)
	assert.Zero(t, stored.RequestsRemaining)
	assert.Equal(t, "Sri Lanka", stored.Country)
	assert.True(t, stored.EmailNotifications)

	privacy, err := h.store.Privacy().Get(h.ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPublic, privacy.Visibility)
	assert.True(t, hasActivity(h.activities(t, account.ID), domain.ActivityRegistration))

	_, err = h.auth.Register(h.ctx, validRegistration("NIMAL@example.com"))
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterReportsEveryInvalidField(t *testing.T) {
	h := newHarness(t)
	in := validRegistration("not-an-email")
	in.Password = "short"
	in.ConfirmPassword = "different"
	in.Gender = "OTHER"
	in.BirthDate = h.now.AddDate(-17, 0, 0)
	in.Religion = "Pastafarian"
	in.Phone = "123"

	_, err := h.auth.Register(h.ctx, in)
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	for _, field := range []string{"email", "password", "confirm_password", "gender", "birth_date", "religion", "phone"} {
		assert.Contains(t, de.Details, field)
	}

	in = validRegistration("nimal@example.com")
	in.Password = "lettersonly"
	in.ConfirmPassword = "lettersonly"
	_, err = h.auth.Register(h.ctx, in)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "password")
}

func TestLoginIssuesSession(t *testing.T) {
	h := newHarness(t)
	account, err := h.auth.Register(h.ctx, validRegistration("nimal@example.com"))
	require.NoError(t, err)

	res, err := h.auth.Login(h.ctx, "Nimal@Example.com", "secret123", false)
	require.NoError(t, err)
	assert.Equal(t, account.ID, res.Account.ID)
	assert.Equal(t, h.now.Add(8*time.Hour), res.Session.ExpiresAt)
	assert.Equal(t, domain.PackageFree, res.Package.Tier.Code)

	claims, err := h.auth.TokenManager().ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, res.Session.TokenID, claims.ID)

	stored := h.account(t, account.ID)
	require.NotNil(t, stored.LastActiveAt)
	assert.Equal(t, h.now, *stored.LastActiveAt)
	assert.True(t, hasActivity(h.activities(t, account.ID), domain.ActivityLogin))

	remembered, err := h.auth.Login(h.ctx, "nimal@example.com", "secret123", true)
	require.NoError(t, err)
	assert.Equal(t, h.now.Add(30*24*time.Hour), remembered.Session.ExpiresAt)

	_, err = h.auth.Login(h.ctx, "nobody@example.com", "secret123", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.auth.Login(h.ctx, "", "", false)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestLoginThrottlesRepeatedFailures(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Register(h.ctx, validRegistration("nimal@example.com"))
	require.NoError(t, err)

	for i := 0; i < h.policy.LoginMaxFailures; i++ {
		_, err := h.auth.Login(h.ctx, "nimal@example.com", "wrong-pass1", false)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = h.auth.Login(h.ctx, "nimal@example.com", "secret123", false)
	require.Error(t, err)
	assert.Equal(t, "LOGIN_THROTTLED", apperrors.ReasonOf(err))
	assert.Equal(t, h.policy.LoginLockoutMinutes, apperrors.ToDomainError(err).Details["retry_after_minutes"])

	h.now = h.now.Add(h.policy.LoginLockout() + time.Minute)
	_, err = h.auth.Login(h.ctx, "nimal@example.com", "secret123", false)
	assert.NoError(t, err)
}

func TestLoginDowngradesLapsedPackage(t *testing.T) {
	h := newHarness(t)
	account, err := h.auth.Register(h.ctx, validRegistration("nimal@example.com"))
	require.NoError(t, err)
	target := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)

	lapsed := h.now.Add(-time.Hour)
	require.NoError(t, h.store.Accounts().UpdatePackage(h.ctx, account.ID, domain.PackageGold, &lapsed, 40))

	res, err := h.auth.Login(h.ctx, "nimal@example.com", "secret123", false)
	require.NoError(t, err)
	assert.True(t, res.Package.Downgraded)
	assert.Equal(t, domain.PackageFree, res.Package.Tier.Code)
	assert.Equal(t, domain.PackageFree, res.Account.PackageCode)
	assert.Zero(t, res.Account.RequestsRemaining)
	assert.True(t, hasActivity(h.activities(t, account.ID), domain.ActivityPackageExpired))

	_, err = h.conns.SendRequest(h.ctx, account.ID, target.ID, "")
	assert.ErrorIs(t, err, ErrRequestQuotaExhausted)
	assert.Equal(t, apperrors.CodeQuotaExceeded, apperrors.CodeOf(err))
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	h := newHarness(t)
	account, err := h.auth.Register(h.ctx, validRegistration("nimal@example.com"))
	require.NoError(t, err)

	require.NoError(t, h.auth.SetAccountStatus(h.ctx, "admin-1", account.ID, domain.AccountStatusSuspended))
	_, err = h.auth.Login(h.ctx, "nimal@example.com", "secret123", false)
	assert.Equal(t, "ACCOUNT_SUSPENDED", apperrors.ReasonOf(err))

	err = h.auth.SetAccountStatus(h.ctx, "admin-1", account.ID, "BANNED")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	err = h.auth.SetAccountStatus(h.ctx, "admin-1", "missing", domain.AccountStatusActive)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	account, err := h.auth.Register(h.ctx, validRegistration("nimal@example.com"))
	require.NoError(t, err)

	require.NoError(t, h.auth.RequestPasswordReset(h.ctx, "nobody@example.com"))
	assert.Empty(t, h.events.ofType(events.EventPasswordResetRequested))

	require.NoError(t, h.auth.RequestPasswordReset(h.ctx, "NIMAL@example.com"))
	requested := h.events.ofType(events.EventPasswordResetRequested)
	require.Len(t, requested, 1)
	payload := requested[0].Payload.(events.PasswordResetRequestedPayload)
	assert.Equal(t, account.Email, payload.Email)
	assert.Equal(t, h.now.Add(30*time.Minute), payload.ExpiresAt)

	err = h.auth.ConfirmPasswordReset(h.ctx, payload.Token, "weak")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	require.NoError(t, h.auth.ConfirmPasswordReset(h.ctx, payload.Token, "newsecret1"))
	assert.True(t, hasActivity(h.activities(t, account.ID), domain.ActivityPasswordChange))
	_, err = h.auth.Login(h.ctx, "nimal@example.com", "newsecret1", false)
	assert.NoError(t, err)

	err = h.auth.ConfirmPasswordReset(h.ctx, payload.Token, "another1")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
	err = h.auth.ConfirmPasswordReset(h.ctx, "no-such-token", "another1")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestPasswordResetTokenExpires(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Register(h.ctx, validRegistration("nimal@example.com"))
	require.NoError(t, err)
	require.NoError(t, h.auth.RequestPasswordReset(h.ctx, "nimal@example.com"))
	payload := h.events.ofType(events.EventPasswordResetRequested)[0].Payload.(events.PasswordResetRequestedPayload)

	h.now = h.now.Add(31 * time.Minute)
	err = h.auth.ConfirmPasswordReset(h.ctx, payload.Token, "newsecret1")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestLogoutRevokesSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Register(h.ctx, validRegistration("nimal@example.com"))
	require.NoError(t, err)
	res, err := h.auth.Login(h.ctx, "nimal@example.com", "secret123", false)
	require.NoError(t, err)

	require.NoError(t, h.auth.Logout(h.ctx, res.Session))
	revoked, err := h.revoker.IsRevoked(h.ctx, res.Session.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)

	h.now = res.Session.ExpiresAt
	revoked, err = h.revoker.IsRevoked(h.ctx, res.Session.TokenID)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	account, err := h.auth.Register(h.ctx, validRegistration("nimal@example.com"))
	require.NoError(t, err)

	err = h.auth.ChangePassword(h.ctx, account.ID, "not-it-1", "newsecret1")
	assert.ErrorIs(t, err, ErrWrongPassword)
	err = h.auth.ChangePassword(h.ctx, account.ID, "secret123", strings.Repeat("a", 7))
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	require.NoError(t, h.auth.ChangePassword(h.ctx, account.ID, "secret123", "newsecret1"))
	_, err = h.auth.Login(h.ctx, "nimal@example.com", "secret123", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.auth.Login(h.ctx, "nimal@example.com", "newsecret1", false)
	assert.NoError(t, err)
}
