package service

import (
	"net/http"

	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// Sentinel errors. Compare with errors.Is; copies made by WithDetails still match.
var (
	ErrInvalidCredentials = apperrors.NewDomainError(apperrors.CodeUnauthenticated, "INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
	ErrLoginThrottled     = apperrors.NewQuotaExceeded("LOGIN_THROTTLED", "too many failed login attempts, please try again later")
	ErrEmailTaken         = apperrors.NewConflict("EMAIL_TAKEN", "this email is already registered")
	ErrResetTokenInvalid  = apperrors.NewDomainError(apperrors.CodeValidation, "RESET_TOKEN_INVALID", "reset link is invalid or has expired", http.StatusBadRequest, nil)
	ErrWrongPassword      = apperrors.NewDomainError(apperrors.CodeValidation, "WRONG_PASSWORD", "current password is incorrect", http.StatusBadRequest, nil)

	ErrAccountNotFound = apperrors.NewDomainError(apperrors.CodeNotFound, "ACCOUNT_NOT_FOUND", "member not found", http.StatusNotFound, nil)
	ErrPackageNotFound = apperrors.NewDomainError(apperrors.CodeNotFound, "PACKAGE_NOT_FOUND", "package not found", http.StatusNotFound, nil)
	ErrPackageExpired  = apperrors.NewQuotaExceeded("PACKAGE_EXPIRED", "your package has expired, please renew to continue")
	ErrDailyViewQuota  = apperrors.NewQuotaExceeded("DAILY_VIEW_QUOTA", "you have reached your daily profile view limit, upgrade your package to view more")

	ErrSelfRequest             = apperrors.NewDomainError(apperrors.CodeValidation, "SELF_REQUEST", "you cannot send a request to yourself", http.StatusBadRequest, nil)
	ErrNoteTooLong             = apperrors.NewDomainError(apperrors.CodeValidation, "NOTE_TOO_LONG", "request note is too long", http.StatusBadRequest, nil)
	ErrAlreadyConnected        = apperrors.NewConflict("ALREADY_CONNECTED", "you are already connected with this member")
	ErrRequestAlreadyPending   = apperrors.NewConflict("REQUEST_ALREADY_PENDING", "a connection request between you is already pending")
	ErrRequestRecentlyDeclined = apperrors.NewConflict("REQUEST_RECENTLY_DECLINED", "this request was declined recently, please wait before trying again")
	ErrRequestQuotaExhausted   = apperrors.NewQuotaExceeded("REQUEST_QUOTA_EXHAUSTED", "you have no connection requests remaining, please upgrade your package")
	ErrDailyRequestCap         = apperrors.NewQuotaExceeded("DAILY_REQUEST_CAP", "you have reached today's connection request limit")
	ErrReceiverUnavailable     = apperrors.NewDomainError(apperrors.CodeNotFound, "RECEIVER_UNAVAILABLE", "this member is not available", http.StatusNotFound, nil)
	ErrVisibilityDenied        = apperrors.NewPermissionDenied("VISIBILITY_DENIED", "this member's privacy settings do not allow this")
	ErrSameGender              = apperrors.NewPermissionDenied("SAME_GENDER", "requests can only be sent to members of the opposite gender")

	ErrRequestNotFound = apperrors.NewDomainError(apperrors.CodeNotFound, "REQUEST_NOT_FOUND", "connection request not found", http.StatusNotFound, nil)
	ErrNotReceiver     = apperrors.NewPermissionDenied("NOT_RECEIVER", "only the receiver can respond to this request")
	ErrAlreadyResolved = apperrors.NewConflict("ALREADY_RESOLVED", "this request has already been responded to")

	ErrSelfMessage       = apperrors.NewDomainError(apperrors.CodeValidation, "SELF_MESSAGE", "you cannot message yourself", http.StatusBadRequest, nil)
	ErrNotConnected      = apperrors.NewPermissionDenied("NOT_CONNECTED", "you can only message members you are connected with")
	ErrMessageRateMinute = apperrors.NewQuotaExceeded("MESSAGE_RATE_MINUTE", "you are sending messages too quickly, please slow down")
	ErrMessageRateHour   = apperrors.NewQuotaExceeded("MESSAGE_RATE_HOUR", "hourly message limit reached, please try again later")
	ErrMessageNotFound   = apperrors.NewDomainError(apperrors.CodeNotFound, "MESSAGE_NOT_FOUND", "message not found", http.StatusNotFound, nil)
	ErrNotRecipient      = apperrors.NewPermissionDenied("NOT_RECIPIENT", "only the recipient can report a message")
	ErrAlreadyReported   = apperrors.NewConflict("ALREADY_REPORTED", "you have already reported this message")

	ErrSelfView = apperrors.NewDomainError(apperrors.CodeValidation, "SELF_VIEW", "use your own profile page instead", http.StatusBadRequest, nil)

	ErrPaymentNotFound         = apperrors.NewDomainError(apperrors.CodeNotFound, "PAYMENT_NOT_FOUND", "payment not found", http.StatusNotFound, nil)
	ErrPaymentAlreadyProcessed = apperrors.NewConflict("PAYMENT_ALREADY_PROCESSED", "payment has already been processed")
	ErrTestPaymentsDisabled    = apperrors.NewPermissionDenied("TEST_PAYMENTS_DISABLED", "test payments are disabled")

	ErrPromoInvalid     = apperrors.NewDomainError(apperrors.CodeValidation, "PROMO_CODE_INVALID", "promo code is invalid or has expired", http.StatusBadRequest, nil)
	ErrPromoExhausted   = apperrors.NewQuotaExceeded("PROMO_CODE_EXHAUSTED", "this promo code has reached its usage limit")
	ErrPromoAlreadyUsed = apperrors.NewConflict("PROMO_ALREADY_USED", "you have already used this promo code")
	ErrPromoCodeTaken   = apperrors.NewConflict("PROMO_CODE_TAKEN", "a promo code with this code already exists")
)

// invalid builds a field-level validation error.
func invalid(details map[string]any) *apperrors.DomainError {
	return apperrors.NewValidationError("please correct the highlighted fields", details)
}
