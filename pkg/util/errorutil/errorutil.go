package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Stable error kinds exposed to clients.
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeValidation       = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeQuotaExceeded    = "QUOTA_EXCEEDED"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeInternal         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Reason     string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on code and reason so sentinel errors survive WithDetails copies.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason && t.Reason != ""
}

// WithDetails returns a copy carrying extra client-visible details.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	clone := *e
	clone.Details = details
	return &clone
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, reason, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Reason: reason, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) *DomainError {
	return NewDomainError(CodeValidation, "", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) *DomainError {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthenticated(message string) *DomainError {
	return NewDomainError(CodeUnauthenticated, "", message, http.StatusUnauthorized, nil)
}

func NewPermissionDenied(reason, message string) *DomainError {
	return NewDomainError(CodePermissionDenied, reason, message, http.StatusForbidden, nil)
}

func NewConflict(reason, message string) *DomainError {
	return NewDomainError(CodeConflict, reason, message, http.StatusConflict, nil)
}

func NewQuotaExceeded(reason, message string) *DomainError {
	return NewDomainError(CodeQuotaExceeded, reason, message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) *DomainError {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "something went wrong, please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		// invalid_text_representation: a malformed id reached the database
		return &DomainError{
			Code:       CodeValidation,
			Reason:     "MALFORMED_ID",
			Message:    "one of the supplied identifiers is malformed",
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
		}
	}
	return NewInternalError(err)
}

// CodeOf returns the error kind, or "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Code
}

// ReasonOf returns the fine-grained reason attached to err, if any.
func ReasonOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Reason
	}
	return ""
}
