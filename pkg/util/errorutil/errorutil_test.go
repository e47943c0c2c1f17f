package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorMapsKnownErrors(t *testing.T) {
	notFound := ToDomainError(fmt.Errorf("lookup: %w", pgx.ErrNoRows))
	require.NotNil(t, notFound)
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := ToDomainError(errors.New("connection reset"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.NotContains(t, internal.Message, "connection reset")

	assert.Nil(t, ToDomainError(nil))
}

func TestToDomainErrorMapsMalformedIDToValidation(t *testing.T) {
	err := fmt.Errorf("get account: %w", &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"})

	mapped := ToDomainError(err)
	require.NotNil(t, mapped)
	assert.Equal(t, CodeValidation, mapped.Code)
	assert.Equal(t, "MALFORMED_ID", mapped.Reason)
	assert.Equal(t, http.StatusBadRequest, mapped.HTTPStatus)

	other := ToDomainError(&pgconn.PgError{Code: "40001"})
	assert.Equal(t, CodeInternal, other.Code)
}

func TestSentinelsMatchThroughDetailsAndWrapping(t *testing.T) {
	sentinel := NewConflict("ALREADY_CONNECTED", "already connected")
	withDetails := sentinel.WithDetails(map[string]any{"request_id": "r1"})
	wrapped := fmt.Errorf("send: %w", withDetails)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.Equal(t, "ALREADY_CONNECTED", ReasonOf(wrapped))
	assert.Equal(t, CodeConflict, CodeOf(wrapped))

	other := NewConflict("ALREADY_RESOLVED", "already resolved")
	assert.NotErrorIs(t, wrapped, other)
	assert.Nil(t, sentinel.Details)
}
