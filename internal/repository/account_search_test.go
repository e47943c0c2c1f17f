package repository

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

func TestAccountSearchBuildBaseline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	male := domain.GenderMale
	q := AccountSearch{ViewerID: "viewer", ExcludeGender: &male, Now: now}.Build()

	assert.Contains(t, q.SelectSQL, "a.status = $1 AND a.id <> $2")
	assert.Contains(t, q.SelectSQL, "ps.profile_visibility <> $3")
	assert.Contains(t, q.SelectSQL, "a.gender <> $4")
	assert.Contains(t, q.SelectSQL, "ORDER BY a.last_active_at DESC NULLS LAST, a.id LIMIT 12 OFFSET 0")
	assert.Equal(t, []any{domain.AccountStatusActive, "viewer", domain.VisibilityHidden, domain.GenderMale}, q.Args)
	assert.True(t, strings.HasPrefix(q.CountSQL, "SELECT COUNT(*) FROM accounts a LEFT JOIN privacy_settings"))
	assert.NotContains(t, q.SelectSQL, "?")
}

func TestAccountSearchNumbersEveryPlaceholderOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	minAge, maxAge := 25, 30
	since := now.Add(-time.Hour)
	s := AccountSearch{
		ViewerID:    "viewer",
		MinAge:      &minAge,
		MaxAge:      &maxAge,
		Religion:    "Buddhist",
		Location:    "Kandy",
		Keyword:     "50%_off",
		ActiveSince: &since,
		HasPhoto:    true,
		Sort:        SortAge,
		Order:       OrderAsc,
		Limit:       20,
		Offset:      40,
		Now:         now,
	}
	q := s.Build()

	require.Len(t, q.Args, 13)
	for i := 1; i <= len(q.Args); i++ {
		assert.Contains(t, q.SelectSQL, "$"+strconv.Itoa(i))
	}
	assert.NotContains(t, q.SelectSQL, "$14")
	assert.Contains(t, q.SelectSQL, "(a.city ILIKE $7 OR a.province ILIKE $8)")
	assert.Contains(t, q.SelectSQL, "a.profile_pic <> ''")
	assert.Contains(t, q.SelectSQL, "ORDER BY a.birth_date DESC, a.id LIMIT 20 OFFSET 40")

	assert.Equal(t, now.AddDate(-25, 0, 0), q.Args[3])
	assert.Equal(t, now.AddDate(-31, 0, 0), q.Args[4])
	assert.Equal(t, `%50\%\_off%`, q.Args[9])
}

func TestParseSortInputsAreAllowListed(t *testing.T) {
	_, ok := ParseSortKey("password_hash")
	assert.False(t, ok)
	key, ok := ParseSortKey("first_name")
	assert.True(t, ok)
	assert.Equal(t, SortFirstName, key)

	order, ok := ParseSortOrder("asc")
	assert.True(t, ok)
	assert.Equal(t, OrderAsc, order)
	_, ok = ParseSortOrder("asc; DROP TABLE accounts")
	assert.False(t, ok)
}
