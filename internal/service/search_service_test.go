package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

func cardIDs(res *SearchResult) []string {
	ids := make([]string, len(res.Members))
	for i, m := range res.Members {
		ids[i] = m.Account.ID
	}
	return ids
}

func TestSearchExcludesIneligibleMembers(t *testing.T) {
	h := newHarness(t)
	viewer := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	young := h.member(t, "bimali", domain.GenderFemale, domain.PackageFree)
	older := h.member(t, "chathu", domain.GenderFemale, domain.PackageFree)
	hidden := h.member(t, "dilini", domain.GenderFemale, domain.PackageFree)
	inactive := h.member(t, "erandi", domain.GenderFemale, domain.PackageFree)
	h.member(t, "kasun", domain.GenderMale, domain.PackageFree)

	o := h.account(t, older.ID)
	o.BirthDate = time.Date(1985, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.store.Accounts().Update(h.ctx, &o))
	h.setPrivacy(t, hidden.ID, domain.VisibilityHidden, domain.RequestsFromEveryone)
	require.NoError(t, h.store.Accounts().UpdateStatus(h.ctx, inactive.ID, domain.AccountStatusInactive))

	res, err := h.search.Search(h.ctx, viewer.ID, SearchFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{young.ID, older.ID}, cardIDs(res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, defaultPageSize, res.PageSize)

	res, err = h.search.Search(h.ctx, viewer.ID, SearchFilter{MinAge: intPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, []string{older.ID}, cardIDs(res))
	assert.Equal(t, 38, res.Members[0].Age)

	res, err = h.search.Search(h.ctx, viewer.ID, SearchFilter{MaxAge: intPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, []string{young.ID}, cardIDs(res))

	res, err = h.search.Search(h.ctx, viewer.ID, SearchFilter{Keyword: "CHATH"})
	require.NoError(t, err)
	assert.Equal(t, []string{older.ID}, cardIDs(res))
}

func TestSearchRejectsBadFilters(t *testing.T) {
	h := newHarness(t)
	viewer := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)

	_, err := h.search.Search(h.ctx, viewer.ID, SearchFilter{
		Sort:    "popularity",
		Order:   "sideways",
		MinAge:  intPtr(40),
		MaxAge:  intPtr(30),
		Recency: "yesterday",
	})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	for _, field := range []string{"sort", "order", "min_age", "online"} {
		assert.Contains(t, de.Details, field)
	}

	_, err = h.search.Search(h.ctx, viewer.ID, SearchFilter{MaxAge: intPtr(90)})
	assert.Contains(t, apperrors.ToDomainError(err).Details, "max_age")
}

func TestSearchAnnotatesConnectionStatus(t *testing.T) {
	h := newHarness(t)
	viewer := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	sent := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	received := h.member(t, "chathu", domain.GenderFemale, domain.PackageSilver)
	connected := h.member(t, "dilini", domain.GenderFemale, domain.PackageSilver)
	other := h.member(t, "erandi", domain.GenderFemale, domain.PackageSilver)

	_, err := h.conns.SendRequest(h.ctx, viewer.ID, sent.ID, "")
	require.NoError(t, err)
	_, err = h.conns.SendRequest(h.ctx, received.ID, viewer.ID, "")
	require.NoError(t, err)
	h.connect(t, viewer.ID, connected.ID)

	res, err := h.search.Search(h.ctx, viewer.ID, SearchFilter{})
	require.NoError(t, err)
	got := map[string]domain.ConnectionStatus{}
	for _, card := range res.Members {
		got[card.Account.ID] = card.Connection
	}
	assert.Equal(t, map[string]domain.ConnectionStatus{
		sent.ID:      domain.ConnectionRequestSent,
		received.ID:  domain.ConnectionRequestReceived,
		connected.ID: domain.ConnectionConnected,
		other.ID:     domain.ConnectionNone,
	}, got)
}

func TestSearchPaginates(t *testing.T) {
	h := newHarness(t)
	viewer := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	for i := 0; i < 8; i++ {
		h.member(t, fmt.Sprintf("member%d", i), domain.GenderFemale, domain.PackageFree)
	}

	first, err := h.search.Search(h.ctx, viewer.ID, SearchFilter{PageSize: 2, Sort: "first_name", Order: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, minPageSize, first.PageSize)
	assert.Len(t, first.Members, 6)
	assert.Equal(t, 8, first.Total)
	assert.Equal(t, 2, first.TotalPages)

	second, err := h.search.Search(h.ctx, viewer.ID, SearchFilter{PageSize: 6, Page: 2, Sort: "first_name", Order: "ASC"})
	require.NoError(t, err)
	assert.Len(t, second.Members, 2)
	assert.Equal(t, "member6", second.Members[0].Account.FirstName)
	assert.Equal(t, "member7", second.Members[1].Account.FirstName)
}

func TestFilterOptionsListsActiveValues(t *testing.T) {
	h := newHarness(t)
	h.member(t, "amal", domain.GenderMale, domain.PackageFree)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageFree)
	gone := h.member(t, "chathu", domain.GenderFemale, domain.PackageFree)

	acc := h.account(t, b.ID)
	acc.City = "Kandy"
	acc.Religion = "Christian"
	require.NoError(t, h.store.Accounts().Update(h.ctx, &acc))
	g := h.account(t, gone.ID)
	g.City = "Jaffna"
	require.NoError(t, h.store.Accounts().Update(h.ctx, &g))
	require.NoError(t, h.store.Accounts().UpdateStatus(h.ctx, gone.ID, domain.AccountStatusInactive))

	opts, err := h.search.FilterOptions(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Colombo", "Kandy"}, opts.Cities)
	assert.Equal(t, []string{"Buddhist", "Christian"}, opts.Religions)
	assert.Equal(t, []string{"Engineer"}, opts.Professions)
}
