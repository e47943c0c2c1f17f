package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
)

func TestAccessLevelMatrix(t *testing.T) {
	cases := []struct {
		connected  bool
		visibility domain.ProfileVisibility
		rank       int
		want       domain.AccessLevel
	}{
		{true, domain.VisibilityHidden, 1, domain.AccessFull},
		{true, domain.VisibilityPremiumOnly, 1, domain.AccessFull},
		{false, domain.VisibilityPublic, 1, domain.AccessBasic},
		{false, domain.VisibilityMembersOnly, 3, domain.AccessBasic},
		{false, domain.VisibilityPremiumOnly, 3, domain.AccessDenied},
		{false, domain.VisibilityPremiumOnly, 4, domain.AccessDetailed},
		{false, domain.VisibilityHidden, 4, domain.AccessDenied},
	}
	for _, tc := range cases {
		got := AccessLevelFor(tc.connected, tc.visibility, tc.rank)
		assert.Equal(t, tc.want, got, "connected=%v visibility=%s rank=%d", tc.connected, tc.visibility, tc.rank)
	}
}

func TestResolvePackageDowngradesExpiredOnce(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageGold)
	yesterday := h.now.Add(-24 * time.Hour)
	require.NoError(t, h.store.Accounts().UpdatePackage(h.ctx, a.ID, domain.PackageGold, &yesterday, 40))

	status, account, err := h.access.ResolvePackage(h.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, status.Downgraded)
	assert.Equal(t, domain.PackageFree, status.Tier.Code)
	assert.Equal(t, 0, status.RequestsRemaining)
	assert.Nil(t, status.DaysRemaining)
	assert.Equal(t, domain.PackageFree, account.PackageCode)

	stored := h.account(t, a.ID)
	assert.Equal(t, domain.PackageFree, stored.PackageCode)
	assert.Nil(t, stored.PackageExpiresAt)
	assert.Equal(t, 0, stored.RequestsRemaining)
	assert.True(t, hasActivity(h.activities(t, a.ID), domain.ActivityPackageExpired))

	expired := h.events.ofType(events.EventPackageExpired)
	require.Len(t, expired, 1)
	assert.Equal(t, events.PackageExpiredPayload{Previous: domain.PackageGold, ExpiredAt: yesterday}, expired[0].Payload)

	status, _, err = h.access.ResolvePackage(h.ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, status.Downgraded)
	assert.Len(t, h.events.ofType(events.EventPackageExpired), 1)
}

func TestResolvePackageWarnsBeforeExpiry(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	soon := h.now.Add(3 * 24 * time.Hour)
	require.NoError(t, h.store.Accounts().UpdatePackage(h.ctx, a.ID, domain.PackageSilver, &soon, 10))

	status, _, err := h.access.ResolvePackage(h.ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, status.DaysRemaining)
	assert.Equal(t, 3, *status.DaysRemaining)
	assert.True(t, status.ExpiringSoon)
	assert.Equal(t, 10, status.RequestsRemaining)

	_, _, err = h.access.ResolvePackage(h.ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestBrowseQuotaCountsDistinctProfilesPerDay(t *testing.T) {
	h := newHarness(t)
	free, err := h.store.Packages().GetByCode(h.ctx, domain.PackageFree)
	require.NoError(t, err)
	free.DailyViewQuota = 2
	h.store.SetPackage(*free)

	viewer := h.member(t, "amal", domain.GenderMale, domain.PackageFree)
	targets := []domain.Account{
		h.member(t, "b", domain.GenderFemale, domain.PackageFree),
		h.member(t, "c", domain.GenderFemale, domain.PackageFree),
		h.member(t, "d", domain.GenderFemale, domain.PackageFree),
	}

	for _, target := range targets[:2] {
		_, err := h.profiles.GetMember(h.ctx, viewer.ID, target.ID)
		require.NoError(t, err)
	}
	_, err = h.profiles.GetMember(h.ctx, viewer.ID, targets[2].ID)
	assert.ErrorIs(t, err, ErrDailyViewQuota)

	// Reopening a profile already seen today is free.
	_, err = h.profiles.GetMember(h.ctx, viewer.ID, targets[0].ID)
	assert.NoError(t, err)
	view, ok := h.store.ProfileView(viewer.ID, targets[0].ID)
	require.True(t, ok)
	assert.Equal(t, 2, view.ViewCount)

	_, err = h.search.Search(h.ctx, viewer.ID, SearchFilter{})
	assert.ErrorIs(t, err, ErrDailyViewQuota)

	h.now = h.now.Add(24 * time.Hour)
	_, err = h.profiles.GetMember(h.ctx, viewer.ID, targets[2].ID)
	assert.NoError(t, err)
}
