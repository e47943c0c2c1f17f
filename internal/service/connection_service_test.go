package service

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

func TestSendRequestCreatesPendingAndDecrementsQuota(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)

	req, err := h.conns.SendRequest(h.ctx, a.ID, b.ID, "  Hello   there, mail me at a@b.com  ")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Equal(t, "Hello there, mail me at [email removed]", req.Note)

	assert.Equal(t, a.RequestsRemaining-1, h.account(t, a.ID).RequestsRemaining)

	inbox, err := h.store.Notifications().ListByAccount(h.ctx, b.ID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, domain.NotificationFriendRequest, inbox[0].Type)
	assert.True(t, hasActivity(h.activities(t, a.ID), domain.ActivityRequestSent))
	assert.Len(t, h.events.ofType(events.EventRequestSent), 1)

	status, err := h.conns.ConnectionStatus(h.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionRequestSent, status)
	status, err = h.conns.ConnectionStatus(h.ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionRequestReceived, status)
}

func TestSendRequestRejections(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	sameGender := h.member(t, "chaminda", domain.GenderMale, domain.PackageSilver)
	hidden := h.member(t, "dilini", domain.GenderFemale, domain.PackageSilver)
	closed := h.member(t, "erandi", domain.GenderFemale, domain.PackageSilver)
	suspended := h.member(t, "fathima", domain.GenderFemale, domain.PackageSilver)
	free := h.member(t, "gayan", domain.GenderMale, domain.PackageFree)

	h.setPrivacy(t, hidden.ID, domain.VisibilityHidden, domain.RequestsFromEveryone)
	h.setPrivacy(t, closed.ID, domain.VisibilityPublic, domain.RequestsFromNone)
	require.NoError(t, h.store.Accounts().UpdateStatus(h.ctx, suspended.ID, domain.AccountStatusSuspended))

	_, err := h.conns.SendRequest(h.ctx, a.ID, b.ID, "")
	require.NoError(t, err)

	cases := []struct {
		name     string
		sender   string
		receiver string
		note     string
		reason   string
		code     string
	}{
		{"self", a.ID, a.ID, "", "SELF_REQUEST", apperrors.CodeValidation},
		{"self with upper-case id", a.ID, " " + strings.ToUpper(a.ID), "", "SELF_REQUEST", apperrors.CodeValidation},
		{"duplicate", a.ID, b.ID, "", "REQUEST_ALREADY_PENDING", apperrors.CodeConflict},
		{"reverse duplicate", b.ID, a.ID, "", "REQUEST_ALREADY_PENDING", apperrors.CodeConflict},
		{"same gender", a.ID, sameGender.ID, "", "SAME_GENDER", apperrors.CodePermissionDenied},
		{"hidden receiver", a.ID, hidden.ID, "", "VISIBILITY_DENIED", apperrors.CodePermissionDenied},
		{"receiver refuses requests", a.ID, closed.ID, "", "VISIBILITY_DENIED", apperrors.CodePermissionDenied},
		{"suspended receiver", a.ID, suspended.ID, "", "RECEIVER_UNAVAILABLE", apperrors.CodeNotFound},
		{"unknown receiver", a.ID, "missing", "", "ACCOUNT_NOT_FOUND", apperrors.CodeNotFound},
		{"free tier has no requests", free.ID, b.ID, "", "REQUEST_QUOTA_EXHAUSTED", apperrors.CodeQuotaExceeded},
		{"note too long", a.ID, hidden.ID, strings.Repeat("a", 201), "NOTE_TOO_LONG", apperrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := h.account(t, tc.sender).RequestsRemaining
			_, err := h.conns.SendRequest(h.ctx, tc.sender, tc.receiver, tc.note)
			require.Error(t, err)
			assert.Equal(t, tc.reason, apperrors.ReasonOf(err))
			assert.Equal(t, tc.code, apperrors.CodeOf(err))
			assert.Equal(t, before, h.account(t, tc.sender).RequestsRemaining)
		})
	}
}

func TestIDsAreComparedInCanonicalForm(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)

	req, err := h.conns.SendRequest(h.ctx, a.ID, strings.ToUpper(b.ID), "")
	require.NoError(t, err)
	assert.Equal(t, b.ID, req.ReceiverID)

	_, err = h.conns.SendRequest(h.ctx, strings.ToUpper(b.ID), a.ID, "")
	assert.ErrorIs(t, err, ErrRequestAlreadyPending)

	status, err := h.conns.ConnectionStatus(h.ctx, a.ID, strings.ToUpper(b.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionRequestSent, status)

	out, err := h.conns.RespondToRequest(h.ctx, strings.ToUpper(req.ID), strings.ToUpper(b.ID), domain.RequestActionAccept)
	require.NoError(t, err)
	assert.True(t, out.CanChat)
}

func TestSendRequestConcurrentQuotaNeverNegative(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	require.NoError(t, h.store.Accounts().UpdatePackage(h.ctx, a.ID, domain.PackageSilver, a.PackageExpiresAt, 3))

	receivers := make([]domain.Account, 8)
	for i := range receivers {
		receivers[i] = h.member(t, "receiver"+string(rune('a'+i)), domain.GenderFemale, domain.PackageSilver)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	for _, r := range receivers {
		wg.Add(1)
		go func(receiverID string) {
			defer wg.Done()
			_, err := h.conns.SendRequest(h.ctx, a.ID, receiverID, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrRequestQuotaExhausted):
				exhausted++
			}
		}(r.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 5, exhausted)
	assert.Equal(t, 0, h.account(t, a.ID).RequestsRemaining)
}

func TestSendRequestDailyCap(t *testing.T) {
	h := newHarness(t)
	silver, err := h.store.Packages().GetByCode(h.ctx, domain.PackageSilver)
	require.NoError(t, err)
	silver.DailyRequestCap = 2
	h.store.SetPackage(*silver)

	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	var receivers []domain.Account
	for _, name := range []string{"b", "c", "d"} {
		receivers = append(receivers, h.member(t, name, domain.GenderFemale, domain.PackageSilver))
	}

	for _, r := range receivers[:2] {
		_, err := h.conns.SendRequest(h.ctx, a.ID, r.ID, "")
		require.NoError(t, err)
	}
	_, err = h.conns.SendRequest(h.ctx, a.ID, receivers[2].ID, "")
	assert.ErrorIs(t, err, ErrDailyRequestCap)

	h.now = h.now.Add(24 * time.Hour)
	_, err = h.conns.SendRequest(h.ctx, a.ID, receivers[2].ID, "")
	assert.NoError(t, err)
}

func TestPremiumOnlyReceiverNeedsPremiumSender(t *testing.T) {
	h := newHarness(t)
	silver := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	premium := h.member(t, "bandara", domain.GenderMale, domain.PackagePremium)
	target := h.member(t, "chathu", domain.GenderFemale, domain.PackageSilver)
	h.setPrivacy(t, target.ID, domain.VisibilityPremiumOnly, domain.RequestsFromEveryone)

	_, err := h.conns.SendRequest(h.ctx, silver.ID, target.ID, "")
	assert.ErrorIs(t, err, ErrVisibilityDenied)

	_, err = h.conns.SendRequest(h.ctx, premium.ID, target.ID, "")
	assert.NoError(t, err)
}

func TestRespondToRequestExactlyOnce(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	req, err := h.conns.SendRequest(h.ctx, a.ID, b.ID, "")
	require.NoError(t, err)

	_, err = h.conns.RespondToRequest(h.ctx, req.ID, a.ID, domain.RequestActionAccept)
	assert.ErrorIs(t, err, ErrNotReceiver)
	_, err = h.conns.RespondToRequest(h.ctx, "missing", b.ID, domain.RequestActionAccept)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	_, err = h.conns.RespondToRequest(h.ctx, req.ID, b.ID, "MAYBE")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	out, err := h.conns.RespondToRequest(h.ctx, req.ID, b.ID, domain.RequestActionAccept)
	require.NoError(t, err)
	assert.True(t, out.CanChat)
	assert.Equal(t, 1, out.ConnectionCount)
	assert.Equal(t, domain.RequestStatusAccepted, out.Request.Status)

	connected, err := h.store.Connections().Exists(h.ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, connected)

	for _, action := range []domain.RequestAction{domain.RequestActionAccept, domain.RequestActionDecline} {
		_, err = h.conns.RespondToRequest(h.ctx, req.ID, b.ID, action)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
		assert.Equal(t, "ALREADY_RESOLVED", apperrors.ReasonOf(err))
	}

	stored, err := h.store.Requests().GetByID(h.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusAccepted, stored.Status)
	assert.Len(t, h.events.ofType(events.EventRequestAccepted), 1)

	inbox, err := h.store.Notifications().ListByAccount(h.ctx, a.ID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, domain.NotificationRequestAccepted, inbox[0].Type)
}

func TestConnectionStatusIsSymmetric(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	c := h.member(t, "chathu", domain.GenderFemale, domain.PackageSilver)

	h.connect(t, a.ID, b.ID)
	req, err := h.conns.SendRequest(h.ctx, a.ID, c.ID, "")
	require.NoError(t, err)
	_, err = h.conns.RespondToRequest(h.ctx, req.ID, c.ID, domain.RequestActionDecline)
	require.NoError(t, err)

	for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, a.ID}} {
		status, err := h.conns.ConnectionStatus(h.ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, domain.ConnectionConnected, status)
	}
	for _, pair := range [][2]string{{a.ID, c.ID}, {c.ID, a.ID}} {
		status, err := h.conns.ConnectionStatus(h.ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, domain.ConnectionDeclined, status)
	}

	statuses, err := h.conns.StatusesFor(h.ctx, a.ID, []string{b.ID, c.ID, "nobody"})
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionConnected, statuses[b.ID])
	assert.Equal(t, domain.ConnectionDeclined, statuses[c.ID])
	assert.Equal(t, domain.ConnectionNone, statuses["nobody"])
}

func TestDeclineCooldownAppliesToBothDirections(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)

	req, err := h.conns.SendRequest(h.ctx, a.ID, b.ID, "")
	require.NoError(t, err)
	h.now = h.now.Add(time.Hour)
	_, err = h.conns.RespondToRequest(h.ctx, req.ID, b.ID, domain.RequestActionDecline)
	require.NoError(t, err)
	declinedAt := h.now

	h.now = declinedAt.Add(6 * 24 * time.Hour)
	_, err = h.conns.SendRequest(h.ctx, a.ID, b.ID, "")
	require.ErrorIs(t, err, ErrRequestRecentlyDeclined)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, declinedAt.Add(7*24*time.Hour), de.Details["retry_after"])

	_, err = h.conns.SendRequest(h.ctx, b.ID, a.ID, "")
	assert.ErrorIs(t, err, ErrRequestRecentlyDeclined)

	h.now = declinedAt.Add(7 * 24 * time.Hour)
	_, err = h.conns.SendRequest(h.ctx, a.ID, b.ID, "")
	assert.NoError(t, err)
}

func TestClassifyStatusPrecedence(t *testing.T) {
	req := func(from, to string, status domain.RequestStatus) domain.ConnectionRequest {
		return domain.ConnectionRequest{SenderID: from, ReceiverID: to, Status: status}
	}
	cases := []struct {
		name string
		rows []domain.ConnectionRequest
		want domain.ConnectionStatus
	}{
		{"nothing", nil, domain.ConnectionNone},
		{"sent", []domain.ConnectionRequest{req("me", "x", domain.RequestStatusPending)}, domain.ConnectionRequestSent},
		{"received", []domain.ConnectionRequest{req("x", "me", domain.RequestStatusPending)}, domain.ConnectionRequestReceived},
		{"accepted by me", []domain.ConnectionRequest{req("x", "me", domain.RequestStatusAccepted)}, domain.ConnectionConnected},
		{"declined then resent", []domain.ConnectionRequest{
			req("me", "x", domain.RequestStatusPending),
			req("me", "x", domain.RequestStatusDeclined),
		}, domain.ConnectionRequestSent},
		{"declined by them", []domain.ConnectionRequest{req("me", "x", domain.RequestStatusDeclined)}, domain.ConnectionDeclined},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyStatus("me", tc.rows))
		})
	}
}

func TestListRequestsAndDashboard(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	c := h.member(t, "chathu", domain.GenderFemale, domain.PackageSilver)

	_, err := h.conns.SendRequest(h.ctx, a.ID, b.ID, "")
	require.NoError(t, err)
	h.connect(t, a.ID, c.ID)

	sent, err := h.conns.ListSent(h.ctx, a.ID, repository.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, sent, 2)

	pending := domain.RequestStatusPending
	received, err := h.conns.ListReceived(h.ctx, b.ID, repository.RequestFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, a.ID, received[0].Counterpart.ID)

	dash, err := h.conns.Dashboard(h.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.SentPending)
	assert.Equal(t, 0, dash.ReceivedPending)
	assert.Equal(t, 1, dash.Connections)
	assert.Equal(t, domain.PackageSilver, dash.Package.Tier.Code)
}

func TestRespondToRequestsInBulk(t *testing.T) {
	h := newHarness(t)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	c := h.member(t, "chamara", domain.GenderMale, domain.PackageSilver)
	d := h.member(t, "dinesh", domain.GenderMale, domain.PackageSilver)

	r1, err := h.conns.SendRequest(h.ctx, a.ID, b.ID, "")
	require.NoError(t, err)
	r2, err := h.conns.SendRequest(h.ctx, c.ID, b.ID, "")
	require.NoError(t, err)
	toOther, err := h.conns.SendRequest(h.ctx, d.ID, h.member(t, "erandi", domain.GenderFemale, domain.PackageSilver).ID, "")
	require.NoError(t, err)

	_, err = h.conns.RespondToRequests(h.ctx, nil, b.ID, domain.RequestActionAccept)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "ids")
	_, err = h.conns.RespondToRequests(h.ctx, []string{r1.ID}, b.ID, "MAYBE")
	assert.Contains(t, apperrors.ToDomainError(err).Details, "action")

	results, err := h.conns.RespondToRequests(h.ctx,
		[]string{r1.ID, strings.ToUpper(r1.ID), r2.ID, toOther.ID}, b.ID, domain.RequestActionAccept)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, domain.RequestStatusAccepted, results[0].Status)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, domain.RequestStatusAccepted, results[1].Status)
	assert.ErrorIs(t, results[2].Err, ErrNotReceiver)

	for _, other := range []string{a.ID, c.ID} {
		connected, err := h.store.Connections().Exists(h.ctx, b.ID, other)
		require.NoError(t, err)
		assert.True(t, connected)
	}
	stored, err := h.store.Requests().GetByID(h.ctx, toOther.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, stored.Status)

	again, err := h.conns.RespondToRequests(h.ctx, []string{r1.ID}, b.ID, domain.RequestActionDecline)
	require.NoError(t, err)
	assert.ErrorIs(t, again[0].Err, ErrAlreadyResolved)
}
