package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

func TestRequestsWithEqualCreationTimeOrderByAnswer(t *testing.T) {
	ctx := context.Background()
	s := New()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a, b := newID(), newID()
	repo := s.Requests()

	first := &domain.ConnectionRequest{SenderID: a, ReceiverID: b, Status: domain.RequestStatusPending, CreatedAt: created}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Resolve(ctx, first.ID, domain.RequestStatusDeclined, created.Add(2*time.Second)))

	second := &domain.ConnectionRequest{SenderID: b, ReceiverID: a, Status: domain.RequestStatusPending, CreatedAt: created}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Resolve(ctx, second.ID, domain.RequestStatusDeclined, created.Add(time.Second)))

	third := &domain.ConnectionRequest{SenderID: a, ReceiverID: b, Status: domain.RequestStatusPending, CreatedAt: created}
	require.NoError(t, repo.Create(ctx, third))

	rows, err := repo.ListBetween(ctx, b, a)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{third.ID, first.ID, second.ID}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
}

func TestWithinTxRestoresSnapshotOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	accountID := newID()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		txn := &domain.PaymentTransaction{AccountID: accountID, PackageCode: domain.PackageGold, Status: domain.PaymentStatusPending, Reference: "ref-1"}
		require.NoError(t, s.Payments().Create(ctx, txn))
		require.NoError(t, s.PromoCodes().Redeem(ctx, domain.PromoRedemption{PromoCodeID: "p", AccountID: accountID, PaymentID: txn.ID}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.PaymentsFor(accountID))
	used, err := s.PromoCodes().CountRedemptions(ctx, "p")
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestPromoRedemptionIsUniquePerAccount(t *testing.T) {
	ctx := context.Background()
	promos := New().PromoCodes()
	red := domain.PromoRedemption{PromoCodeID: "p", AccountID: "a", PaymentID: "pay-1"}
	require.NoError(t, promos.Redeem(ctx, red))
	red.PaymentID = "pay-2"
	assert.True(t, repository.IsUniqueViolation(promos.Redeem(ctx, red)))

	require.NoError(t, promos.ReleaseForPayment(ctx, "pay-1"))
	require.NoError(t, promos.Redeem(ctx, red))
}
