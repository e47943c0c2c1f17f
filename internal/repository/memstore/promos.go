package memstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

type promoRepo struct{ s *Store }

func (r promoRepo) Create(_ context.Context, promo *domain.PromoCode) error {
	defer r.s.lock()()
	for _, p := range r.s.data.promos {
		if p.Code == promo.Code {
			return &pgconn.PgError{Code: "23505", ConstraintName: "promo_codes_code_key"}
		}
	}
	promo.ID = newID()
	r.s.data.promos[promo.ID] = *promo
	return nil
}

func (r promoRepo) GetByCodeForUpdate(_ context.Context, code string) (*domain.PromoCode, error) {
	defer r.s.lock()()
	for _, p := range r.s.data.promos {
		if p.Code == code {
			found := p
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r promoRepo) CountRedemptions(_ context.Context, promoID string) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, red := range r.s.data.redemptions {
		if red.PromoCodeID == promoID {
			count++
		}
	}
	return count, nil
}

func (r promoRepo) Redeem(_ context.Context, red domain.PromoRedemption) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.redemptions {
		if existing.PromoCodeID == red.PromoCodeID && existing.AccountID == red.AccountID {
			return &pgconn.PgError{Code: "23505", ConstraintName: "promo_redemptions_pkey"}
		}
	}
	r.s.data.redemptions = append(r.s.data.redemptions, red)
	return nil
}

func (r promoRepo) ReleaseForPayment(_ context.Context, paymentID string) error {
	defer r.s.lock()()
	kept := r.s.data.redemptions[:0:0]
	for _, red := range r.s.data.redemptions {
		if red.PaymentID != paymentID {
			kept = append(kept, red)
		}
	}
	r.s.data.redemptions = kept
	return nil
}

// PaymentsFor lists every payment row recorded for accountID, oldest first.
func (s *Store) PaymentsFor(accountID string) []domain.PaymentTransaction {
	defer s.lock()()
	var out []domain.PaymentTransaction
	for _, t := range s.data.payments {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}
