package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// PromoCodeRepository stores promo codes and who has redeemed them.
type PromoCodeRepository interface {
	Create(ctx context.Context, promo *domain.PromoCode) error
	// GetByCodeForUpdate locks the code row so usage-limit checks and the
	// redemption insert see a consistent count.
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.PromoCode, error)
	CountRedemptions(ctx context.Context, promoID string) (int, error)
	// Redeem fails with a unique violation when the account already used the code.
	Redeem(ctx context.Context, r domain.PromoRedemption) error
	// ReleaseForPayment frees the redemption held by a payment that did not complete.
	ReleaseForPayment(ctx context.Context, paymentID string) error
}

type promoCodeRepository struct {
	pool *pgxpool.Pool
}

// NewPromoCodeRepository builds repository.
func NewPromoCodeRepository(pool *pgxpool.Pool) PromoCodeRepository {
	return &promoCodeRepository{pool: pool}
}

func (r *promoCodeRepository) Create(ctx context.Context, promo *domain.PromoCode) error {
	const query = `
        INSERT INTO promo_codes
            (code, discount_type, discount_value, max_discount_lkr, usage_limit, package_code, valid_from, valid_until, is_active, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		promo.Code,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MaxDiscountLKR,
		promo.UsageLimit,
		promo.PackageCode,
		promo.ValidFrom,
		promo.ValidUntil,
		promo.IsActive,
		promo.CreatedAt,
	).Scan(&promo.ID)
}

func (r *promoCodeRepository) GetByCodeForUpdate(ctx context.Context, code string) (*domain.PromoCode, error) {
	const query = `
        SELECT id, code, discount_type, discount_value, max_discount_lkr, usage_limit,
               package_code, valid_from, valid_until, is_active, created_at
        FROM promo_codes WHERE code=$1 FOR UPDATE`
	var p domain.PromoCode
	if err := conn(ctx, r.pool).QueryRow(ctx, query, code).Scan(
		&p.ID,
		&p.Code,
		&p.DiscountType,
		&p.DiscountValue,
		&p.MaxDiscountLKR,
		&p.UsageLimit,
		&p.PackageCode,
		&p.ValidFrom,
		&p.ValidUntil,
		&p.IsActive,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promoCodeRepository) CountRedemptions(ctx context.Context, promoID string) (int, error) {
	const query = `SELECT COUNT(*) FROM promo_redemptions WHERE promo_code_id=$1`
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, query, promoID).Scan(&count)
	return count, err
}

func (r *promoCodeRepository) Redeem(ctx context.Context, red domain.PromoRedemption) error {
	const query = `
        INSERT INTO promo_redemptions (promo_code_id, account_id, payment_id, redeemed_at)
        VALUES ($1,$2,$3,$4)`
	_, err := conn(ctx, r.pool).Exec(ctx, query, red.PromoCodeID, red.AccountID, red.PaymentID, red.RedeemedAt)
	return err
}

func (r *promoCodeRepository) ReleaseForPayment(ctx context.Context, paymentID string) error {
	const query = `DELETE FROM promo_redemptions WHERE payment_id=$1`
	_, err := conn(ctx, r.pool).Exec(ctx, query, paymentID)
	return err
}
