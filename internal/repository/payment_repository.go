package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// PaymentRepository records package purchases.
type PaymentRepository interface {
	Create(ctx context.Context, txn *domain.PaymentTransaction) error
	GetByReferenceForUpdate(ctx context.Context, reference string) (*domain.PaymentTransaction, error)
	UpdateStatus(ctx context.Context, txn *domain.PaymentTransaction) error
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository builds repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

func (r *paymentRepository) Create(ctx context.Context, txn *domain.PaymentTransaction) error {
	const query = `
        INSERT INTO payment_transactions
            (account_id, package_code, amount_lkr, discount_lkr, promo_code_id, method, status, reference, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		txn.AccountID,
		txn.PackageCode,
		txn.AmountLKR,
		txn.DiscountLKR,
		txn.PromoCodeID,
		txn.Method,
		txn.Status,
		txn.Reference,
		txn.CreatedAt,
	).Scan(&txn.ID)
}

func (r *paymentRepository) GetByReferenceForUpdate(ctx context.Context, reference string) (*domain.PaymentTransaction, error) {
	const query = `
        SELECT id, account_id, package_code, amount_lkr, discount_lkr, promo_code_id::text,
               method, status, reference, created_at, updated_at
        FROM payment_transactions WHERE reference=$1 FOR UPDATE`
	var t domain.PaymentTransaction
	if err := conn(ctx, r.pool).QueryRow(ctx, query, reference).Scan(
		&t.ID,
		&t.AccountID,
		&t.PackageCode,
		&t.AmountLKR,
		&t.DiscountLKR,
		&t.PromoCodeID,
		&t.Method,
		&t.Status,
		&t.Reference,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, txn *domain.PaymentTransaction) error {
	const query = `UPDATE payment_transactions SET status=$1, updated_at=$2 WHERE id=$3`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, txn.Status, txn.UpdatedAt, txn.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
