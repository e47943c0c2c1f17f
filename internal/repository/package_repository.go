package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// PackageRepository reads the static tier table.
type PackageRepository interface {
	GetByCode(ctx context.Context, code domain.PackageCode) (*domain.PackageTier, error)
	List(ctx context.Context, activeOnly bool) ([]domain.PackageTier, error)
}

type packageRepository struct {
	pool *pgxpool.Pool
}

// NewPackageRepository builds repository.
func NewPackageRepository(pool *pgxpool.Pool) PackageRepository {
	return &packageRepository{pool: pool}
}

const packageColumns = `code, name, rank, price_lkr, duration_days, request_quota, daily_view_quota, daily_request_cap, is_active`

func (r *packageRepository) GetByCode(ctx context.Context, code domain.PackageCode) (*domain.PackageTier, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE code=$1`
	return scanPackage(conn(ctx, r.pool).QueryRow(ctx, query, code))
}

func (r *packageRepository) List(ctx context.Context, activeOnly bool) ([]domain.PackageTier, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE ($1 = FALSE OR is_active) ORDER BY rank`
	rows, err := conn(ctx, r.pool).Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PackageTier
	for rows.Next() {
		tier, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tier)
	}
	return result, rows.Err()
}

func scanPackage(row pgx.Row) (*domain.PackageTier, error) {
	var t domain.PackageTier
	if err := row.Scan(
		&t.Code,
		&t.Name,
		&t.Rank,
		&t.PriceLKR,
		&t.DurationDays,
		&t.RequestQuota,
		&t.DailyViewQuota,
		&t.DailyRequestCap,
		&t.IsActive,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
