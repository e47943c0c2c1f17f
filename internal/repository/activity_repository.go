package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// ActivityRepository stores audit entries.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activity_log (account_id, type, description, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		activity.AccountID,
		activity.Type,
		activity.Description,
		activity.CreatedAt,
	).Scan(&activity.ID)
}

func (r *activityRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Activity, error) {
	limit, _ = normalizePage(limit, 0, 20, 100)
	const query = `
        SELECT id, account_id, type, description, created_at
        FROM activity_log WHERE account_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := conn(ctx, r.pool).Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(
			&a.ID,
			&a.AccountID,
			&a.Type,
			&a.Description,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
