package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// ConnectionRepository stores the materialized accepted pairs.
type ConnectionRepository interface {
	// Create is idempotent; an existing pair is left untouched.
	Create(ctx context.Context, c *domain.Connection) error
	Exists(ctx context.Context, a, b string) (bool, error)
	CountForAccount(ctx context.Context, accountID string) (int, error)
	// Mutual returns ids connected to both a and b.
	Mutual(ctx context.Context, a, b string, limit int) ([]string, error)
}

type connectionRepository struct {
	pool *pgxpool.Pool
}

// NewConnectionRepository builds repository.
func NewConnectionRepository(pool *pgxpool.Pool) ConnectionRepository {
	return &connectionRepository{pool: pool}
}

func (r *connectionRepository) Create(ctx context.Context, c *domain.Connection) error {
	const query = `
        INSERT INTO connections (account_low, account_high, connected_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (account_low, account_high) DO NOTHING`
	low, high := domain.OrderedPair(c.AccountLow, c.AccountHigh)
	_, err := conn(ctx, r.pool).Exec(ctx, query, low, high, c.ConnectedAt)
	return err
}

func (r *connectionRepository) Exists(ctx context.Context, a, b string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM connections WHERE account_low=$1 AND account_high=$2)`
	low, high := domain.OrderedPair(a, b)
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, query, low, high).Scan(&exists)
	return exists, err
}

func (r *connectionRepository) CountForAccount(ctx context.Context, accountID string) (int, error) {
	const query = `SELECT COUNT(*) FROM connections WHERE account_low=$1 OR account_high=$1`
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, query, accountID).Scan(&count)
	return count, err
}

func (r *connectionRepository) Mutual(ctx context.Context, a, b string, limit int) ([]string, error) {
	const query = `
        WITH peers_a AS (
            SELECT CASE WHEN account_low=$1 THEN account_high ELSE account_low END AS peer
            FROM connections WHERE account_low=$1 OR account_high=$1
        ), peers_b AS (
            SELECT CASE WHEN account_low=$2 THEN account_high ELSE account_low END AS peer
            FROM connections WHERE account_low=$2 OR account_high=$2
        )
        SELECT pa.peer::text FROM peers_a pa JOIN peers_b pb ON pa.peer = pb.peer
        JOIN accounts a ON a.id = pa.peer AND a.status = 'ACTIVE'
        ORDER BY pa.peer
        LIMIT $3`
	rows, err := conn(ctx, r.pool).Query(ctx, query, a, b, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
