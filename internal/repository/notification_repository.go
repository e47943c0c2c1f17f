package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// NotificationRepository stores inbox entries.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByAccount(ctx context.Context, accountID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, accountID string, ids []string) (int64, error)
	MarkAllRead(ctx context.Context, accountID string) (int64, error)
	CountUnread(ctx context.Context, accountID string) (int, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (account_id, type, message, related_account_id, is_read, created_at)
        VALUES ($1,$2,$3,$4,FALSE,$5)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		n.AccountID,
		n.Type,
		n.Message,
		n.RelatedAccountID,
		n.CreatedAt,
	).Scan(&n.ID)
}

func (r *notificationRepository) ListByAccount(ctx context.Context, accountID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	limit, offset = normalizePage(limit, offset, 20, 100)
	const query = `
        SELECT id, account_id, type, message, related_account_id, is_read, created_at
        FROM notifications
        WHERE account_id=$1 AND ($2 = FALSE OR is_read = FALSE)
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := conn(ctx, r.pool).Query(ctx, query, accountID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.AccountID,
			&n.Type,
			&n.Message,
			&n.RelatedAccountID,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, accountID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE notifications SET is_read=TRUE WHERE account_id=$1 AND id = ANY($2::uuid[])`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, accountID, ids)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, accountID string) (int64, error) {
	const query = `UPDATE notifications SET is_read=TRUE WHERE account_id=$1 AND is_read=FALSE`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, accountID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, accountID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE account_id=$1 AND is_read=FALSE`
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, query, accountID).Scan(&count)
	return count, err
}
