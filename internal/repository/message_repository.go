package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// ConversationQuery pages through a conversation.
type ConversationQuery struct {
	Limit  int
	Offset int
	// AfterID returns only messages newer than this one, oldest first.
	AfterID *string
}

// MessageRepository persists chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListConversation returns messages between a and b in chronological order.
	ListConversation(ctx context.Context, a, b string, q ConversationQuery) ([]domain.Message, error)
	MarkRead(ctx context.Context, receiverID, senderID string) (int64, error)
	CountSentSince(ctx context.Context, senderID string, since time.Time) (int, error)
	Stats(ctx context.Context, viewerID, otherID string) (domain.ConversationStats, error)
	TouchConversation(ctx context.Context, a, b string, at time.Time) error
	// ListConversations pages through accountID's conversations, most
	// recently active first.
	ListConversations(ctx context.Context, accountID string, limit, offset int) ([]domain.ConversationSummary, error)
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// CreateReport fails with a unique violation when the reporter already
	// reported the message.
	CreateReport(ctx context.Context, report *domain.MessageReport) error
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

const messageColumns = `id, sender_id, receiver_id, body, is_read, created_at`

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (sender_id, receiver_id, body, is_read, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		msg.SenderID,
		msg.ReceiverID,
		msg.Body,
		msg.IsRead,
		msg.CreatedAt,
	).Scan(&msg.ID)
}

func (r *messageRepository) ListConversation(ctx context.Context, a, b string, q ConversationQuery) ([]domain.Message, error) {
	limit, offset := normalizePage(q.Limit, q.Offset, 50, 100)
	db := conn(ctx, r.pool)

	if q.AfterID != nil {
		query := `SELECT ` + messageColumns + ` FROM messages
            WHERE ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1))
              AND (created_at, id) > (SELECT created_at, id FROM messages WHERE id=$3)
            ORDER BY created_at ASC, id ASC LIMIT $4`
		rows, err := db.Query(ctx, query, a, b, *q.AfterID, limit)
		if err != nil {
			return nil, err
		}
		return scanMessages(rows)
	}

	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`
	rows, err := db.Query(ctx, query, a, b, limit, offset)
	if err != nil {
		return nil, err
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	const query = `
        UPDATE messages SET is_read=TRUE
        WHERE receiver_id=$1 AND sender_id=$2 AND is_read=FALSE`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, receiverID, senderID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *messageRepository) CountSentSince(ctx context.Context, senderID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE sender_id=$1 AND created_at >= $2`
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, query, senderID, since).Scan(&count)
	return count, err
}

func (r *messageRepository) Stats(ctx context.Context, viewerID, otherID string) (domain.ConversationStats, error) {
	const query = `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE sender_id=$1),
            COUNT(*) FILTER (WHERE sender_id=$2),
            COUNT(*) FILTER (WHERE receiver_id=$1 AND is_read=FALSE),
            MIN(created_at),
            MAX(created_at)
        FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)`
	var stats domain.ConversationStats
	err := conn(ctx, r.pool).QueryRow(ctx, query, viewerID, otherID).Scan(
		&stats.Total,
		&stats.SentByMe,
		&stats.SentByThem,
		&stats.Unread,
		&stats.FirstMessage,
		&stats.LastMessage,
	)
	return stats, err
}

func (r *messageRepository) TouchConversation(ctx context.Context, a, b string, at time.Time) error {
	const query = `
        INSERT INTO conversation_activity (account_low, account_high, last_activity)
        VALUES ($1,$2,$3)
        ON CONFLICT (account_low, account_high) DO UPDATE SET last_activity = EXCLUDED.last_activity`
	low, high := domain.OrderedPair(a, b)
	_, err := conn(ctx, r.pool).Exec(ctx, query, low, high, at)
	return err
}

func (r *messageRepository) ListConversations(ctx context.Context, accountID string, limit, offset int) ([]domain.ConversationSummary, error) {
	limit, offset = normalizePage(limit, offset, 20, 100)
	const query = `
        WITH convo AS (
            SELECT CASE WHEN account_low=$1 THEN account_high ELSE account_low END AS other_id,
                   last_activity
            FROM conversation_activity
            WHERE account_low=$1 OR account_high=$1
        )
        SELECT c.other_id::text, c.last_activity,
               lm.id::text, lm.sender_id::text, lm.receiver_id::text, lm.body, lm.is_read, lm.created_at,
               (SELECT COUNT(*) FROM messages u
                WHERE u.receiver_id=$1 AND u.sender_id=c.other_id AND u.is_read=FALSE)
        FROM convo c
        LEFT JOIN LATERAL (
            SELECT ` + messageColumns + ` FROM messages m
            WHERE (m.sender_id=$1 AND m.receiver_id=c.other_id) OR (m.sender_id=c.other_id AND m.receiver_id=$1)
            ORDER BY m.created_at DESC, m.id DESC
            LIMIT 1
        ) lm ON TRUE
        ORDER BY c.last_activity DESC, c.other_id
        LIMIT $2 OFFSET $3`
	rows, err := conn(ctx, r.pool).Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ConversationSummary
	for rows.Next() {
		var (
			sum                           domain.ConversationSummary
			msgID, sender, receiver, body *string
			isRead                        *bool
			createdAt                     *time.Time
		)
		if err := rows.Scan(
			&sum.OtherID,
			&sum.LastActivity,
			&msgID,
			&sender,
			&receiver,
			&body,
			&isRead,
			&createdAt,
			&sum.Unread,
		); err != nil {
			return nil, err
		}
		if msgID != nil {
			sum.LastMessage = &domain.Message{
				ID:         *msgID,
				SenderID:   *sender,
				ReceiverID: *receiver,
				Body:       *body,
				IsRead:     *isRead,
				CreatedAt:  *createdAt,
			}
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	rows, err := conn(ctx, r.pool).Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &msgs[0], nil
}

func (r *messageRepository) CreateReport(ctx context.Context, report *domain.MessageReport) error {
	const query = `
        INSERT INTO message_reports (message_id, reporter_id, reason, status, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		report.MessageID,
		report.ReporterID,
		report.Reason,
		report.Status,
		report.CreatedAt,
	).Scan(&report.ID)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	defer rows.Close()
	var result []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID,
			&m.SenderID,
			&m.ReceiverID,
			&m.Body,
			&m.IsRead,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
