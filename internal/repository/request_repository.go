package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// requestsNewestFirst breaks created_at ties so an unanswered request sorts
// ahead of an answered one, then by answer time.
const requestsNewestFirst = `created_at DESC, responded_at DESC NULLS FIRST, id DESC`

// RequestFilter narrows request listings.
type RequestFilter struct {
	Status *domain.RequestStatus
	Limit  int
	Offset int
}

// RequestCounts feeds the member dashboard.
type RequestCounts struct {
	SentPending     int
	ReceivedPending int
}

// RequestRepository persists connection requests.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.ConnectionRequest) error
	GetByID(ctx context.Context, id string) (*domain.ConnectionRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.ConnectionRequest, error)
	// Resolve moves a Pending request to status. It returns pgx.ErrNoRows
	// when the request is no longer Pending.
	Resolve(ctx context.Context, id string, status domain.RequestStatus, at time.Time) error
	// ListBetween returns every request between a and b in either direction,
	// newest first.
	ListBetween(ctx context.Context, a, b string) ([]domain.ConnectionRequest, error)
	// ListInvolving returns requests between viewer and any of others.
	ListInvolving(ctx context.Context, viewer string, others []string) ([]domain.ConnectionRequest, error)
	CountSentSince(ctx context.Context, senderID string, since time.Time) (int, error)
	ListSent(ctx context.Context, senderID string, filter RequestFilter) ([]domain.ConnectionRequest, error)
	ListReceived(ctx context.Context, receiverID string, filter RequestFilter) ([]domain.ConnectionRequest, error)
	CountPending(ctx context.Context, accountID string) (RequestCounts, error)
	// LockPair serializes writers on the unordered pair until the
	// surrounding transaction ends.
	LockPair(ctx context.Context, a, b string) error
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository builds repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, sender_id, receiver_id, status, note, created_at, responded_at`

func (r *requestRepository) Create(ctx context.Context, req *domain.ConnectionRequest) error {
	const query = `
        INSERT INTO connection_requests (sender_id, receiver_id, status, note, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		req.SenderID,
		req.ReceiverID,
		req.Status,
		req.Note,
		req.CreatedAt,
	).Scan(&req.ID)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.ConnectionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM connection_requests WHERE id=$1`
	return scanRequest(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *requestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.ConnectionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM connection_requests WHERE id=$1 FOR UPDATE`
	return scanRequest(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *requestRepository) Resolve(ctx context.Context, id string, status domain.RequestStatus, at time.Time) error {
	const query = `
        UPDATE connection_requests SET status=$1, responded_at=$2
        WHERE id=$3 AND status='PENDING'`
	return execOne(ctx, conn(ctx, r.pool), query, status, at, id)
}

func (r *requestRepository) ListBetween(ctx context.Context, a, b string) ([]domain.ConnectionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM connection_requests
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY ` + requestsNewestFirst
	rows, err := conn(ctx, r.pool).Query(ctx, query, a, b)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *requestRepository) ListInvolving(ctx context.Context, viewer string, others []string) ([]domain.ConnectionRequest, error) {
	if len(others) == 0 {
		return nil, nil
	}
	query := `SELECT ` + requestColumns + ` FROM connection_requests
        WHERE (sender_id=$1 AND receiver_id = ANY($2::uuid[]))
           OR (receiver_id=$1 AND sender_id = ANY($2::uuid[]))
        ORDER BY ` + requestsNewestFirst
	rows, err := conn(ctx, r.pool).Query(ctx, query, viewer, others)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *requestRepository) CountSentSince(ctx context.Context, senderID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM connection_requests WHERE sender_id=$1 AND created_at >= $2`
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, query, senderID, since).Scan(&count)
	return count, err
}

func (r *requestRepository) ListSent(ctx context.Context, senderID string, filter RequestFilter) ([]domain.ConnectionRequest, error) {
	return r.list(ctx, "sender_id", senderID, filter)
}

func (r *requestRepository) ListReceived(ctx context.Context, receiverID string, filter RequestFilter) ([]domain.ConnectionRequest, error) {
	return r.list(ctx, "receiver_id", receiverID, filter)
}

func (r *requestRepository) list(ctx context.Context, column, accountID string, filter RequestFilter) ([]domain.ConnectionRequest, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset, 20, 100)
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	// column is one of two fixed names chosen by ListSent/ListReceived
	query := `SELECT ` + requestColumns + ` FROM connection_requests
        WHERE ` + column + `=$1 AND ($2::text IS NULL OR status=$2)
        ORDER BY ` + requestsNewestFirst + ` LIMIT $3 OFFSET $4`
	rows, err := conn(ctx, r.pool).Query(ctx, query, accountID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *requestRepository) CountPending(ctx context.Context, accountID string) (RequestCounts, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE sender_id=$1),
            COUNT(*) FILTER (WHERE receiver_id=$1)
        FROM connection_requests
        WHERE status='PENDING' AND (sender_id=$1 OR receiver_id=$1)`
	var counts RequestCounts
	err := conn(ctx, r.pool).QueryRow(ctx, query, accountID).Scan(&counts.SentPending, &counts.ReceivedPending)
	return counts, err
}

func (r *requestRepository) LockPair(ctx context.Context, a, b string) error {
	low, high := domain.OrderedPair(a, b)
	const query = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	_, err := conn(ctx, r.pool).Exec(ctx, query, low+":"+high)
	return err
}

func scanRequest(row pgx.Row) (*domain.ConnectionRequest, error) {
	var req domain.ConnectionRequest
	if err := row.Scan(
		&req.ID,
		&req.SenderID,
		&req.ReceiverID,
		&req.Status,
		&req.Note,
		&req.CreatedAt,
		&req.RespondedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func scanRequests(rows pgx.Rows) ([]domain.ConnectionRequest, error) {
	defer rows.Close()
	var result []domain.ConnectionRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func normalizePage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
