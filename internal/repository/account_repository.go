package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// AccountRepository defines persistence access for member accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Account, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error
	UpdatePackage(ctx context.Context, id string, code domain.PackageCode, expiresAt *time.Time, requestsRemaining int) error
	// DecrementRequests lowers the remaining-request counter by one only while
	// it is positive. It reports false when nothing was left to spend.
	DecrementRequests(ctx context.Context, id string) (bool, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	Search(ctx context.Context, search AccountSearch) ([]domain.Account, int, error)
	FilterOptions(ctx context.Context, limit int) (FilterOptions, error)
	CountActive(ctx context.Context, excludeID string) (int, error)
}

// FilterOptions lists distinct values members can filter by.
type FilterOptions struct {
	Religions   []string
	Cities      []string
	Professions []string
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `a.id, a.email, a.password_hash, a.first_name, a.last_name, a.gender, a.birth_date,
        a.religion, a.caste, a.marital_status, a.education, a.profession, a.income_range,
        a.city, a.province, a.country, a.phone, a.address, a.about_me, a.profile_pic,
        a.status, a.role, a.package_code, a.package_expires_at, a.requests_remaining,
        a.email_notifications, a.last_active_at, a.created_at, a.updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (email, password_hash, first_name, last_name, gender, birth_date,
            religion, caste, marital_status, education, profession, income_range,
            city, province, country, phone, address, about_me,
            status, role, package_code, package_expires_at, requests_remaining, email_notifications)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
        RETURNING id, created_at, updated_at`

	return conn(ctx, r.pool).QueryRow(ctx, query,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Gender,
		account.BirthDate,
		account.Religion,
		account.Caste,
		account.MaritalStatus,
		account.Education,
		account.Profession,
		account.IncomeRange,
		account.City,
		account.Province,
		account.Country,
		account.Phone,
		account.Address,
		account.AboutMe,
		account.Status,
		account.Role,
		account.PackageCode,
		account.PackageExpiresAt,
		account.RequestsRemaining,
		account.EmailNotifications,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

// Update writes the editable profile columns. Package, status and password
// have dedicated methods so a profile edit can never overwrite them.
func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET first_name=$1, last_name=$2, birth_date=$3, religion=$4, caste=$5,
            marital_status=$6, education=$7, profession=$8, income_range=$9, city=$10,
            province=$11, country=$12, phone=$13, address=$14, about_me=$15, profile_pic=$16,
            email_notifications=$17, updated_at=NOW()
        WHERE id=$18`

	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		account.FirstName,
		account.LastName,
		account.BirthDate,
		account.Religion,
		account.Caste,
		account.MaritalStatus,
		account.Education,
		account.Profession,
		account.IncomeRange,
		account.City,
		account.Province,
		account.Country,
		account.Phone,
		account.Address,
		account.AboutMe,
		account.ProfilePic,
		account.EmailNotifications,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id=$1`
	return scanAccount(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id=$1 FOR UPDATE`
	return scanAccount(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE LOWER(a.email)=LOWER($1)`
	return scanAccount(conn(ctx, r.pool).QueryRow(ctx, query, email))
}

func (r *accountRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = ANY($1::uuid[])`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return scanAccounts(rows)
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	const query = `UPDATE accounts SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	return execOne(ctx, conn(ctx, r.pool), query, hash, id)
}

func (r *accountRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	const query = `UPDATE accounts SET status=$1, updated_at=NOW() WHERE id=$2`
	return execOne(ctx, conn(ctx, r.pool), query, status, id)
}

func (r *accountRepository) UpdatePackage(ctx context.Context, id string, code domain.PackageCode, expiresAt *time.Time, requestsRemaining int) error {
	const query = `
        UPDATE accounts SET package_code=$1, package_expires_at=$2, requests_remaining=$3, updated_at=NOW()
        WHERE id=$4`
	return execOne(ctx, conn(ctx, r.pool), query, code, expiresAt, requestsRemaining, id)
}

func (r *accountRepository) DecrementRequests(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE accounts SET requests_remaining = requests_remaining - 1, updated_at=NOW()
        WHERE id=$1 AND requests_remaining > 0`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *accountRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_active_at=$1 WHERE id=$2`
	_, err := conn(ctx, r.pool).Exec(ctx, query, at, id)
	return err
}

func (r *accountRepository) Search(ctx context.Context, search AccountSearch) ([]domain.Account, int, error) {
	q := search.Build()
	db := conn(ctx, r.pool)

	var total int
	if err := db.QueryRow(ctx, q.CountSQL, q.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := db.Query(ctx, q.SelectSQL, q.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search accounts: %w", err)
	}
	accounts, err := scanAccounts(rows)
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

func (r *accountRepository) FilterOptions(ctx context.Context, limit int) (FilterOptions, error) {
	var opts FilterOptions
	columns := []struct {
		column string
		dest   *[]string
	}{
		{"religion", &opts.Religions},
		{"city", &opts.Cities},
		{"profession", &opts.Professions},
	}
	db := conn(ctx, r.pool)
	for _, col := range columns {
		// column names come from the fixed list above
		query := fmt.Sprintf(`
            SELECT DISTINCT %[1]s FROM accounts
            WHERE status='ACTIVE' AND %[1]s <> ''
            ORDER BY %[1]s LIMIT $1`, col.column)
		rows, err := db.Query(ctx, query, limit)
		if err != nil {
			return opts, err
		}
		values, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return opts, err
		}
		*col.dest = values
	}
	return opts, nil
}

func (r *accountRepository) CountActive(ctx context.Context, excludeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM accounts WHERE status='ACTIVE' AND id <> $1`
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, query, excludeID).Scan(&count)
	return count, err
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.FirstName,
		&a.LastName,
		&a.Gender,
		&a.BirthDate,
		&a.Religion,
		&a.Caste,
		&a.MaritalStatus,
		&a.Education,
		&a.Profession,
		&a.IncomeRange,
		&a.City,
		&a.Province,
		&a.Country,
		&a.Phone,
		&a.Address,
		&a.AboutMe,
		&a.ProfilePic,
		&a.Status,
		&a.Role,
		&a.PackageCode,
		&a.PackageExpiresAt,
		&a.RequestsRemaining,
		&a.EmailNotifications,
		&a.LastActiveAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAccounts(rows pgx.Rows) ([]domain.Account, error) {
	defer rows.Close()
	var result []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func execOne(ctx context.Context, db DBTX, query string, args ...any) error {
	cmd, err := db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
