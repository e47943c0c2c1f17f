package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// ProfileViewRepository tracks profile views for quota enforcement.
type ProfileViewRepository interface {
	Record(ctx context.Context, viewerID, viewedID string, at time.Time) error
	// CountViewedSince counts distinct profiles the viewer opened at or after since.
	CountViewedSince(ctx context.Context, viewerID string, since time.Time) (int, error)
	ViewedSince(ctx context.Context, viewerID, viewedID string, since time.Time) (bool, error)
}

// PrivacyRepository stores privacy settings.
type PrivacyRepository interface {
	// Get returns defaults when the member never saved settings.
	Get(ctx context.Context, accountID string) (domain.PrivacySettings, error)
	Upsert(ctx context.Context, settings domain.PrivacySettings) error
}

// PreferencesRepository stores partner preferences.
type PreferencesRepository interface {
	// Get returns nil, nil when nothing was saved.
	Get(ctx context.Context, accountID string) (*domain.PartnerPreferences, error)
	Upsert(ctx context.Context, prefs domain.PartnerPreferences) error
}

type profileViewRepository struct {
	pool *pgxpool.Pool
}

// NewProfileViewRepository builds repository.
func NewProfileViewRepository(pool *pgxpool.Pool) ProfileViewRepository {
	return &profileViewRepository{pool: pool}
}

func (r *profileViewRepository) Record(ctx context.Context, viewerID, viewedID string, at time.Time) error {
	const query = `
        INSERT INTO profile_views (viewer_id, viewed_id, view_count, last_viewed)
        VALUES ($1,$2,1,$3)
        ON CONFLICT (viewer_id, viewed_id)
        DO UPDATE SET view_count = profile_views.view_count + 1, last_viewed = EXCLUDED.last_viewed`
	_, err := conn(ctx, r.pool).Exec(ctx, query, viewerID, viewedID, at)
	return err
}

func (r *profileViewRepository) CountViewedSince(ctx context.Context, viewerID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM profile_views WHERE viewer_id=$1 AND last_viewed >= $2`
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, query, viewerID, since).Scan(&count)
	return count, err
}

func (r *profileViewRepository) ViewedSince(ctx context.Context, viewerID, viewedID string, since time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM profile_views WHERE viewer_id=$1 AND viewed_id=$2 AND last_viewed >= $3)`
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, query, viewerID, viewedID, since).Scan(&exists)
	return exists, err
}

type privacyRepository struct {
	pool *pgxpool.Pool
}

// NewPrivacyRepository builds repository.
func NewPrivacyRepository(pool *pgxpool.Pool) PrivacyRepository {
	return &privacyRepository{pool: pool}
}

func (r *privacyRepository) Get(ctx context.Context, accountID string) (domain.PrivacySettings, error) {
	const query = `
        SELECT account_id, profile_visibility, receive_requests, show_phone, show_email
        FROM privacy_settings WHERE account_id=$1`
	var s domain.PrivacySettings
	err := conn(ctx, r.pool).QueryRow(ctx, query, accountID).Scan(
		&s.AccountID,
		&s.Visibility,
		&s.ReceiveRequestFrom,
		&s.ShowPhone,
		&s.ShowEmail,
	)
	if IsNotFound(err) {
		return domain.DefaultPrivacy(accountID), nil
	}
	if err != nil {
		return domain.PrivacySettings{}, err
	}
	return s, nil
}

func (r *privacyRepository) Upsert(ctx context.Context, s domain.PrivacySettings) error {
	const query = `
        INSERT INTO privacy_settings (account_id, profile_visibility, receive_requests, show_phone, show_email)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (account_id) DO UPDATE SET
            profile_visibility = EXCLUDED.profile_visibility,
            receive_requests = EXCLUDED.receive_requests,
            show_phone = EXCLUDED.show_phone,
            show_email = EXCLUDED.show_email,
            updated_at = NOW()`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		s.AccountID,
		s.Visibility,
		s.ReceiveRequestFrom,
		s.ShowPhone,
		s.ShowEmail,
	)
	return err
}

type preferencesRepository struct {
	pool *pgxpool.Pool
}

// NewPreferencesRepository builds repository.
func NewPreferencesRepository(pool *pgxpool.Pool) PreferencesRepository {
	return &preferencesRepository{pool: pool}
}

func (r *preferencesRepository) Get(ctx context.Context, accountID string) (*domain.PartnerPreferences, error) {
	const query = `
        SELECT account_id, min_age, max_age, religion, caste, education, location, marital_status, profession
        FROM partner_preferences WHERE account_id=$1`
	var p domain.PartnerPreferences
	err := conn(ctx, r.pool).QueryRow(ctx, query, accountID).Scan(
		&p.AccountID,
		&p.MinAge,
		&p.MaxAge,
		&p.Religion,
		&p.Caste,
		&p.Education,
		&p.Location,
		&p.MaritalStatus,
		&p.Profession,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *preferencesRepository) Upsert(ctx context.Context, p domain.PartnerPreferences) error {
	const query = `
        INSERT INTO partner_preferences (account_id, min_age, max_age, religion, caste, education, location, marital_status, profession)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (account_id) DO UPDATE SET
            min_age = EXCLUDED.min_age,
            max_age = EXCLUDED.max_age,
            religion = EXCLUDED.religion,
            caste = EXCLUDED.caste,
            education = EXCLUDED.education,
            location = EXCLUDED.location,
            marital_status = EXCLUDED.marital_status,
            profession = EXCLUDED.profession,
            updated_at = NOW()`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		p.AccountID,
		p.MinAge,
		p.MaxAge,
		p.Religion,
		p.Caste,
		p.Education,
		p.Location,
		p.MaritalStatus,
		p.Profession,
	)
	return err
}
