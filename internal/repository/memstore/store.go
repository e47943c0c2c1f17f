// Package memstore is an in-memory implementation of the repository
// interfaces. Transactions are serialized and roll back on error, which
// makes it suitable for service tests that need atomicity.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

type pairKey [2]string

func keyOf(a, b string) pairKey {
	low, high := domain.OrderedPair(a, b)
	return pairKey{low, high}
}

type state struct {
	accounts      map[string]domain.Account
	packages      map[domain.PackageCode]domain.PackageTier
	requests      []domain.ConnectionRequest
	connections   map[pairKey]domain.Connection
	messages      []domain.Message
	conversations map[pairKey]time.Time
	notifications []domain.Notification
	activities    []domain.Activity
	views         map[pairKey]domain.ProfileView
	privacy       map[string]domain.PrivacySettings
	prefs         map[string]domain.PartnerPreferences
	payments      []domain.PaymentTransaction
	resets        []domain.PasswordResetToken
	promos        map[string]domain.PromoCode
	redemptions   []domain.PromoRedemption
	reports       []domain.MessageReport
}

func (s *state) clone() *state {
	c := &state{
		accounts:      make(map[string]domain.Account, len(s.accounts)),
		packages:      make(map[domain.PackageCode]domain.PackageTier, len(s.packages)),
		requests:      append([]domain.ConnectionRequest(nil), s.requests...),
		connections:   make(map[pairKey]domain.Connection, len(s.connections)),
		messages:      append([]domain.Message(nil), s.messages...),
		conversations: make(map[pairKey]time.Time, len(s.conversations)),
		notifications: append([]domain.Notification(nil), s.notifications...),
		activities:    append([]domain.Activity(nil), s.activities...),
		views:         make(map[pairKey]domain.ProfileView, len(s.views)),
		privacy:       make(map[string]domain.PrivacySettings, len(s.privacy)),
		prefs:         make(map[string]domain.PartnerPreferences, len(s.prefs)),
		payments:      append([]domain.PaymentTransaction(nil), s.payments...),
		resets:        append([]domain.PasswordResetToken(nil), s.resets...),
		promos:        make(map[string]domain.PromoCode, len(s.promos)),
		redemptions:   append([]domain.PromoRedemption(nil), s.redemptions...),
		reports:       append([]domain.MessageReport(nil), s.reports...),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.packages {
		c.packages[k] = v
	}
	for k, v := range s.connections {
		c.connections[k] = v
	}
	for k, v := range s.conversations {
		c.conversations[k] = v
	}
	for k, v := range s.views {
		c.views[k] = v
	}
	for k, v := range s.privacy {
		c.privacy[k] = v
	}
	for k, v := range s.prefs {
		c.prefs[k] = v
	}
	for k, v := range s.promos {
		c.promos[k] = v
	}
	return c
}

// Store holds all tables.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *state
	now  func() time.Time
}

// New returns an empty store seeded with the standard package tiers.
func New() *Store {
	s := &Store{
		data: &state{
			accounts:      map[string]domain.Account{},
			packages:      map[domain.PackageCode]domain.PackageTier{},
			connections:   map[pairKey]domain.Connection{},
			conversations: map[pairKey]time.Time{},
			views:         map[pairKey]domain.ProfileView{},
			privacy:       map[string]domain.PrivacySettings{},
			prefs:         map[string]domain.PartnerPreferences{},
			promos:        map[string]domain.PromoCode{},
		},
		now: time.Now,
	}
	for _, tier := range DefaultTiers() {
		s.data.packages[tier.Code] = tier
	}
	return s
}

// WithClock sets the clock used for created/updated timestamps the store fills in itself.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// DefaultTiers mirrors the seeded packages table.
func DefaultTiers() []domain.PackageTier {
	return []domain.PackageTier{
		{Code: domain.PackageFree, Name: "Free", Rank: 1, DailyViewQuota: 20, DailyRequestCap: 5, IsActive: true},
		{Code: domain.PackageSilver, Name: "Silver", Rank: 2, PriceLKR: 1500, DurationDays: 30, RequestQuota: 50, DailyViewQuota: 50, DailyRequestCap: 10, IsActive: true},
		{Code: domain.PackageGold, Name: "Gold", Rank: 3, PriceLKR: 2500, DurationDays: 30, RequestQuota: 100, DailyViewQuota: 100, DailyRequestCap: 15, IsActive: true},
		{Code: domain.PackagePremium, Name: "Premium", Rank: 4, PriceLKR: 5000, DurationDays: 30, RequestQuota: 200, DailyViewQuota: 500, DailyRequestCap: 25, IsActive: true},
	}
}

type txKey struct{}

// WithinTx serializes transactions and restores the pre-transaction
// snapshot when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Transactor() repository.Transactor { return s }

func (s *Store) Accounts() repository.AccountRepository           { return accountRepo{s} }
func (s *Store) Packages() repository.PackageRepository           { return packageRepo{s} }
func (s *Store) Requests() repository.RequestRepository           { return requestRepo{s} }
func (s *Store) Connections() repository.ConnectionRepository     { return connectionRepo{s} }
func (s *Store) Messages() repository.MessageRepository           { return messageRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Activities() repository.ActivityRepository        { return activityRepo{s} }
func (s *Store) ProfileViews() repository.ProfileViewRepository   { return viewRepo{s} }
func (s *Store) Privacy() repository.PrivacyRepository            { return privacyRepo{s} }
func (s *Store) Preferences() repository.PreferencesRepository    { return prefsRepo{s} }
func (s *Store) Payments() repository.PaymentRepository           { return paymentRepo{s} }
func (s *Store) PromoCodes() repository.PromoCodeRepository       { return promoRepo{s} }
func (s *Store) PasswordResets() repository.PasswordResetRepository {
	return resetRepo{s}
}

func (s *Store) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func newID() string {
	return uuid.NewString()
}
