package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/matchmaking-service/internal/auth"
	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository/memstore"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeMedia struct{ saved int }

func (f *fakeMedia) Save(_ context.Context, accountID, _, _ string, _ int64, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.saved++
	return "/uploads/profiles/" + accountID + ".jpg", nil
}

type harness struct {
	ctx      context.Context
	now      time.Time
	store    *memstore.Store
	policy   config.PolicyConfig
	events   *recorder
	media    *fakeMedia
	access   *AccessService
	conns    *ConnectionService
	msgs     *MessagingService
	search   *SearchService
	profiles *ProfileService
	auth     *AuthService
	subs     *SubscriptionService
	notes    *NotificationService
	revoker  *auth.MemoryRevoker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:    context.Background(),
		now:    baseTime,
		policy: config.DefaultPolicy(),
		events: &recorder{},
		media:  &fakeMedia{},
	}
	clock := func() time.Time { return h.now }
	h.store = memstore.New().WithClock(clock)

	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, et := range []events.EventType{
		events.EventRequestSent, events.EventRequestAccepted, events.EventRequestDeclined,
		events.EventMessageSent, events.EventPackageExpired, events.EventPackageActivated,
		events.EventPasswordResetRequested,
	} {
		dispatcher.Subscribe(et, h.events.handle)
	}

	s := h.store
	h.access = NewAccessService(h.policy, AccessDependencies{
		Transactor:     s.Transactor(),
		AccountRepo:    s.Accounts(),
		PackageRepo:    s.Packages(),
		ViewRepo:       s.ProfileViews(),
		PrivacyRepo:    s.Privacy(),
		ConnectionRepo: s.Connections(),
		ActivityRepo:   s.Activities(),
		Dispatcher:     dispatcher,
	}).WithClock(clock)
	h.conns = NewConnectionService(h.policy, ConnectionDependencies{
		Transactor:       s.Transactor(),
		AccountRepo:      s.Accounts(),
		PackageRepo:      s.Packages(),
		RequestRepo:      s.Requests(),
		ConnectionRepo:   s.Connections(),
		NotificationRepo: s.Notifications(),
		ActivityRepo:     s.Activities(),
		PrivacyRepo:      s.Privacy(),
		Access:           h.access,
		Dispatcher:       dispatcher,
	}).WithClock(clock)
	h.msgs = NewMessagingService(h.policy, MessagingDependencies{
		Transactor:       s.Transactor(),
		AccountRepo:      s.Accounts(),
		RequestRepo:      s.Requests(),
		ConnectionRepo:   s.Connections(),
		MessageRepo:      s.Messages(),
		NotificationRepo: s.Notifications(),
		ActivityRepo:     s.Activities(),
		Dispatcher:       dispatcher,
	}).WithClock(clock)
	h.search = NewSearchService(h.policy, s.Accounts(), h.access, h.conns).WithClock(clock)
	h.profiles = NewProfileService(h.policy, ProfileDependencies{
		Transactor:      s.Transactor(),
		AccountRepo:     s.Accounts(),
		ViewRepo:        s.ProfileViews(),
		PrivacyRepo:     s.Privacy(),
		PreferencesRepo: s.Preferences(),
		ActivityRepo:    s.Activities(),
		ConnectionRepo:  s.Connections(),
		Access:          h.access,
		Connections:     h.conns,
		Media:           h.media,
	}).WithClock(clock)

	h.revoker = auth.NewMemoryRevoker(clock)
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			SessionTTLMinutes:       8 * 60,
			RememberMeTTLHours:      30 * 24,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
		Policy:  h.policy,
		Payment: config.PaymentConfig{AllowTestPayments: true},
	}
	h.auth = NewAuthService(cfg, AuthDependencies{
		Transactor:        s.Transactor(),
		AccountRepo:       s.Accounts(),
		PasswordResetRepo: s.PasswordResets(),
		PrivacyRepo:       s.Privacy(),
		ActivityRepo:      s.Activities(),
		Access:            h.access,
		Throttle:          auth.NewMemoryThrottle(h.policy.LoginLockout(), clock),
		Revoker:           h.revoker,
		Dispatcher:        dispatcher,
	}).WithClock(clock)
	h.subs = NewSubscriptionService(cfg.Payment, SubscriptionDependencies{
		Transactor:       s.Transactor(),
		AccountRepo:      s.Accounts(),
		PackageRepo:      s.Packages(),
		PaymentRepo:      s.Payments(),
		PromoCodeRepo:    s.PromoCodes(),
		NotificationRepo: s.Notifications(),
		ActivityRepo:     s.Activities(),
		Dispatcher:       dispatcher,
	}).WithClock(clock)
	h.notes = NewNotificationService(dispatcher, nil, cfg.Notification, s.Notifications(), s.Accounts())
	return h
}

// member creates an active account on code with a full request quota and a
// package valid for another 30 days.
func (h *harness) member(t *testing.T, name string, gender domain.Gender, code domain.PackageCode) domain.Account {
	t.Helper()
	tier, err := h.store.Packages().GetByCode(h.ctx, code)
	require.NoError(t, err)
	a := &domain.Account{
		Email:             name + "@example.com",
		FirstName:         name,
		LastName:          "Perera",
		Gender:            gender,
		BirthDate:         time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC),
		Religion:          "Buddhist",
		Caste:             "Govigama",
		MaritalStatus:     "Single",
		Education:         "Degree",
		Profession:        "Engineer",
		IncomeRange:       "50k-100k",
		City:              "Colombo",
		Province:          "Western",
		Country:           "Sri Lanka",
		Phone:             "0771234567",
		Address:           "12 Galle Road",
		Status:            domain.AccountStatusActive,
		Role:              domain.AccountRoleMember,
		PackageCode:       code,
		RequestsRemaining: tier.RequestQuota,
	}
	if code != domain.PackageFree {
		exp := h.now.AddDate(0, 0, 30)
		a.PackageExpiresAt = &exp
	}
	require.NoError(t, h.store.Accounts().Create(h.ctx, a))
	return *a
}

func (h *harness) account(t *testing.T, id string) domain.Account {
	t.Helper()
	a, err := h.store.Accounts().GetByID(h.ctx, id)
	require.NoError(t, err)
	return *a
}

func (h *harness) setPrivacy(t *testing.T, id string, visibility domain.ProfileVisibility, from domain.RequestPolicy) {
	t.Helper()
	p := domain.DefaultPrivacy(id)
	p.Visibility = visibility
	p.ReceiveRequestFrom = from
	require.NoError(t, h.store.Privacy().Upsert(h.ctx, p))
}

// connect sends and accepts a request from a to b.
func (h *harness) connect(t *testing.T, a, b string) {
	t.Helper()
	req, err := h.conns.SendRequest(h.ctx, a, b, "")
	require.NoError(t, err)
	_, err = h.conns.RespondToRequest(h.ctx, req.ID, b, domain.RequestActionAccept)
	require.NoError(t, err)
}

func (h *harness) activities(t *testing.T, id string) []domain.Activity {
	t.Helper()
	list, err := h.store.Activities().ListByAccount(h.ctx, id, 100)
	require.NoError(t, err)
	return list
}

func hasActivity(list []domain.Activity, kind domain.ActivityType) bool {
	for _, a := range list {
		if a.Type == kind {
			return true
		}
	}
	return false
}
