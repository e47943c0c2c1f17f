package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

// expiryWarningDays is how close to expiry a paid package starts warning.
const expiryWarningDays = 7

// AccessService resolves packages into capabilities and decides how much of
// a profile a viewer may see.
type AccessService struct {
	tx          repository.Transactor
	accounts    repository.AccountRepository
	packages    repository.PackageRepository
	views       repository.ProfileViewRepository
	privacy     repository.PrivacyRepository
	connections repository.ConnectionRepository
	activities  repository.ActivityRepository
	dispatcher  events.Dispatcher
	policy      config.PolicyConfig
	loc         *time.Location
	now         func() time.Time
}

// AccessDependencies bundles repositories for the access service.
type AccessDependencies struct {
	Transactor     repository.Transactor
	AccountRepo    repository.AccountRepository
	PackageRepo    repository.PackageRepository
	ViewRepo       repository.ProfileViewRepository
	PrivacyRepo    repository.PrivacyRepository
	ConnectionRepo repository.ConnectionRepository
	ActivityRepo   repository.ActivityRepository
	Dispatcher     events.Dispatcher
}

// NewAccessService constructs the service.
func NewAccessService(policy config.PolicyConfig, deps AccessDependencies) *AccessService {
	return &AccessService{
		tx:          deps.Transactor,
		accounts:    deps.AccountRepo,
		packages:    deps.PackageRepo,
		views:       deps.ViewRepo,
		privacy:     deps.PrivacyRepo,
		connections: deps.ConnectionRepo,
		activities:  deps.ActivityRepo,
		dispatcher:  deps.Dispatcher,
		policy:      policy,
		loc:         policy.Location(),
		now:         time.Now,
	}
}

// WithClock overrides the time source.
func (s *AccessService) WithClock(now func() time.Time) *AccessService {
	s.now = now
	return s
}

// PackageStatus is an account's tier after lazy expiry has been applied.
type PackageStatus struct {
	Tier              domain.PackageTier
	Downgraded        bool
	ExpiresAt         *time.Time
	DaysRemaining     *int
	ExpiringSoon      bool
	RequestsRemaining int
}

// ResolvePackage returns the account's current tier. A paid package whose
// expiry has passed is downgraded to FREE with zero requests in its own
// committed transaction. Expiry is only noticed when an account is touched,
// so an idle account keeps its stale tier until its next visit.
func (s *AccessService) ResolvePackage(ctx context.Context, accountID string) (*PackageStatus, *domain.Account, error) {
	now := s.now()
	var (
		account    *domain.Account
		downgraded bool
		previous   domain.PackageCode
		expiredAt  time.Time
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		if !domain.PackageExpired(account.PackageCode, account.PackageExpiresAt, now) {
			return nil
		}

		previous = account.PackageCode
		if account.PackageExpiresAt != nil {
			expiredAt = *account.PackageExpiresAt
		}
		if err := s.accounts.UpdatePackage(ctx, account.ID, domain.PackageFree, nil, 0); err != nil {
			return fmt.Errorf("downgrade package: %w", err)
		}
		account.PackageCode = domain.PackageFree
		account.PackageExpiresAt = nil
		account.RequestsRemaining = 0
		downgraded = true

		return recordActivity(ctx, s.activities, account.ID, domain.ActivityPackageExpired,
			fmt.Sprintf("%s package expired, moved to Free", previous), now)
	})
	if err != nil {
		return nil, nil, err
	}

	if downgraded {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:      events.EventPackageExpired,
			AccountID: account.ID,
			Payload:   events.PackageExpiredPayload{Previous: previous, ExpiredAt: expiredAt},
		}, now)
	}

	tier, err := s.packages.GetByCode(ctx, account.PackageCode)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrPackageNotFound
		}
		return nil, nil, err
	}

	status := &PackageStatus{
		Tier:              *tier,
		Downgraded:        downgraded,
		ExpiresAt:         account.PackageExpiresAt,
		RequestsRemaining: account.RequestsRemaining,
	}
	if account.PackageExpiresAt != nil && !tier.IsFree() {
		days := int(math.Ceil(account.PackageExpiresAt.Sub(now).Hours() / 24))
		status.DaysRemaining = &days
		status.ExpiringSoon = days <= expiryWarningDays
	}
	return status, account, nil
}

// CheckBrowseQuota fails once the viewer has opened as many distinct profiles
// today as their tier allows.
func (s *AccessService) CheckBrowseQuota(ctx context.Context, viewerID string, tier domain.PackageTier) error {
	used, err := s.views.CountViewedSince(ctx, viewerID, s.today())
	if err != nil {
		return err
	}
	if used >= tier.DailyViewQuota {
		return ErrDailyViewQuota.WithDetails(map[string]any{
			"limit": tier.DailyViewQuota,
			"used":  used,
		})
	}
	return nil
}

// ProfileAccess is the outcome of CheckProfileAccess.
type ProfileAccess struct {
	Allowed   bool
	Level     domain.AccessLevel
	Connected bool
	Privacy   domain.PrivacySettings
}

// CheckProfileAccess decides how much of target the viewer may see given the
// viewer's tier rank.
func (s *AccessService) CheckProfileAccess(ctx context.Context, viewerID string, viewerRank int, targetID string) (*ProfileAccess, error) {
	connected, err := s.connections.Exists(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	privacy, err := s.privacy.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	level := AccessLevelFor(connected, privacy.Visibility, viewerRank)
	return &ProfileAccess{
		Allowed:   level > domain.AccessDenied,
		Level:     level,
		Connected: connected,
		Privacy:   privacy,
	}, nil
}

// AccessLevelFor is the visibility matrix. A connection always grants full
// access regardless of the target's visibility.
func AccessLevelFor(connected bool, visibility domain.ProfileVisibility, viewerRank int) domain.AccessLevel {
	if connected {
		return domain.AccessFull
	}
	switch visibility {
	case domain.VisibilityPublic, domain.VisibilityMembersOnly:
		return domain.AccessBasic
	case domain.VisibilityPremiumOnly:
		if viewerRank >= domain.PremiumRank {
			return domain.AccessDetailed
		}
		return domain.AccessDenied
	case domain.VisibilityHidden:
		return domain.AccessDenied
	default:
		return domain.AccessDenied
	}
}

func (s *AccessService) today() time.Time {
	return startOfDay(s.now(), s.loc)
}
