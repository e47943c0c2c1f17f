package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

// SubscriptionService sells packages and activates them once paid.
type SubscriptionService struct {
	tx            repository.Transactor
	accounts      repository.AccountRepository
	packages      repository.PackageRepository
	payments      repository.PaymentRepository
	promos        repository.PromoCodeRepository
	notifications repository.NotificationRepository
	activities    repository.ActivityRepository
	dispatcher    events.Dispatcher
	cfg           config.PaymentConfig
	now           func() time.Time
}

// SubscriptionDependencies bundles repositories for the subscription service.
type SubscriptionDependencies struct {
	Transactor       repository.Transactor
	AccountRepo      repository.AccountRepository
	PackageRepo      repository.PackageRepository
	PaymentRepo      repository.PaymentRepository
	PromoCodeRepo    repository.PromoCodeRepository
	NotificationRepo repository.NotificationRepository
	ActivityRepo     repository.ActivityRepository
	Dispatcher       events.Dispatcher
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(cfg config.PaymentConfig, deps SubscriptionDependencies) *SubscriptionService {
	return &SubscriptionService{
		tx:            deps.Transactor,
		accounts:      deps.AccountRepo,
		packages:      deps.PackageRepo,
		payments:      deps.PaymentRepo,
		promos:        deps.PromoCodeRepo,
		notifications: deps.NotificationRepo,
		activities:    deps.ActivityRepo,
		dispatcher:    deps.Dispatcher,
		cfg:           cfg,
		now:           time.Now,
	}
}

// WithClock overrides the time source.
func (s *SubscriptionService) WithClock(now func() time.Time) *SubscriptionService {
	s.now = now
	return s
}

// ListPackages returns the tiers on sale, cheapest first.
func (s *SubscriptionService) ListPackages(ctx context.Context) ([]domain.PackageTier, error) {
	return s.packages.List(ctx, true)
}

// SubscribeInput is a purchase request. PromoCode is optional.
type SubscribeInput struct {
	Package   domain.PackageCode
	Method    domain.PaymentMethod
	PromoCode string
}

// Subscribe opens a pending payment for a paid package, applying any promo
// code. TEST payments and purchases discounted to zero are completed in the
// same transaction, so a failure leaves no payment row behind.
func (s *SubscriptionService) Subscribe(ctx context.Context, accountID string, in SubscribeInput) (*domain.PaymentTransaction, error) {
	accountID = canonicalID(accountID)
	in.PromoCode = domain.NormalizePromoCode(in.PromoCode)
	errs := fieldErrors{}
	if !in.Package.Valid() || in.Package == domain.PackageFree {
		errs.add("package", "must be SILVER, GOLD or PREMIUM")
	}
	if !in.Method.Valid() {
		errs.add("payment_method", "must be PAYHERE, SAMPATH, BANK_TRANSFER or TEST")
	}
	if len(in.PromoCode) > 32 {
		errs.add("promo_code", "must be at most 32 characters")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	if in.Method == domain.PaymentTest && !s.cfg.AllowTestPayments {
		return nil, ErrTestPaymentsDisabled
	}

	tier, err := s.packages.GetByCode(ctx, in.Package)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	if !tier.IsActive {
		return nil, ErrPackageNotFound
	}

	now := s.now()
	txn := &domain.PaymentTransaction{
		AccountID:   accountID,
		PackageCode: tier.Code,
		AmountLKR:   tier.PriceLKR,
		Method:      in.Method,
		Status:      domain.PaymentStatusPending,
		Reference:   uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var expiresAt time.Time
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.accounts.GetByIDForUpdate(ctx, accountID); err != nil {
			if repository.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		promo, err := s.applyPromo(ctx, in.PromoCode, tier, txn, now)
		if err != nil {
			return err
		}
		if err := s.payments.Create(ctx, txn); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if promo != nil {
			err := s.promos.Redeem(ctx, domain.PromoRedemption{
				PromoCodeID: promo.ID,
				AccountID:   accountID,
				PaymentID:   txn.ID,
				RedeemedAt:  now,
			})
			if repository.IsUniqueViolation(err) {
				return ErrPromoAlreadyUsed
			}
			if err != nil {
				return fmt.Errorf("redeem promo code: %w", err)
			}
		}
		if in.Method != domain.PaymentTest && txn.AmountLKR > 0 {
			return nil
		}
		expiresAt, err = s.settle(ctx, txn, domain.PaymentStatusCompleted, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if txn.Status == domain.PaymentStatusCompleted {
		s.publishActivated(ctx, txn, expiresAt, now)
	}
	return txn, nil
}

// applyPromo validates code for tier and discounts txn. An empty code is a no-op.
func (s *SubscriptionService) applyPromo(ctx context.Context, code string, tier *domain.PackageTier, txn *domain.PaymentTransaction, now time.Time) (*domain.PromoCode, error) {
	if code == "" {
		return nil, nil
	}
	promo, err := s.promos.GetByCodeForUpdate(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPromoInvalid
		}
		return nil, err
	}
	if !promo.UsableAt(now) || !promo.AppliesTo(tier.Code) {
		return nil, ErrPromoInvalid
	}
	if promo.UsageLimit > 0 {
		used, err := s.promos.CountRedemptions(ctx, promo.ID)
		if err != nil {
			return nil, err
		}
		if used >= promo.UsageLimit {
			return nil, ErrPromoExhausted
		}
	}
	discount := promo.Discount(tier.PriceLKR)
	txn.DiscountLKR = discount
	txn.AmountLKR = tier.PriceLKR - discount
	txn.PromoCodeID = &promo.ID
	return promo, nil
}

// CompletePayment applies the gateway outcome for reference. A completed
// payment activates the package; renewing the same unexpired package extends
// it from its current expiry, anything else starts from now. A failed payment
// gives back any promo code it held.
func (s *SubscriptionService) CompletePayment(ctx context.Context, reference string, status domain.PaymentStatus) (*domain.PaymentTransaction, error) {
	if status != domain.PaymentStatusCompleted && status != domain.PaymentStatusFailed {
		return nil, invalid(map[string]any{"status": "must be COMPLETED or FAILED"})
	}

	now := s.now()
	var (
		txn       *domain.PaymentTransaction
		expiresAt time.Time
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		txn, err = s.payments.GetByReferenceForUpdate(ctx, reference)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrPaymentNotFound
			}
			return err
		}
		if txn.Status != domain.PaymentStatusPending {
			return ErrPaymentAlreadyProcessed
		}
		expiresAt, err = s.settle(ctx, txn, status, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if status == domain.PaymentStatusCompleted {
		s.publishActivated(ctx, txn, expiresAt, now)
	}
	return txn, nil
}

// settle moves a pending payment to status inside the caller's transaction
// and, when completed, activates the package. It returns the new expiry.
func (s *SubscriptionService) settle(ctx context.Context, txn *domain.PaymentTransaction, status domain.PaymentStatus, now time.Time) (time.Time, error) {
	txn.Status = status
	txn.UpdatedAt = now
	if err := s.payments.UpdateStatus(ctx, txn); err != nil {
		return time.Time{}, fmt.Errorf("update payment: %w", err)
	}
	if status == domain.PaymentStatusFailed {
		if txn.PromoCodeID == nil {
			return time.Time{}, nil
		}
		if err := s.promos.ReleaseForPayment(ctx, txn.ID); err != nil {
			return time.Time{}, fmt.Errorf("release promo code: %w", err)
		}
		return time.Time{}, nil
	}

	tier, err := s.packages.GetByCode(ctx, txn.PackageCode)
	if err != nil {
		return time.Time{}, err
	}
	account, err := s.accounts.GetByIDForUpdate(ctx, txn.AccountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return time.Time{}, ErrAccountNotFound
		}
		return time.Time{}, err
	}

	start := now
	if account.PackageCode == tier.Code && account.PackageExpiresAt != nil && account.PackageExpiresAt.After(now) {
		start = *account.PackageExpiresAt
	}
	expiresAt := start.AddDate(0, 0, tier.DurationDays)
	if err := s.accounts.UpdatePackage(ctx, account.ID, tier.Code, &expiresAt, tier.RequestQuota); err != nil {
		return time.Time{}, fmt.Errorf("activate package: %w", err)
	}
	if err := recordActivity(ctx, s.activities, account.ID, domain.ActivityPackageUpgrade,
		fmt.Sprintf("Activated %s package", tier.Name), now); err != nil {
		return time.Time{}, err
	}
	err = pushNotification(ctx, s.notifications, account.ID, domain.NotificationPackageActivated,
		fmt.Sprintf("Your %s package is active until %s", tier.Name, expiresAt.Format("2006-01-02")), "", now)
	return expiresAt, err
}

func (s *SubscriptionService) publishActivated(ctx context.Context, txn *domain.PaymentTransaction, expiresAt, now time.Time) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventPackageActivated,
		AccountID: txn.AccountID,
		Payload: events.PackageActivatedPayload{
			Package:   txn.PackageCode,
			ExpiresAt: expiresAt,
			Reference: txn.Reference,
		},
	}, now)
}

// PromoCodeInput describes a new promo code.
type PromoCodeInput struct {
	Code           string
	DiscountType   domain.DiscountType
	DiscountValue  int64
	MaxDiscountLKR int64
	UsageLimit     int
	Package        *domain.PackageCode
	ValidFrom      *time.Time
	ValidUntil     time.Time
}

// CreatePromoCode issues a promo code. ValidFrom defaults to now.
func (s *SubscriptionService) CreatePromoCode(ctx context.Context, in PromoCodeInput) (*domain.PromoCode, error) {
	now := s.now()
	promo := &domain.PromoCode{
		Code:           domain.NormalizePromoCode(in.Code),
		DiscountType:   in.DiscountType,
		DiscountValue:  in.DiscountValue,
		MaxDiscountLKR: in.MaxDiscountLKR,
		UsageLimit:     in.UsageLimit,
		PackageCode:    in.Package,
		ValidFrom:      now,
		ValidUntil:     in.ValidUntil,
		IsActive:       true,
		CreatedAt:      now,
	}
	if in.ValidFrom != nil {
		promo.ValidFrom = *in.ValidFrom
	}

	errs := fieldErrors{}
	if n := len(promo.Code); n < 3 || n > 32 {
		errs.add("code", "must be 3 to 32 characters")
	}
	if !promo.DiscountType.Valid() {
		errs.add("discount_type", "must be PERCENTAGE or FIXED")
	}
	switch {
	case promo.DiscountValue <= 0:
		errs.add("discount_value", "must be positive")
	case promo.DiscountType == domain.DiscountPercentage && promo.DiscountValue > 100:
		errs.add("discount_value", "must be at most 100 for a percentage")
	}
	if promo.MaxDiscountLKR < 0 {
		errs.add("max_discount_lkr", "must not be negative")
	}
	if promo.UsageLimit < 0 {
		errs.add("usage_limit", "must not be negative")
	}
	if promo.PackageCode != nil && (!promo.PackageCode.Valid() || *promo.PackageCode == domain.PackageFree) {
		errs.add("package", "must be SILVER, GOLD or PREMIUM")
	}
	if !promo.ValidUntil.After(promo.ValidFrom) {
		errs.add("valid_until", "must be after valid_from")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if err := s.promos.Create(ctx, promo); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrPromoCodeTaken
		}
		return nil, fmt.Errorf("create promo code: %w", err)
	}
	return promo, nil
}
