package domain

import (
	"strings"
	"time"
)

// PaymentMethod identifies the gateway used for a purchase.
type PaymentMethod string

const (
	PaymentPayHere      PaymentMethod = "PAYHERE"
	PaymentSampath      PaymentMethod = "SAMPATH"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentTest         PaymentMethod = "TEST"
)

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentPayHere, PaymentSampath, PaymentBankTransfer, PaymentTest:
		return true
	default:
		return false
	}
}

// PaymentStatus is the gateway-reported state of a transaction.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// PaymentTransaction records a package purchase.
type PaymentTransaction struct {
	ID          string
	AccountID   string
	PackageCode PackageCode
	AmountLKR   int64
	Method      PaymentMethod
	Status      PaymentStatus
	Reference   string
	// PromoCodeID is set when a promo code discounted the purchase.
	PromoCodeID *string
	DiscountLKR int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DiscountType says how a promo code's value is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Valid reports whether d is a known discount type.
func (d DiscountType) Valid() bool {
	return d == DiscountPercentage || d == DiscountFixed
}

// PromoCode is an administrator-issued discount on package purchases.
type PromoCode struct {
	ID           string
	Code         string
	DiscountType DiscountType
	// DiscountValue is a percentage for PERCENTAGE codes and rupees for FIXED.
	DiscountValue  int64
	MaxDiscountLKR int64 // 0 means uncapped
	UsageLimit     int   // 0 means unlimited
	PackageCode    *PackageCode
	ValidFrom      time.Time
	ValidUntil     time.Time
	IsActive       bool
	CreatedAt      time.Time
}

// NormalizePromoCode is the stored form of a code as typed by a member.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// UsableAt reports whether p is active and inside its validity window.
func (p *PromoCode) UsableAt(t time.Time) bool {
	return p.IsActive && !t.Before(p.ValidFrom) && !t.After(p.ValidUntil)
}

// AppliesTo reports whether p may discount code.
func (p *PromoCode) AppliesTo(code PackageCode) bool {
	return p.PackageCode == nil || *p.PackageCode == code
}

// Discount returns the rupee discount on price, never more than price.
func (p *PromoCode) Discount(price int64) int64 {
	var d int64
	switch p.DiscountType {
	case DiscountPercentage:
		d = price * p.DiscountValue / 100
		if p.MaxDiscountLKR > 0 && d > p.MaxDiscountLKR {
			d = p.MaxDiscountLKR
		}
	case DiscountFixed:
		d = p.DiscountValue
	}
	if d > price {
		d = price
	}
	if d < 0 {
		d = 0
	}
	return d
}

// PromoRedemption ties a promo code to the payment that used it.
type PromoRedemption struct {
	PromoCodeID string
	AccountID   string
	PaymentID   string
	RedeemedAt  time.Time
}

// PasswordResetToken is a single-use credential for resetting a password.
type PasswordResetToken struct {
	ID        string
	AccountID string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
