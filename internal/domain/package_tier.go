package domain

import "time"

// PackageCode identifies a subscription tier.
type PackageCode string

const (
	PackageFree    PackageCode = "FREE"
	PackageSilver  PackageCode = "SILVER"
	PackageGold    PackageCode = "GOLD"
	PackagePremium PackageCode = "PREMIUM"
)

// Valid reports whether c is a known tier.
func (c PackageCode) Valid() bool {
	switch c {
	case PackageFree, PackageSilver, PackageGold, PackagePremium:
		return true
	default:
		return false
	}
}

// PackageTier is static reference data bounding what an account may do.
type PackageTier struct {
	Code            PackageCode
	Name            string
	Rank            int
	PriceLKR        int64
	DurationDays    int
	RequestQuota    int
	DailyViewQuota  int
	DailyRequestCap int
	IsActive        bool
}

// PremiumRank is the visibility level needed for premium-only profiles.
const PremiumRank = 4

// IsFree reports whether the tier never expires.
func (t *PackageTier) IsFree() bool {
	return t.Code == PackageFree
}

// PackageExpired reports whether a paid package has lapsed at now.
func PackageExpired(code PackageCode, expiresAt *time.Time, now time.Time) bool {
	if code == PackageFree {
		return false
	}
	if expiresAt == nil {
		return true
	}
	return !expiresAt.After(now)
}
