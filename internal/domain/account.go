package domain

import "time"

// AccountStatus represents lifecycle states for a member account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusInactive  AccountStatus = "INACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusPending   AccountStatus = "PENDING"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusSuspended, AccountStatusPending:
		return true
	default:
		return false
	}
}

// AccountRole separates members from moderators.
type AccountRole string

const (
	AccountRoleMember AccountRole = "MEMBER"
	AccountRoleAdmin  AccountRole = "ADMIN"
)

// Gender of a member.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	default:
		return false
	}
}

// Allowed values for enumerated profile attributes.
var (
	Religions      = []string{"Buddhist", "Hindu", "Christian", "Islam", "Other"}
	MaritalStatus  = []string{"Single", "Divorced", "Widowed"}
	EducationLevel = []string{"O/L", "A/L", "Diploma", "Degree", "Masters", "PhD"}
	IncomeRanges   = []string{"Below 30k", "30k-50k", "50k-100k", "100k-200k", "Above 200k"}
)

// Account is a registered member.
type Account struct {
	ID                 string
	Email              string
	PasswordHash       string
	FirstName          string
	LastName           string
	Gender             Gender
	BirthDate          time.Time
	Religion           string
	Caste              string
	MaritalStatus      string
	Education          string
	Profession         string
	IncomeRange        string
	City               string
	Province           string
	Country            string
	Phone              string
	Address            string
	AboutMe            string
	ProfilePic         string
	Status             AccountStatus
	Role               AccountRole
	PackageCode        PackageCode
	PackageExpiresAt   *time.Time
	RequestsRemaining  int
	EmailNotifications bool
	LastActiveAt       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName joins first and last name.
func (a *Account) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// IsActive reports whether the account may use the site.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// AgeAt returns the completed years between birth and now.
func AgeAt(birth, now time.Time) int {
	if birth.IsZero() {
		return 0
	}
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

// OnlineStatus buckets how recently a member was active.
type OnlineStatus string

const (
	OnlineStatusOnline         OnlineStatus = "online"
	OnlineStatusRecentlyActive OnlineStatus = "recently_active"
	OnlineStatusOffline        OnlineStatus = "offline"
)

// OnlineStatusAt classifies lastActive relative to now.
func OnlineStatusAt(lastActive *time.Time, now time.Time, onlineWindow time.Duration) OnlineStatus {
	if lastActive == nil {
		return OnlineStatusOffline
	}
	since := now.Sub(*lastActive)
	switch {
	case since <= onlineWindow:
		return OnlineStatusOnline
	case since <= time.Hour:
		return OnlineStatusRecentlyActive
	default:
		return OnlineStatusOffline
	}
}

// Contains reports whether v is one of allowed.
func Contains(allowed []string, v string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
