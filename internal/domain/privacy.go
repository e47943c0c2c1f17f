package domain

// ProfileVisibility is who may open a member's profile.
type ProfileVisibility string

const (
	VisibilityPublic      ProfileVisibility = "PUBLIC"
	VisibilityMembersOnly ProfileVisibility = "MEMBERS_ONLY"
	VisibilityPremiumOnly ProfileVisibility = "PREMIUM_ONLY"
	VisibilityHidden      ProfileVisibility = "HIDDEN"
)

// Valid reports whether v is a known visibility.
func (v ProfileVisibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityMembersOnly, VisibilityPremiumOnly, VisibilityHidden:
		return true
	default:
		return false
	}
}

// RequestPolicy is who may send connection requests to a member.
type RequestPolicy string

const (
	RequestsFromEveryone RequestPolicy = "EVERYONE"
	RequestsFromNone     RequestPolicy = "NONE"
)

// Valid reports whether p is a known policy.
func (p RequestPolicy) Valid() bool {
	switch p {
	case RequestsFromEveryone, RequestsFromNone:
		return true
	default:
		return false
	}
}

// PrivacySettings are a member's own disclosure choices.
type PrivacySettings struct {
	AccountID          string
	Visibility         ProfileVisibility
	ReceiveRequestFrom RequestPolicy
	ShowPhone          bool
	ShowEmail          bool
}

// DefaultPrivacy is applied when a member never saved settings.
func DefaultPrivacy(accountID string) PrivacySettings {
	return PrivacySettings{
		AccountID:          accountID,
		Visibility:         VisibilityPublic,
		ReceiveRequestFrom: RequestsFromEveryone,
	}
}

// AccessLevel is the amount of profile detail a viewer may see.
type AccessLevel int

const (
	AccessDenied   AccessLevel = 0
	AccessBasic    AccessLevel = 1
	AccessDetailed AccessLevel = 2
	AccessFull     AccessLevel = 3
)

// PartnerPreferences describe what a member is looking for.
type PartnerPreferences struct {
	AccountID     string
	MinAge        *int
	MaxAge        *int
	Religion      string
	Caste         string
	Education     string
	Location      string
	MaritalStatus string
	Profession    string
}
