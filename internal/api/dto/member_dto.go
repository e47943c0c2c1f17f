package dto

import (
	"time"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// AccountResponse is the owner's view of their own account.
type AccountResponse struct {
	ID                 string               `json:"id"`
	Email              string               `json:"email"`
	FirstName          string               `json:"first_name"`
	LastName           string               `json:"last_name"`
	Gender             domain.Gender        `json:"gender"`
	BirthDate          string               `json:"birth_date"`
	Religion           string               `json:"religion,omitempty"`
	Caste              string               `json:"caste,omitempty"`
	MaritalStatus      string               `json:"marital_status,omitempty"`
	Education          string               `json:"education,omitempty"`
	Profession         string               `json:"profession,omitempty"`
	IncomeRange        string               `json:"income_range,omitempty"`
	City               string               `json:"city,omitempty"`
	Province           string               `json:"province,omitempty"`
	Country            string               `json:"country,omitempty"`
	Phone              string               `json:"phone,omitempty"`
	Address            string               `json:"address,omitempty"`
	AboutMe            string               `json:"about_me,omitempty"`
	ProfilePic         string               `json:"profile_pic,omitempty"`
	Status             domain.AccountStatus `json:"status"`
	Role               domain.AccountRole   `json:"role"`
	Package            domain.PackageCode   `json:"package"`
	PackageExpiresAt   *time.Time           `json:"package_expires_at,omitempty"`
	RequestsRemaining  int                  `json:"requests_remaining"`
	EmailNotifications bool                 `json:"email_notifications"`
	LastActiveAt       *time.Time           `json:"last_active_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

// PackageStatusResponse describes the caller's current tier.
type PackageStatusResponse struct {
	Code              domain.PackageCode `json:"code"`
	Name              string             `json:"name"`
	Rank              int                `json:"rank"`
	ExpiresAt         *time.Time         `json:"expires_at,omitempty"`
	DaysRemaining     *int               `json:"days_remaining,omitempty"`
	ExpiringSoon      bool               `json:"expiring_soon"`
	Downgraded        bool               `json:"downgraded"`
	RequestsRemaining int                `json:"requests_remaining"`
	DailyViewQuota    int                `json:"daily_view_quota"`
	DailyRequestCap   int                `json:"daily_request_cap"`
}

// PrivacyResponse mirrors the saved privacy settings.
type PrivacyResponse struct {
	Visibility         domain.ProfileVisibility `json:"profile_visibility"`
	ReceiveRequestFrom domain.RequestPolicy     `json:"receive_requests_from"`
	ShowPhone          bool                     `json:"show_phone"`
	ShowEmail          bool                     `json:"show_email"`
}

// PreferencesPayload is used for both reading and writing partner preferences.
type PreferencesPayload struct {
	MinAge        *int   `json:"min_age,omitempty"`
	MaxAge        *int   `json:"max_age,omitempty"`
	Religion      string `json:"religion,omitempty"`
	Caste         string `json:"caste,omitempty"`
	Education     string `json:"education,omitempty"`
	Location      string `json:"location,omitempty"`
	MaritalStatus string `json:"marital_status,omitempty"`
	Profession    string `json:"profession,omitempty"`
}

// ActivityResponse is one activity log row.
type ActivityResponse struct {
	Type        domain.ActivityType `json:"type"`
	Description string              `json:"description"`
	CreatedAt   time.Time           `json:"created_at"`
}

// OwnProfileResponse is GET /me.
type OwnProfileResponse struct {
	Account        AccountResponse       `json:"account"`
	Age            int                   `json:"age"`
	Package        PackageStatusResponse `json:"package"`
	Privacy        PrivacyResponse       `json:"privacy"`
	Preferences    *PreferencesPayload   `json:"preferences"`
	Connections    int                   `json:"connections"`
	RecentActivity []ActivityResponse    `json:"recent_activity"`
}

// DashboardResponse is GET /me/dashboard.
type DashboardResponse struct {
	Package             PackageStatusResponse `json:"package"`
	SentPending         int                   `json:"sent_pending"`
	ReceivedPending     int                   `json:"received_pending"`
	Connections         int                   `json:"connections"`
	ActiveMembers       int                   `json:"active_members"`
	UnreadNotifications int                   `json:"unread_notifications"`
}

// BasicInfoRequest edits names, birth date and about-me.
type BasicInfoRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	AboutMe   string `json:"about_me"`
}

// PersonalDetailsRequest edits personal attributes.
type PersonalDetailsRequest struct {
	Religion      string `json:"religion"`
	Caste         string `json:"caste"`
	MaritalStatus string `json:"marital_status"`
	Education     string `json:"education"`
	Profession    string `json:"profession"`
	IncomeRange   string `json:"income_range"`
}

// ContactRequest edits contact details.
type ContactRequest struct {
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	City               string `json:"city"`
	Province           string `json:"province"`
	Country            string `json:"country"`
	EmailNotifications *bool  `json:"email_notifications"`
}

// PrivacyRequest edits privacy settings.
type PrivacyRequest struct {
	Visibility         string `json:"profile_visibility"`
	ReceiveRequestFrom string `json:"receive_requests_from"`
	ShowPhone          bool   `json:"show_phone"`
	ShowEmail          bool   `json:"show_email"`
}

// MemberCard is one search result row.
type MemberCard struct {
	ID           string                  `json:"id"`
	FirstName    string                  `json:"first_name"`
	LastName     string                  `json:"last_name"`
	Gender       domain.Gender           `json:"gender"`
	Age          int                     `json:"age"`
	Religion     string                  `json:"religion,omitempty"`
	Education    string                  `json:"education,omitempty"`
	Profession   string                  `json:"profession,omitempty"`
	City         string                  `json:"city,omitempty"`
	ProfilePic   string                  `json:"profile_pic,omitempty"`
	OnlineStatus domain.OnlineStatus     `json:"online_status"`
	Connection   domain.ConnectionStatus `json:"connection_status"`
}

// SearchResponse is one page of members.
type SearchResponse struct {
	Members    []MemberCard `json:"members"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// FilterOptionsResponse lists distinct values for the browse filters.
type FilterOptionsResponse struct {
	Religions   []string `json:"religions"`
	Cities      []string `json:"cities"`
	Professions []string `json:"professions"`
}

// DetailedFields are visible from access level 2.
type DetailedFields struct {
	Caste         string `json:"caste,omitempty"`
	MaritalStatus string `json:"marital_status,omitempty"`
	IncomeRange   string `json:"income_range,omitempty"`
	Province      string `json:"province,omitempty"`
}

// ContactFields are visible to connections.
type ContactFields struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// CompatibilityResponse scores a member against the viewer's preferences.
type CompatibilityResponse struct {
	Score      int      `json:"score"`
	Percentage int      `json:"percentage"`
	Factors    int      `json:"factors"`
	Matched    []string `json:"matched"`
}

// MemberProfileResponse is GET /members/:id.
type MemberProfileResponse struct {
	ID            string                  `json:"id"`
	FirstName     string                  `json:"first_name"`
	LastName      string                  `json:"last_name"`
	Gender        domain.Gender           `json:"gender"`
	Age           int                     `json:"age"`
	Religion      string                  `json:"religion,omitempty"`
	Education     string                  `json:"education,omitempty"`
	Profession    string                  `json:"profession,omitempty"`
	City          string                  `json:"city,omitempty"`
	Country       string                  `json:"country,omitempty"`
	AboutMe       string                  `json:"about_me,omitempty"`
	ProfilePic    string                  `json:"profile_pic,omitempty"`
	OnlineStatus  domain.OnlineStatus     `json:"online_status"`
	AccessLevel   domain.AccessLevel      `json:"access_level"`
	Connection    domain.ConnectionStatus `json:"connection_status"`
	Detailed      *DetailedFields         `json:"detailed,omitempty"`
	Contact       *ContactFields          `json:"contact,omitempty"`
	Preferences   *PreferencesPayload     `json:"partner_preferences,omitempty"`
	Compatibility *CompatibilityResponse  `json:"compatibility,omitempty"`
	Mutual        []MutualConnection      `json:"mutual_connections,omitempty"`
}

// MutualConnection is a member both parties are connected with.
type MutualConnection struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ProfilePic string `json:"profile_pic,omitempty"`
}
