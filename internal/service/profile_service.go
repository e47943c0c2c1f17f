package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

// MediaStore persists uploaded profile photos and returns a public reference.
type MediaStore interface {
	Save(ctx context.Context, accountID, filename, contentType string, size int64, r io.Reader) (string, error)
}

// ProfileService serves member profiles and the owner's edit operations.
type ProfileService struct {
	tx          repository.Transactor
	accounts    repository.AccountRepository
	views       repository.ProfileViewRepository
	privacy     repository.PrivacyRepository
	preferences repository.PreferencesRepository
	activities  repository.ActivityRepository
	connections repository.ConnectionRepository
	access      *AccessService
	requests    *ConnectionService
	media       MediaStore
	policy      config.PolicyConfig
	loc         *time.Location
	now         func() time.Time
}

// ProfileDependencies bundles repositories for the profile service.
type ProfileDependencies struct {
	Transactor      repository.Transactor
	AccountRepo     repository.AccountRepository
	ViewRepo        repository.ProfileViewRepository
	PrivacyRepo     repository.PrivacyRepository
	PreferencesRepo repository.PreferencesRepository
	ActivityRepo    repository.ActivityRepository
	ConnectionRepo  repository.ConnectionRepository
	Access          *AccessService
	Connections     *ConnectionService
	Media           MediaStore
}

// NewProfileService constructs the service.
func NewProfileService(policy config.PolicyConfig, deps ProfileDependencies) *ProfileService {
	return &ProfileService{
		tx:          deps.Transactor,
		accounts:    deps.AccountRepo,
		views:       deps.ViewRepo,
		privacy:     deps.PrivacyRepo,
		preferences: deps.PreferencesRepo,
		activities:  deps.ActivityRepo,
		connections: deps.ConnectionRepo,
		access:      deps.Access,
		requests:    deps.Connections,
		media:       deps.Media,
		policy:      policy,
		loc:         policy.Location(),
		now:         time.Now,
	}
}

// WithClock overrides the time source.
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	s.now = now
	return s
}

// DetailedFields are visible from access level 2.
type DetailedFields struct {
	Caste         string
	MaritalStatus string
	IncomeRange   string
	Province      string
}

// ContactFields are visible at level 3, each further gated by the owner's
// show flags.
type ContactFields struct {
	Phone   string
	Email   string
	Address string
}

// MemberProfile is a profile projected to what the viewer may see.
type MemberProfile struct {
	ID            string
	FirstName     string
	LastName      string
	Gender        domain.Gender
	Age           int
	Religion      string
	Education     string
	Profession    string
	City          string
	Country       string
	AboutMe       string
	ProfilePic    string
	OnlineStatus  domain.OnlineStatus
	Level         domain.AccessLevel
	Connection    domain.ConnectionStatus
	Detailed      *DetailedFields
	Contact       *ContactFields
	Preferences   *domain.PartnerPreferences
	Compatibility *Compatibility
	// MutualConnections is filled only once viewer and target are connected.
	MutualConnections []MutualConnection
}

// MutualConnection is a member connected to both viewer and target.
type MutualConnection struct {
	ID         string
	FirstName  string
	LastName   string
	ProfilePic string
}

const mutualConnectionLimit = 5

// GetMember opens target's profile for viewer. Opening a profile already seen
// today does not count against the daily view quota.
func (s *ProfileService) GetMember(ctx context.Context, viewerID, targetID string) (*MemberProfile, error) {
	viewerID, targetID = canonicalID(viewerID), canonicalID(targetID)
	if viewerID == targetID {
		return nil, ErrSelfView
	}
	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if !target.IsActive() {
		return nil, ErrAccountNotFound
	}

	pkg, _, err := s.access.ResolvePackage(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	seenToday, err := s.views.ViewedSince(ctx, viewerID, targetID, startOfDay(now, s.loc))
	if err != nil {
		return nil, err
	}
	if !seenToday {
		if err := s.access.CheckBrowseQuota(ctx, viewerID, pkg.Tier); err != nil {
			return nil, err
		}
	}

	access, err := s.access.CheckProfileAccess(ctx, viewerID, pkg.Tier.Rank, targetID)
	if err != nil {
		return nil, err
	}
	if !access.Allowed {
		return nil, ErrVisibilityDenied
	}

	connStatus, err := s.requests.ConnectionStatus(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	viewerPrefs, err := s.preferences.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	profile := project(*target, access, now, s.policy.OnlineWindow())
	profile.Connection = connStatus
	profile.Compatibility = ScoreCompatibility(viewerPrefs, *target, now)
	if access.Level >= domain.AccessDetailed {
		if profile.Preferences, err = s.preferences.Get(ctx, targetID); err != nil {
			return nil, err
		}
	}
	if connStatus == domain.ConnectionConnected {
		if profile.MutualConnections, err = s.mutualConnections(ctx, viewerID, targetID); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.views.Record(ctx, viewerID, targetID, now); err != nil {
			return fmt.Errorf("record view: %w", err)
		}
		return recordActivity(ctx, s.activities, viewerID, domain.ActivityProfileView,
			fmt.Sprintf("Viewed profile of %s", target.FullName()), now)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) mutualConnections(ctx context.Context, viewerID, targetID string) ([]MutualConnection, error) {
	ids, err := s.connections.Mutual(ctx, viewerID, targetID, mutualConnectionLimit)
	if err != nil {
		return nil, fmt.Errorf("mutual connections: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	accounts, err := s.accounts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]MutualConnection, 0, len(accounts))
	for _, a := range accounts {
		if !a.IsActive() {
			continue
		}
		out = append(out, MutualConnection{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, ProfilePic: a.ProfilePic})
	}
	return out, nil
}

func project(a domain.Account, access *ProfileAccess, now time.Time, onlineWindow time.Duration) *MemberProfile {
	p := &MemberProfile{
		ID:           a.ID,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Gender:       a.Gender,
		Age:          domain.AgeAt(a.BirthDate, now),
		Religion:     a.Religion,
		Education:    a.Education,
		Profession:   a.Profession,
		City:         a.City,
		Country:      a.Country,
		AboutMe:      a.AboutMe,
		ProfilePic:   a.ProfilePic,
		OnlineStatus: domain.OnlineStatusAt(a.LastActiveAt, now, onlineWindow),
		Level:        access.Level,
	}
	if access.Level >= domain.AccessDetailed {
		p.Detailed = &DetailedFields{
			Caste:         a.Caste,
			MaritalStatus: a.MaritalStatus,
			IncomeRange:   a.IncomeRange,
			Province:      a.Province,
		}
	}
	if access.Level >= domain.AccessFull {
		p.Contact = &ContactFields{Address: a.Address}
		if access.Privacy.ShowPhone {
			p.Contact.Phone = a.Phone
		}
		if access.Privacy.ShowEmail {
			p.Contact.Email = a.Email
		}
	}
	return p
}

// OwnProfile is everything the owner sees about their own account.
type OwnProfile struct {
	Account        domain.Account
	Age            int
	Package        *PackageStatus
	Privacy        domain.PrivacySettings
	Preferences    *domain.PartnerPreferences
	Connections    int
	RecentActivity []domain.Activity
}

// GetOwnProfile loads the owner's profile with package and settings.
func (s *ProfileService) GetOwnProfile(ctx context.Context, accountID string) (*OwnProfile, error) {
	pkg, account, err := s.access.ResolvePackage(ctx, accountID)
	if err != nil {
		return nil, err
	}
	privacy, err := s.privacy.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.preferences.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	connections, err := s.connections.CountForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	recent, err := s.activities.ListByAccount(ctx, accountID, 10)
	if err != nil {
		return nil, err
	}
	return &OwnProfile{
		Account:        *account,
		Age:            domain.AgeAt(account.BirthDate, s.now()),
		Package:        pkg,
		Privacy:        privacy,
		Preferences:    prefs,
		Connections:    connections,
		RecentActivity: recent,
	}, nil
}

// BasicInfoInput edits names, birth date and about-me.
type BasicInfoInput struct {
	FirstName string
	LastName  string
	BirthDate time.Time
	AboutMe   string
}

// UpdateBasicInfo validates and saves the basic section.
func (s *ProfileService) UpdateBasicInfo(ctx context.Context, accountID string, in BasicInfoInput) (*domain.Account, error) {
	errs := fieldErrors{}
	errs.name("first_name", in.FirstName)
	errs.name("last_name", in.LastName)
	errs.birthDate("birth_date", in.BirthDate, s.now())
	errs.maxLen("about_me", strings.TrimSpace(in.AboutMe), maxAboutLength)
	if err := errs.err(); err != nil {
		return nil, err
	}
	return s.updateAccount(ctx, accountID, "Updated basic information", func(a *domain.Account) {
		a.FirstName = strings.TrimSpace(in.FirstName)
		a.LastName = strings.TrimSpace(in.LastName)
		a.BirthDate = in.BirthDate
		a.AboutMe = strings.TrimSpace(in.AboutMe)
	})
}

// PersonalDetailsInput edits the enumerated personal attributes.
type PersonalDetailsInput struct {
	Religion      string
	Caste         string
	MaritalStatus string
	Education     string
	Profession    string
	IncomeRange   string
}

// UpdatePersonalDetails validates and saves the personal section.
func (s *ProfileService) UpdatePersonalDetails(ctx context.Context, accountID string, in PersonalDetailsInput) (*domain.Account, error) {
	errs := fieldErrors{}
	errs.oneOf("religion", in.Religion, domain.Religions)
	errs.oneOf("marital_status", in.MaritalStatus, domain.MaritalStatus)
	errs.oneOf("education", in.Education, domain.EducationLevel)
	errs.oneOf("income_range", in.IncomeRange, domain.IncomeRanges)
	errs.maxLen("caste", in.Caste, maxNameLength)
	errs.maxLen("profession", in.Profession, maxNameLength)
	if err := errs.err(); err != nil {
		return nil, err
	}
	return s.updateAccount(ctx, accountID, "Updated personal details", func(a *domain.Account) {
		a.Religion = in.Religion
		a.Caste = strings.TrimSpace(in.Caste)
		a.MaritalStatus = in.MaritalStatus
		a.Education = in.Education
		a.Profession = strings.TrimSpace(in.Profession)
		a.IncomeRange = in.IncomeRange
	})
}

// ContactInput edits contact and location details.
type ContactInput struct {
	Phone              string
	Address            string
	City               string
	Province           string
	Country            string
	EmailNotifications *bool
}

// UpdateContactInfo validates and saves the contact section.
func (s *ProfileService) UpdateContactInfo(ctx context.Context, accountID string, in ContactInput) (*domain.Account, error) {
	errs := fieldErrors{}
	phone := errs.phone("phone", in.Phone)
	errs.maxLen("address", in.Address, maxAddressLength)
	errs.maxLen("city", in.City, maxNameLength)
	errs.maxLen("province", in.Province, maxNameLength)
	errs.maxLen("country", in.Country, maxNameLength)
	if err := errs.err(); err != nil {
		return nil, err
	}
	return s.updateAccount(ctx, accountID, "Updated contact information", func(a *domain.Account) {
		a.Phone = phone
		a.Address = strings.TrimSpace(in.Address)
		a.City = strings.TrimSpace(in.City)
		a.Province = strings.TrimSpace(in.Province)
		if c := strings.TrimSpace(in.Country); c != "" {
			a.Country = c
		}
		if in.EmailNotifications != nil {
			a.EmailNotifications = *in.EmailNotifications
		}
	})
}

// UploadProfilePicture stores the photo and points the profile at it.
func (s *ProfileService) UploadProfilePicture(ctx context.Context, accountID, filename, contentType string, size int64, r io.Reader) (*domain.Account, error) {
	ref, err := s.media.Save(ctx, accountID, filename, contentType, size, r)
	if err != nil {
		return nil, err
	}
	return s.updateAccount(ctx, accountID, "Updated profile picture", func(a *domain.Account) {
		a.ProfilePic = ref
	})
}

func (s *ProfileService) updateAccount(ctx context.Context, accountID, description string, mutate func(*domain.Account)) (*domain.Account, error) {
	var account *domain.Account
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		mutate(account)
		if err := s.accounts.Update(ctx, account); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		return recordActivity(ctx, s.activities, accountID, domain.ActivityProfileUpdate, description, s.now())
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// PrivacyInput edits privacy settings.
type PrivacyInput struct {
	Visibility         domain.ProfileVisibility
	ReceiveRequestFrom domain.RequestPolicy
	ShowPhone          bool
	ShowEmail          bool
}

// UpdatePrivacy validates and saves privacy settings.
func (s *ProfileService) UpdatePrivacy(ctx context.Context, accountID string, in PrivacyInput) (*domain.PrivacySettings, error) {
	errs := fieldErrors{}
	if !in.Visibility.Valid() {
		errs.add("profile_visibility", "must be PUBLIC, MEMBERS_ONLY, PREMIUM_ONLY or HIDDEN")
	}
	if !in.ReceiveRequestFrom.Valid() {
		errs.add("receive_requests_from", "must be EVERYONE or NONE")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	settings := domain.PrivacySettings{
		AccountID:          accountID,
		Visibility:         in.Visibility,
		ReceiveRequestFrom: in.ReceiveRequestFrom,
		ShowPhone:          in.ShowPhone,
		ShowEmail:          in.ShowEmail,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.privacy.Upsert(ctx, settings); err != nil {
			return fmt.Errorf("save privacy: %w", err)
		}
		return recordActivity(ctx, s.activities, accountID, domain.ActivityProfileUpdate, "Updated privacy settings", s.now())
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdatePartnerPreferences validates and saves what the member looks for.
func (s *ProfileService) UpdatePartnerPreferences(ctx context.Context, accountID string, in domain.PartnerPreferences) (*domain.PartnerPreferences, error) {
	errs := fieldErrors{}
	for field, v := range map[string]*int{"min_age": in.MinAge, "max_age": in.MaxAge} {
		if v != nil && (*v < minMemberAge || *v > maxMemberAge) {
			errs.add(field, "must be between 18 and 70")
		}
	}
	if in.MinAge != nil && in.MaxAge != nil && *in.MinAge > *in.MaxAge {
		errs.add("min_age", "must not exceed max_age")
	}
	errs.oneOf("religion", in.Religion, domain.Religions)
	errs.oneOf("education", in.Education, domain.EducationLevel)
	errs.oneOf("marital_status", in.MaritalStatus, domain.MaritalStatus)
	errs.maxLen("caste", in.Caste, maxNameLength)
	errs.maxLen("location", in.Location, maxNameLength)
	errs.maxLen("profession", in.Profession, maxNameLength)
	if err := errs.err(); err != nil {
		return nil, err
	}

	in.AccountID = accountID
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.preferences.Upsert(ctx, in); err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
		return recordActivity(ctx, s.activities, accountID, domain.ActivityProfileUpdate, "Updated partner preferences", s.now())
	})
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// Deactivate sets the member's own account to Inactive. Accounts are never
// deleted.
func (s *ProfileService) Deactivate(ctx context.Context, accountID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.UpdateStatus(ctx, accountID, domain.AccountStatusInactive); err != nil {
			if repository.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		return recordActivity(ctx, s.activities, accountID, domain.ActivityStatusChange, "Deactivated account", s.now())
	})
}
