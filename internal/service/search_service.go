package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

const (
	defaultPageSize   = 12
	minPageSize       = 6
	maxPageSize       = 50
	filterOptionLimit = 50
	minMemberAge      = 18
	maxMemberAge      = 70
)

// SearchService implements member browsing.
type SearchService struct {
	accounts    repository.AccountRepository
	access      *AccessService
	connections *ConnectionService
	policy      config.PolicyConfig
	now         func() time.Time
}

// NewSearchService constructs the service.
func NewSearchService(policy config.PolicyConfig, accounts repository.AccountRepository, access *AccessService, connections *ConnectionService) *SearchService {
	return &SearchService{
		accounts:    accounts,
		access:      access,
		connections: connections,
		policy:      policy,
		now:         time.Now,
	}
}

// WithClock overrides the time source.
func (s *SearchService) WithClock(now func() time.Time) *SearchService {
	s.now = now
	return s
}

// SearchFilter is the raw browse input. Empty fields are ignored.
type SearchFilter struct {
	MinAge        *int
	MaxAge        *int
	Religion      string
	Caste         string
	Education     string
	MaritalStatus string
	IncomeRange   string
	Profession    string
	Location      string
	Keyword       string
	Recency       string
	HasPhoto      bool
	Sort          string
	Order         string
	Page          int
	PageSize      int
}

// MemberCard is one annotated search row.
type MemberCard struct {
	Account      domain.Account
	Age          int
	OnlineStatus domain.OnlineStatus
	Connection   domain.ConnectionStatus
}

// SearchResult is a page of members.
type SearchResult struct {
	Members    []MemberCard
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Search runs a browse query for viewer. Package expiry and the daily view
// quota are checked before anything is read.
func (s *SearchService) Search(ctx context.Context, viewerID string, f SearchFilter) (*SearchResult, error) {
	status, viewer, err := s.access.ResolvePackage(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if err := s.access.CheckBrowseQuota(ctx, viewerID, status.Tier); err != nil {
		return nil, err
	}

	now := s.now()
	q, page, size, err := s.buildSearch(viewer, f, now)
	if err != nil {
		return nil, err
	}

	accounts, total, err := s.accounts.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	statuses, err := s.connections.StatusesFor(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	cards := make([]MemberCard, len(accounts))
	for i, a := range accounts {
		cards[i] = MemberCard{
			Account:      a,
			Age:          domain.AgeAt(a.BirthDate, now),
			OnlineStatus: domain.OnlineStatusAt(a.LastActiveAt, now, s.policy.OnlineWindow()),
			Connection:   statuses[a.ID],
		}
	}
	return &SearchResult{
		Members:    cards,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}, nil
}

func (s *SearchService) buildSearch(viewer *domain.Account, f SearchFilter, now time.Time) (repository.AccountSearch, int, int, error) {
	details := map[string]any{}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	switch {
	case size == 0:
		size = defaultPageSize
	case size < minPageSize:
		size = minPageSize
	case size > maxPageSize:
		size = maxPageSize
	}

	sortKey := repository.SortLastLogin
	if f.Sort != "" {
		key, ok := repository.ParseSortKey(f.Sort)
		if !ok {
			details["sort"] = "must be one of last_login, created_at, age, first_name"
		}
		sortKey = key
	}
	order := repository.OrderDesc
	if f.Order != "" {
		o, ok := repository.ParseSortOrder(f.Order)
		if !ok {
			details["order"] = "must be ASC or DESC"
		}
		order = o
	}

	for field, v := range map[string]*int{"min_age": f.MinAge, "max_age": f.MaxAge} {
		if v != nil && (*v < minMemberAge || *v > maxMemberAge) {
			details[field] = "must be between 18 and 70"
		}
	}
	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		details["min_age"] = "must not exceed max_age"
	}

	var activeSince *time.Time
	if f.Recency != "" {
		window, ok := repository.Recency(f.Recency).Window(s.policy.OnlineWindow())
		if !ok {
			details["online"] = "must be online, recently_active or this_week"
		} else {
			since := now.Add(-window)
			activeSince = &since
		}
	}

	if len(details) > 0 {
		return repository.AccountSearch{}, 0, 0, invalid(details)
	}

	q := repository.AccountSearch{
		ViewerID:      viewer.ID,
		MinAge:        f.MinAge,
		MaxAge:        f.MaxAge,
		Religion:      strings.TrimSpace(f.Religion),
		Caste:         strings.TrimSpace(f.Caste),
		Education:     strings.TrimSpace(f.Education),
		MaritalStatus: strings.TrimSpace(f.MaritalStatus),
		IncomeRange:   strings.TrimSpace(f.IncomeRange),
		Profession:    strings.TrimSpace(f.Profession),
		Location:      strings.TrimSpace(f.Location),
		Keyword:       strings.TrimSpace(f.Keyword),
		ActiveSince:   activeSince,
		HasPhoto:      f.HasPhoto,
		Sort:          sortKey,
		Order:         order,
		Limit:         size,
		Offset:        (page - 1) * size,
		Now:           now,
	}
	if s.policy.OppositeGenderOnly && viewer.Gender != "" {
		g := viewer.Gender
		q.ExcludeGender = &g
	}
	return q, page, size, nil
}

// FilterOptions lists distinct religions, cities and professions.
func (s *SearchService) FilterOptions(ctx context.Context) (repository.FilterOptions, error) {
	return s.accounts.FilterOptions(ctx, filterOptionLimit)
}
