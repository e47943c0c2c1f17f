package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

type accountRepo struct{ s *Store }

func (r accountRepo) Create(_ context.Context, a *domain.Account) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return &pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"}
		}
	}
	if a.ID == "" {
		a.ID = newID()
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.data.accounts[a.ID] = *a
	return nil
}

func (r accountRepo) Update(_ context.Context, a *domain.Account) error {
	defer r.s.lock()()
	cur, ok := r.s.data.accounts[a.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	cur.FirstName, cur.LastName, cur.BirthDate = a.FirstName, a.LastName, a.BirthDate
	cur.Religion, cur.Caste, cur.MaritalStatus = a.Religion, a.Caste, a.MaritalStatus
	cur.Education, cur.Profession, cur.IncomeRange = a.Education, a.Profession, a.IncomeRange
	cur.City, cur.Province, cur.Country = a.City, a.Province, a.Country
	cur.Phone, cur.Address, cur.AboutMe, cur.ProfilePic = a.Phone, a.Address, a.AboutMe, a.ProfilePic
	cur.EmailNotifications = a.EmailNotifications
	cur.UpdatedAt = r.s.now()
	r.s.data.accounts[a.ID] = cur
	return nil
}

func (r accountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	defer r.s.lock()()
	a, ok := r.s.data.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (r accountRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r accountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	defer r.s.lock()()
	for _, a := range r.s.data.accounts {
		if strings.EqualFold(a.Email, email) {
			found := a
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r accountRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Account, error) {
	defer r.s.lock()()
	var out []domain.Account
	for _, id := range ids {
		if a, ok := r.s.data.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r accountRepo) mutate(id string, fn func(a *domain.Account)) error {
	defer r.s.lock()()
	a, ok := r.s.data.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(&a)
	a.UpdatedAt = r.s.now()
	r.s.data.accounts[id] = a
	return nil
}

func (r accountRepo) UpdatePassword(_ context.Context, id, hash string) error {
	return r.mutate(id, func(a *domain.Account) { a.PasswordHash = hash })
}

func (r accountRepo) UpdateStatus(_ context.Context, id string, status domain.AccountStatus) error {
	return r.mutate(id, func(a *domain.Account) { a.Status = status })
}

func (r accountRepo) UpdatePackage(_ context.Context, id string, code domain.PackageCode, expiresAt *time.Time, remaining int) error {
	return r.mutate(id, func(a *domain.Account) {
		a.PackageCode = code
		a.PackageExpiresAt = expiresAt
		a.RequestsRemaining = remaining
	})
}

func (r accountRepo) DecrementRequests(_ context.Context, id string) (bool, error) {
	defer r.s.lock()()
	a, ok := r.s.data.accounts[id]
	if !ok || a.RequestsRemaining <= 0 {
		return false, nil
	}
	a.RequestsRemaining--
	r.s.data.accounts[id] = a
	return true, nil
}

func (r accountRepo) TouchLastActive(_ context.Context, id string, at time.Time) error {
	defer r.s.lock()()
	a, ok := r.s.data.accounts[id]
	if !ok {
		return nil
	}
	a.LastActiveAt = &at
	r.s.data.accounts[id] = a
	return nil
}

func (r accountRepo) Search(_ context.Context, q repository.AccountSearch) ([]domain.Account, int, error) {
	defer r.s.lock()()
	var matched []domain.Account
	for _, a := range r.s.data.accounts {
		if r.matches(a, q) {
			matched = append(matched, a)
		}
	}
	sortAccounts(matched, q.Sort, q.Order)

	total := len(matched)
	limit := q.Limit
	if limit <= 0 {
		limit = 12
	}
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r accountRepo) matches(a domain.Account, q repository.AccountSearch) bool {
	if a.Status != domain.AccountStatusActive || a.ID == q.ViewerID {
		return false
	}
	if p, ok := r.s.data.privacy[a.ID]; ok && p.Visibility == domain.VisibilityHidden {
		return false
	}
	if q.ExcludeGender != nil && a.Gender == *q.ExcludeGender {
		return false
	}
	if q.MinAge != nil && a.BirthDate.After(q.Now.AddDate(-*q.MinAge, 0, 0)) {
		return false
	}
	if q.MaxAge != nil && !a.BirthDate.After(q.Now.AddDate(-(*q.MaxAge + 1), 0, 0)) {
		return false
	}
	for _, eq := range [][2]string{
		{q.Religion, a.Religion},
		{q.Caste, a.Caste},
		{q.Education, a.Education},
		{q.MaritalStatus, a.MaritalStatus},
		{q.IncomeRange, a.IncomeRange},
	} {
		if eq[0] != "" && eq[0] != eq[1] {
			return false
		}
	}
	if q.Profession != "" && !containsFold(a.Profession, q.Profession) {
		return false
	}
	if q.Location != "" && !containsFold(a.City, q.Location) && !containsFold(a.Province, q.Location) {
		return false
	}
	if q.ActiveSince != nil && (a.LastActiveAt == nil || a.LastActiveAt.Before(*q.ActiveSince)) {
		return false
	}
	if q.HasPhoto && a.ProfilePic == "" {
		return false
	}
	if q.Keyword != "" &&
		!containsFold(a.FirstName, q.Keyword) && !containsFold(a.LastName, q.Keyword) &&
		!containsFold(a.Profession, q.Keyword) && !containsFold(a.City, q.Keyword) {
		return false
	}
	return true
}

func sortAccounts(list []domain.Account, key repository.SortKey, order repository.SortOrder) {
	asc := order == repository.OrderAsc
	less := func(i, j int) bool {
		a, b := list[i], list[j]
		switch key {
		case repository.SortCreatedAt:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt) == asc
			}
		case repository.SortAge:
			if !a.BirthDate.Equal(b.BirthDate) {
				return a.BirthDate.After(b.BirthDate) == asc
			}
		case repository.SortFirstName:
			if a.FirstName != b.FirstName {
				return (a.FirstName < b.FirstName) == asc
			}
		default:
			switch {
			case a.LastActiveAt == nil && b.LastActiveAt != nil:
				return false
			case a.LastActiveAt != nil && b.LastActiveAt == nil:
				return true
			case a.LastActiveAt != nil && !a.LastActiveAt.Equal(*b.LastActiveAt):
				return a.LastActiveAt.Before(*b.LastActiveAt) == asc
			}
		}
		return a.ID < b.ID
	}
	sort.SliceStable(list, less)
}

func (r accountRepo) FilterOptions(_ context.Context, limit int) (repository.FilterOptions, error) {
	defer r.s.lock()()
	collect := func(get func(domain.Account) string) []string {
		seen := map[string]struct{}{}
		for _, a := range r.s.data.accounts {
			if v := get(a); v != "" && a.Status == domain.AccountStatusActive {
				seen[v] = struct{}{}
			}
		}
		out := make([]string, 0, len(seen))
		for v := range seen {
			out = append(out, v)
		}
		sort.Strings(out)
		if len(out) > limit {
			out = out[:limit]
		}
		return out
	}
	return repository.FilterOptions{
		Religions:   collect(func(a domain.Account) string { return a.Religion }),
		Cities:      collect(func(a domain.Account) string { return a.City }),
		Professions: collect(func(a domain.Account) string { return a.Profession }),
	}, nil
}

func (r accountRepo) CountActive(_ context.Context, excludeID string) (int, error) {
	defer r.s.lock()()
	count := 0
	for id, a := range r.s.data.accounts {
		if id != excludeID && a.Status == domain.AccountStatusActive {
			count++
		}
	}
	return count, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
