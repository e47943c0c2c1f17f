package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// SortKey is the allow-listed set of columns browse results may be ordered by.
type SortKey string

const (
	SortLastLogin SortKey = "last_login"
	SortCreatedAt SortKey = "created_at"
	SortAge       SortKey = "age"
	SortFirstName SortKey = "first_name"
)

// ParseSortKey maps user input to a SortKey.
func ParseSortKey(v string) (SortKey, bool) {
	switch SortKey(v) {
	case SortLastLogin, SortCreatedAt, SortAge, SortFirstName:
		return SortKey(v), true
	default:
		return "", false
	}
}

// SortOrder is ASC or DESC.
type SortOrder string

const (
	OrderAsc  SortOrder = "ASC"
	OrderDesc SortOrder = "DESC"
)

// ParseSortOrder maps user input to a SortOrder.
func ParseSortOrder(v string) (SortOrder, bool) {
	switch SortOrder(strings.ToUpper(v)) {
	case OrderAsc:
		return OrderAsc, true
	case OrderDesc:
		return OrderDesc, true
	default:
		return "", false
	}
}

// Recency buckets for the online filter.
type Recency string

const (
	RecencyOnline         Recency = "online"
	RecencyRecentlyActive Recency = "recently_active"
	RecencyThisWeek       Recency = "this_week"
)

// Window returns how far back activity must reach for r.
func (r Recency) Window(onlineWindow time.Duration) (time.Duration, bool) {
	switch r {
	case RecencyOnline:
		return onlineWindow, true
	case RecencyRecentlyActive:
		return 24 * time.Hour, true
	case RecencyThisWeek:
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// AccountSearch is a validated browse request. Nil/empty fields are ignored.
type AccountSearch struct {
	ViewerID      string
	ExcludeGender *domain.Gender
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
	ActiveSince   *time.Time
	HasPhoto      bool
	Sort          SortKey
	Order         SortOrder
	Limit         int
	Offset        int
	Now           time.Time
}

// Predicate is one SQL condition. Each '?' in SQL binds the next value in Args.
type Predicate struct {
	SQL  string
	Args []any
}

// BuiltQuery holds the rendered SELECT and COUNT statements sharing Args.
type BuiltQuery struct {
	SelectSQL string
	CountSQL  string
	Args      []any
}

// Predicates returns the ordered condition list for s.
func (s AccountSearch) Predicates() []Predicate {
	preds := []Predicate{
		{SQL: "a.status = ?", Args: []any{domain.AccountStatusActive}},
		{SQL: "a.id <> ?", Args: []any{s.ViewerID}},
		{SQL: "(ps.profile_visibility IS NULL OR ps.profile_visibility <> ?)", Args: []any{domain.VisibilityHidden}},
	}
	if s.ExcludeGender != nil {
		preds = append(preds, Predicate{SQL: "a.gender <> ?", Args: []any{*s.ExcludeGender}})
	}
	if s.MinAge != nil {
		preds = append(preds, Predicate{SQL: "a.birth_date <= ?", Args: []any{s.Now.AddDate(-*s.MinAge, 0, 0)}})
	}
	if s.MaxAge != nil {
		preds = append(preds, Predicate{SQL: "a.birth_date > ?", Args: []any{s.Now.AddDate(-(*s.MaxAge + 1), 0, 0)}})
	}
	for _, eq := range []struct {
		column string
		value  string
	}{
		{"a.religion", s.Religion},
		{"a.caste", s.Caste},
		{"a.education", s.Education},
		{"a.marital_status", s.MaritalStatus},
		{"a.income_range", s.IncomeRange},
	} {
		if eq.value != "" {
			preds = append(preds, Predicate{SQL: eq.column + " = ?", Args: []any{eq.value}})
		}
	}
	if s.Profession != "" {
		preds = append(preds, Predicate{SQL: "a.profession ILIKE ?", Args: []any{likePattern(s.Profession)}})
	}
	if s.Location != "" {
		p := likePattern(s.Location)
		preds = append(preds, Predicate{SQL: "(a.city ILIKE ? OR a.province ILIKE ?)", Args: []any{p, p}})
	}
	if s.ActiveSince != nil {
		preds = append(preds, Predicate{SQL: "a.last_active_at >= ?", Args: []any{*s.ActiveSince}})
	}
	if s.HasPhoto {
		preds = append(preds, Predicate{SQL: "a.profile_pic <> ''"})
	}
	if s.Keyword != "" {
		p := likePattern(s.Keyword)
		preds = append(preds, Predicate{
			SQL:  "(a.first_name ILIKE ? OR a.last_name ILIKE ? OR a.profession ILIKE ? OR a.city ILIKE ?)",
			Args: []any{p, p, p, p},
		})
	}
	return preds
}

// Build renders s into positional-parameter SQL.
func (s AccountSearch) Build() BuiltQuery {
	preds := s.Predicates()
	clauses := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		clause := p.SQL
		for _, arg := range p.Args {
			args = append(args, arg)
			clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		clauses = append(clauses, clause)
	}

	const from = `FROM accounts a LEFT JOIN privacy_settings ps ON ps.account_id = a.id`
	where := strings.Join(clauses, " AND ")

	limit := s.Limit
	if limit <= 0 {
		limit = 12
	}
	offset := s.Offset
	if offset < 0 {
		offset = 0
	}

	return BuiltQuery{
		SelectSQL: fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
			accountColumns, from, where, s.orderBy(), limit, offset),
		CountSQL: fmt.Sprintf(`SELECT COUNT(*) %s WHERE %s`, from, where),
		Args:     args,
	}
}

func (s AccountSearch) orderBy() string {
	order := s.Order
	if order != OrderAsc {
		order = OrderDesc
	}
	switch s.Sort {
	case SortCreatedAt:
		return fmt.Sprintf("a.created_at %s, a.id", order)
	case SortAge:
		// older members have earlier birth dates
		flipped := OrderAsc
		if order == OrderAsc {
			flipped = OrderDesc
		}
		return fmt.Sprintf("a.birth_date %s, a.id", flipped)
	case SortFirstName:
		return fmt.Sprintf("a.first_name %s, a.id", order)
	default:
		return fmt.Sprintf("a.last_active_at %s NULLS LAST, a.id", order)
	}
}

func likePattern(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(v) + "%"
}
