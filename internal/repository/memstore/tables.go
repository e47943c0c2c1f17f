package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

type packageRepo struct{ s *Store }

func (r packageRepo) GetByCode(_ context.Context, code domain.PackageCode) (*domain.PackageTier, error) {
	defer r.s.lock()()
	t, ok := r.s.data.packages[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r packageRepo) List(_ context.Context, activeOnly bool) ([]domain.PackageTier, error) {
	defer r.s.lock()()
	var out []domain.PackageTier
	for _, t := range r.s.data.packages {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// SetPackage replaces a tier definition.
func (s *Store) SetPackage(t domain.PackageTier) {
	defer s.lock()()
	s.data.packages[t.Code] = t
}

type requestRepo struct{ s *Store }

func (r requestRepo) Create(_ context.Context, req *domain.ConnectionRequest) error {
	defer r.s.lock()()
	key := keyOf(req.SenderID, req.ReceiverID)
	for _, existing := range r.s.data.requests {
		open := existing.Status == domain.RequestStatusPending || existing.Status == domain.RequestStatusAccepted
		if open && keyOf(existing.SenderID, existing.ReceiverID) == key {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_requests_open_pair"}
		}
	}
	req.ID = newID()
	r.s.data.requests = append(r.s.data.requests, *req)
	return nil
}

func (r requestRepo) GetByID(_ context.Context, id string) (*domain.ConnectionRequest, error) {
	defer r.s.lock()()
	for _, req := range r.s.data.requests {
		if req.ID == id {
			found := req
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r requestRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.ConnectionRequest, error) {
	return r.GetByID(ctx, id)
}

func (r requestRepo) Resolve(_ context.Context, id string, status domain.RequestStatus, at time.Time) error {
	defer r.s.lock()()
	for i, req := range r.s.data.requests {
		if req.ID == id && req.Status == domain.RequestStatusPending {
			r.s.data.requests[i].Status = status
			r.s.data.requests[i].RespondedAt = &at
			return nil
		}
	}
	return pgx.ErrNoRows
}

// newestFirst returns matching requests ordered by creation time, newest first.
func (r requestRepo) newestFirst(match func(domain.ConnectionRequest) bool) []domain.ConnectionRequest {
	var out []domain.ConnectionRequest
	for _, req := range r.s.data.requests {
		if match(req) {
			out = append(out, req)
		}
	}
	// later inserts win ties so ordering is stable under a frozen clock
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return requestNewer(out[i], out[j]) })
	return out
}

// requestNewer orders by creation time, then unanswered before answered,
// then by answer time.
func requestNewer(a, b domain.ConnectionRequest) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if (a.RespondedAt == nil) != (b.RespondedAt == nil) {
		return a.RespondedAt == nil
	}
	if a.RespondedAt != nil && !a.RespondedAt.Equal(*b.RespondedAt) {
		return a.RespondedAt.After(*b.RespondedAt)
	}
	return false
}

func (r requestRepo) ListBetween(_ context.Context, a, b string) ([]domain.ConnectionRequest, error) {
	defer r.s.lock()()
	key := keyOf(a, b)
	return r.newestFirst(func(req domain.ConnectionRequest) bool {
		return keyOf(req.SenderID, req.ReceiverID) == key
	}), nil
}

func (r requestRepo) ListInvolving(_ context.Context, viewer string, others []string) ([]domain.ConnectionRequest, error) {
	defer r.s.lock()()
	set := make(map[string]struct{}, len(others))
	for _, id := range others {
		set[id] = struct{}{}
	}
	return r.newestFirst(func(req domain.ConnectionRequest) bool {
		if req.SenderID == viewer {
			_, ok := set[req.ReceiverID]
			return ok
		}
		if req.ReceiverID == viewer {
			_, ok := set[req.SenderID]
			return ok
		}
		return false
	}), nil
}

func (r requestRepo) CountSentSince(_ context.Context, senderID string, since time.Time) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, req := range r.s.data.requests {
		if req.SenderID == senderID && !req.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r requestRepo) ListSent(_ context.Context, senderID string, f repository.RequestFilter) ([]domain.ConnectionRequest, error) {
	defer r.s.lock()()
	return page(r.newestFirst(func(req domain.ConnectionRequest) bool {
		return req.SenderID == senderID && (f.Status == nil || req.Status == *f.Status)
	}), f.Limit, f.Offset, 20), nil
}

func (r requestRepo) ListReceived(_ context.Context, receiverID string, f repository.RequestFilter) ([]domain.ConnectionRequest, error) {
	defer r.s.lock()()
	return page(r.newestFirst(func(req domain.ConnectionRequest) bool {
		return req.ReceiverID == receiverID && (f.Status == nil || req.Status == *f.Status)
	}), f.Limit, f.Offset, 20), nil
}

func (r requestRepo) CountPending(_ context.Context, accountID string) (repository.RequestCounts, error) {
	defer r.s.lock()()
	var counts repository.RequestCounts
	for _, req := range r.s.data.requests {
		if req.Status != domain.RequestStatusPending {
			continue
		}
		if req.SenderID == accountID {
			counts.SentPending++
		}
		if req.ReceiverID == accountID {
			counts.ReceivedPending++
		}
	}
	return counts, nil
}

// LockPair is a no-op; memstore transactions are already serialized.
func (r requestRepo) LockPair(context.Context, string, string) error { return nil }

type connectionRepo struct{ s *Store }

func (r connectionRepo) Create(_ context.Context, c *domain.Connection) error {
	defer r.s.lock()()
	key := keyOf(c.AccountLow, c.AccountHigh)
	if _, ok := r.s.data.connections[key]; ok {
		return nil
	}
	r.s.data.connections[key] = domain.Connection{AccountLow: key[0], AccountHigh: key[1], ConnectedAt: c.ConnectedAt}
	return nil
}

func (r connectionRepo) Exists(_ context.Context, a, b string) (bool, error) {
	defer r.s.lock()()
	_, ok := r.s.data.connections[keyOf(a, b)]
	return ok, nil
}

func (r connectionRepo) CountForAccount(_ context.Context, accountID string) (int, error) {
	defer r.s.lock()()
	count := 0
	for key := range r.s.data.connections {
		if key[0] == accountID || key[1] == accountID {
			count++
		}
	}
	return count, nil
}

func (r connectionRepo) Mutual(_ context.Context, a, b string, limit int) ([]string, error) {
	defer r.s.lock()()
	peers := func(id string) map[string]struct{} {
		out := map[string]struct{}{}
		for key := range r.s.data.connections {
			switch id {
			case key[0]:
				out[key[1]] = struct{}{}
			case key[1]:
				out[key[0]] = struct{}{}
			}
		}
		return out
	}
	pa, pb := peers(a), peers(b)
	var out []string
	for id := range pa {
		if _, ok := pb[id]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, msg *domain.Message) error {
	defer r.s.lock()()
	msg.ID = newID()
	r.s.data.messages = append(r.s.data.messages, *msg)
	return nil
}

func (r messageRepo) ListConversation(_ context.Context, a, b string, q repository.ConversationQuery) ([]domain.Message, error) {
	defer r.s.lock()()
	key := keyOf(a, b)
	var convo []domain.Message
	for _, m := range r.s.data.messages {
		if keyOf(m.SenderID, m.ReceiverID) == key {
			convo = append(convo, m)
		}
	}
	sort.SliceStable(convo, func(i, j int) bool { return convo[i].CreatedAt.Before(convo[j].CreatedAt) })

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if q.AfterID != nil {
		for i, m := range convo {
			if m.ID == *q.AfterID {
				rest := convo[i+1:]
				if len(rest) > limit {
					rest = rest[:limit]
				}
				return append([]domain.Message(nil), rest...), nil
			}
		}
		return nil, nil
	}

	end := len(convo) - q.Offset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return append([]domain.Message(nil), convo[start:end]...), nil
}

func (r messageRepo) MarkRead(_ context.Context, receiverID, senderID string) (int64, error) {
	defer r.s.lock()()
	var n int64
	for i, m := range r.s.data.messages {
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.IsRead {
			r.s.data.messages[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r messageRepo) CountSentSince(_ context.Context, senderID string, since time.Time) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, m := range r.s.data.messages {
		if m.SenderID == senderID && !m.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r messageRepo) Stats(_ context.Context, viewerID, otherID string) (domain.ConversationStats, error) {
	defer r.s.lock()()
	var stats domain.ConversationStats
	key := keyOf(viewerID, otherID)
	for _, m := range r.s.data.messages {
		if keyOf(m.SenderID, m.ReceiverID) != key {
			continue
		}
		stats.Total++
		if m.SenderID == viewerID {
			stats.SentByMe++
		} else {
			stats.SentByThem++
			if !m.IsRead {
				stats.Unread++
			}
		}
		at := m.CreatedAt
		if stats.FirstMessage == nil || at.Before(*stats.FirstMessage) {
			stats.FirstMessage = &at
		}
		if stats.LastMessage == nil || at.After(*stats.LastMessage) {
			stats.LastMessage = &at
		}
	}
	return stats, nil
}

func (r messageRepo) TouchConversation(_ context.Context, a, b string, at time.Time) error {
	defer r.s.lock()()
	r.s.data.conversations[keyOf(a, b)] = at
	return nil
}

func (r messageRepo) ListConversations(_ context.Context, accountID string, limit, offset int) ([]domain.ConversationSummary, error) {
	defer r.s.lock()()
	var out []domain.ConversationSummary
	for key, at := range r.s.data.conversations {
		var other string
		switch accountID {
		case key[0]:
			other = key[1]
		case key[1]:
			other = key[0]
		default:
			continue
		}
		sum := domain.ConversationSummary{OtherID: other, LastActivity: at}
		for _, m := range r.s.data.messages {
			if keyOf(m.SenderID, m.ReceiverID) != key {
				continue
			}
			if m.ReceiverID == accountID && !m.IsRead {
				sum.Unread++
			}
			if sum.LastMessage == nil || !m.CreatedAt.Before(sum.LastMessage.CreatedAt) {
				last := m
				sum.LastMessage = &last
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].OtherID < out[j].OtherID
	})
	if limit > 100 {
		limit = 100
	}
	return page(out, limit, offset, 20), nil
}

func (r messageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	defer r.s.lock()()
	for _, m := range r.s.data.messages {
		if m.ID == id {
			found := m
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r messageRepo) CreateReport(_ context.Context, report *domain.MessageReport) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.reports {
		if existing.MessageID == report.MessageID && existing.ReporterID == report.ReporterID {
			return &pgconn.PgError{Code: "23505", ConstraintName: "message_reports_message_id_reporter_id_key"}
		}
	}
	report.ID = newID()
	r.s.data.reports = append(r.s.data.reports, *report)
	return nil
}

// ConversationActivity returns the last-activity marker for a pair.
func (s *Store) ConversationActivity(a, b string) (time.Time, bool) {
	defer s.lock()()
	at, ok := s.data.conversations[keyOf(a, b)]
	return at, ok
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	defer r.s.lock()()
	n.ID = newID()
	r.s.data.notifications = append(r.s.data.notifications, *n)
	return nil
}

func (r notificationRepo) ListByAccount(_ context.Context, accountID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	defer r.s.lock()()
	var out []domain.Notification
	for i := len(r.s.data.notifications) - 1; i >= 0; i-- {
		n := r.s.data.notifications[i]
		if n.AccountID == accountID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset, 20), nil
}

func (r notificationRepo) MarkRead(_ context.Context, accountID string, ids []string) (int64, error) {
	defer r.s.lock()()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var n int64
	for i, notif := range r.s.data.notifications {
		if _, ok := want[notif.ID]; ok && notif.AccountID == accountID {
			r.s.data.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r notificationRepo) MarkAllRead(_ context.Context, accountID string) (int64, error) {
	defer r.s.lock()()
	var n int64
	for i, notif := range r.s.data.notifications {
		if notif.AccountID == accountID && !notif.IsRead {
			r.s.data.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r notificationRepo) CountUnread(_ context.Context, accountID string) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, n := range r.s.data.notifications {
		if n.AccountID == accountID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

type activityRepo struct{ s *Store }

func (r activityRepo) Create(_ context.Context, a *domain.Activity) error {
	defer r.s.lock()()
	a.ID = newID()
	r.s.data.activities = append(r.s.data.activities, *a)
	return nil
}

func (r activityRepo) ListByAccount(_ context.Context, accountID string, limit int) ([]domain.Activity, error) {
	defer r.s.lock()()
	var out []domain.Activity
	for i := len(r.s.data.activities) - 1; i >= 0; i-- {
		if a := r.s.data.activities[i]; a.AccountID == accountID {
			out = append(out, a)
		}
	}
	return page(out, limit, 0, 20), nil
}

type viewRepo struct{ s *Store }

func (r viewRepo) Record(_ context.Context, viewerID, viewedID string, at time.Time) error {
	defer r.s.lock()()
	key := pairKey{viewerID, viewedID}
	v := r.s.data.views[key]
	v.ViewerID, v.ViewedID = viewerID, viewedID
	v.ViewCount++
	v.LastViewed = at
	r.s.data.views[key] = v
	return nil
}

func (r viewRepo) CountViewedSince(_ context.Context, viewerID string, since time.Time) (int, error) {
	defer r.s.lock()()
	count := 0
	for key, v := range r.s.data.views {
		if key[0] == viewerID && !v.LastViewed.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r viewRepo) ViewedSince(_ context.Context, viewerID, viewedID string, since time.Time) (bool, error) {
	defer r.s.lock()()
	v, ok := r.s.data.views[pairKey{viewerID, viewedID}]
	return ok && !v.LastViewed.Before(since), nil
}

// ProfileView returns the stored view record for viewer→viewed.
func (s *Store) ProfileView(viewerID, viewedID string) (domain.ProfileView, bool) {
	defer s.lock()()
	v, ok := s.data.views[pairKey{viewerID, viewedID}]
	return v, ok
}

type privacyRepo struct{ s *Store }

func (r privacyRepo) Get(_ context.Context, accountID string) (domain.PrivacySettings, error) {
	defer r.s.lock()()
	if p, ok := r.s.data.privacy[accountID]; ok {
		return p, nil
	}
	return domain.DefaultPrivacy(accountID), nil
}

func (r privacyRepo) Upsert(_ context.Context, p domain.PrivacySettings) error {
	defer r.s.lock()()
	r.s.data.privacy[p.AccountID] = p
	return nil
}

type prefsRepo struct{ s *Store }

func (r prefsRepo) Get(_ context.Context, accountID string) (*domain.PartnerPreferences, error) {
	defer r.s.lock()()
	if p, ok := r.s.data.prefs[accountID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r prefsRepo) Upsert(_ context.Context, p domain.PartnerPreferences) error {
	defer r.s.lock()()
	r.s.data.prefs[p.AccountID] = p
	return nil
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(_ context.Context, txn *domain.PaymentTransaction) error {
	defer r.s.lock()()
	txn.ID = newID()
	txn.UpdatedAt = txn.CreatedAt
	r.s.data.payments = append(r.s.data.payments, *txn)
	return nil
}

func (r paymentRepo) GetByReferenceForUpdate(_ context.Context, reference string) (*domain.PaymentTransaction, error) {
	defer r.s.lock()()
	for _, t := range r.s.data.payments {
		if t.Reference == reference {
			found := t
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r paymentRepo) UpdateStatus(_ context.Context, txn *domain.PaymentTransaction) error {
	defer r.s.lock()()
	for i, t := range r.s.data.payments {
		if t.ID == txn.ID {
			r.s.data.payments[i].Status = txn.Status
			r.s.data.payments[i].UpdatedAt = txn.UpdatedAt
			return nil
		}
	}
	return pgx.ErrNoRows
}

type resetRepo struct{ s *Store }

func (r resetRepo) Create(_ context.Context, token *domain.PasswordResetToken) error {
	defer r.s.lock()()
	token.ID = newID()
	token.CreatedAt = r.s.now()
	r.s.data.resets = append(r.s.data.resets, *token)
	return nil
}

func (r resetRepo) GetByToken(_ context.Context, tokenStr string) (*domain.PasswordResetToken, error) {
	defer r.s.lock()()
	for _, t := range r.s.data.resets {
		if t.Token == tokenStr {
			found := t
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r resetRepo) MarkUsed(_ context.Context, id string, at time.Time) error {
	defer r.s.lock()()
	for i, t := range r.s.data.resets {
		if t.ID == id && t.UsedAt == nil {
			r.s.data.resets[i].UsedAt = &at
			return nil
		}
	}
	return pgx.ErrNoRows
}

func page[T any](items []T, limit, offset, def int) []T {
	if limit <= 0 {
		limit = def
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
