package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/matchmaking-service/internal/auth"
	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// ConnectionService runs the request workflow: send, accept/decline and
// status derivation.
type ConnectionService struct {
	tx            repository.Transactor
	accounts      repository.AccountRepository
	packages      repository.PackageRepository
	requests      repository.RequestRepository
	connections   repository.ConnectionRepository
	notifications repository.NotificationRepository
	activities    repository.ActivityRepository
	privacy       repository.PrivacyRepository
	access        *AccessService
	dispatcher    events.Dispatcher
	policy        config.PolicyConfig
	loc           *time.Location
	now           func() time.Time
}

// ConnectionDependencies bundles repositories for the connection service.
type ConnectionDependencies struct {
	Transactor       repository.Transactor
	AccountRepo      repository.AccountRepository
	PackageRepo      repository.PackageRepository
	RequestRepo      repository.RequestRepository
	ConnectionRepo   repository.ConnectionRepository
	NotificationRepo repository.NotificationRepository
	ActivityRepo     repository.ActivityRepository
	PrivacyRepo      repository.PrivacyRepository
	Access           *AccessService
	Dispatcher       events.Dispatcher
}

// NewConnectionService constructs the service.
func NewConnectionService(policy config.PolicyConfig, deps ConnectionDependencies) *ConnectionService {
	return &ConnectionService{
		tx:            deps.Transactor,
		accounts:      deps.AccountRepo,
		packages:      deps.PackageRepo,
		requests:      deps.RequestRepo,
		connections:   deps.ConnectionRepo,
		notifications: deps.NotificationRepo,
		activities:    deps.ActivityRepo,
		privacy:       deps.PrivacyRepo,
		access:        deps.Access,
		dispatcher:    deps.Dispatcher,
		policy:        policy,
		loc:           policy.Location(),
		now:           time.Now,
	}
}

// WithClock overrides the time source.
func (s *ConnectionService) WithClock(now func() time.Time) *ConnectionService {
	s.now = now
	return s
}

// SendRequest creates a Pending request from sender to receiver. Every
// precondition is re-checked inside the transaction under a lock on the
// unordered pair, and the request counter is decremented atomically, so
// concurrent sends can neither duplicate a request nor overspend the quota.
func (s *ConnectionService) SendRequest(ctx context.Context, senderID, receiverID, note string) (*domain.ConnectionRequest, error) {
	senderID, receiverID = canonicalID(senderID), canonicalID(receiverID)
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > s.policy.RequestNoteMaxLength {
		return nil, ErrNoteTooLong.WithDetails(map[string]any{"max_length": s.policy.RequestNoteMaxLength})
	}

	if _, _, err := s.access.ResolvePackage(ctx, senderID); err != nil {
		return nil, err
	}

	now := s.now()
	var req *domain.ConnectionRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requests.LockPair(ctx, senderID, receiverID); err != nil {
			return fmt.Errorf("lock pair: %w", err)
		}

		sender, err := s.accounts.GetByIDForUpdate(ctx, senderID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		if !sender.IsActive() {
			return auth.StatusDenied(sender.Status)
		}
		if domain.PackageExpired(sender.PackageCode, sender.PackageExpiresAt, now) {
			return ErrPackageExpired
		}
		if sender.RequestsRemaining <= 0 {
			return ErrRequestQuotaExhausted
		}

		tier, err := s.packages.GetByCode(ctx, sender.PackageCode)
		if err != nil {
			return fmt.Errorf("load package: %w", err)
		}
		sentToday, err := s.requests.CountSentSince(ctx, senderID, startOfDay(now, s.loc))
		if err != nil {
			return err
		}
		if sentToday >= tier.DailyRequestCap {
			return ErrDailyRequestCap.WithDetails(map[string]any{"limit": tier.DailyRequestCap})
		}

		receiver, err := s.accounts.GetByID(ctx, receiverID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		if !receiver.IsActive() {
			return ErrReceiverUnavailable
		}

		if err := s.checkExisting(ctx, senderID, receiverID, now); err != nil {
			return err
		}

		privacy, err := s.privacy.Get(ctx, receiverID)
		if err != nil {
			return err
		}
		if !acceptsRequestFrom(privacy, tier.Rank) {
			return ErrVisibilityDenied
		}
		if s.policy.OppositeGenderOnly && sender.Gender == receiver.Gender {
			return ErrSameGender
		}

		req = &domain.ConnectionRequest{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Status:     domain.RequestStatusPending,
			Note:       SanitizeNote(note),
			CreatedAt:  now,
		}
		if err := s.requests.Create(ctx, req); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrRequestAlreadyPending
			}
			return fmt.Errorf("create request: %w", err)
		}

		ok, err := s.accounts.DecrementRequests(ctx, senderID)
		if err != nil {
			return fmt.Errorf("decrement requests: %w", err)
		}
		if !ok {
			return ErrRequestQuotaExhausted
		}

		if err := pushNotification(ctx, s.notifications, receiverID, domain.NotificationFriendRequest,
			fmt.Sprintf("%s sent you a connection request", sender.FullName()), senderID, now); err != nil {
			return err
		}
		return recordActivity(ctx, s.activities, senderID, domain.ActivityRequestSent,
			fmt.Sprintf("Sent connection request to %s", receiver.FullName()), now)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventRequestSent,
		AccountID: senderID,
		Payload:   events.RequestSentPayload{RequestID: req.ID, ReceiverID: receiverID, Note: req.Note},
	}, now)
	return req, nil
}

// checkExisting applies the duplicate and cooldown rules over every request
// ever exchanged by the pair, in either direction.
func (s *ConnectionService) checkExisting(ctx context.Context, a, b string, now time.Time) error {
	connected, err := s.connections.Exists(ctx, a, b)
	if err != nil {
		return err
	}
	if connected {
		return ErrAlreadyConnected
	}

	rows, err := s.requests.ListBetween(ctx, a, b)
	if err != nil {
		return err
	}
	var lastDecline *time.Time
	for _, r := range rows {
		switch r.Status {
		case domain.RequestStatusAccepted:
			return ErrAlreadyConnected
		case domain.RequestStatusPending:
			return ErrRequestAlreadyPending
		case domain.RequestStatusDeclined:
			at := r.CreatedAt
			if r.RespondedAt != nil {
				at = *r.RespondedAt
			}
			if lastDecline == nil || at.After(*lastDecline) {
				lastDecline = &at
			}
		}
	}
	if lastDecline != nil {
		retryAt := lastDecline.Add(s.policy.DeclineCooldown())
		if now.Before(retryAt) {
			return ErrRequestRecentlyDeclined.WithDetails(map[string]any{"retry_after": retryAt})
		}
	}
	return nil
}

func acceptsRequestFrom(privacy domain.PrivacySettings, senderRank int) bool {
	if privacy.ReceiveRequestFrom == domain.RequestsFromNone {
		return false
	}
	switch privacy.Visibility {
	case domain.VisibilityHidden:
		return false
	case domain.VisibilityPremiumOnly:
		return senderRank >= domain.PremiumRank
	case domain.VisibilityPublic, domain.VisibilityMembersOnly:
		return true
	default:
		return false
	}
}

// RespondOutcome is the result of RespondToRequest.
type RespondOutcome struct {
	Request         domain.ConnectionRequest
	CanChat         bool
	ConnectionCount int
}

// RespondToRequest moves a Pending request to Accepted or Declined. The
// transition happens exactly once; a second response fails with
// ErrAlreadyResolved and changes nothing.
func (s *ConnectionService) RespondToRequest(ctx context.Context, requestID, responderID string, action domain.RequestAction) (*RespondOutcome, error) {
	var status domain.RequestStatus
	switch action {
	case domain.RequestActionAccept:
		status = domain.RequestStatusAccepted
	case domain.RequestActionDecline:
		status = domain.RequestStatusDeclined
	default:
		return nil, invalid(map[string]any{"action": "must be ACCEPT or DECLINE"})
	}

	requestID, responderID = canonicalID(requestID), canonicalID(responderID)
	now := s.now()
	var req *domain.ConnectionRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrRequestNotFound
			}
			return err
		}
		if req.ReceiverID != responderID {
			return ErrNotReceiver
		}
		if req.Status != domain.RequestStatusPending {
			return ErrAlreadyResolved
		}
		if err := s.requests.Resolve(ctx, req.ID, status, now); err != nil {
			if repository.IsNotFound(err) {
				return ErrAlreadyResolved
			}
			return fmt.Errorf("resolve request: %w", err)
		}
		req.Status = status
		req.RespondedAt = &now

		parties, err := s.accounts.ListByIDs(ctx, []string{req.SenderID, req.ReceiverID})
		if err != nil {
			return err
		}
		senderName, responderName := "A member", "A member"
		for _, p := range parties {
			switch p.ID {
			case req.SenderID:
				senderName = p.FullName()
			case req.ReceiverID:
				responderName = p.FullName()
			}
		}

		if status == domain.RequestStatusAccepted {
			if err := s.connections.Create(ctx, &domain.Connection{
				AccountLow:  req.SenderID,
				AccountHigh: req.ReceiverID,
				ConnectedAt: now,
			}); err != nil {
				return fmt.Errorf("create connection: %w", err)
			}
			if err := pushNotification(ctx, s.notifications, req.SenderID, domain.NotificationRequestAccepted,
				fmt.Sprintf("%s accepted your connection request", responderName), req.ReceiverID, now); err != nil {
				return err
			}
			if err := recordActivity(ctx, s.activities, req.ReceiverID, domain.ActivityRequestAccepted,
				fmt.Sprintf("Accepted connection request from %s", senderName), now); err != nil {
				return err
			}
			return recordActivity(ctx, s.activities, req.SenderID, domain.ActivityRequestStatusChange,
				fmt.Sprintf("%s accepted your connection request", responderName), now)
		}

		if s.policy.NotifyOnDecline {
			if err := pushNotification(ctx, s.notifications, req.SenderID, domain.NotificationRequestDeclined,
				fmt.Sprintf("%s declined your connection request", responderName), req.ReceiverID, now); err != nil {
				return err
			}
		}
		if err := recordActivity(ctx, s.activities, req.ReceiverID, domain.ActivityRequestDeclined,
			fmt.Sprintf("Declined connection request from %s", senderName), now); err != nil {
			return err
		}
		return recordActivity(ctx, s.activities, req.SenderID, domain.ActivityRequestStatusChange,
			fmt.Sprintf("%s declined your connection request", responderName), now)
	})
	if err != nil {
		return nil, err
	}

	count, err := s.connections.CountForAccount(ctx, responderID)
	if err != nil {
		return nil, err
	}

	eventType := events.EventRequestDeclined
	if status == domain.RequestStatusAccepted {
		eventType = events.EventRequestAccepted
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      eventType,
		AccountID: responderID,
		Payload:   events.RequestRespondedPayload{RequestID: req.ID, SenderID: req.SenderID, Status: status},
	}, now)

	return &RespondOutcome{
		Request:         *req,
		CanChat:         status == domain.RequestStatusAccepted,
		ConnectionCount: count,
	}, nil
}

const maxBulkRespond = 50

// BulkRespondResult reports what happened to one request of a bulk response.
type BulkRespondResult struct {
	RequestID string
	Status    domain.RequestStatus
	Err       error
}

// RespondToRequests applies the same action to several requests. Each one is
// resolved in its own transaction, so one failure does not undo the others.
// Duplicate ids are answered once.
func (s *ConnectionService) RespondToRequests(ctx context.Context, requestIDs []string, responderID string, action domain.RequestAction) ([]BulkRespondResult, error) {
	errs := fieldErrors{}
	switch {
	case len(requestIDs) == 0:
		errs.add("ids", "is required")
	case len(requestIDs) > maxBulkRespond:
		errs.add("ids", fmt.Sprintf("must contain at most %d ids", maxBulkRespond))
	}
	if action != domain.RequestActionAccept && action != domain.RequestActionDecline {
		errs.add("action", "must be ACCEPT or DECLINE")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(requestIDs))
	results := make([]BulkRespondResult, 0, len(requestIDs))
	for _, id := range requestIDs {
		id = canonicalID(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		res := BulkRespondResult{RequestID: id}
		outcome, err := s.RespondToRequest(ctx, id, responderID, action)
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeInternal {
				return nil, err
			}
			res.Err = err
		} else {
			res.Status = outcome.Request.Status
		}
		results = append(results, res)
	}
	return results, nil
}

// ConnectionStatus derives the relation between viewer and other.
func (s *ConnectionService) ConnectionStatus(ctx context.Context, viewerID, otherID string) (domain.ConnectionStatus, error) {
	viewerID, otherID = canonicalID(viewerID), canonicalID(otherID)
	if viewerID == otherID {
		return domain.ConnectionNone, nil
	}
	rows, err := s.requests.ListBetween(ctx, viewerID, otherID)
	if err != nil {
		return "", err
	}
	return classifyStatus(viewerID, rows), nil
}

// StatusesFor derives the status against each of others with one lookup.
func (s *ConnectionService) StatusesFor(ctx context.Context, viewerID string, others []string) (map[string]domain.ConnectionStatus, error) {
	out := make(map[string]domain.ConnectionStatus, len(others))
	if len(others) == 0 {
		return out, nil
	}
	rows, err := s.requests.ListInvolving(ctx, viewerID, others)
	if err != nil {
		return nil, err
	}
	byOther := make(map[string][]domain.ConnectionRequest)
	for _, r := range rows {
		other := r.ReceiverID
		if other == viewerID {
			other = r.SenderID
		}
		byOther[other] = append(byOther[other], r)
	}
	for _, id := range others {
		out[id] = classifyStatus(viewerID, byOther[id])
	}
	return out, nil
}

// classifyStatus looks at the newest request in each direction. Accepted in
// either direction wins, then a pending request sent by the viewer, then one
// received, then a decline in either direction.
func classifyStatus(viewerID string, newestFirst []domain.ConnectionRequest) domain.ConnectionStatus {
	var sent, received *domain.ConnectionRequest
	for i := range newestFirst {
		r := &newestFirst[i]
		if r.SenderID == viewerID {
			if sent == nil {
				sent = r
			}
		} else if received == nil {
			received = r
		}
	}

	is := func(r *domain.ConnectionRequest, status domain.RequestStatus) bool {
		return r != nil && r.Status == status
	}
	switch {
	case is(sent, domain.RequestStatusAccepted), is(received, domain.RequestStatusAccepted):
		return domain.ConnectionConnected
	case is(sent, domain.RequestStatusPending):
		return domain.ConnectionRequestSent
	case is(received, domain.RequestStatusPending):
		return domain.ConnectionRequestReceived
	case is(sent, domain.RequestStatusDeclined), is(received, domain.RequestStatusDeclined):
		return domain.ConnectionDeclined
	default:
		return domain.ConnectionNone
	}
}

// ListSent returns requests the account sent with the receiver's summary.
func (s *ConnectionService) ListSent(ctx context.Context, accountID string, filter repository.RequestFilter) ([]domain.RequestWithCounterpart, error) {
	if err := validateRequestFilter(filter); err != nil {
		return nil, err
	}
	rows, err := s.requests.ListSent(ctx, accountID, filter)
	if err != nil {
		return nil, err
	}
	return s.withCounterparts(ctx, accountID, rows)
}

// ListReceived returns requests the account received with the sender's summary.
func (s *ConnectionService) ListReceived(ctx context.Context, accountID string, filter repository.RequestFilter) ([]domain.RequestWithCounterpart, error) {
	if err := validateRequestFilter(filter); err != nil {
		return nil, err
	}
	rows, err := s.requests.ListReceived(ctx, accountID, filter)
	if err != nil {
		return nil, err
	}
	return s.withCounterparts(ctx, accountID, rows)
}

func validateRequestFilter(filter repository.RequestFilter) error {
	if filter.Status != nil && !filter.Status.Valid() {
		return invalid(map[string]any{"status": "must be PENDING, ACCEPTED or DECLINED"})
	}
	return nil
}

func (s *ConnectionService) withCounterparts(ctx context.Context, accountID string, rows []domain.ConnectionRequest) ([]domain.RequestWithCounterpart, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.SenderID == accountID {
			ids = append(ids, r.ReceiverID)
		} else {
			ids = append(ids, r.SenderID)
		}
	}
	accounts, err := s.accounts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	out := make([]domain.RequestWithCounterpart, 0, len(rows))
	for i, r := range rows {
		out = append(out, domain.RequestWithCounterpart{Request: r, Counterpart: byID[ids[i]]})
	}
	return out, nil
}

// Dashboard is the member home summary.
type Dashboard struct {
	Package             *PackageStatus
	SentPending         int
	ReceivedPending     int
	Connections         int
	ActiveMembers       int
	UnreadNotifications int
}

// Dashboard collects the counters shown on the member home page.
func (s *ConnectionService) Dashboard(ctx context.Context, accountID string) (*Dashboard, error) {
	pkg, _, err := s.access.ResolvePackage(ctx, accountID)
	if err != nil {
		return nil, err
	}
	counts, err := s.requests.CountPending(ctx, accountID)
	if err != nil {
		return nil, err
	}
	connections, err := s.connections.CountForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	active, err := s.accounts.CountActive(ctx, accountID)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Package:             pkg,
		SentPending:         counts.SentPending,
		ReceivedPending:     counts.ReceivedPending,
		Connections:         connections,
		ActiveMembers:       active,
		UnreadNotifications: unread,
	}, nil
}
