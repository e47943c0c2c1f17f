package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// MessagingService gates chat to connected pairs.
type MessagingService struct {
	tx            repository.Transactor
	accounts      repository.AccountRepository
	requests      repository.RequestRepository
	connections   repository.ConnectionRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	activities    repository.ActivityRepository
	dispatcher    events.Dispatcher
	policy        config.PolicyConfig
	now           func() time.Time
}

// MessagingDependencies bundles repositories for the messaging service.
type MessagingDependencies struct {
	Transactor       repository.Transactor
	AccountRepo      repository.AccountRepository
	RequestRepo      repository.RequestRepository
	ConnectionRepo   repository.ConnectionRepository
	MessageRepo      repository.MessageRepository
	NotificationRepo repository.NotificationRepository
	ActivityRepo     repository.ActivityRepository
	Dispatcher       events.Dispatcher
}

// NewMessagingService constructs the service.
func NewMessagingService(policy config.PolicyConfig, deps MessagingDependencies) *MessagingService {
	return &MessagingService{
		tx:            deps.Transactor,
		accounts:      deps.AccountRepo,
		requests:      deps.RequestRepo,
		connections:   deps.ConnectionRepo,
		messages:      deps.MessageRepo,
		notifications: deps.NotificationRepo,
		activities:    deps.ActivityRepo,
		dispatcher:    deps.Dispatcher,
		policy:        policy,
		now:           time.Now,
	}
}

// WithClock overrides the time source.
func (s *MessagingService) WithClock(now func() time.Time) *MessagingService {
	s.now = now
	return s
}

// CanMessage reports whether an accepted request exists between the pair in
// either direction.
func (s *MessagingService) CanMessage(ctx context.Context, a, b string) (bool, error) {
	a, b = canonicalID(a), canonicalID(b)
	if a == b {
		return false, nil
	}
	connected, err := s.connections.Exists(ctx, a, b)
	if err != nil || connected {
		return connected, err
	}
	rows, err := s.requests.ListBetween(ctx, a, b)
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if r.Status == domain.RequestStatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

// ValidateMessageContent applies the content policy with the configured limit.
func (s *MessagingService) ValidateMessageContent(text string) ContentVerdict {
	return ValidateMessageContent(text, s.policy.MessageMaxLength)
}

// CheckRateLimit enforces the per-minute and per-hour send windows
// independently; either breach denies.
func (s *MessagingService) CheckRateLimit(ctx context.Context, senderID string) error {
	now := s.now()
	lastMinute, err := s.messages.CountSentSince(ctx, senderID, now.Add(-time.Minute))
	if err != nil {
		return err
	}
	if lastMinute >= s.policy.MessagesPerMinute {
		return ErrMessageRateMinute.WithDetails(map[string]any{"limit": s.policy.MessagesPerMinute})
	}
	lastHour, err := s.messages.CountSentSince(ctx, senderID, now.Add(-time.Hour))
	if err != nil {
		return err
	}
	if lastHour >= s.policy.MessagesPerHour {
		return ErrMessageRateHour.WithDetails(map[string]any{"limit": s.policy.MessagesPerHour})
	}
	return nil
}

// SentMessage is the result of SendMessage.
type SentMessage struct {
	Message        domain.Message
	ReceiverOnline bool
}

// SendMessage checks connection, then content, then rate limit, and only
// then stores the message with its side effects in one transaction.
func (s *MessagingService) SendMessage(ctx context.Context, senderID, receiverID, body string) (*SentMessage, error) {
	senderID, receiverID = canonicalID(senderID), canonicalID(receiverID)
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}
	receiver, err := s.accounts.GetByID(ctx, receiverID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	ok, err := s.CanMessage(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotConnected
	}

	if verdict := s.ValidateMessageContent(body); !verdict.Valid {
		return nil, contentError(verdict, s.policy.MessageMaxLength)
	}
	if err := s.CheckRateLimit(ctx, senderID); err != nil {
		return nil, err
	}

	now := s.now()
	msg := domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       strings.TrimSpace(body),
		CreatedAt:  now,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sender, err := s.accounts.GetByID(ctx, senderID)
		if err != nil {
			return err
		}
		if err := s.messages.Create(ctx, &msg); err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		if err := s.messages.TouchConversation(ctx, senderID, receiverID, now); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		if err := pushNotification(ctx, s.notifications, receiverID, domain.NotificationMessage,
			fmt.Sprintf("New message from %s", sender.FullName()), senderID, now); err != nil {
			return err
		}
		return recordActivity(ctx, s.activities, senderID, domain.ActivityMessageSent,
			fmt.Sprintf("Sent a message to %s", receiver.FullName()), now)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventMessageSent,
		AccountID: senderID,
		Payload: events.MessageSentPayload{
			MessageID:   msg.ID,
			ReceiverID:  receiverID,
			BodyPreview: preview(msg.Body, 80),
		},
	}, now)

	return &SentMessage{
		Message:        msg,
		ReceiverOnline: domain.OnlineStatusAt(receiver.LastActiveAt, now, s.policy.OnlineWindow()) == domain.OnlineStatusOnline,
	}, nil
}

func contentError(verdict ContentVerdict, maxLength int) *apperrors.DomainError {
	details := map[string]any{}
	if verdict.Reason == ContentTooLong {
		details["max_length"] = maxLength
	}
	return apperrors.NewDomainError(apperrors.CodeValidation, verdict.Reason, verdict.Message(), http.StatusBadRequest, details)
}

// Conversation is one page of a chat with its statistics.
type Conversation struct {
	Other      domain.Account
	Messages   []domain.Message
	Stats      domain.ConversationStats
	MarkedRead int64
}

// GetConversation returns messages oldest first and marks those the viewer
// received as read.
func (s *MessagingService) GetConversation(ctx context.Context, viewerID, otherID string, q repository.ConversationQuery) (*Conversation, error) {
	viewerID, otherID = canonicalID(viewerID), canonicalID(otherID)
	if q.Limit < 0 || q.Limit > 100 || q.Offset < 0 {
		return nil, invalid(map[string]any{"limit": "must be between 1 and 100", "offset": "must not be negative"})
	}
	other, err := s.accounts.GetByID(ctx, otherID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	ok, err := s.CanMessage(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotConnected
	}

	marked, err := s.messages.MarkRead(ctx, viewerID, otherID)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	msgs, err := s.messages.ListConversation(ctx, viewerID, otherID, q)
	if err != nil {
		return nil, err
	}
	stats, err := s.messages.Stats(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	return &Conversation{Other: *other, Messages: msgs, Stats: stats, MarkedRead: marked}, nil
}

// ConversationEntry is one inbox row with the counterpart's card.
type ConversationEntry struct {
	Other        domain.Account
	OtherOnline  bool
	LastMessage  *domain.Message
	Unread       int
	LastActivity time.Time
}

// ListConversations returns the viewer's conversations, most recently active
// first. Conversations with accounts that are no longer active are left out.
func (s *MessagingService) ListConversations(ctx context.Context, viewerID string, limit, offset int) ([]ConversationEntry, error) {
	viewerID = canonicalID(viewerID)
	if limit < 0 || limit > 100 || offset < 0 {
		return nil, invalid(map[string]any{"limit": "must be between 1 and 100", "offset": "must not be negative"})
	}
	summaries, err := s.messages.ListConversations(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return []ConversationEntry{}, nil
	}
	ids := make([]string, 0, len(summaries))
	for _, sum := range summaries {
		ids = append(ids, sum.OtherID)
	}
	accounts, err := s.accounts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	now := s.now()
	out := make([]ConversationEntry, 0, len(summaries))
	for _, sum := range summaries {
		other, ok := byID[sum.OtherID]
		if !ok || !other.IsActive() {
			continue
		}
		out = append(out, ConversationEntry{
			Other:        other,
			OtherOnline:  domain.OnlineStatusAt(other.LastActiveAt, now, s.policy.OnlineWindow()) == domain.OnlineStatusOnline,
			LastMessage:  sum.LastMessage,
			Unread:       sum.Unread,
			LastActivity: sum.LastActivity,
		})
	}
	return out, nil
}

const maxReportReasonLength = 500

// ReportMessage flags a received message for moderation.
func (s *MessagingService) ReportMessage(ctx context.Context, reporterID, messageID, reason string) (*domain.MessageReport, error) {
	reporterID, messageID = canonicalID(reporterID), canonicalID(messageID)
	reason = strings.TrimSpace(reason)
	errs := fieldErrors{}
	if reason == "" {
		errs.add("reason", "is required")
	}
	errs.maxLen("reason", reason, maxReportReasonLength)
	if err := errs.err(); err != nil {
		return nil, err
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if msg.ReceiverID != reporterID {
		return nil, ErrNotRecipient
	}

	now := s.now()
	report := &domain.MessageReport{
		MessageID:  msg.ID,
		ReporterID: reporterID,
		Reason:     reason,
		Status:     domain.ReportStatusPending,
		CreatedAt:  now,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.messages.CreateReport(ctx, report); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrAlreadyReported
			}
			return fmt.Errorf("create report: %w", err)
		}
		return recordActivity(ctx, s.activities, reporterID, domain.ActivityMessageReported,
			"Reported a message", now)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
