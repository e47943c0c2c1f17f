package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

const (
	defaultInboxLimit = 20
	maxInboxLimit     = 100
)

// NotificationService serves the inbox and fans domain events out to email
// and webhook channels.
type NotificationService struct {
	notifications repository.NotificationRepository
	accounts      repository.AccountRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, notifications repository.NotificationRepository, accounts repository.AccountRepository) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		accounts:      accounts,
		dispatcher:    dispatcher,
		logger:        logger,
		cfg:           cfg,
	}
}

// Inbox is one page of notifications.
type Inbox struct {
	Items  []domain.Notification
	Unread int
}

// List returns the account's notifications, newest first.
func (n *NotificationService) List(ctx context.Context, accountID string, unreadOnly bool, limit, offset int) (*Inbox, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, err := n.notifications.ListByAccount(ctx, accountID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := n.notifications.CountUnread(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Inbox{Items: items, Unread: unread}, nil
}

// MarkRead marks the given notifications read; ids belonging to someone
// else are ignored.
func (n *NotificationService) MarkRead(ctx context.Context, accountID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, invalid(map[string]any{"ids": "at least one id is required"})
	}
	return n.notifications.MarkRead(ctx, accountID, ids)
}

// MarkAllRead clears the unread badge.
func (n *NotificationService) MarkAllRead(ctx context.Context, accountID string) (int64, error) {
	return n.notifications.MarkAllRead(ctx, accountID)
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestSent, n.handleRequestSent)
	n.dispatcher.Subscribe(events.EventRequestAccepted, n.handleRequestResponded)
	n.dispatcher.Subscribe(events.EventRequestDeclined, n.handleRequestResponded)
	n.dispatcher.Subscribe(events.EventMessageSent, n.handleMessageSent)
	n.dispatcher.Subscribe(events.EventPackageActivated, n.handlePackageActivated)
	n.dispatcher.Subscribe(events.EventPackageExpired, n.handlePackageExpired)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordReset)
}

func (n *NotificationService) handleRequestSent(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.RequestSentPayload)
	n.logger.Info("RequestSent", zap.String("account_id", event.AccountID), zap.String("receiver_id", payload.ReceiverID))
	n.emailAccount(ctx, payload.ReceiverID, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRequestResponded(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.RequestRespondedPayload)
	n.logger.Info("RequestResponded",
		zap.String("account_id", event.AccountID),
		zap.String("sender_id", payload.SenderID),
		zap.String("status", string(payload.Status)))
	n.emailAccount(ctx, payload.SenderID, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMessageSent(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.MessageSentPayload)
	n.logger.Debug("MessageSent", zap.String("account_id", event.AccountID), zap.String("receiver_id", payload.ReceiverID))
	n.emailAccount(ctx, payload.ReceiverID, event)
	return nil
}

func (n *NotificationService) handlePackageActivated(ctx context.Context, event events.Event) error {
	n.logger.Info("PackageActivated", zap.String("account_id", event.AccountID), zap.Any("payload", event.Payload))
	n.emailAccount(ctx, event.AccountID, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePackageExpired(ctx context.Context, event events.Event) error {
	n.logger.Info("PackageExpired", zap.String("account_id", event.AccountID), zap.Any("payload", event.Payload))
	n.emailAccount(ctx, event.AccountID, event)
	return nil
}

// Reset mails go out regardless of the opt-in flag.
func (n *NotificationService) handlePasswordReset(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.PasswordResetRequestedPayload)
	n.sendEmailNotificationStub(ctx, payload.Email, event)
	return nil
}

func (n *NotificationService) emailAccount(ctx context.Context, accountID string, event events.Event) {
	if accountID == "" || n.accounts == nil {
		return
	}
	account, err := n.accounts.GetByID(ctx, accountID)
	if err != nil {
		n.logger.Warn("load notification recipient", zap.String("account_id", accountID), zap.Error(err))
		return
	}
	if !account.EmailNotifications {
		return
	}
	n.sendEmailNotificationStub(ctx, account.Email, event)
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, to string, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || to == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("account_id", event.AccountID),
		zap.String("event_type", string(event.Type)))
}
