package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/matchmaking-service/internal/config"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

func TestInboxListAndMarkRead(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	h.connect(t, a.ID, b.ID)

	inbox, err := h.notes.List(h.ctx, b.ID, false, 0, 0)
	require.NoError(t, err)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, domain.NotificationFriendRequest, inbox.Items[0].Type)
	require.NotNil(t, inbox.Items[0].RelatedAccountID)
	assert.Equal(t, a.ID, *inbox.Items[0].RelatedAccountID)
	assert.Equal(t, 1, inbox.Unread)

	senderInbox, err := h.notes.List(h.ctx, a.ID, true, 0, 0)
	require.NoError(t, err)
	require.Len(t, senderInbox.Items, 1)
	assert.Equal(t, domain.NotificationRequestAccepted, senderInbox.Items[0].Type)

	// Ids owned by someone else are ignored.
	n, err := h.notes.MarkRead(h.ctx, b.ID, []string{inbox.Items[0].ID, senderInbox.Items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	inbox, err = h.notes.List(h.ctx, b.ID, true, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, inbox.Items)
	assert.Zero(t, inbox.Unread)

	_, err = h.notes.MarkRead(h.ctx, b.ID, nil)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	n, err = h.notes.MarkAllRead(h.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNotificationHandlersRespectEmailOptIn(t *testing.T) {
	h := newHarness(t)
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(logger)
	notes := NewNotificationService(dispatcher, logger, config.NotificationConfig{
		EmailFrom:  "noreply@matchmaking.test",
		WebhookURL: "https://hooks.matchmaking.test/events",
	}, h.store.Notifications(), h.store.Accounts())
	notes.RegisterHandlers()

	optedIn := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	acc := h.account(t, optedIn.ID)
	acc.EmailNotifications = true
	require.NoError(t, h.store.Accounts().Update(h.ctx, &acc))
	optedOut := h.member(t, "chathu", domain.GenderFemale, domain.PackageSilver)

	publish := func(e events.Event) {
		require.NoError(t, dispatcher.Publish(h.ctx, e))
	}
	publish(events.Event{Type: events.EventRequestSent, AccountID: "sender", Payload: events.RequestSentPayload{ReceiverID: optedIn.ID}})
	publish(events.Event{Type: events.EventRequestSent, AccountID: "sender", Payload: events.RequestSentPayload{ReceiverID: optedOut.ID}})

	emails := logs.FilterMessage("sendEmailNotificationStub").All()
	require.Len(t, emails, 1)
	assert.Equal(t, "bimali@example.com", emails[0].ContextMap()["to"])
	assert.Equal(t, string(events.EventRequestSent), emails[0].ContextMap()["event_type"])
	assert.Equal(t, 2, logs.FilterMessage("sendWebhookNotificationStub").Len())

	// Reset mails ignore the opt-in flag.
	publish(events.Event{Type: events.EventPasswordResetRequested, AccountID: optedOut.ID, Payload: events.PasswordResetRequestedPayload{
		Email:     "chathu@example.com",
		Token:     "token",
		ExpiresAt: h.now.Add(30 * time.Minute),
	}})
	emails = logs.FilterMessage("sendEmailNotificationStub").All()
	require.Len(t, emails, 2)
	assert.Equal(t, "chathu@example.com", emails[1].ContextMap()["to"])

	publish(events.Event{Type: events.EventMessageSent, AccountID: "sender", Payload: events.MessageSentPayload{ReceiverID: "missing"}})
	assert.Equal(t, 1, logs.FilterMessage("load notification recipient").Len())
}
