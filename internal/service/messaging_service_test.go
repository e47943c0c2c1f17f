package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

func TestMessagingRequiresAcceptedRequest(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)

	_, err := h.msgs.SendMessage(h.ctx, a.ID, a.ID, "hi")
	assert.ErrorIs(t, err, ErrSelfMessage)

	_, err = h.msgs.SendMessage(h.ctx, a.ID, b.ID, "hi")
	assert.ErrorIs(t, err, ErrNotConnected)

	req, err := h.conns.SendRequest(h.ctx, a.ID, b.ID, "")
	require.NoError(t, err)
	ok, err := h.msgs.CanMessage(h.ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.conns.RespondToRequest(h.ctx, req.ID, b.ID, domain.RequestActionAccept)
	require.NoError(t, err)
	for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, a.ID}} {
		ok, err := h.msgs.CanMessage(h.ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestSendMessageAndReadConversation(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	h.connect(t, a.ID, b.ID)

	sent, err := h.msgs.SendMessage(h.ctx, a.ID, b.ID, "  Hello, how are you?  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello, how are you?", sent.Message.Body)
	assert.False(t, sent.ReceiverOnline)

	h.now = h.now.Add(time.Minute)
	_, err = h.msgs.SendMessage(h.ctx, b.ID, a.ID, "I'm well, thanks")
	require.NoError(t, err)

	at, ok := h.store.ConversationActivity(a.ID, b.ID)
	require.True(t, ok)
	assert.Equal(t, h.now, at)
	assert.Len(t, h.events.ofType(events.EventMessageSent), 2)
	assert.True(t, hasActivity(h.activities(t, a.ID), domain.ActivityMessageSent))

	convo, err := h.msgs.GetConversation(h.ctx, b.ID, a.ID, repository.ConversationQuery{})
	require.NoError(t, err)
	require.Len(t, convo.Messages, 2)
	assert.Equal(t, "Hello, how are you?", convo.Messages[0].Body)
	assert.Equal(t, int64(1), convo.MarkedRead)
	assert.Equal(t, 2, convo.Stats.Total)
	assert.Equal(t, 1, convo.Stats.SentByMe)
	assert.Equal(t, 0, convo.Stats.Unread)

	again, err := h.msgs.GetConversation(h.ctx, b.ID, a.ID, repository.ConversationQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.MarkedRead)

	stranger := h.member(t, "chathu", domain.GenderFemale, domain.PackageSilver)
	_, err = h.msgs.GetConversation(h.ctx, stranger.ID, a.ID, repository.ConversationQuery{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSendMessageRejectsPolicyViolations(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	h.connect(t, a.ID, b.ID)

	for body, reason := range map[string]string{
		"   ":                        ContentEmpty,
		"call me on 0771234567":      ContentContainsPhone,
		"see www.example.com":        ContentContainsLink,
		"this is not a scam, honest": ContentInappropriate,
	} {
		_, err := h.msgs.SendMessage(h.ctx, a.ID, b.ID, body)
		require.Error(t, err, body)
		assert.Equal(t, reason, apperrors.ReasonOf(err), body)
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err), body)
	}

	count, err := h.store.Messages().CountSentSince(h.ctx, a.ID, baseTime.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMessageRateLimitPerMinute(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	h.connect(t, a.ID, b.ID)

	for i := 0; i < 20; i++ {
		_, err := h.msgs.SendMessage(h.ctx, a.ID, b.ID, fmt.Sprintf("message number %d", i))
		require.NoError(t, err)
	}
	_, err := h.msgs.SendMessage(h.ctx, a.ID, b.ID, "one too many")
	require.Error(t, err)
	assert.Equal(t, "MESSAGE_RATE_MINUTE", apperrors.ReasonOf(err))
	assert.Equal(t, apperrors.CodeQuotaExceeded, apperrors.CodeOf(err))

	// The other side has its own budget.
	_, err = h.msgs.SendMessage(h.ctx, b.ID, a.ID, "still fine")
	assert.NoError(t, err)

	h.now = h.now.Add(61 * time.Second)
	_, err = h.msgs.SendMessage(h.ctx, a.ID, b.ID, "after a pause")
	assert.NoError(t, err)
}

func TestMessageRateLimitPerHour(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	h.connect(t, a.ID, b.ID)

	for i := 0; i < 100; i++ {
		_, err := h.msgs.SendMessage(h.ctx, a.ID, b.ID, fmt.Sprintf("message number %d", i))
		require.NoError(t, err, "message %d", i)
		h.now = h.now.Add(4 * time.Second)
	}
	_, err := h.msgs.SendMessage(h.ctx, a.ID, b.ID, "one too many")
	require.Error(t, err)
	assert.Equal(t, "MESSAGE_RATE_HOUR", apperrors.ReasonOf(err))

	h.now = h.now.Add(time.Hour)
	_, err = h.msgs.SendMessage(h.ctx, a.ID, b.ID, "an hour later")
	assert.NoError(t, err)
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	c := h.member(t, "chathu", domain.GenderFemale, domain.PackageSilver)
	d := h.member(t, "dilini", domain.GenderFemale, domain.PackageSilver)
	h.connect(t, a.ID, b.ID)
	h.connect(t, a.ID, c.ID)
	h.connect(t, a.ID, d.ID)

	empty, err := h.msgs.ListConversations(h.ctx, a.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = h.msgs.SendMessage(h.ctx, a.ID, b.ID, "hello bimali")
	require.NoError(t, err)
	h.now = h.now.Add(time.Minute)
	_, err = h.msgs.SendMessage(h.ctx, c.ID, a.ID, "hi amal")
	require.NoError(t, err)
	h.now = h.now.Add(time.Minute)
	_, err = h.msgs.SendMessage(h.ctx, c.ID, a.ID, "are you there?")
	require.NoError(t, err)
	h.now = h.now.Add(time.Minute)
	_, err = h.msgs.SendMessage(h.ctx, d.ID, a.ID, "hello")
	require.NoError(t, err)
	require.NoError(t, h.store.Accounts().UpdateStatus(h.ctx, d.ID, domain.AccountStatusInactive))
	require.NoError(t, h.store.Accounts().TouchLastActive(h.ctx, c.ID, h.now))

	list, err := h.msgs.ListConversations(h.ctx, a.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, c.ID, list[0].Other.ID)
	assert.True(t, list[0].OtherOnline)
	assert.Equal(t, 2, list[0].Unread)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "are you there?", list[0].LastMessage.Body)
	assert.Equal(t, baseTime.Add(2*time.Minute), list[0].LastActivity)

	assert.Equal(t, b.ID, list[1].Other.ID)
	assert.False(t, list[1].OtherOnline)
	assert.Equal(t, 0, list[1].Unread)
	assert.Equal(t, a.ID, list[1].LastMessage.SenderID)

	// Reading a conversation clears its unread count.
	_, err = h.msgs.GetConversation(h.ctx, a.ID, c.ID, repository.ConversationQuery{})
	require.NoError(t, err)
	list, err = h.msgs.ListConversations(h.ctx, a.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c.ID, list[0].Other.ID)
	assert.Equal(t, 0, list[0].Unread)

	_, err = h.msgs.ListConversations(h.ctx, a.ID, 500, 0)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestReportMessage(t *testing.T) {
	h := newHarness(t)
	a := h.member(t, "amal", domain.GenderMale, domain.PackageSilver)
	b := h.member(t, "bimali", domain.GenderFemale, domain.PackageSilver)
	h.connect(t, a.ID, b.ID)
	sent, err := h.msgs.SendMessage(h.ctx, a.ID, b.ID, "hello")
	require.NoError(t, err)

	_, err = h.msgs.ReportMessage(h.ctx, b.ID, sent.Message.ID, "  ")
	assert.Contains(t, apperrors.ToDomainError(err).Details, "reason")
	_, err = h.msgs.ReportMessage(h.ctx, a.ID, sent.Message.ID, "spam")
	assert.ErrorIs(t, err, ErrNotRecipient)
	_, err = h.msgs.ReportMessage(h.ctx, b.ID, "2f6c1f0e-4a55-4d8b-9d61-0c9d8f1a2b3c", "spam")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	report, err := h.msgs.ReportMessage(h.ctx, b.ID, sent.Message.ID, " rude language ")
	require.NoError(t, err)
	assert.Equal(t, "rude language", report.Reason)
	assert.Equal(t, domain.ReportStatusPending, report.Status)
	assert.NotEmpty(t, report.ID)
	assert.True(t, hasActivity(h.activities(t, b.ID), domain.ActivityMessageReported))

	_, err = h.msgs.ReportMessage(h.ctx, b.ID, sent.Message.ID, "again")
	assert.ErrorIs(t, err, ErrAlreadyReported)
}
