package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matchmaking-service/internal/api/dto"
	"github.com/spec-kit/matchmaking-service/internal/repository"
	"github.com/spec-kit/matchmaking-service/internal/service"
)

// MessagesHandler exposes chat between connected members.
type MessagesHandler struct {
	messaging *service.MessagingService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messaging *service.MessagingService) *MessagesHandler {
	return &MessagesHandler{messaging: messaging}
}

// Send handles POST /messages.
func (h *MessagesHandler) Send(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	receiverID, err := parseID("receiver_id", req.ReceiverID)
	if err != nil {
		return err
	}

	sent, err := h.messaging.SendMessage(c.UserContext(), id, receiverID, req.Body)
	if err != nil {
		return err
	}
	return created(c, "message sent", fiber.Map{
		"message":         messageResponse(sent.Message),
		"receiver_online": sent.ReceiverOnline,
	})
}

// Conversation handles GET /messages/:accountId.
func (h *MessagesHandler) Conversation(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	otherID, err := paramID(c, "accountId")
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		return err
	}
	q := repository.ConversationQuery{Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(c.Query("after_id")); raw != "" {
		after, err := parseID("after_id", raw)
		if err != nil {
			return err
		}
		q.AfterID = &after
	}

	conv, err := h.messaging.GetConversation(c.UserContext(), id, otherID, q)
	if err != nil {
		return err
	}
	messages := make([]dto.MessageResponse, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		messages = append(messages, messageResponse(m))
	}
	return ok(c, "", dto.ConversationResponse{
		Other:    *counterpart(conv.Other, time.Now()),
		Messages: messages,
		Stats: dto.ConversationStats{
			Total:        conv.Stats.Total,
			SentByMe:     conv.Stats.SentByMe,
			SentByThem:   conv.Stats.SentByThem,
			Unread:       conv.Stats.Unread,
			FirstMessage: conv.Stats.FirstMessage,
			LastMessage:  conv.Stats.LastMessage,
		},
		MarkedRead: conv.MarkedRead,
	})
}

// List handles GET /messages.
func (h *MessagesHandler) List(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		return err
	}

	entries, err := h.messaging.ListConversations(c.UserContext(), id, limit, offset)
	if err != nil {
		return err
	}
	now := time.Now()
	out := make([]dto.ConversationListItem, 0, len(entries))
	for _, e := range entries {
		item := dto.ConversationListItem{
			Other:        *counterpart(e.Other, now),
			IsOnline:     e.OtherOnline,
			Unread:       e.Unread,
			LastActivity: e.LastActivity,
		}
		if e.LastMessage != nil {
			last := messageResponse(*e.LastMessage)
			item.LastMessage = &last
			item.LastIsMine = e.LastMessage.SenderID == id
		}
		out = append(out, item)
	}
	return ok(c, "", out)
}

// Report handles POST /messages/:id/report.
func (h *MessagesHandler) Report(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	messageID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ReportMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	report, err := h.messaging.ReportMessage(c.UserContext(), id, messageID, req.Reason)
	if err != nil {
		return err
	}
	return created(c, "message reported", dto.MessageReportResponse{
		ID:        report.ID,
		MessageID: report.MessageID,
		Status:    report.Status,
		CreatedAt: report.CreatedAt,
	})
}
