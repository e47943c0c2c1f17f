package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matchmaking-service/internal/api/dto"
	"github.com/spec-kit/matchmaking-service/internal/service"
)

// NotificationsHandler serves the member inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List handles GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
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

	inbox, err := h.notifications.List(c.UserContext(), id, c.QueryBool("unread", false), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(inbox.Items))
	for _, n := range inbox.Items {
		items = append(items, dto.NotificationResponse{
			ID:               n.ID,
			Type:             n.Type,
			Message:          n.Message,
			RelatedAccountID: n.RelatedAccountID,
			IsRead:           n.IsRead,
			CreatedAt:        n.CreatedAt,
		})
	}
	return ok(c, "", dto.InboxResponse{Items: items, Unread: inbox.Unread})
}

// MarkRead handles POST /notifications/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.MarkReadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ids := make([]string, 0, len(req.IDs))
	for _, raw := range req.IDs {
		nid, err := parseID("ids", raw)
		if err != nil {
			return err
		}
		ids = append(ids, nid)
	}

	var marked int64
	if req.All {
		marked, err = h.notifications.MarkAllRead(c.UserContext(), id)
	} else {
		marked, err = h.notifications.MarkRead(c.UserContext(), id, ids)
	}
	if err != nil {
		return err
	}
	return ok(c, "notifications marked as read", fiber.Map{"marked": marked})
}
