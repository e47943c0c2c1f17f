package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matchmaking-service/internal/api/dto"
	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/repository"
	"github.com/spec-kit/matchmaking-service/internal/service"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

// RequestsHandler exposes connection request endpoints.
type RequestsHandler struct {
	connections *service.ConnectionService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(connections *service.ConnectionService) *RequestsHandler {
	return &RequestsHandler{connections: connections}
}

// Send handles POST /requests.
func (h *RequestsHandler) Send(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.SendRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	receiverID, err := parseID("receiver_id", req.ReceiverID)
	if err != nil {
		return err
	}

	sent, err := h.connections.SendRequest(c.UserContext(), id, receiverID, req.Note)
	if err != nil {
		return err
	}
	return created(c, "connection request sent", requestResponse(*sent))
}

// Respond handles POST /requests/:id/respond.
func (h *RequestsHandler) Respond(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	requestID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.RespondRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	action := domain.RequestAction(strings.ToUpper(strings.TrimSpace(req.Action)))
	if action != domain.RequestActionAccept && action != domain.RequestActionDecline {
		return apperrors.NewValidationError("please correct the highlighted fields", map[string]any{"action": "must be ACCEPT or DECLINE"})
	}

	out, err := h.connections.RespondToRequest(c.UserContext(), requestID, id, action)
	if err != nil {
		return err
	}
	message := "request declined"
	if action == domain.RequestActionAccept {
		message = "request accepted, you can now chat"
	}
	return ok(c, message, dto.RespondResponse{
		Request:         requestResponse(out.Request),
		CanChat:         out.CanChat,
		ConnectionCount: out.ConnectionCount,
	})
}

// ListSent handles GET /requests/sent.
func (h *RequestsHandler) ListSent(c *fiber.Ctx) error {
	return h.list(c, h.connections.ListSent)
}

// ListReceived handles GET /requests/received.
func (h *RequestsHandler) ListReceived(c *fiber.Ctx) error {
	return h.list(c, h.connections.ListReceived)
}

type requestLister func(ctx context.Context, accountID string, f repository.RequestFilter) ([]domain.RequestWithCounterpart, error)

func (h *RequestsHandler) list(c *fiber.Ctx, fetch requestLister) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	filter, err := requestFilterFromQuery(c)
	if err != nil {
		return err
	}
	rows, err := fetch(c.UserContext(), id, filter)
	if err != nil {
		return err
	}

	now := time.Now()
	items := make([]dto.RequestResponse, 0, len(rows))
	for _, row := range rows {
		resp := requestResponse(row.Request)
		resp.Counterpart = counterpart(row.Counterpart, now)
		items = append(items, resp)
	}
	return ok(c, "", items)
}

func requestFilterFromQuery(c *fiber.Ctx) (repository.RequestFilter, error) {
	var filter repository.RequestFilter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.RequestStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return filter, apperrors.NewValidationError("please correct the highlighted fields",
				map[string]any{"status": "must be PENDING, ACCEPTED or DECLINED"})
		}
		filter.Status = &status
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return filter, err
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset
	return filter, nil
}

// BulkRespond handles POST /requests/respond.
func (h *RequestsHandler) BulkRespond(c *fiber.Ctx) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.BulkRespondRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ids := make([]string, 0, len(req.IDs))
	for _, raw := range req.IDs {
		parsed, err := parseID("ids", raw)
		if err != nil {
			return err
		}
		ids = append(ids, parsed)
	}
	action := domain.RequestAction(strings.ToUpper(strings.TrimSpace(req.Action)))

	results, err := h.connections.RespondToRequests(c.UserContext(), ids, id, action)
	if err != nil {
		return err
	}
	out := dto.BulkRespondResponse{Items: make([]dto.BulkRespondItem, 0, len(results))}
	for _, r := range results {
		item := dto.BulkRespondItem{ID: r.RequestID, Status: r.Status}
		if r.Err != nil {
			item.Error = apperrors.ReasonOf(r.Err)
		} else {
			out.Processed++
		}
		out.Items = append(out.Items, item)
	}
	return ok(c, fmt.Sprintf("%d of %d requests processed", out.Processed, len(out.Items)), out)
}
