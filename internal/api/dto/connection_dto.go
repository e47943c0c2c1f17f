package dto

import (
	"time"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// SendRequestRequest payload for POST /requests.
type SendRequestRequest struct {
	ReceiverID string `json:"receiver_id"`
	Note       string `json:"note"`
}

// RespondRequest payload for POST /requests/:id/respond.
type RespondRequest struct {
	Action string `json:"action"`
}

// CounterpartSummary is the other party of a request.
type CounterpartSummary struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Age        int    `json:"age"`
	City       string `json:"city,omitempty"`
	ProfilePic string `json:"profile_pic,omitempty"`
}

// RequestResponse is a connection request.
type RequestResponse struct {
	ID          string               `json:"id"`
	SenderID    string               `json:"sender_id"`
	ReceiverID  string               `json:"receiver_id"`
	Status      domain.RequestStatus `json:"status"`
	Note        string               `json:"note,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	RespondedAt *time.Time           `json:"responded_at,omitempty"`
	Counterpart *CounterpartSummary  `json:"counterpart,omitempty"`
}

// RespondResponse reports the outcome of a response.
type RespondResponse struct {
	Request         RequestResponse `json:"request"`
	CanChat         bool            `json:"can_chat"`
	ConnectionCount int             `json:"connection_count"`
}

// SendMessageRequest payload for POST /messages.
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Body       string `json:"body"`
}

// MessageResponse is one chat message.
type MessageResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"body"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConversationStats summarizes a conversation for the caller.
type ConversationStats struct {
	Total        int        `json:"total"`
	SentByMe     int        `json:"sent_by_me"`
	SentByThem   int        `json:"sent_by_them"`
	Unread       int        `json:"unread"`
	FirstMessage *time.Time `json:"first_message,omitempty"`
	LastMessage  *time.Time `json:"last_message,omitempty"`
}

// ConversationResponse is GET /messages/:accountId.
type ConversationResponse struct {
	Other      CounterpartSummary `json:"other"`
	Messages   []MessageResponse  `json:"messages"`
	Stats      ConversationStats  `json:"stats"`
	MarkedRead int64              `json:"marked_read"`
}

// BulkRespondRequest payload for POST /requests/respond.
type BulkRespondRequest struct {
	IDs    []string `json:"ids"`
	Action string   `json:"action"`
}

// BulkRespondItem is the outcome for one request id.
type BulkRespondItem struct {
	ID     string               `json:"id"`
	Status domain.RequestStatus `json:"status,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// BulkRespondResponse reports a bulk response.
type BulkRespondResponse struct {
	Processed int               `json:"processed"`
	Items     []BulkRespondItem `json:"items"`
}

// ConversationListItem is one row of GET /messages.
type ConversationListItem struct {
	Other        CounterpartSummary `json:"other"`
	IsOnline     bool               `json:"is_online"`
	LastMessage  *MessageResponse   `json:"last_message,omitempty"`
	LastIsMine   bool               `json:"is_last_message_mine"`
	Unread       int                `json:"unread"`
	LastActivity time.Time          `json:"last_activity"`
}

// ReportMessageRequest payload for POST /messages/:id/report.
type ReportMessageRequest struct {
	Reason string `json:"reason"`
}

// MessageReportResponse acknowledges a report.
type MessageReportResponse struct {
	ID        string              `json:"id"`
	MessageID string              `json:"message_id"`
	Status    domain.ReportStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}
