package events

import (
	"time"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestSent            EventType = "request_sent"
	EventRequestAccepted        EventType = "request_accepted"
	EventRequestDeclined        EventType = "request_declined"
	EventMessageSent            EventType = "message_sent"
	EventPackageExpired         EventType = "package_expired"
	EventPackageActivated       EventType = "package_activated"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Event represents a domain event emitted by services after their
// transaction committed.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"account_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestSentPayload payload.
type RequestSentPayload struct {
	RequestID  string `json:"request_id"`
	ReceiverID string `json:"receiver_id"`
	Note       string `json:"note,omitempty"`
}

// RequestRespondedPayload is shared by accepted and declined events.
// AccountID on the event is the responder.
type RequestRespondedPayload struct {
	RequestID string               `json:"request_id"`
	SenderID  string               `json:"sender_id"`
	Status    domain.RequestStatus `json:"status"`
}

// MessageSentPayload payload.
type MessageSentPayload struct {
	MessageID   string `json:"message_id"`
	ReceiverID  string `json:"receiver_id"`
	BodyPreview string `json:"body_preview"`
}

// PackageExpiredPayload payload.
type PackageExpiredPayload struct {
	Previous  domain.PackageCode `json:"previous"`
	ExpiredAt time.Time          `json:"expired_at"`
}

// PackageActivatedPayload payload.
type PackageActivatedPayload struct {
	Package   domain.PackageCode `json:"package"`
	ExpiresAt time.Time          `json:"expires_at"`
	Reference string             `json:"reference"`
}

// PasswordResetRequestedPayload carries the single-use token to mail out.
type PasswordResetRequestedPayload struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
