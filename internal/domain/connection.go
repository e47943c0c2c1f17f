package domain

import "time"

// RequestStatus is the state of a connection request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusAccepted RequestStatus = "ACCEPTED"
	RequestStatusDeclined RequestStatus = "DECLINED"
)

// Valid reports whether s is a known request state.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusDeclined:
		return true
	default:
		return false
	}
}

// RequestAction is the receiver's answer to a pending request.
type RequestAction string

const (
	RequestActionAccept  RequestAction = "ACCEPT"
	RequestActionDecline RequestAction = "DECLINE"
)

// ConnectionRequest is a directed proposal from sender to receiver.
type ConnectionRequest struct {
	ID          string
	SenderID    string
	ReceiverID  string
	Status      RequestStatus
	Note        string
	CreatedAt   time.Time
	RespondedAt *time.Time
}

// Connection is the materialized, undirected result of an accepted request.
// AccountLow always holds the lexically smaller id.
type Connection struct {
	AccountLow  string
	AccountHigh string
	ConnectedAt time.Time
}

// OrderedPair returns a and b with the lower-valued id first.
func OrderedPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// ConnectionStatus is the relation between a viewer and another account.
type ConnectionStatus string

const (
	ConnectionNone            ConnectionStatus = "none"
	ConnectionRequestSent     ConnectionStatus = "request_sent"
	ConnectionRequestReceived ConnectionStatus = "request_received"
	ConnectionConnected       ConnectionStatus = "connected"
	ConnectionDeclined        ConnectionStatus = "declined"
)

// RequestWithCounterpart pairs a request with the other party's summary.
type RequestWithCounterpart struct {
	Request     ConnectionRequest
	Counterpart Account
}
