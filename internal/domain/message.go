package domain

import "time"

// Message is a chat line between two connected accounts.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Body       string
	IsRead     bool
	CreatedAt  time.Time
}

// ConversationStats summarizes a conversation from one participant's side.
type ConversationStats struct {
	Total        int
	SentByMe     int
	SentByThem   int
	Unread       int
	FirstMessage *time.Time
	LastMessage  *time.Time
}

// ConversationSummary is one row of a member's inbox.
type ConversationSummary struct {
	OtherID      string
	LastMessage  *Message
	Unread       int
	LastActivity time.Time
}

// ReportStatus tracks moderation of a reported message.
type ReportStatus string

const ReportStatusPending ReportStatus = "PENDING"

// MessageReport is a receiver's complaint about a message.
type MessageReport struct {
	ID         string
	MessageID  string
	ReporterID string
	Reason     string
	Status     ReportStatus
	CreatedAt  time.Time
}
