package domain

import "time"

// Session describes an issued authentication token.
type Session struct {
	TokenID   string
	AccountID string
	Role      AccountRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
