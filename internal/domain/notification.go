package domain

import "time"

// NotificationType tags the reason a notification exists.
type NotificationType string

const (
	NotificationFriendRequest    NotificationType = "friend_request"
	NotificationRequestAccepted  NotificationType = "request_accepted"
	NotificationRequestDeclined  NotificationType = "request_declined"
	NotificationMessage          NotificationType = "message"
	NotificationPackageActivated NotificationType = "package_activated"
)

// Notification is an append-only inbox entry.
type Notification struct {
	ID               string
	AccountID        string
	Type             NotificationType
	Message          string
	RelatedAccountID *string
	IsRead           bool
	CreatedAt        time.Time
}

// ActivityType names an entry in the activity log.
type ActivityType string

const (
	ActivityRegistration        ActivityType = "registration"
	ActivityLogin               ActivityType = "login"
	ActivityPackageExpired      ActivityType = "package_expired"
	ActivityPackageUpgrade      ActivityType = "package_upgrade"
	ActivityRequestSent         ActivityType = "request_sent"
	ActivityRequestAccepted     ActivityType = "request_accepted"
	ActivityRequestDeclined     ActivityType = "request_declined"
	ActivityRequestStatusChange ActivityType = "request_status_change"
	ActivityMessageSent         ActivityType = "message_sent"
	ActivityMessageReported     ActivityType = "message_reported"
	ActivityProfileView         ActivityType = "profile_view"
	ActivityProfileUpdate       ActivityType = "profile_update"
	ActivityPasswordChange      ActivityType = "password_change"
	ActivityStatusChange        ActivityType = "status_change"
)

// Activity is an audit entry for an account.
type Activity struct {
	ID          string
	AccountID   string
	Type        ActivityType
	Description string
	CreatedAt   time.Time
}

// ProfileView tracks how often a viewer opened a profile.
type ProfileView struct {
	ViewerID   string
	ViewedID   string
	ViewCount  int
	LastViewed time.Time
}
