package models

// Notification types.
const (
	NotifFriendRequest         = "friend_request"
	NotifFriendRequestAccepted = "friend_request_accepted"
	NotifReport                = "report"
)

// Notification is an append-only record referenced from User.notifications.
type Notification struct {
	ID         string `json:"-"`
	Message    string `json:"message" validate:"required"`
	Timestamp  int64  `json:"timestamp"`
	Read       bool   `json:"read"`
	Type       string `json:"type" validate:"required,oneof=friend_request friend_request_accepted report"`
	RelatedDoc string `json:"relatedDoc,omitempty"`
}

// FormattedNotification is the client-facing shape of a notification.
type FormattedNotification struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
	Read       bool   `json:"read"`
	Type       string `json:"type"`
	RelatedDoc string `json:"relatedDoc,omitempty"`
}
