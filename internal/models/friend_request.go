package models

// Friend request statuses. Accepted and rejected are terminal.
const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestRejected = "rejected"
)

// FriendRequest tracks a sender→recipient request through its state machine.
// At most one pending request may exist per ordered pair.
type FriendRequest struct {
	ID          string `json:"-"`
	SenderID    string `json:"senderId" validate:"required"`
	RecipientID string `json:"recipientId" validate:"required"`
	Status      string `json:"status" validate:"required,oneof=pending accepted rejected"`
	Timestamp   int64  `json:"timestamp"`
	RespondedAt int64  `json:"respondedAt,omitempty"`
}
