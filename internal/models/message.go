package models

// Message is a flat chat record, either a direct message to a user or a
// community channel message. No thread hierarchy.
type Message struct {
	ID        string `json:"-"`
	Author    string `json:"author" validate:"required"`
	Contents  string `json:"contents" validate:"required"`
	Media     string `json:"media,omitempty"`
	Receiver  string `json:"receiver" validate:"required"`
	IsDirect  bool   `json:"isDirect"`
	Timestamp int64  `json:"timestamp"`
}

// SendMessageRequest defines the request body for sending a message.
// IsDirect is a pointer so a missing flag is rejected rather than defaulted.
type SendMessageRequest struct {
	AuthorID   string `json:"authorId" validate:"required"`
	Contents   string `json:"contents" validate:"required,min=1,max=4000"`
	Media      string `json:"media" validate:"omitempty,url"`
	ReceiverID string `json:"receiverId" validate:"required"`
	IsDirect   *bool  `json:"isDirect" validate:"required"`
}
