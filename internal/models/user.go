package models

// User mirrors the Firebase Auth identity plus the denormalized social state:
// friends, notification refs, joined communities and the authored-content
// score aggregate.
type User struct {
	ID            string   `json:"-"`
	Username      string   `json:"username" validate:"required"`
	Email         string   `json:"email" validate:"omitempty,email"`
	PhotoURL      string   `json:"photoURL,omitempty"`
	CreatedAt     int64    `json:"createdAt"`
	FriendList    []string `json:"friendList"`
	Notifications []string `json:"notifications"`
	Communities   []string `json:"communities"`
	ProfileDesc   string   `json:"profileDesc"`
	YayScore      int      `json:"yayScore"`

	// Client preferences, irrelevant to the consistency core.
	DarkMode       bool   `json:"darkMode"`
	PrivateMode    bool   `json:"privateMode"`
	RestrictedMode bool   `json:"restrictedMode"`
	Font           string `json:"font,omitempty"`
	TextSize       int    `json:"textSize,omitempty"`
}

// CreateUserRequest defines the request body for registering a user record
// after Firebase Auth sign-up.
type CreateUserRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Username string `json:"username" validate:"required,min=2,max=40"`
	Email    string `json:"email" validate:"required,email"`
	PhotoURL string `json:"photoURL" validate:"omitempty,url"`
}

// SendFriendRequestRequest defines the request body for sending a friend request.
type SendFriendRequestRequest struct {
	SenderID    string `json:"senderId" validate:"required"`
	RecipientID string `json:"recipientId" validate:"required"`
}

// RespondFriendRequestRequest defines the request body for accepting or
// rejecting a pending friend request.
type RespondFriendRequestRequest struct {
	RequestID string `json:"requestId" validate:"required"`
	Accept    *bool  `json:"accept" validate:"required"`
	RecID     string `json:"recId" validate:"required"`
}
