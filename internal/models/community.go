package models

// Community is the root of the containment hierarchy. Its name is unique and
// immutable; yayScore and numUsers are aggregate counters maintained
// incrementally by the services, never recomputed on read.
type Community struct {
	ID                string   `json:"-"`
	Name              string   `json:"name" validate:"required"`
	Description       string   `json:"description"`
	Public            bool     `json:"public"`
	Icon              string   `json:"icon,omitempty"`
	Banner            string   `json:"banner,omitempty"`
	UserList          []string `json:"userList"`
	OwnerList         []string `json:"ownerList" validate:"required,min=1"`
	ModList           []string `json:"modList"`
	Blacklist         []string `json:"blacklist"`
	GroupsInCommunity []string `json:"groupsInCommunity"`
	ForumsInCommunity []string `json:"forumsInCommunity"`
	NumUsers          int      `json:"numUsers"`
	YayScore          int      `json:"yayScore"`
}

// IsOwnerOrMod reports whether the user may manage groups and forums.
func (c *Community) IsOwnerOrMod(userID string) bool {
	return contains(c.OwnerList, userID) || contains(c.ModList, userID)
}

// IsMember reports whether the user has joined the community.
func (c *Community) IsMember(userID string) bool {
	return contains(c.UserList, userID)
}

// IsBlacklisted reports whether the user is banned from the community.
func (c *Community) IsBlacklisted(userID string) bool {
	return contains(c.Blacklist, userID)
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

// CreateCommunityRequest defines the request body for creating a community.
type CreateCommunityRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=50"`
	Description string `json:"description" validate:"max=500"`
	Public      bool   `json:"public"`
	UserID      string `json:"userId" validate:"required"`
}

// MembershipRequest defines the request body for joining or leaving a community.
type MembershipRequest struct {
	CommName string `json:"commName" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
}

// BlacklistRequest defines the request body for banning a user from a community.
type BlacklistRequest struct {
	CommName string `json:"commName" validate:"required"`
	TargetID string `json:"targetId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
}

// CreateGroupRequest defines the request body for creating a group under a community.
type CreateGroupRequest struct {
	CommName string `json:"commName" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=50"`
	UserID   string `json:"userId" validate:"required"`
}
