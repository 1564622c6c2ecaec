package models

// Forum is a board under a group. Its slug is a URL-safe derivation of the
// name, unique within the parent community by both name and slug.
type Forum struct {
	ID              string   `json:"-"`
	Name            string   `json:"name" validate:"required"`
	Slug            string   `json:"slug" validate:"required"`
	Description     string   `json:"description"`
	ParentGroup     string   `json:"parentGroup" validate:"required"`
	ParentCommunity string   `json:"parentCommunity" validate:"required"`
	OwnerList       []string `json:"ownerList"`
	DateCreated     int64    `json:"dateCreated"`
	Deleting        bool     `json:"deleting,omitempty"`
}

// CreateForumRequest defines the request body for creating a forum.
type CreateForumRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=80"`
	Description string `json:"description" validate:"max=500"`
	UserID      string `json:"userId" validate:"required"`
	GroupID     string `json:"groupId" validate:"required"`
	CommName    string `json:"commName" validate:"required"`
}

// DeleteForumRequest defines the request body for deleting a forum.
type DeleteForumRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// GetForumPostsRequest selects the ordering of a forum's post listing.
type GetForumPostsRequest struct {
	SortMode string `json:"sortMode" validate:"omitempty,oneof=new top"`
}
