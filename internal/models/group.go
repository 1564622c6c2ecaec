package models

// Group is a named section of a community holding forums. Deleting a group
// cascades to every forum, post and reply beneath it.
type Group struct {
	ID              string   `json:"-"`
	Name            string   `json:"name" validate:"required"`
	ParentCommunity string   `json:"parentCommunity" validate:"required"`
	ForumsInGroup   []string `json:"forumsInGroup"`
	Deleting        bool     `json:"deleting,omitempty"`
}
