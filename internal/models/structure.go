package models

// CommunityStructure is the fully materialized Community→Groups→Forums tree
// returned to clients, with stored references dereferenced into nested objects.
type CommunityStructure struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Public            bool             `json:"public"`
	Icon              string           `json:"icon,omitempty"`
	Banner            string           `json:"banner,omitempty"`
	NumUsers          int              `json:"numUsers"`
	YayScore          int              `json:"yayScore"`
	OwnerList         []string         `json:"ownerList"`
	ModList           []string         `json:"modList"`
	GroupsInCommunity []GroupStructure `json:"groupsInCommunity"`
}

// GroupStructure is a group with its forums materialized inline.
type GroupStructure struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ForumsInGroup []ForumSummary `json:"forumsInGroup"`
}

// ForumSummary is the forum shape embedded in the structure tree.
type ForumSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}
