package models

// Reply is a comment on a post or on another reply. Top-level replies carry
// an empty parentReply so every level of the tree is reachable with one
// equality query.
type Reply struct {
	ID              string   `json:"-"`
	Author          string   `json:"author" validate:"required"`
	Contents        string   `json:"contents"`
	YayScore        int      `json:"yayScore"`
	YayList         []string `json:"yayList"`
	NayList         []string `json:"nayList"`
	TimeReply       int64    `json:"timeReply"`
	Edited          bool     `json:"edited"`
	ParentPost      string   `json:"parentPost" validate:"required"`
	ParentReply     string   `json:"parentReply"`
	ParentForum     string   `json:"parentForum"`
	ParentGroup     string   `json:"parentGroup"`
	ParentCommunity string   `json:"parentCommunity" validate:"required"`
	Deleting        bool     `json:"deleting,omitempty"`
}

// CreateReplyRequest defines the request body for replying to a post or reply.
type CreateReplyRequest struct {
	UserID      string `json:"userId" validate:"required"`
	PostID      string `json:"postId" validate:"required"`
	ParentReply string `json:"parentReplyId"`
	Contents    string `json:"contents" validate:"required,min=1,max=10000"`
}

// FormattedReply is the client-facing shape of a reply with its children
// materialized inline.
type FormattedReply struct {
	ID             string           `json:"id"`
	AuthorID       string           `json:"authorId"`
	AuthorUsername string           `json:"authorUsername"`
	Contents       string           `json:"contents"`
	YayScore       int              `json:"yayScore"`
	YayList        []string         `json:"yayList"`
	NayList        []string         `json:"nayList"`
	TimeReply      int64            `json:"timeReply"`
	Edited         bool             `json:"edited"`
	Replies        []FormattedReply `json:"replies"`
}
