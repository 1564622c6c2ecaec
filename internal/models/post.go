package models

// Post is authored content in a forum. yayScore must always equal
// len(yayList) - len(nayList); replyCount counts the full reply subtree.
type Post struct {
	ID              string   `json:"-"`
	Author          string   `json:"author" validate:"required"`
	Title           string   `json:"title" validate:"required"`
	Contents        string   `json:"contents"`
	Media           string   `json:"media,omitempty"`
	YayScore        int      `json:"yayScore"`
	ReplyCount      int      `json:"replyCount"`
	YayList         []string `json:"yayList"`
	NayList         []string `json:"nayList"`
	TimePosted      int64    `json:"timePosted"`
	TimeUpdated     int64    `json:"timeUpdated"`
	Edited          bool     `json:"edited"`
	Keywords        []string `json:"keywords"`
	ParentForum     string   `json:"parentForum" validate:"required"`
	ParentGroup     string   `json:"parentGroup"`
	ParentCommunity string   `json:"parentCommunity" validate:"required"`
	Deleting        bool     `json:"deleting,omitempty"`
}

// CreatePostRequest defines the request body for creating a post.
type CreatePostRequest struct {
	UserID   string `json:"userId" validate:"required"`
	ForumID  string `json:"forumId" validate:"required"`
	Title    string `json:"title" validate:"required,min=1,max=300"`
	Contents string `json:"contents" validate:"max=20000"`
	Media    string `json:"media" validate:"omitempty,url"`
}

// UpdatePostRequest defines the request body for editing a post.
type UpdatePostRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Title    string `json:"title" validate:"omitempty,min=1,max=300"`
	Contents string `json:"contents" validate:"omitempty,max=20000"`
}

// VoteRequest defines the request body for voting on a post or reply.
type VoteRequest struct {
	ID     string `json:"id" validate:"required"`
	UserID string `json:"userId" validate:"required"`
	Type   string `json:"type" validate:"required,oneof=yay nay"`
}

// FormattedPost is the client-facing shape of a post: author resolved to a
// username, vote lists flattened to plain ID arrays, timestamps in epoch millis.
type FormattedPost struct {
	ID             string   `json:"id"`
	AuthorID       string   `json:"authorId"`
	AuthorUsername string   `json:"authorUsername"`
	Title          string   `json:"title"`
	Contents       string   `json:"contents"`
	Media          string   `json:"media,omitempty"`
	YayScore       int      `json:"yayScore"`
	ReplyCount     int      `json:"replyCount"`
	YayList        []string `json:"yayList"`
	NayList        []string `json:"nayList"`
	TimePosted     int64    `json:"timePosted"`
	TimeUpdated    int64    `json:"timeUpdated"`
	Edited         bool     `json:"edited"`
	Keywords       []string `json:"keywords"`
}
