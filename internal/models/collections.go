package models

// Collection names in the document store. Cross-collection relationships are
// references (collection + id), not foreign keys.
const (
	ColCommunities    = "Communities"
	ColGroups         = "Groups"
	ColForums         = "Forums"
	ColPosts          = "Posts"
	ColReplies        = "Replies"
	ColUsers          = "Users"
	ColMessages       = "Messages"
	ColFriendRequests = "FriendRequests"
	ColNotifs         = "Notifs"
)
