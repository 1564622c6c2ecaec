package services

import (
	"context"
	"testing"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
)

// fixture seeds the in-memory store with the hierarchy most tests need:
// community "test" (owner alice, member bob) containing group "G1" with forum
// "general", plus users alice, bob and carol.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *store.MemoryStore

	communities *CommunityService
	forums      *ForumService
	posts       *PostService
	replies     *ReplyService
	votes       *VoteService
	cascade     *CascadeService
	structure   *StructureService
	friends     *FriendService
	notifs      *NotificationService
	users       *UserService

	commID  string
	groupID string
	forumID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	fx := &fixture{
		t:           t,
		ctx:         context.Background(),
		store:       st,
		communities: NewCommunityService(st, nil),
		forums:      NewForumService(st, nil),
		posts:       NewPostService(st, nil),
		replies:     NewReplyService(st),
		votes:       NewVoteService(st),
		cascade:     NewCascadeService(st, nil, nil),
		structure:   NewStructureService(st, nil),
		friends:     NewFriendService(st),
		notifs:      NewNotificationService(st),
		users:       NewUserService(st),
	}

	for _, u := range []struct{ id, name string }{
		{"alice", "alice"},
		{"bob", "bob"},
		{"carol", "carol"},
	} {
		if err := fx.users.Create(fx.ctx, models.CreateUserRequest{
			UserID:   u.id,
			Username: u.name,
			Email:    u.name + "@example.com",
		}); err != nil {
			t.Fatalf("seed user %s: %v", u.id, err)
		}
	}

	commID, err := fx.communities.Create(fx.ctx, models.CreateCommunityRequest{
		Name:   "test",
		Public: true,
		UserID: "alice",
	})
	if err != nil {
		t.Fatalf("seed community: %v", err)
	}
	fx.commID = commID

	if err := fx.communities.Join(fx.ctx, "test", "bob"); err != nil {
		t.Fatalf("seed membership: %v", err)
	}

	groupID, err := fx.communities.CreateGroup(fx.ctx, models.CreateGroupRequest{
		CommName: "test",
		Name:     "G1",
		UserID:   "alice",
	})
	if err != nil {
		t.Fatalf("seed group: %v", err)
	}
	fx.groupID = groupID

	forumID, err := fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name:     "general",
		UserID:   "alice",
		GroupID:  groupID,
		CommName: "test",
	})
	if err != nil {
		t.Fatalf("seed forum: %v", err)
	}
	fx.forumID = forumID
	return fx
}

func (fx *fixture) createPost(author, title string) string {
	fx.t.Helper()
	id, err := fx.posts.Create(fx.ctx, models.CreatePostRequest{
		UserID:   author,
		ForumID:  fx.forumID,
		Title:    title,
		Contents: "contents of " + title,
	})
	if err != nil {
		fx.t.Fatalf("create post %q: %v", title, err)
	}
	return id
}

func (fx *fixture) createReply(author, postID, parentReply string) string {
	fx.t.Helper()
	id, err := fx.replies.Create(fx.ctx, models.CreateReplyRequest{
		UserID:      author,
		PostID:      postID,
		ParentReply: parentReply,
		Contents:    "a reply",
	})
	if err != nil {
		fx.t.Fatalf("create reply: %v", err)
	}
	return id
}

func (fx *fixture) post(id string) *models.Post {
	fx.t.Helper()
	doc, err := fx.store.Get(fx.ctx, postRef(id))
	if err != nil {
		fx.t.Fatalf("get post %s: %v", id, err)
	}
	p, err := decodePost(doc)
	if err != nil {
		fx.t.Fatalf("decode post %s: %v", id, err)
	}
	return p
}

func (fx *fixture) reply(id string) *models.Reply {
	fx.t.Helper()
	doc, err := fx.store.Get(fx.ctx, replyRef(id))
	if err != nil {
		fx.t.Fatalf("get reply %s: %v", id, err)
	}
	r, err := decodeReply(doc)
	if err != nil {
		fx.t.Fatalf("decode reply %s: %v", id, err)
	}
	return r
}

func (fx *fixture) user(id string) *models.User {
	fx.t.Helper()
	u, err := fx.users.Get(fx.ctx, id)
	if err != nil {
		fx.t.Fatalf("get user %s: %v", id, err)
	}
	return u
}

func (fx *fixture) community() *models.Community {
	fx.t.Helper()
	doc, err := fx.store.Get(fx.ctx, communityRef(fx.commID))
	if err != nil {
		fx.t.Fatalf("get community: %v", err)
	}
	c, err := decodeCommunity(doc)
	if err != nil {
		fx.t.Fatalf("decode community: %v", err)
	}
	return c
}

func (fx *fixture) countDocs(collection string, conds ...store.Cond) int {
	fx.t.Helper()
	docs, err := fx.store.Query(fx.ctx, collection, conds...)
	if err != nil {
		fx.t.Fatalf("query %s: %v", collection, err)
	}
	return len(docs)
}
