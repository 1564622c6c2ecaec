package services

import (
	"errors"
	"testing"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
)

func TestGetStructureNestsGroupsAndForums(t *testing.T) {
	fx := newFixture(t)

	g2, err := fx.communities.CreateGroup(fx.ctx, models.CreateGroupRequest{
		CommName: "test", Name: "AAA", UserID: "alice",
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name: "Zebra", UserID: "alice", GroupID: g2, CommName: "test",
	}); err != nil {
		t.Fatalf("create forum: %v", err)
	}
	if _, err := fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name: "Apple", UserID: "alice", GroupID: g2, CommName: "test",
	}); err != nil {
		t.Fatalf("create forum: %v", err)
	}

	structure, err := fx.structure.GetStructure(fx.ctx, "test")
	if err != nil {
		t.Fatalf("get structure: %v", err)
	}
	if structure.Name != "test" || structure.NumUsers != 2 {
		t.Fatalf("unexpected community header: %+v", structure)
	}
	if len(structure.GroupsInCommunity) != 2 {
		t.Fatalf("groups = %d, want 2", len(structure.GroupsInCommunity))
	}
	// Groups and forums come back name-sorted.
	if structure.GroupsInCommunity[0].Name != "AAA" || structure.GroupsInCommunity[1].Name != "G1" {
		t.Fatalf("group order: %s, %s", structure.GroupsInCommunity[0].Name, structure.GroupsInCommunity[1].Name)
	}
	aaa := structure.GroupsInCommunity[0]
	if len(aaa.ForumsInGroup) != 2 || aaa.ForumsInGroup[0].Name != "Apple" || aaa.ForumsInGroup[1].Name != "Zebra" {
		t.Fatalf("forum order in AAA: %+v", aaa.ForumsInGroup)
	}
	if aaa.ForumsInGroup[0].Slug != "apple" {
		t.Fatalf("forum slug = %q, want %q", aaa.ForumsInGroup[0].Slug, "apple")
	}

	if _, err := fx.structure.GetStructure(fx.ctx, "nope"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing community: err = %v, want ErrNotFound", err)
	}
}

func TestGetForumPostsSortModes(t *testing.T) {
	fx := newFixture(t)

	// Three posts with staggered timestamps and scores.
	ts := int64(1000)
	origNow := nowMillis
	nowMillis = func() int64 { ts += 1000; return ts }
	defer func() { nowMillis = origNow }()

	first := fx.createPost("alice", "first")
	second := fx.createPost("bob", "second")
	third := fx.createPost("alice", "third")

	if _, err := fx.votes.VotePost(fx.ctx, second, "carol", VoteYay); err != nil {
		t.Fatalf("vote: %v", err)
	}

	_, posts, err := fx.structure.GetForumPosts(fx.ctx, "test", "general", SortNew)
	if err != nil {
		t.Fatalf("get posts (new): %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("posts = %d, want 3", len(posts))
	}
	if posts[0].ID != third || posts[2].ID != first {
		t.Fatalf("new order: %s, %s, %s", posts[0].Title, posts[1].Title, posts[2].Title)
	}
	if posts[0].AuthorUsername != "alice" {
		t.Fatalf("author not resolved: %+v", posts[0])
	}

	_, posts, err = fx.structure.GetForumPosts(fx.ctx, "test", "general", SortTop)
	if err != nil {
		t.Fatalf("get posts (top): %v", err)
	}
	if posts[0].ID != second {
		t.Fatalf("top order starts with %s, want the voted post", posts[0].Title)
	}

	if _, _, err := fx.structure.GetForumPosts(fx.ctx, "test", "no-such-slug", SortNew); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing forum: err = %v, want ErrNotFound", err)
	}

	// A forum mid-cascade is as good as gone.
	if err := fx.store.Update(fx.ctx, forumRef(fx.forumID), store.Set("deleting", true)); err != nil {
		t.Fatalf("mark deleting: %v", err)
	}
	if _, _, err := fx.structure.GetForumPosts(fx.ctx, "test", "general", SortNew); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("deleting forum: err = %v, want ErrNotFound", err)
	}
}

func TestFormattedPostsSkipDeletingAndUnresolvableAuthors(t *testing.T) {
	fx := newFixture(t)

	keep := fx.createPost("alice", "keep")
	dying := fx.createPost("alice", "dying")
	orphan := fx.createPost("bob", "orphan")

	if err := fx.store.Update(fx.ctx, postRef(dying), store.Set("deleting", true)); err != nil {
		t.Fatalf("mark deleting: %v", err)
	}
	if err := fx.store.Delete(fx.ctx, userRef("bob")); err != nil {
		t.Fatalf("delete author: %v", err)
	}

	posts, err := fx.structure.FormattedPosts(fx.ctx, fx.forumID, SortNew)
	if err != nil {
		t.Fatalf("formatted posts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != keep {
		t.Fatalf("posts = %+v, want only %s (not %s or %s)", posts, keep, dying, orphan)
	}
	if posts[0].YayList == nil || posts[0].NayList == nil {
		t.Fatal("vote lists must be empty arrays, not null")
	}
}

func TestFormattedRepliesNesting(t *testing.T) {
	fx := newFixture(t)
	postID := fx.createPost("alice", "threaded")

	top1 := fx.createReply("bob", postID, "")
	child := fx.createReply("carol", postID, top1)
	grand := fx.createReply("alice", postID, child)
	top2 := fx.createReply("alice", postID, "")

	replies, err := fx.structure.FormattedReplies(fx.ctx, postID)
	if err != nil {
		t.Fatalf("formatted replies: %v", err)
	}
	if len(replies) != 2 {
		t.Fatalf("top-level replies = %d, want 2", len(replies))
	}

	byID := map[string]models.FormattedReply{}
	for _, r := range replies {
		byID[r.ID] = r
	}
	if _, ok := byID[top2]; !ok {
		t.Fatalf("missing top-level reply %s", top2)
	}
	t1, ok := byID[top1]
	if !ok {
		t.Fatalf("missing top-level reply %s", top1)
	}
	if len(t1.Replies) != 1 || t1.Replies[0].ID != child {
		t.Fatalf("child level: %+v", t1.Replies)
	}
	if len(t1.Replies[0].Replies) != 1 || t1.Replies[0].Replies[0].ID != grand {
		t.Fatalf("grandchild level: %+v", t1.Replies[0].Replies)
	}
	if t1.AuthorUsername != "bob" {
		t.Fatalf("reply author not resolved: %+v", t1)
	}
}
