package services

import (
	"errors"
	"testing"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
)

func TestDeleteGroupCascadeCompleteness(t *testing.T) {
	fx := newFixture(t)

	// Second forum in the same group, each forum with posts and nested replies.
	forum2, err := fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name: "random", UserID: "alice", GroupID: fx.groupID, CommName: "test",
	})
	if err != nil {
		t.Fatalf("create forum2: %v", err)
	}

	for _, forumID := range []string{fx.forumID, forum2} {
		for i := 0; i < 2; i++ {
			postID, err := fx.posts.Create(fx.ctx, models.CreatePostRequest{
				UserID: "bob", ForumID: forumID, Title: "post", Contents: "body",
			})
			if err != nil {
				t.Fatalf("create post: %v", err)
			}
			top := fx.createReply("alice", postID, "")
			fx.createReply("carol", postID, top)
		}
	}

	if err := fx.cascade.DeleteGroup(fx.ctx, fx.groupID, "alice"); err != nil {
		t.Fatalf("delete group: %v", err)
	}

	if n := fx.countDocs(models.ColForums, store.Where("parentGroup", "==", fx.groupID)); n != 0 {
		t.Fatalf("%d forums still reference the group", n)
	}
	if n := fx.countDocs(models.ColPosts, store.Where("parentGroup", "==", fx.groupID)); n != 0 {
		t.Fatalf("%d posts still reference the group", n)
	}
	if n := fx.countDocs(models.ColReplies, store.Where("parentGroup", "==", fx.groupID)); n != 0 {
		t.Fatalf("%d replies still reference the group", n)
	}
	if _, err := fx.store.Get(fx.ctx, groupRef(fx.groupID)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("group still present: %v", err)
	}

	comm := fx.community()
	if containsString(comm.GroupsInCommunity, fx.groupID) {
		t.Fatal("groupsInCommunity still references the deleted group")
	}
	if len(comm.ForumsInCommunity) != 0 {
		t.Fatalf("forumsInCommunity has dangling refs: %v", comm.ForumsInCommunity)
	}
}

func TestDeleteSubtreeConservesAggregates(t *testing.T) {
	fx := newFixture(t)

	postID := fx.createPost("alice", "scored post")
	replyID := fx.createReply("bob", postID, "")

	// Post ends at +2, reply at +1.
	for _, voter := range []string{"bob", "carol"} {
		if _, err := fx.votes.VotePost(fx.ctx, postID, voter, VoteYay); err != nil {
			t.Fatalf("vote post: %v", err)
		}
	}
	if _, err := fx.votes.VoteReply(fx.ctx, replyID, "carol", VoteYay); err != nil {
		t.Fatalf("vote reply: %v", err)
	}

	commBefore := fx.community().YayScore
	removed := fx.post(postID).YayScore + fx.reply(replyID).YayScore

	if err := fx.cascade.DeleteForum(fx.ctx, fx.forumID, "alice"); err != nil {
		t.Fatalf("delete forum: %v", err)
	}

	if got := fx.community().YayScore; got != commBefore-removed {
		t.Fatalf("community yayScore = %d, want %d", got, commBefore-removed)
	}
	if got := fx.user("alice").YayScore; got != 0 {
		t.Fatalf("post author yayScore = %d, want 0", got)
	}
	if got := fx.user("bob").YayScore; got != 0 {
		t.Fatalf("reply author yayScore = %d, want 0", got)
	}
}

func TestDeleteReplyUpdatesReplyCount(t *testing.T) {
	fx := newFixture(t)
	postID := fx.createPost("alice", "threaded")

	top := fx.createReply("bob", postID, "")
	child := fx.createReply("carol", postID, top)
	fx.createReply("alice", postID, child)
	fx.createReply("bob", postID, "")

	if got := fx.post(postID).ReplyCount; got != 4 {
		t.Fatalf("replyCount = %d, want 4", got)
	}

	// Deleting the top reply takes its whole 3-node subtree with it.
	if err := fx.cascade.DeleteReply(fx.ctx, top, "bob"); err != nil {
		t.Fatalf("delete reply: %v", err)
	}
	if got := fx.post(postID).ReplyCount; got != 1 {
		t.Fatalf("replyCount after subtree delete = %d, want 1", got)
	}
	if n := fx.countDocs(models.ColReplies, store.Where("parentPost", "==", postID)); n != 1 {
		t.Fatalf("%d replies remain, want 1", n)
	}
}

func TestDeletePostRemovesReplyTreeWithoutTouchingCounter(t *testing.T) {
	fx := newFixture(t)
	postID := fx.createPost("alice", "to delete")
	top := fx.createReply("bob", postID, "")
	fx.createReply("carol", postID, top)

	if err := fx.cascade.DeletePost(fx.ctx, postID, "alice"); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if _, err := fx.store.Get(fx.ctx, postRef(postID)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("post still present: %v", err)
	}
	if n := fx.countDocs(models.ColReplies, store.Where("parentPost", "==", postID)); n != 0 {
		t.Fatalf("%d replies survived the post", n)
	}
}

func TestDeletePermissions(t *testing.T) {
	fx := newFixture(t)
	postID := fx.createPost("alice", "protected")

	if err := fx.cascade.DeletePost(fx.ctx, postID, "carol"); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("non-author delete: err = %v, want ErrForbidden", err)
	}
	if err := fx.cascade.DeleteGroup(fx.ctx, fx.groupID, "bob"); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("member group delete: err = %v, want ErrForbidden", err)
	}
	if err := fx.cascade.DeleteForum(fx.ctx, "missing", "alice"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing forum: err = %v, want ErrNotFound", err)
	}
}

// The concrete end-to-end scenario: vote then delete the forum, aggregates
// return to their starting point and no parent array still references it.
func TestVoteThenForumDeleteScenario(t *testing.T) {
	fx := newFixture(t)
	p1 := fx.createPost("alice", "P1")

	if _, err := fx.votes.VotePost(fx.ctx, p1, "bob", VoteYay); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if got := fx.post(p1).YayScore; got != 1 {
		t.Fatalf("P1 yayScore = %d, want 1", got)
	}
	if got := fx.community().YayScore; got != 1 {
		t.Fatalf("community yayScore = %d, want 1", got)
	}
	if got := fx.user("alice").YayScore; got != 1 {
		t.Fatalf("author yayScore = %d, want 1", got)
	}

	if err := fx.cascade.DeleteForum(fx.ctx, fx.forumID, "alice"); err != nil {
		t.Fatalf("delete forum: %v", err)
	}

	if _, err := fx.store.Get(fx.ctx, postRef(p1)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("P1 still present: %v", err)
	}
	if got := fx.community().YayScore; got != 0 {
		t.Fatalf("community yayScore after delete = %d, want 0", got)
	}

	groupDoc, err := fx.store.Get(fx.ctx, groupRef(fx.groupID))
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	group, err := decodeGroup(groupDoc)
	if err != nil {
		t.Fatalf("decode group: %v", err)
	}
	if containsString(group.ForumsInGroup, fx.forumID) {
		t.Fatal("forumsInGroup still references the deleted forum")
	}
}

// A cascade that stopped halfway can be re-run and still converges: already
// deleted nodes are skipped, so aggregates are not decremented twice.
func TestCascadeRetryConverges(t *testing.T) {
	fx := newFixture(t)
	postID := fx.createPost("alice", "retry")
	if _, err := fx.votes.VotePost(fx.ctx, postID, "bob", VoteYay); err != nil {
		t.Fatalf("vote: %v", err)
	}

	if err := fx.cascade.DeleteForum(fx.ctx, fx.forumID, "alice"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	commAfter := fx.community().YayScore

	if err := fx.cascade.DeleteForum(fx.ctx, fx.forumID, "alice"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second delete: err = %v, want ErrNotFound", err)
	}
	if got := fx.community().YayScore; got != commAfter {
		t.Fatalf("retry moved community yayScore: %d -> %d", commAfter, got)
	}
}
