package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/pkg/apperror"
)

func TestCreatePostSanitizesAndExtractsKeywords(t *testing.T) {
	fx := newFixture(t)

	id, err := fx.posts.Create(fx.ctx, models.CreatePostRequest{
		UserID:   "bob",
		ForumID:  fx.forumID,
		Title:    "Weekly Patch Notes Discussion",
		Contents: `hello <script>alert("x")</script> world`,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p := fx.post(id)
	if strings.Contains(p.Contents, "<script>") {
		t.Fatalf("script tag survived sanitization: %q", p.Contents)
	}
	if !strings.Contains(p.Contents, "hello") || !strings.Contains(p.Contents, "world") {
		t.Fatalf("sanitization ate the text: %q", p.Contents)
	}
	for _, kw := range []string{"weekly", "patch", "notes", "discussion"} {
		if !containsString(p.Keywords, kw) {
			t.Fatalf("keywords = %v, missing %q", p.Keywords, kw)
		}
	}
	if p.ParentForum != fx.forumID || p.ParentGroup != fx.groupID || p.ParentCommunity != fx.commID {
		t.Fatalf("parent chain not inherited: %+v", p)
	}
	if p.TimePosted == 0 {
		t.Fatal("timePosted not set")
	}
}

func TestExtractKeywords(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"The Big Announcement", []string{"the", "big", "announcement"}},
		{"go go GO", []string{}},
		{"a b c", []string{}},
		{"Dup dup DUP words words", []string{"dup", "words"}},
	}
	for _, c := range cases {
		got := extractKeywords(c.in)
		if len(got) != len(c.want) {
			t.Errorf("extractKeywords(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("extractKeywords(%q) = %v, want %v", c.in, got, c.want)
				break
			}
		}
	}
}

func TestUpdatePostAuthorGate(t *testing.T) {
	fx := newFixture(t)
	id := fx.createPost("alice", "Original Title")

	err := fx.posts.Update(fx.ctx, id, models.UpdatePostRequest{UserID: "bob", Title: "Hijacked"})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("non-author edit: err = %v, want ErrForbidden", err)
	}

	if err := fx.posts.Update(fx.ctx, id, models.UpdatePostRequest{
		UserID: "alice", Title: "Renamed Thread",
	}); err != nil {
		t.Fatalf("author edit: %v", err)
	}
	p := fx.post(id)
	if p.Title != "Renamed Thread" || !p.Edited || p.TimeUpdated == 0 {
		t.Fatalf("edit not applied: %+v", p)
	}
	if !containsString(p.Keywords, "renamed") {
		t.Fatalf("keywords not refreshed: %v", p.Keywords)
	}
}

func TestCreateReplyValidation(t *testing.T) {
	fx := newFixture(t)
	post1 := fx.createPost("alice", "one")
	post2 := fx.createPost("alice", "two")
	top := fx.createReply("bob", post1, "")

	if _, err := fx.replies.Create(fx.ctx, models.CreateReplyRequest{
		UserID: "carol", PostID: post2, ParentReply: top, Contents: "cross-post",
	}); !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("parent reply from another post: err = %v, want ErrBadRequest", err)
	}
	if _, err := fx.replies.Create(fx.ctx, models.CreateReplyRequest{
		UserID: "carol", PostID: "missing", Contents: "orphan",
	}); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing post: err = %v, want ErrNotFound", err)
	}

	if got := fx.post(post1).ReplyCount; got != 1 {
		t.Fatalf("replyCount = %d, want 1", got)
	}
}
