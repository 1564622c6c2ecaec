package services

import (
	"errors"
	"testing"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/pkg/apperror"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"General", "general"},
		{"Tech Talk", "tech-talk"},
		{"  spaced  out  ", "spaced-out"},
		{"C++ & Go!", "c-go"},
		{"already-a-slug", "already-a-slug"},
		{"UPPER_case_123", "upper-case-123"},
		{"!!!", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestForumSlugUniquenessWithinCommunity(t *testing.T) {
	fx := newFixture(t)

	// Same name collides.
	_, err := fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name: "general", UserID: "alice", GroupID: fx.groupID, CommName: "test",
	})
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("duplicate name: err = %v, want ErrDuplicate", err)
	}

	// Different name, same normalized slug collides too.
	_, err = fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name: "GENERAL!", UserID: "alice", GroupID: fx.groupID, CommName: "test",
	})
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("colliding slug: err = %v, want ErrDuplicate", err)
	}
}

func TestForumSameSlugInDifferentCommunities(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.communities.Create(fx.ctx, models.CreateCommunityRequest{
		Name: "other", Public: true, UserID: "carol",
	}); err != nil {
		t.Fatalf("create second community: %v", err)
	}
	groupID, err := fx.communities.CreateGroup(fx.ctx, models.CreateGroupRequest{
		CommName: "other", Name: "G1", UserID: "carol",
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if _, err := fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name: "general", UserID: "carol", GroupID: groupID, CommName: "other",
	}); err != nil {
		t.Fatalf("same slug in another community should succeed: %v", err)
	}
}

func TestCreateForumValidation(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name: "new forum", UserID: "bob", GroupID: fx.groupID, CommName: "test",
	}); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("plain member creating forum: err = %v, want ErrForbidden", err)
	}
	if _, err := fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name: "???", UserID: "alice", GroupID: fx.groupID, CommName: "test",
	}); !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("empty slug: err = %v, want ErrBadRequest", err)
	}
	if _, err := fx.forums.CreateForum(fx.ctx, models.CreateForumRequest{
		Name: "orphan", UserID: "alice", GroupID: "missing", CommName: "test",
	}); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing group: err = %v, want ErrNotFound", err)
	}
}
