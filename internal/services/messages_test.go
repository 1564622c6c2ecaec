package services

import (
	"errors"
	"testing"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/pkg/apperror"
)

func boolPtr(b bool) *bool { return &b }

func TestSendDirectMessage(t *testing.T) {
	fx := newFixture(t)
	msgSvc := NewMessageService(fx.store, nil)
	if _, err := msgSvc.Send(fx.ctx, models.SendMessageRequest{
		AuthorID: "alice", Contents: "hey bob", ReceiverID: "bob", IsDirect: boolPtr(true),
	}); err != nil {
		t.Fatalf("send direct: %v", err)
	}
	if _, err := msgSvc.Send(fx.ctx, models.SendMessageRequest{
		AuthorID: "alice", Contents: "hi again", ReceiverID: "bob", IsDirect: boolPtr(true),
	}); err != nil {
		t.Fatalf("send direct: %v", err)
	}

	history, err := msgSvc.History(fx.ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d messages, want 2", len(history))
	}
	if history[0].Timestamp > history[1].Timestamp {
		t.Fatal("history not oldest-first")
	}

	if _, err := msgSvc.Send(fx.ctx, models.SendMessageRequest{
		AuthorID: "alice", Contents: "void", ReceiverID: "nobody", IsDirect: boolPtr(true),
	}); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing receiver: err = %v, want ErrNotFound", err)
	}
}

func TestDirectHistoryMergesBothDirections(t *testing.T) {
	fx := newFixture(t)
	msgSvc := NewMessageService(fx.store, nil)

	ts := int64(1000)
	origNow := nowMillis
	nowMillis = func() int64 { ts += 1000; return ts }
	defer func() { nowMillis = origNow }()

	send := func(author, receiver, contents string) {
		t.Helper()
		if _, err := msgSvc.Send(fx.ctx, models.SendMessageRequest{
			AuthorID: author, Contents: contents, ReceiverID: receiver, IsDirect: boolPtr(true),
		}); err != nil {
			t.Fatalf("send %s -> %s: %v", author, receiver, err)
		}
	}
	send("alice", "bob", "you around?")
	send("bob", "alice", "yep")
	send("alice", "bob", "good")
	send("carol", "bob", "unrelated")

	history, err := msgSvc.History(fx.ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []struct{ author, contents string }{
		{"alice", "you around?"},
		{"bob", "yep"},
		{"alice", "good"},
	}
	if len(history) != len(want) {
		t.Fatalf("history = %d messages, want %d", len(history), len(want))
	}
	for i, w := range want {
		if history[i].Author != w.author || history[i].Contents != w.contents {
			t.Fatalf("history[%d] = %s %q, want %s %q",
				i, history[i].Author, history[i].Contents, w.author, w.contents)
		}
	}
}

func TestSendCommunityMessageRequiresMembership(t *testing.T) {
	fx := newFixture(t)
	msgSvc := NewMessageService(fx.store, nil)

	if _, err := msgSvc.Send(fx.ctx, models.SendMessageRequest{
		AuthorID: "bob", Contents: "hello channel", ReceiverID: fx.commID, IsDirect: boolPtr(false),
	}); err != nil {
		t.Fatalf("member channel message: %v", err)
	}
	if _, err := msgSvc.Send(fx.ctx, models.SendMessageRequest{
		AuthorID: "carol", Contents: "let me in", ReceiverID: fx.commID, IsDirect: boolPtr(false),
	}); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("non-member channel message: err = %v, want ErrForbidden", err)
	}

	// Channel history keeps every member's messages regardless of who asks.
	history, err := msgSvc.History(fx.ctx, fx.commID, "alice")
	if err != nil {
		t.Fatalf("channel history: %v", err)
	}
	if len(history) != 1 || history[0].Author != "bob" {
		t.Fatalf("channel history = %+v, want bob's single message", history)
	}
}

func TestUserCreateDuplicates(t *testing.T) {
	fx := newFixture(t)

	if err := fx.users.Create(fx.ctx, models.CreateUserRequest{
		UserID: "alice", Username: "someone-else", Email: "x@example.com",
	}); !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("duplicate uid: err = %v, want ErrDuplicate", err)
	}
	if err := fx.users.Create(fx.ctx, models.CreateUserRequest{
		UserID: "dave", Username: "alice", Email: "dave@example.com",
	}); !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("duplicate username: err = %v, want ErrDuplicate", err)
	}
}
