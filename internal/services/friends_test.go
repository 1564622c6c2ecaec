package services

import (
	"errors"
	"testing"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
)

func sendRequest(t *testing.T, fx *fixture, from, to string) string {
	t.Helper()
	id, err := fx.friends.SendRequest(fx.ctx, models.SendFriendRequestRequest{
		SenderID: from, RecipientID: to,
	})
	if err != nil {
		t.Fatalf("send friend request %s -> %s: %v", from, to, err)
	}
	return id
}

func respond(t *testing.T, fx *fixture, requestID, recipient string, accept bool) error {
	t.Helper()
	return fx.friends.Respond(fx.ctx, models.RespondFriendRequestRequest{
		RequestID: requestID, Accept: &accept, RecID: recipient,
	})
}

func TestFriendRequestSingleFlight(t *testing.T) {
	fx := newFixture(t)
	sendRequest(t, fx, "alice", "bob")

	if _, err := fx.friends.SendRequest(fx.ctx, models.SendFriendRequestRequest{
		SenderID: "alice", RecipientID: "bob",
	}); !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("second request: err = %v, want ErrDuplicate", err)
	}

	// The reverse direction is also blocked while one is pending.
	if _, err := fx.friends.SendRequest(fx.ctx, models.SendFriendRequestRequest{
		SenderID: "bob", RecipientID: "alice",
	}); !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("reverse request: err = %v, want ErrDuplicate", err)
	}

	pending := fx.countDocs(models.ColFriendRequests,
		store.Where("senderId", "==", "alice"),
		store.Where("recipientId", "==", "bob"),
		store.Where("status", "==", models.FriendRequestPending))
	if pending != 1 {
		t.Fatalf("pending requests = %d, want 1", pending)
	}
}

func TestAcceptUpdatesBothFriendLists(t *testing.T) {
	fx := newFixture(t)
	reqID := sendRequest(t, fx, "alice", "bob")

	if err := respond(t, fx, reqID, "bob", true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !containsString(fx.user("alice").FriendList, "bob") {
		t.Fatal("bob missing from alice's friendList")
	}
	if !containsString(fx.user("bob").FriendList, "alice") {
		t.Fatal("alice missing from bob's friendList")
	}

	// Sender is notified of the acceptance.
	notifs, err := fx.notifs.List(fx.ctx, "alice")
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	found := false
	for _, n := range notifs {
		if n.Type == models.NotifFriendRequestAccepted {
			found = true
		}
	}
	if !found {
		t.Fatal("no friend_request_accepted notification for the sender")
	}

	// Once friends, new requests are duplicates.
	if _, err := fx.friends.SendRequest(fx.ctx, models.SendFriendRequestRequest{
		SenderID: "bob", RecipientID: "alice",
	}); !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("request between friends: err = %v, want ErrDuplicate", err)
	}
}

func TestRejectLeavesFriendListsUntouched(t *testing.T) {
	fx := newFixture(t)
	reqID := sendRequest(t, fx, "alice", "bob")

	if err := respond(t, fx, reqID, "bob", false); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if len(fx.user("alice").FriendList) != 0 || len(fx.user("bob").FriendList) != 0 {
		t.Fatal("reject modified a friendList")
	}

	// A rejected request no longer blocks a new one.
	sendRequest(t, fx, "alice", "bob")
}

func TestRespondGuards(t *testing.T) {
	fx := newFixture(t)
	reqID := sendRequest(t, fx, "alice", "bob")

	if err := respond(t, fx, reqID, "carol", true); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("non-recipient responding: err = %v, want ErrForbidden", err)
	}
	if err := respond(t, fx, reqID, "bob", true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := respond(t, fx, reqID, "bob", true); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("responding twice: err = %v, want ErrConflict", err)
	}
}

func TestSendRequestValidation(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.friends.SendRequest(fx.ctx, models.SendFriendRequestRequest{
		SenderID: "alice", RecipientID: "alice",
	}); !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("self request: err = %v, want ErrBadRequest", err)
	}
	if _, err := fx.friends.SendRequest(fx.ctx, models.SendFriendRequestRequest{
		SenderID: "alice", RecipientID: "nobody",
	}); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing recipient: err = %v, want ErrNotFound", err)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	fx := newFixture(t)
	reqID := sendRequest(t, fx, "alice", "bob")

	notifs, err := fx.notifs.List(fx.ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifs))
	}
	n := notifs[0]
	if n.Type != models.NotifFriendRequest || n.RelatedDoc != reqID || n.Read {
		t.Fatalf("unexpected notification: %+v", n)
	}

	if err := fx.notifs.MarkAsRead(fx.ctx, "bob", n.ID); err != nil {
		t.Fatalf("mark as read: %v", err)
	}
	notifs, _ = fx.notifs.List(fx.ctx, "bob")
	if !notifs[0].Read {
		t.Fatal("notification still unread")
	}

	// Only the owner can touch it.
	if err := fx.notifs.Delete(fx.ctx, "carol", n.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign delete: err = %v, want ErrForbidden", err)
	}
	if err := fx.notifs.Delete(fx.ctx, "bob", n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fx.user("bob").Notifications) != 0 {
		t.Fatal("notification ref survived deletion")
	}
}
