package services

import (
	"context"
	"fmt"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
	"github.com/circuitlink/backend/pkg/logger"
)

// FriendService runs the friend-request state machine. A request transitions
// pending -> accepted or pending -> rejected exactly once; the duplicate
// checks, the status flip and both friendList unions all happen inside one
// transaction so racing requests and racing responses collapse to a single
// winner.
type FriendService struct {
	store store.Store
}

// NewFriendService creates a FriendService.
func NewFriendService(st store.Store) *FriendService {
	return &FriendService{store: st}
}

// SendRequest creates a pending friend request and notifies the recipient.
// Sending to yourself, to an existing friend, or while a pending request
// already exists in either direction is rejected.
func (s *FriendService) SendRequest(ctx context.Context, req models.SendFriendRequestRequest) (string, error) {
	if req.SenderID == req.RecipientID {
		return "", fmt.Errorf("cannot befriend yourself: %w", apperror.ErrBadRequest)
	}

	var id string
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		senderDoc, err := tx.Get(ctx, userRef(req.SenderID))
		if err != nil {
			return mapStoreErr(err, "sender")
		}
		sender, err := decodeUser(senderDoc)
		if err != nil {
			return err
		}
		if _, err := tx.Get(ctx, userRef(req.RecipientID)); err != nil {
			return mapStoreErr(err, "recipient")
		}
		if containsString(sender.FriendList, req.RecipientID) {
			return fmt.Errorf("users are already friends: %w", apperror.ErrDuplicate)
		}

		for _, pair := range [][2]string{
			{req.SenderID, req.RecipientID},
			{req.RecipientID, req.SenderID},
		} {
			pending, err := tx.Query(ctx, models.ColFriendRequests,
				store.Where("senderId", "==", pair[0]),
				store.Where("recipientId", "==", pair[1]),
				store.Where("status", "==", models.FriendRequestPending))
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				return fmt.Errorf("friend request between %s and %s already pending: %w",
					req.SenderID, req.RecipientID, apperror.ErrDuplicate)
			}
		}

		fr := models.FriendRequest{
			SenderID:    req.SenderID,
			RecipientID: req.RecipientID,
			Status:      models.FriendRequestPending,
			Timestamp:   nowMillis(),
		}
		data, err := store.DataFrom(&fr)
		if err != nil {
			return err
		}
		ref, err := tx.Create(ctx, models.ColFriendRequests, data)
		if err != nil {
			return err
		}
		id = ref.ID

		return createNotification(ctx, tx, req.RecipientID, models.Notification{
			Message:    fmt.Sprintf("%s sent you a friend request", sender.Username),
			Type:       models.NotifFriendRequest,
			RelatedDoc: ref.ID,
		})
	})
	if err != nil {
		return "", err
	}
	logger.S.Infow("friend request sent", "from", req.SenderID, "to", req.RecipientID, "id", id)
	return id, nil
}

// Respond accepts or rejects a pending friend request. Only the recipient may
// respond, and only while the request is still pending. Accepting adds each
// user to the other's friendList and notifies the original sender.
func (s *FriendService) Respond(ctx context.Context, req models.RespondFriendRequestRequest) error {
	accept := req.Accept != nil && *req.Accept
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, friendRequestRef(req.RequestID))
		if err != nil {
			return mapStoreErr(err, "friend request")
		}
		fr, err := decodeFriendRequest(doc)
		if err != nil {
			return err
		}
		if fr.RecipientID != req.RecID {
			return fmt.Errorf("user %s is not the recipient of request %s: %w", req.RecID, req.RequestID, apperror.ErrForbidden)
		}
		if fr.Status != models.FriendRequestPending {
			return fmt.Errorf("friend request %s already %s: %w", req.RequestID, fr.Status, apperror.ErrConflict)
		}

		// All reads happen before the status flip: backends with buffered
		// transaction writes reject a read after the first write.
		var recipientName string
		if accept {
			recipientDoc, err := tx.Get(ctx, userRef(fr.RecipientID))
			if err != nil {
				return mapStoreErr(err, "recipient")
			}
			recipient, err := decodeUser(recipientDoc)
			if err != nil {
				return err
			}
			recipientName = recipient.Username
		}

		status := models.FriendRequestRejected
		if accept {
			status = models.FriendRequestAccepted
		}
		if err := tx.Update(ctx, friendRequestRef(req.RequestID),
			store.Set("status", status),
			store.Set("respondedAt", nowMillis()),
		); err != nil {
			return err
		}
		if !accept {
			return nil
		}

		if err := tx.Update(ctx, userRef(fr.SenderID), store.ArrayUnion("friendList", fr.RecipientID)); err != nil {
			return mapStoreErr(err, "sender")
		}
		if err := tx.Update(ctx, userRef(fr.RecipientID), store.ArrayUnion("friendList", fr.SenderID)); err != nil {
			return err
		}
		return createNotification(ctx, tx, fr.SenderID, models.Notification{
			Message:    fmt.Sprintf("%s accepted your friend request", recipientName),
			Type:       models.NotifFriendRequestAccepted,
			RelatedDoc: req.RequestID,
		})
	})
}
