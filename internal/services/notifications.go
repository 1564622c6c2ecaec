package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
	"github.com/circuitlink/backend/pkg/logger"
)

// NotificationService reads and mutates the notifications referenced from a
// user's notifications array.
type NotificationService struct {
	store store.Store
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(st store.Store) *NotificationService {
	return &NotificationService{store: st}
}

// createNotification writes a notification document and links it into the
// target user's notifications array within the caller's transaction.
func createNotification(ctx context.Context, tx store.Tx, userID string, n models.Notification) error {
	if n.Timestamp == 0 {
		n.Timestamp = nowMillis()
	}
	data, err := store.DataFrom(&n)
	if err != nil {
		return err
	}
	ref, err := tx.Create(ctx, models.ColNotifs, data)
	if err != nil {
		return err
	}
	return tx.Update(ctx, userRef(userID), store.ArrayUnion("notifications", ref.ID))
}

// List returns a user's notifications, newest first. Dangling refs left by a
// half-finished delete are skipped.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.FormattedNotification, error) {
	doc, err := s.store.Get(ctx, userRef(userID))
	if err != nil {
		return nil, mapStoreErr(err, "user")
	}
	user, err := decodeUser(doc)
	if err != nil {
		return nil, err
	}

	out := make([]models.FormattedNotification, 0, len(user.Notifications))
	for _, id := range user.Notifications {
		nd, err := s.store.Get(ctx, notifRef(id))
		if err != nil {
			logger.S.Debugw("skipping dangling notification ref", "user", userID, "notif", id)
			continue
		}
		n, err := decodeNotification(nd)
		if err != nil {
			continue
		}
		out = append(out, models.FormattedNotification{
			ID:         n.ID,
			Message:    n.Message,
			Timestamp:  n.Timestamp,
			Read:       n.Read,
			Type:       n.Type,
			RelatedDoc: n.RelatedDoc,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// MarkAsRead flags a notification as read. Only the owner may do so.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notifID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := s.requireOwner(ctx, tx, userID, notifID); err != nil {
			return err
		}
		return mapStoreErr(tx.Update(ctx, notifRef(notifID), store.Set("read", true)), "notification")
	})
}

// Delete removes a notification document and its ref from the owner's array.
func (s *NotificationService) Delete(ctx context.Context, userID, notifID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := s.requireOwner(ctx, tx, userID, notifID); err != nil {
			return err
		}
		if err := tx.Delete(ctx, notifRef(notifID)); err != nil {
			return mapStoreErr(err, "notification")
		}
		return tx.Update(ctx, userRef(userID), store.ArrayRemove("notifications", notifID))
	})
}

func (s *NotificationService) requireOwner(ctx context.Context, tx store.Tx, userID, notifID string) error {
	doc, err := tx.Get(ctx, userRef(userID))
	if err != nil {
		return mapStoreErr(err, "user")
	}
	user, err := decodeUser(doc)
	if err != nil {
		return err
	}
	if !containsString(user.Notifications, notifID) {
		return fmt.Errorf("notification %s does not belong to user %s: %w", notifID, userID, apperror.ErrForbidden)
	}
	return nil
}
