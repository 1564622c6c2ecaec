package services

import (
	"context"
	"fmt"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
)

// UserService manages user records keyed by the Firebase Auth UID.
type UserService struct {
	store store.Store
}

// NewUserService creates a UserService.
func NewUserService(st store.Store) *UserService {
	return &UserService{store: st}
}

// Create registers the user document after sign-up. The document ID is the
// auth UID, so re-registering an existing UID is rejected.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Get(ctx, userRef(req.UserID)); err == nil {
			return fmt.Errorf("user %s: %w", req.UserID, apperror.ErrDuplicate)
		}
		taken, err := tx.Query(ctx, models.ColUsers, store.Where("username", "==", req.Username))
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return fmt.Errorf("username %q: %w", req.Username, apperror.ErrDuplicate)
		}

		user := models.User{
			Username:      req.Username,
			Email:         req.Email,
			PhotoURL:      req.PhotoURL,
			CreatedAt:     nowMillis(),
			FriendList:    []string{},
			Notifications: []string{},
			Communities:   []string{},
		}
		data, err := store.DataFrom(&user)
		if err != nil {
			return err
		}
		return tx.Set(ctx, userRef(req.UserID), data)
	})
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	doc, err := s.store.Get(ctx, userRef(userID))
	if err != nil {
		return nil, mapStoreErr(err, "user")
	}
	return decodeUser(doc)
}
