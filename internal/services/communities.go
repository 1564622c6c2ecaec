package services

import (
	"context"
	"fmt"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
	"github.com/circuitlink/backend/pkg/cache"
	"github.com/circuitlink/backend/pkg/logger"
)

// CommunityService manages community lifecycle and membership. Join and
// leave follow the check-then-update transaction pattern: membership is read,
// validated and written together with the numUsers counter and the user's own
// communities list, so both sides of the relationship move atomically.
type CommunityService struct {
	store store.Store
	cache *cache.Cache
}

// NewCommunityService creates a CommunityService. cache may be nil.
func NewCommunityService(st store.Store, c *cache.Cache) *CommunityService {
	return &CommunityService{store: st, cache: c}
}

// Create creates a community with a unique, immutable name. The creator
// becomes its first owner and member.
func (s *CommunityService) Create(ctx context.Context, req models.CreateCommunityRequest) (string, error) {
	var id string
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.Query(ctx, models.ColCommunities, store.Where("name", "==", req.Name))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("community %q: %w", req.Name, apperror.ErrDuplicate)
		}
		if _, err := tx.Get(ctx, userRef(req.UserID)); err != nil {
			return mapStoreErr(err, "user")
		}

		comm := models.Community{
			Name:              req.Name,
			Description:       req.Description,
			Public:            req.Public,
			UserList:          []string{req.UserID},
			OwnerList:         []string{req.UserID},
			ModList:           []string{},
			Blacklist:         []string{},
			GroupsInCommunity: []string{},
			ForumsInCommunity: []string{},
			NumUsers:          1,
		}
		data, err := store.DataFrom(&comm)
		if err != nil {
			return err
		}
		ref, err := tx.Create(ctx, models.ColCommunities, data)
		if err != nil {
			return err
		}
		id = ref.ID
		return tx.Update(ctx, userRef(req.UserID), store.ArrayUnion("communities", ref.ID))
	})
	if err != nil {
		return "", err
	}
	logger.S.Infow("community created", "name", req.Name, "id", id)
	return id, nil
}

// Join adds a user to a community unless blacklisted or already a member.
func (s *CommunityService) Join(ctx context.Context, commName, userID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		comm, err := communityByNameTx(ctx, tx, commName)
		if err != nil {
			return err
		}
		if _, err := tx.Get(ctx, userRef(userID)); err != nil {
			return mapStoreErr(err, "user")
		}
		if comm.IsBlacklisted(userID) {
			return fmt.Errorf("user %s is blacklisted from %q: %w", userID, commName, apperror.ErrForbidden)
		}
		if comm.IsMember(userID) {
			return fmt.Errorf("user %s already joined %q: %w", userID, commName, apperror.ErrDuplicate)
		}
		if err := tx.Update(ctx, communityRef(comm.ID),
			store.ArrayUnion("userList", userID),
			store.Increment("numUsers", 1),
		); err != nil {
			return err
		}
		return tx.Update(ctx, userRef(userID), store.ArrayUnion("communities", comm.ID))
	})
}

// Leave removes a user from a community. The last remaining owner cannot leave.
func (s *CommunityService) Leave(ctx context.Context, commName, userID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		comm, err := communityByNameTx(ctx, tx, commName)
		if err != nil {
			return err
		}
		if !comm.IsMember(userID) {
			return fmt.Errorf("user %s is not a member of %q: %w", userID, commName, apperror.ErrNotFound)
		}
		if containsString(comm.OwnerList, userID) && len(comm.OwnerList) == 1 {
			return fmt.Errorf("sole owner cannot leave %q: %w", commName, apperror.ErrConflict)
		}
		userOK, err := refExists(ctx, tx, userRef(userID))
		if err != nil {
			return err
		}
		if err := tx.Update(ctx, communityRef(comm.ID),
			store.ArrayRemove("userList", userID),
			store.ArrayRemove("modList", userID),
			store.ArrayRemove("ownerList", userID),
			store.Increment("numUsers", -1),
		); err != nil {
			return err
		}
		if !userOK {
			return nil
		}
		return tx.Update(ctx, userRef(userID), store.ArrayRemove("communities", comm.ID))
	})
}

// CreateGroup creates a group under a community, gated to owners and mods.
func (s *CommunityService) CreateGroup(ctx context.Context, req models.CreateGroupRequest) (string, error) {
	var id string
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		comm, err := communityByNameTx(ctx, tx, req.CommName)
		if err != nil {
			return err
		}
		if !comm.IsOwnerOrMod(req.UserID) {
			return fmt.Errorf("user %s may not create groups in %q: %w", req.UserID, req.CommName, apperror.ErrForbidden)
		}
		existing, err := tx.Query(ctx, models.ColGroups,
			store.Where("parentCommunity", "==", comm.ID),
			store.Where("name", "==", req.Name))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("group %q in %q: %w", req.Name, req.CommName, apperror.ErrDuplicate)
		}

		group := models.Group{
			Name:            req.Name,
			ParentCommunity: comm.ID,
			ForumsInGroup:   []string{},
		}
		data, err := store.DataFrom(&group)
		if err != nil {
			return err
		}
		ref, err := tx.Create(ctx, models.ColGroups, data)
		if err != nil {
			return err
		}
		id = ref.ID
		return tx.Update(ctx, communityRef(comm.ID), store.ArrayUnion("groupsInCommunity", ref.ID))
	})
	if err != nil {
		return "", err
	}
	s.cache.Invalidate(ctx, "structure:"+req.CommName)
	return id, nil
}

// BlacklistUser bans a user from a community, gated to owners. Role lists
// are mutually exclusive with the blacklist: the banned user is stripped from
// userList and modList in the same transaction, and owners cannot be banned.
func (s *CommunityService) BlacklistUser(ctx context.Context, commName, targetID, userID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		comm, err := communityByNameTx(ctx, tx, commName)
		if err != nil {
			return err
		}
		if !containsString(comm.OwnerList, userID) {
			return fmt.Errorf("user %s may not blacklist in %q: %w", userID, commName, apperror.ErrForbidden)
		}
		if containsString(comm.OwnerList, targetID) {
			return fmt.Errorf("owner %s cannot be blacklisted: %w", targetID, apperror.ErrConflict)
		}
		targetOK, err := refExists(ctx, tx, userRef(targetID))
		if err != nil {
			return err
		}
		ops := []store.FieldOp{
			store.ArrayUnion("blacklist", targetID),
			store.ArrayRemove("userList", targetID),
			store.ArrayRemove("modList", targetID),
		}
		if comm.IsMember(targetID) {
			ops = append(ops, store.Increment("numUsers", -1))
		}
		if err := tx.Update(ctx, communityRef(comm.ID), ops...); err != nil {
			return err
		}
		if !targetOK {
			return nil
		}
		return tx.Update(ctx, userRef(targetID), store.ArrayRemove("communities", comm.ID))
	})
}

func communityByNameTx(ctx context.Context, tx store.Tx, name string) (*models.Community, error) {
	docs, err := tx.Query(ctx, models.ColCommunities, store.Where("name", "==", name))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("community %q: %w", name, apperror.ErrNotFound)
	}
	return decodeCommunity(docs[0])
}
