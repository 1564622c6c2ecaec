package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
	"github.com/circuitlink/backend/pkg/cache"
)

// ForumService creates forums inside community groups.
type ForumService struct {
	store store.Store
	cache *cache.Cache
}

// NewForumService creates a ForumService. cache may be nil.
func NewForumService(st store.Store, c *cache.Cache) *ForumService {
	return &ForumService{store: st, cache: c}
}

// Slugify derives a URL slug from a forum name: lowercase, runs of
// non-alphanumeric characters collapsed into single hyphens, no leading or
// trailing hyphen.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// CreateForum creates a forum under a group. Both the display name and the
// derived slug must be unique within the whole community, since forums are
// addressed by community name plus slug.
func (s *ForumService) CreateForum(ctx context.Context, req models.CreateForumRequest) (string, error) {
	slug := Slugify(req.Name)
	if slug == "" {
		return "", fmt.Errorf("forum name %q yields an empty slug: %w", req.Name, apperror.ErrBadRequest)
	}

	var id string
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		comm, err := communityByNameTx(ctx, tx, req.CommName)
		if err != nil {
			return err
		}
		if !comm.IsOwnerOrMod(req.UserID) {
			return fmt.Errorf("user %s may not create forums in %q: %w", req.UserID, req.CommName, apperror.ErrForbidden)
		}

		groupDoc, err := tx.Get(ctx, groupRef(req.GroupID))
		if err != nil {
			return mapStoreErr(err, "group")
		}
		group, err := decodeGroup(groupDoc)
		if err != nil {
			return err
		}
		if group.ParentCommunity != comm.ID {
			return fmt.Errorf("group %s does not belong to %q: %w", req.GroupID, req.CommName, apperror.ErrBadRequest)
		}

		byName, err := tx.Query(ctx, models.ColForums,
			store.Where("parentCommunity", "==", comm.ID),
			store.Where("name", "==", req.Name))
		if err != nil {
			return err
		}
		bySlug, err := tx.Query(ctx, models.ColForums,
			store.Where("parentCommunity", "==", comm.ID),
			store.Where("slug", "==", slug))
		if err != nil {
			return err
		}
		if len(byName) > 0 || len(bySlug) > 0 {
			return fmt.Errorf("forum %q in %q: %w", req.Name, req.CommName, apperror.ErrDuplicate)
		}

		forum := models.Forum{
			Name:            req.Name,
			Slug:            slug,
			Description:     req.Description,
			ParentGroup:     req.GroupID,
			ParentCommunity: comm.ID,
			OwnerList:       []string{req.UserID},
			DateCreated:     nowMillis(),
		}
		data, err := store.DataFrom(&forum)
		if err != nil {
			return err
		}
		ref, err := tx.Create(ctx, models.ColForums, data)
		if err != nil {
			return err
		}
		id = ref.ID
		if err := tx.Update(ctx, groupRef(req.GroupID), store.ArrayUnion("forumsInGroup", ref.ID)); err != nil {
			return err
		}
		return tx.Update(ctx, communityRef(comm.ID), store.ArrayUnion("forumsInCommunity", ref.ID))
	})
	if err != nil {
		return "", err
	}
	s.cache.Invalidate(ctx, "structure:"+req.CommName)
	return id, nil
}
