package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/search"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
	"github.com/circuitlink/backend/pkg/cache"
	"github.com/circuitlink/backend/pkg/logger"
)

// CascadeService deletes subtrees of the Community→Group→Forum→Post→Reply
// hierarchy. The store has no native cascading delete, so the cascade is an
// explicit post-order walk: children first, then the node's own
// (delete + aggregate decrement + parent dereference) triple inside a single
// transaction. Children are found by parent-pointer queries, never through a
// denormalized array on the parent, so a retry after partial failure revisits
// only documents that still exist and converges without double-decrementing.
type CascadeService struct {
	store  store.Store
	search *search.Index
	cache  *cache.Cache
}

// NewCascadeService creates a CascadeService. search and cache may be nil.
func NewCascadeService(st store.Store, idx *search.Index, c *cache.Cache) *CascadeService {
	return &CascadeService{store: st, search: idx, cache: c}
}

// DeleteGroup removes a group and every forum, post and reply beneath it.
// Gated to community owners and mods.
func (s *CascadeService) DeleteGroup(ctx context.Context, groupID, userID string) error {
	doc, err := s.store.Get(ctx, groupRef(groupID))
	if err != nil {
		return mapStoreErr(err, "group")
	}
	group, err := decodeGroup(doc)
	if err != nil {
		return err
	}
	comm, err := s.requireManager(ctx, group.ParentCommunity, userID)
	if err != nil {
		return err
	}

	if err := s.markDeleting(ctx, groupRef(groupID)); err != nil {
		return err
	}

	forums, err := s.store.Query(ctx, models.ColForums, store.Where("parentGroup", "==", groupID))
	if err != nil {
		return err
	}
	for _, f := range forums {
		if err := s.deleteForumTree(ctx, f.Ref.ID); err != nil {
			return fmt.Errorf("cascade into forum %s: %w", f.Ref.ID, err)
		}
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Get(ctx, groupRef(groupID)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil // already gone, a previous attempt finished
			}
			return err
		}
		commOK, err := refExists(ctx, tx, communityRef(group.ParentCommunity))
		if err != nil {
			return err
		}
		if commOK {
			if err := tx.Update(ctx, communityRef(group.ParentCommunity),
				store.ArrayRemove("groupsInCommunity", groupID)); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, groupRef(groupID))
	})
	if err != nil {
		return err
	}

	s.invalidateStructure(ctx, comm.Name)
	logger.S.Infow("group deleted", "group", groupID, "community", comm.Name, "forums", len(forums))
	return nil
}

// DeleteForum removes a forum and its posts and reply trees. Gated to
// community owners/mods and the forum's own owners.
func (s *CascadeService) DeleteForum(ctx context.Context, forumID, userID string) error {
	doc, err := s.store.Get(ctx, forumRef(forumID))
	if err != nil {
		return mapStoreErr(err, "forum")
	}
	forum, err := decodeForum(doc)
	if err != nil {
		return err
	}

	comm, err := s.community(ctx, forum.ParentCommunity)
	if err != nil {
		return err
	}
	if userID != "" && !comm.IsOwnerOrMod(userID) && !containsString(forum.OwnerList, userID) {
		return fmt.Errorf("user %s may not delete forum %s: %w", userID, forumID, apperror.ErrForbidden)
	}

	if err := s.deleteForumTree(ctx, forumID); err != nil {
		return err
	}
	s.invalidateStructure(ctx, comm.Name)
	return nil
}

// DeletePost removes a post and its reply tree. Gated to the author and
// community owners/mods.
func (s *CascadeService) DeletePost(ctx context.Context, postID, userID string) error {
	doc, err := s.store.Get(ctx, postRef(postID))
	if err != nil {
		return mapStoreErr(err, "post")
	}
	post, err := decodePost(doc)
	if err != nil {
		return err
	}
	if err := s.requireAuthorOrManager(ctx, post.ParentCommunity, post.Author, userID); err != nil {
		return err
	}
	return s.deletePostTree(ctx, postID)
}

// DeleteReply removes a reply and its nested replies, keeping the surviving
// post's replyCount in step. Gated to the author and community owners/mods.
func (s *CascadeService) DeleteReply(ctx context.Context, replyID, userID string) error {
	doc, err := s.store.Get(ctx, replyRef(replyID))
	if err != nil {
		return mapStoreErr(err, "reply")
	}
	reply, err := decodeReply(doc)
	if err != nil {
		return err
	}
	if err := s.requireAuthorOrManager(ctx, reply.ParentCommunity, reply.Author, userID); err != nil {
		return err
	}
	if err := s.markDeleting(ctx, replyRef(replyID)); err != nil {
		return err
	}
	// The post survives this deletion, so every removed node also decrements
	// the post's replyCount. The post-deletion path passes false instead;
	// that is the one unified semantic replacing the two overlapping
	// traversals this design descends from.
	return s.deleteReplyTree(ctx, replyID, true)
}

// deleteForumTree deletes all posts under the forum, then atomically
// dereferences the forum from its group and community and deletes it.
func (s *CascadeService) deleteForumTree(ctx context.Context, forumID string) error {
	doc, err := s.store.Get(ctx, forumRef(forumID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	forum, err := decodeForum(doc)
	if err != nil {
		return err
	}

	if err := s.markDeleting(ctx, forumRef(forumID)); err != nil {
		return err
	}

	posts, err := s.store.Query(ctx, models.ColPosts, store.Where("parentForum", "==", forumID))
	if err != nil {
		return err
	}
	for _, p := range posts {
		if err := s.deletePostTree(ctx, p.Ref.ID); err != nil {
			return fmt.Errorf("cascade into post %s: %w", p.Ref.ID, err)
		}
	}

	// Dereference only after the children are gone: the children were found
	// by parent-pointer query, so removing the forum from its parents first
	// would not orphan them, but deleting the forum before its posts would
	// strand the posts' aggregate contributions.
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Get(ctx, forumRef(forumID)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		groupOK, err := refExists(ctx, tx, groupRef(forum.ParentGroup))
		if err != nil {
			return err
		}
		commOK, err := refExists(ctx, tx, communityRef(forum.ParentCommunity))
		if err != nil {
			return err
		}
		if groupOK {
			if err := tx.Update(ctx, groupRef(forum.ParentGroup),
				store.ArrayRemove("forumsInGroup", forumID)); err != nil {
				return err
			}
		}
		if commOK {
			if err := tx.Update(ctx, communityRef(forum.ParentCommunity),
				store.ArrayRemove("forumsInCommunity", forumID)); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, forumRef(forumID))
	})
}

// deletePostTree deletes the post's reply tree, then the post itself together
// with its aggregate decrements. Replies are removed without touching the
// post's replyCount since the post is going away with them.
func (s *CascadeService) deletePostTree(ctx context.Context, postID string) error {
	if err := s.markDeleting(ctx, postRef(postID)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	topReplies, err := s.store.Query(ctx, models.ColReplies,
		store.Where("parentPost", "==", postID),
		store.Where("parentReply", "==", ""))
	if err != nil {
		return err
	}
	for _, r := range topReplies {
		if err := s.deleteReplyTree(ctx, r.Ref.ID, false); err != nil {
			return fmt.Errorf("cascade into reply %s: %w", r.Ref.ID, err)
		}
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, postRef(postID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		score := intField(doc.Data, "yayScore")
		author, _ := doc.Data["author"].(string)
		community, _ := doc.Data["parentCommunity"].(string)
		if score != 0 {
			commOK, err := refExists(ctx, tx, communityRef(community))
			if err != nil {
				return err
			}
			userOK, err := refExists(ctx, tx, userRef(author))
			if err != nil {
				return err
			}
			if commOK {
				if err := tx.Update(ctx, communityRef(community),
					store.Increment("yayScore", -score)); err != nil {
					return err
				}
			}
			if userOK {
				if err := tx.Update(ctx, userRef(author),
					store.Increment("yayScore", -score)); err != nil {
					return err
				}
			}
		}
		return tx.Delete(ctx, postRef(postID))
	})
	if err != nil {
		return err
	}

	s.search.DeletePost(postID)
	return nil
}

// deleteReplyTree removes a reply subtree depth-first. Each node's
// (delete + community decrement + author decrement [+ replyCount decrement])
// happens in its own transaction; a node that a previous attempt already
// removed reads as NotFound and is skipped, so retries converge.
func (s *CascadeService) deleteReplyTree(ctx context.Context, replyID string, decrementReplyCountOnParent bool) error {
	children, err := s.store.Query(ctx, models.ColReplies, store.Where("parentReply", "==", replyID))
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := s.deleteReplyTree(ctx, c.Ref.ID, decrementReplyCountOnParent); err != nil {
			return err
		}
	}

	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, replyRef(replyID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		score := intField(doc.Data, "yayScore")
		author, _ := doc.Data["author"].(string)
		community, _ := doc.Data["parentCommunity"].(string)
		parentPost, _ := doc.Data["parentPost"].(string)

		var commOK, userOK, postOK bool
		if score != 0 {
			if commOK, err = refExists(ctx, tx, communityRef(community)); err != nil {
				return err
			}
			if userOK, err = refExists(ctx, tx, userRef(author)); err != nil {
				return err
			}
		}
		if decrementReplyCountOnParent {
			if postOK, err = refExists(ctx, tx, postRef(parentPost)); err != nil {
				return err
			}
		}
		if commOK {
			if err := tx.Update(ctx, communityRef(community),
				store.Increment("yayScore", -score)); err != nil {
				return err
			}
		}
		if userOK {
			if err := tx.Update(ctx, userRef(author),
				store.Increment("yayScore", -score)); err != nil {
				return err
			}
		}
		if postOK {
			if err := tx.Update(ctx, postRef(parentPost),
				store.Increment("replyCount", -1)); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, replyRef(replyID))
	})
}

// markDeleting flags the subtree root so concurrent votes are rejected and a
// retried cascade recognizes work in progress.
func (s *CascadeService) markDeleting(ctx context.Context, ref store.Ref) error {
	return s.store.Update(ctx, ref, store.Set("deleting", true))
}

func (s *CascadeService) community(ctx context.Context, communityID string) (*models.Community, error) {
	doc, err := s.store.Get(ctx, communityRef(communityID))
	if err != nil {
		return nil, mapStoreErr(err, "community")
	}
	return decodeCommunity(doc)
}

func (s *CascadeService) requireManager(ctx context.Context, communityID, userID string) (*models.Community, error) {
	comm, err := s.community(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if userID != "" && !comm.IsOwnerOrMod(userID) {
		return nil, fmt.Errorf("user %s is not an owner or mod: %w", userID, apperror.ErrForbidden)
	}
	return comm, nil
}

func (s *CascadeService) requireAuthorOrManager(ctx context.Context, communityID, author, userID string) error {
	if userID == "" || userID == author {
		return nil
	}
	comm, err := s.community(ctx, communityID)
	if err != nil {
		return err
	}
	if !comm.IsOwnerOrMod(userID) {
		return fmt.Errorf("user %s may not delete content by %s: %w", userID, author, apperror.ErrForbidden)
	}
	return nil
}

func (s *CascadeService) invalidateStructure(ctx context.Context, communityName string) {
	s.cache.Invalidate(ctx, "structure:"+communityName)
}

func intField(data map[string]any, field string) int64 {
	switch v := data[field].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}
