package services

import (
	"context"
	"fmt"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
)

// ReplyService creates replies on posts and on other replies. Creation and
// the parent post's replyCount increment commit in one transaction, so the
// counter never drifts from the actual subtree size.
type ReplyService struct {
	store store.Store
}

// NewReplyService creates a ReplyService.
func NewReplyService(st store.Store) *ReplyService {
	return &ReplyService{store: st}
}

// Create creates a reply under a post, or under another reply when
// req.ParentReply is set. The reply inherits the post's parent chain.
func (s *ReplyService) Create(ctx context.Context, req models.CreateReplyRequest) (string, error) {
	var id string
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		postDoc, err := tx.Get(ctx, postRef(req.PostID))
		if err != nil {
			return mapStoreErr(err, "post")
		}
		post, err := decodePost(postDoc)
		if err != nil {
			return err
		}
		if post.Deleting {
			return fmt.Errorf("post %s is being deleted: %w", req.PostID, apperror.ErrConflict)
		}
		if _, err := tx.Get(ctx, userRef(req.UserID)); err != nil {
			return mapStoreErr(err, "user")
		}

		if req.ParentReply != "" {
			parentDoc, err := tx.Get(ctx, replyRef(req.ParentReply))
			if err != nil {
				return mapStoreErr(err, "parent reply")
			}
			parent, err := decodeReply(parentDoc)
			if err != nil {
				return err
			}
			if parent.ParentPost != req.PostID {
				return fmt.Errorf("reply %s does not belong to post %s: %w", req.ParentReply, req.PostID, apperror.ErrBadRequest)
			}
			if parent.Deleting {
				return fmt.Errorf("reply %s is being deleted: %w", req.ParentReply, apperror.ErrConflict)
			}
		}

		reply := models.Reply{
			Author:          req.UserID,
			Contents:        postPolicy.Sanitize(req.Contents),
			YayList:         []string{},
			NayList:         []string{},
			TimeReply:       nowMillis(),
			ParentPost:      req.PostID,
			ParentReply:     req.ParentReply,
			ParentForum:     post.ParentForum,
			ParentGroup:     post.ParentGroup,
			ParentCommunity: post.ParentCommunity,
		}
		data, err := store.DataFrom(&reply)
		if err != nil {
			return err
		}
		ref, err := tx.Create(ctx, models.ColReplies, data)
		if err != nil {
			return err
		}
		id = ref.ID
		return tx.Update(ctx, postRef(req.PostID), store.Increment("replyCount", 1))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
