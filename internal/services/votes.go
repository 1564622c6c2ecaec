package services

import (
	"context"
	"fmt"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
)

// Vote types.
const (
	VoteYay = "yay"
	VoteNay = "nay"
)

// VoteService applies yay/nay toggles to posts and replies and propagates
// score deltas to the author and community aggregates. The whole mutation
// runs in one transaction: lists and score on the content, atomic increments
// on the ancestors, all or nothing.
type VoteService struct {
	store store.Store
}

// NewVoteService creates a VoteService.
func NewVoteService(st store.Store) *VoteService {
	return &VoteService{store: st}
}

// VotePost applies a vote to a post and returns the updated post.
func (s *VoteService) VotePost(ctx context.Context, postID, userID, voteType string) (*models.Post, error) {
	doc, err := s.applyVote(ctx, postRef(postID), userID, voteType)
	if err != nil {
		return nil, err
	}
	return decodePost(doc)
}

// VoteReply applies a vote to a reply and returns the updated reply.
func (s *VoteService) VoteReply(ctx context.Context, replyID, userID, voteType string) (*models.Reply, error) {
	doc, err := s.applyVote(ctx, replyRef(replyID), userID, voteType)
	if err != nil {
		return nil, err
	}
	return decodeReply(doc)
}

func (s *VoteService) applyVote(ctx context.Context, ref store.Ref, userID, voteType string) (store.Document, error) {
	if userID == "" {
		return store.Document{}, fmt.Errorf("vote requires a user: %w", apperror.ErrUnauthorized)
	}
	if voteType != VoteYay && voteType != VoteNay {
		return store.Document{}, fmt.Errorf("vote type %q: %w", voteType, apperror.ErrBadRequest)
	}

	var updated store.Document
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, ref)
		if err != nil {
			return mapStoreErr(err, "content")
		}
		if deleting, _ := doc.Data["deleting"].(bool); deleting {
			return fmt.Errorf("content is being deleted: %w", apperror.ErrConflict)
		}

		yay := toStringSlice(doc.Data["yayList"])
		nay := toStringSlice(doc.Data["nayList"])
		oldScore := len(yay) - len(nay)

		// Toggle semantics: voting the same way twice un-votes; voting the
		// other way switches, flipping membership in both lists at once.
		switch voteType {
		case VoteYay:
			if containsString(yay, userID) {
				yay = removeString(yay, userID)
			} else {
				yay = append(yay, userID)
				nay = removeString(nay, userID)
			}
		case VoteNay:
			if containsString(nay, userID) {
				nay = removeString(nay, userID)
			} else {
				nay = append(nay, userID)
				yay = removeString(yay, userID)
			}
		}

		newScore := len(yay) - len(nay)
		delta := int64(newScore - oldScore)

		if err := tx.Update(ctx, ref,
			store.Set("yayList", yay),
			store.Set("nayList", nay),
			store.Set("yayScore", newScore),
		); err != nil {
			return err
		}

		if delta != 0 {
			author, _ := doc.Data["author"].(string)
			community, _ := doc.Data["parentCommunity"].(string)
			if err := tx.Update(ctx, userRef(author), store.Increment("yayScore", delta)); err != nil {
				return mapStoreErr(err, "author")
			}
			if err := tx.Update(ctx, communityRef(community), store.Increment("yayScore", delta)); err != nil {
				return mapStoreErr(err, "community")
			}
		}

		doc.Data["yayList"] = yay
		doc.Data["nayList"] = nay
		doc.Data["yayScore"] = newScore
		updated = doc
		return nil
	})
	if err != nil {
		return store.Document{}, err
	}
	return updated, nil
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
