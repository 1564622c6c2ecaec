package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
)

// nowMillis is swapped out by tests for deterministic timestamps.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

func communityRef(id string) store.Ref { return store.NewRef(models.ColCommunities, id) }
func groupRef(id string) store.Ref     { return store.NewRef(models.ColGroups, id) }
func forumRef(id string) store.Ref     { return store.NewRef(models.ColForums, id) }
func postRef(id string) store.Ref      { return store.NewRef(models.ColPosts, id) }
func replyRef(id string) store.Ref     { return store.NewRef(models.ColReplies, id) }
func userRef(id string) store.Ref      { return store.NewRef(models.ColUsers, id) }
func notifRef(id string) store.Ref { return store.NewRef(models.ColNotifs, id) }

func friendRequestRef(id string) store.Ref { return store.NewRef(models.ColFriendRequests, id) }

// refExists reads a ref inside a transaction so a later write can be skipped
// when the target is already gone. Backends that buffer transaction writes
// require all reads up front, so call this before the first write in the tx.
func refExists(ctx context.Context, tx store.Tx, ref store.Ref) (bool, error) {
	_, err := tx.Get(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// mapStoreErr converts store sentinels into the service error taxonomy,
// labeling which entity went missing.
func mapStoreErr(err error, entity string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", entity, apperror.ErrNotFound)
	}
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%s: %w", entity, apperror.ErrConflict)
	}
	return err
}

func decodeCommunity(doc store.Document) (*models.Community, error) {
	var c models.Community
	if err := doc.DataTo(&c); err != nil {
		return nil, err
	}
	c.ID = doc.Ref.ID
	if err := models.Validate(&c); err != nil {
		return nil, fmt.Errorf("malformed community %s: %w", doc.Ref.ID, err)
	}
	return &c, nil
}

func decodeGroup(doc store.Document) (*models.Group, error) {
	var g models.Group
	if err := doc.DataTo(&g); err != nil {
		return nil, err
	}
	g.ID = doc.Ref.ID
	if err := models.Validate(&g); err != nil {
		return nil, fmt.Errorf("malformed group %s: %w", doc.Ref.ID, err)
	}
	return &g, nil
}

func decodeForum(doc store.Document) (*models.Forum, error) {
	var f models.Forum
	if err := doc.DataTo(&f); err != nil {
		return nil, err
	}
	f.ID = doc.Ref.ID
	if err := models.Validate(&f); err != nil {
		return nil, fmt.Errorf("malformed forum %s: %w", doc.Ref.ID, err)
	}
	return &f, nil
}

func decodePost(doc store.Document) (*models.Post, error) {
	var p models.Post
	if err := doc.DataTo(&p); err != nil {
		return nil, err
	}
	p.ID = doc.Ref.ID
	if err := models.Validate(&p); err != nil {
		return nil, fmt.Errorf("malformed post %s: %w", doc.Ref.ID, err)
	}
	return &p, nil
}

func decodeReply(doc store.Document) (*models.Reply, error) {
	var r models.Reply
	if err := doc.DataTo(&r); err != nil {
		return nil, err
	}
	r.ID = doc.Ref.ID
	if err := models.Validate(&r); err != nil {
		return nil, fmt.Errorf("malformed reply %s: %w", doc.Ref.ID, err)
	}
	return &r, nil
}

func decodeUser(doc store.Document) (*models.User, error) {
	var u models.User
	if err := doc.DataTo(&u); err != nil {
		return nil, err
	}
	u.ID = doc.Ref.ID
	if err := models.Validate(&u); err != nil {
		return nil, fmt.Errorf("malformed user %s: %w", doc.Ref.ID, err)
	}
	return &u, nil
}

func decodeFriendRequest(doc store.Document) (*models.FriendRequest, error) {
	var r models.FriendRequest
	if err := doc.DataTo(&r); err != nil {
		return nil, err
	}
	r.ID = doc.Ref.ID
	if err := models.Validate(&r); err != nil {
		return nil, fmt.Errorf("malformed friend request %s: %w", doc.Ref.ID, err)
	}
	return &r, nil
}

func decodeMessage(doc store.Document) (*models.Message, error) {
	var m models.Message
	if err := doc.DataTo(&m); err != nil {
		return nil, fmt.Errorf("decode message %s: %w", doc.Ref.ID, err)
	}
	m.ID = doc.Ref.ID
	if err := models.Validate(&m); err != nil {
		return nil, fmt.Errorf("message %s: %w", doc.Ref.ID, err)
	}
	return &m, nil
}

func decodeNotification(doc store.Document) (*models.Notification, error) {
	var n models.Notification
	if err := doc.DataTo(&n); err != nil {
		return nil, err
	}
	n.ID = doc.Ref.ID
	if err := models.Validate(&n); err != nil {
		return nil, fmt.Errorf("malformed notification %s: %w", doc.Ref.ID, err)
	}
	return &n, nil
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, e := range list {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

// emptyIfNil keeps array fields as [] rather than null in stored documents.
func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
