package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/internal/ws"
	"github.com/circuitlink/backend/pkg/apperror"
)

// MessageService stores chat messages and pushes direct messages to the
// recipient's live websocket connections.
type MessageService struct {
	store store.Store
	hub   *ws.Hub
}

// NewMessageService creates a MessageService. hub may be nil.
func NewMessageService(st store.Store, hub *ws.Hub) *MessageService {
	return &MessageService{store: st, hub: hub}
}

// Send validates the receiver and persists the message. Direct messages go to
// a user; channel messages go to a community the author belongs to.
func (s *MessageService) Send(ctx context.Context, req models.SendMessageRequest) (string, error) {
	isDirect := req.IsDirect != nil && *req.IsDirect

	if _, err := s.store.Get(ctx, userRef(req.AuthorID)); err != nil {
		return "", mapStoreErr(err, "author")
	}
	if isDirect {
		if _, err := s.store.Get(ctx, userRef(req.ReceiverID)); err != nil {
			return "", mapStoreErr(err, "receiver")
		}
	} else {
		doc, err := s.store.Get(ctx, communityRef(req.ReceiverID))
		if err != nil {
			return "", mapStoreErr(err, "community")
		}
		comm, err := decodeCommunity(doc)
		if err != nil {
			return "", err
		}
		if !comm.IsMember(req.AuthorID) {
			return "", fmt.Errorf("user %s is not a member of community %s: %w", req.AuthorID, req.ReceiverID, apperror.ErrForbidden)
		}
	}

	msg := models.Message{
		Author:    req.AuthorID,
		Contents:  postPolicy.Sanitize(req.Contents),
		Media:     req.Media,
		Receiver:  req.ReceiverID,
		IsDirect:  isDirect,
		Timestamp: nowMillis(),
	}
	data, err := store.DataFrom(&msg)
	if err != nil {
		return "", err
	}
	ref, err := s.store.Create(ctx, models.ColMessages, data)
	if err != nil {
		return "", err
	}
	msg.ID = ref.ID

	if isDirect {
		s.hub.Push(req.ReceiverID, map[string]any{"event": "message", "data": msg})
	}
	return ref.ID, nil
}

// History returns a conversation, oldest first. A community channel yields
// every message sent to it. A direct channel is the two-way exchange between
// the caller and the peer, so direct messages to the peer from other users
// are filtered out and the peer's replies to the caller are merged in.
func (s *MessageService) History(ctx context.Context, channelID, callerID string) ([]models.Message, error) {
	docs, err := s.store.Query(ctx, models.ColMessages, store.Where("receiver", "==", channelID))
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(docs))
	for _, doc := range docs {
		msg, err := decodeMessage(doc)
		if err != nil {
			continue
		}
		if msg.IsDirect && callerID != "" && msg.Author != callerID {
			continue
		}
		out = append(out, *msg)
	}

	if callerID != "" && callerID != channelID {
		// The reverse direction only exists for direct conversations;
		// communities never author messages, so this is empty for channels.
		back, err := s.store.Query(ctx, models.ColMessages,
			store.Where("receiver", "==", callerID),
			store.Where("author", "==", channelID))
		if err != nil {
			return nil, err
		}
		for _, doc := range back {
			msg, err := decodeMessage(doc)
			if err != nil || !msg.IsDirect {
				continue
			}
			out = append(out, *msg)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}
