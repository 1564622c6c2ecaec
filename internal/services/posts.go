package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/search"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
)

var postPolicy = bluemonday.UGCPolicy()

// PostService creates and edits posts. Content is sanitized before storage
// and indexed for search after the write commits.
type PostService struct {
	store  store.Store
	search *search.Index
}

// NewPostService creates a PostService. search may be nil.
func NewPostService(st store.Store, idx *search.Index) *PostService {
	return &PostService{store: st, search: idx}
}

// Create creates a post in a forum. The post inherits parentForum,
// parentGroup and parentCommunity from the forum so subtree queries can find
// it at every level.
func (s *PostService) Create(ctx context.Context, req models.CreatePostRequest) (string, error) {
	var (
		id   string
		post models.Post
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		forumDoc, err := tx.Get(ctx, forumRef(req.ForumID))
		if err != nil {
			return mapStoreErr(err, "forum")
		}
		forum, err := decodeForum(forumDoc)
		if err != nil {
			return err
		}
		if forum.Deleting {
			return fmt.Errorf("forum %s is being deleted: %w", req.ForumID, apperror.ErrConflict)
		}
		if _, err := tx.Get(ctx, userRef(req.UserID)); err != nil {
			return mapStoreErr(err, "user")
		}

		title := postPolicy.Sanitize(req.Title)
		contents := postPolicy.Sanitize(req.Contents)
		post = models.Post{
			Author:          req.UserID,
			Title:           title,
			Contents:        contents,
			Media:           req.Media,
			YayList:         []string{},
			NayList:         []string{},
			TimePosted:      nowMillis(),
			Keywords:        extractKeywords(title),
			ParentForum:     forum.ID,
			ParentGroup:     forum.ParentGroup,
			ParentCommunity: forum.ParentCommunity,
		}
		data, err := store.DataFrom(&post)
		if err != nil {
			return err
		}
		ref, err := tx.Create(ctx, models.ColPosts, data)
		if err != nil {
			return err
		}
		id = ref.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	post.ID = id
	s.search.IndexPost(&post)
	return id, nil
}

// Update edits a post's title or contents. Only the author may edit.
func (s *PostService) Update(ctx context.Context, postID string, req models.UpdatePostRequest) error {
	var post models.Post
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, postRef(postID))
		if err != nil {
			return mapStoreErr(err, "post")
		}
		p, err := decodePost(doc)
		if err != nil {
			return err
		}
		if p.Deleting {
			return fmt.Errorf("post %s is being deleted: %w", postID, apperror.ErrConflict)
		}
		if p.Author != req.UserID {
			return fmt.Errorf("user %s is not the author of post %s: %w", req.UserID, postID, apperror.ErrForbidden)
		}

		ops := []store.FieldOp{
			store.Set("edited", true),
			store.Set("timeUpdated", nowMillis()),
		}
		if req.Title != "" {
			title := postPolicy.Sanitize(req.Title)
			p.Title = title
			ops = append(ops,
				store.Set("title", title),
				store.Set("keywords", extractKeywords(title)),
			)
		}
		if req.Contents != "" {
			p.Contents = postPolicy.Sanitize(req.Contents)
			ops = append(ops, store.Set("contents", p.Contents))
		}
		post = *p
		return tx.Update(ctx, postRef(postID), ops...)
	})
	if err != nil {
		return err
	}
	s.search.IndexPost(&post)
	return nil
}

// Search returns formatted posts matching the query, in relevance order.
func (s *PostService) Search(ctx context.Context, query string, limit int64) ([]models.FormattedPost, error) {
	ids, err := s.search.SearchPosts(query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.FormattedPost, 0, len(ids))
	authorIDs := make([]string, 0, len(ids))
	posts := make([]*models.Post, 0, len(ids))
	for _, id := range ids {
		doc, err := s.store.Get(ctx, postRef(id))
		if err != nil {
			continue
		}
		post, err := decodePost(doc)
		if err != nil || post.Deleting {
			continue
		}
		posts = append(posts, post)
		authorIDs = append(authorIDs, post.Author)
	}
	usernames := resolveUsernames(ctx, s.store, authorIDs)
	for _, post := range posts {
		name, ok := usernames[post.Author]
		if !ok {
			continue
		}
		out = append(out, formatPost(post, name))
	}
	return out, nil
}

func formatPost(p *models.Post, username string) models.FormattedPost {
	return models.FormattedPost{
		ID:             p.ID,
		AuthorID:       p.Author,
		AuthorUsername: username,
		Title:          p.Title,
		Contents:       p.Contents,
		Media:          p.Media,
		YayScore:       p.YayScore,
		ReplyCount:     p.ReplyCount,
		YayList:        emptyIfNil(p.YayList),
		NayList:        emptyIfNil(p.NayList),
		TimePosted:     p.TimePosted,
		TimeUpdated:    p.TimeUpdated,
		Edited:         p.Edited,
		Keywords:       emptyIfNil(p.Keywords),
	}
}

// extractKeywords tokenizes a title into lowercase search keywords, dropping
// short words and duplicates.
func extractKeywords(title string) []string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}
