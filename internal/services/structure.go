package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/store"
	"github.com/circuitlink/backend/pkg/apperror"
	"github.com/circuitlink/backend/pkg/cache"
	"github.com/circuitlink/backend/pkg/logger"
)

// Post listing sort modes.
const (
	SortNew = "new"
	SortTop = "top"
)

// resolveWorkers caps the author-dereference fan-out per request.
const resolveWorkers = 8

// StructureService reconstructs the Community→Group→Forum tree and formats
// post and reply listings for client consumption, dereferencing stored
// pointers into nested plain objects. Sibling dereferences have no ordering
// dependency and run in parallel; assembled structures are cached in Redis
// until a group or forum mutation invalidates them.
type StructureService struct {
	store store.Store
	cache *cache.Cache
}

// NewStructureService creates a StructureService. cache may be nil.
func NewStructureService(st store.Store, c *cache.Cache) *StructureService {
	return &StructureService{store: st, cache: c}
}

// GetStructure looks up a community by its unique name and returns the fully
// materialized structure tree.
func (s *StructureService) GetStructure(ctx context.Context, name string) (*models.CommunityStructure, error) {
	cacheKey := "structure:" + name
	var cached models.CommunityStructure
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	comm, err := s.CommunityByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var groupDocs, forumDocs []store.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groupDocs, err = s.store.Query(gctx, models.ColGroups, store.Where("parentCommunity", "==", comm.ID))
		return err
	})
	g.Go(func() error {
		var err error
		forumDocs, err = s.store.Query(gctx, models.ColForums, store.Where("parentCommunity", "==", comm.ID))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	forumsByGroup := make(map[string][]models.ForumSummary)
	for _, doc := range forumDocs {
		forum, err := decodeForum(doc)
		if err != nil {
			logger.S.Warnw("skipping unresolvable forum", "ref", doc.Ref.String(), "err", err)
			continue
		}
		if forum.Deleting {
			continue
		}
		forumsByGroup[forum.ParentGroup] = append(forumsByGroup[forum.ParentGroup], models.ForumSummary{
			ID:          forum.ID,
			Name:        forum.Name,
			Slug:        forum.Slug,
			Description: forum.Description,
		})
	}

	groups := make([]models.GroupStructure, 0, len(groupDocs))
	for _, doc := range groupDocs {
		group, err := decodeGroup(doc)
		if err != nil {
			logger.S.Warnw("skipping unresolvable group", "ref", doc.Ref.String(), "err", err)
			continue
		}
		if group.Deleting {
			continue
		}
		forums := forumsByGroup[group.ID]
		sort.Slice(forums, func(i, j int) bool { return forums[i].Name < forums[j].Name })
		groups = append(groups, models.GroupStructure{
			ID:            group.ID,
			Name:          group.Name,
			ForumsInGroup: forums,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	structure := &models.CommunityStructure{
		ID:                comm.ID,
		Name:              comm.Name,
		Description:       comm.Description,
		Public:            comm.Public,
		Icon:              comm.Icon,
		Banner:            comm.Banner,
		NumUsers:          comm.NumUsers,
		YayScore:          comm.YayScore,
		OwnerList:         comm.OwnerList,
		ModList:           comm.ModList,
		GroupsInCommunity: groups,
	}
	s.cache.SetJSON(ctx, cacheKey, structure)
	return structure, nil
}

// GetForumPosts resolves a forum by community name and slug, then returns the
// forum and its formatted posts.
func (s *StructureService) GetForumPosts(ctx context.Context, commName, slug, sortMode string) (*models.Forum, []models.FormattedPost, error) {
	comm, err := s.CommunityByName(ctx, commName)
	if err != nil {
		return nil, nil, err
	}
	docs, err := s.store.Query(ctx, models.ColForums,
		store.Where("parentCommunity", "==", comm.ID),
		store.Where("slug", "==", slug))
	if err != nil {
		return nil, nil, err
	}
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("forum %q in community %q: %w", slug, commName, apperror.ErrNotFound)
	}
	forum, err := decodeForum(docs[0])
	if err != nil {
		return nil, nil, err
	}
	if forum.Deleting {
		return nil, nil, fmt.Errorf("forum %q in community %q: %w", slug, commName, apperror.ErrNotFound)
	}

	posts, err := s.FormattedPosts(ctx, forum.ID, sortMode)
	if err != nil {
		return nil, nil, err
	}
	return forum, posts, nil
}

// FormattedPosts dereferences every post in a forum, resolves authors and
// sorts the result. Posts whose author no longer resolves are dropped, the
// soft-delete tolerance the clients rely on.
func (s *StructureService) FormattedPosts(ctx context.Context, forumID, sortMode string) ([]models.FormattedPost, error) {
	docs, err := s.store.Query(ctx, models.ColPosts, store.Where("parentForum", "==", forumID))
	if err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, len(docs))
	authorIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		post, err := decodePost(doc)
		if err != nil {
			logger.S.Warnw("skipping unresolvable post", "ref", doc.Ref.String(), "err", err)
			continue
		}
		if post.Deleting {
			continue
		}
		posts = append(posts, post)
		authorIDs = append(authorIDs, post.Author)
	}

	usernames := resolveUsernames(ctx, s.store, authorIDs)

	formatted := make([]models.FormattedPost, 0, len(posts))
	for _, post := range posts {
		username, ok := usernames[post.Author]
		if !ok {
			continue
		}
		formatted = append(formatted, formatPost(post, username))
	}

	sort.Slice(formatted, func(i, j int) bool {
		if sortMode == SortTop {
			if formatted[i].YayScore != formatted[j].YayScore {
				return formatted[i].YayScore > formatted[j].YayScore
			}
		}
		return formatted[i].TimePosted > formatted[j].TimePosted
	})
	return formatted, nil
}

// FormattedReplies materializes a post's reply tree with authors resolved.
func (s *StructureService) FormattedReplies(ctx context.Context, postID string) ([]models.FormattedReply, error) {
	docs, err := s.store.Query(ctx, models.ColReplies, store.Where("parentPost", "==", postID))
	if err != nil {
		return nil, err
	}

	replies := make([]*models.Reply, 0, len(docs))
	authorIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		reply, err := decodeReply(doc)
		if err != nil {
			logger.S.Warnw("skipping unresolvable reply", "ref", doc.Ref.String(), "err", err)
			continue
		}
		if reply.Deleting {
			continue
		}
		replies = append(replies, reply)
		authorIDs = append(authorIDs, reply.Author)
	}
	usernames := resolveUsernames(ctx, s.store, authorIDs)

	byParent := make(map[string][]*models.Reply)
	for _, r := range replies {
		byParent[r.ParentReply] = append(byParent[r.ParentReply], r)
	}

	var build func(parent string) []models.FormattedReply
	build = func(parent string) []models.FormattedReply {
		children := byParent[parent]
		sort.Slice(children, func(i, j int) bool { return children[i].TimeReply < children[j].TimeReply })
		out := make([]models.FormattedReply, 0, len(children))
		for _, r := range children {
			username, ok := usernames[r.Author]
			if !ok {
				continue
			}
			out = append(out, models.FormattedReply{
				ID:             r.ID,
				AuthorID:       r.Author,
				AuthorUsername: username,
				Contents:       r.Contents,
				YayScore:       r.YayScore,
				YayList:        emptyIfNil(r.YayList),
				NayList:        emptyIfNil(r.NayList),
				TimeReply:      r.TimeReply,
				Edited:         r.Edited,
				Replies:        build(r.ID),
			})
		}
		return out
	}
	return build(""), nil
}

// CommunityByName resolves the human-readable community name clients route by.
func (s *StructureService) CommunityByName(ctx context.Context, name string) (*models.Community, error) {
	docs, err := s.store.Query(ctx, models.ColCommunities, store.Where("name", "==", name))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("community %q: %w", name, apperror.ErrNotFound)
	}
	return decodeCommunity(docs[0])
}

// resolveUsernames fetches the usernames for a set of user IDs in parallel.
// Unresolvable users are simply absent from the result.
func resolveUsernames(ctx context.Context, st store.Store, ids []string) map[string]string {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	var mu sync.Mutex
	out := make(map[string]string, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for id := range unique {
		g.Go(func() error {
			doc, err := st.Get(gctx, userRef(id))
			if err != nil {
				return nil // tolerate dangling author refs
			}
			user, err := decodeUser(doc)
			if err != nil {
				return nil
			}
			mu.Lock()
			out[id] = user.Username
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
