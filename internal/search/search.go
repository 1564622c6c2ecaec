package search

import (
	"encoding/json"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/pkg/logger"
)

const postIndex = "posts"

// Index keeps the post search index in sync with the document store. A nil
// *Index disables search, so create/delete paths never branch on whether
// Meilisearch is configured.
type Index struct {
	client meilisearch.ServiceManager
}

// New connects to Meilisearch at host. Returns nil (search disabled) when
// host is empty.
func New(host, apiKey string) *Index {
	if host == "" {
		return nil
	}
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	idx := &Index{client: client}
	idx.initIndexes()
	return idx
}

func (i *Index) initIndexes() {
	filterable := []any{"parentCommunity", "parentForum"}
	if _, err := i.client.Index(postIndex).UpdateFilterableAttributes(&filterable); err != nil {
		logger.S.Warnf("failed to update posts filterable attributes: %v", err)
	}
	sortable := []string{"timePosted", "yayScore"}
	if _, err := i.client.Index(postIndex).UpdateSortableAttributes(&sortable); err != nil {
		logger.S.Warnf("failed to update posts sortable attributes: %v", err)
	}
}

type postDoc struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Contents        string   `json:"contents"`
	Keywords        []string `json:"keywords"`
	Author          string   `json:"author"`
	ParentForum     string   `json:"parentForum"`
	ParentCommunity string   `json:"parentCommunity"`
	TimePosted      int64    `json:"timePosted"`
	YayScore        int      `json:"yayScore"`
}

// IndexPost adds or replaces a post in the search index.
func (i *Index) IndexPost(post *models.Post) {
	if i == nil {
		return
	}
	doc := postDoc{
		ID:              post.ID,
		Title:           post.Title,
		Contents:        normalizeForIndex(post.Contents),
		Keywords:        post.Keywords,
		Author:          post.Author,
		ParentForum:     post.ParentForum,
		ParentCommunity: post.ParentCommunity,
		TimePosted:      post.TimePosted,
		YayScore:        post.YayScore,
	}
	primaryKey := "id"
	if _, err := i.client.Index(postIndex).AddDocuments([]postDoc{doc}, &primaryKey); err != nil {
		logger.S.Warnf("failed to index post %s: %v", post.ID, err)
	}
}

// DeletePost removes a post from the search index.
func (i *Index) DeletePost(id string) {
	if i == nil {
		return
	}
	if _, err := i.client.Index(postIndex).DeleteDocument(id); err != nil {
		logger.S.Warnf("failed to deindex post %s: %v", id, err)
	}
}

// SearchPosts returns the IDs of posts matching the query, best first.
func (i *Index) SearchPosts(query string, limit int64) ([]string, error) {
	if i == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	res, err := i.client.Index(postIndex).Search(query, &meilisearch.SearchRequest{Limit: limit})
	if err != nil {
		return nil, err
	}
	return idsFromHits(res.Hits), nil
}

// idsFromHits extracts the primary key from raw search hits. Hits arrive as
// maps of raw JSON fields, so the id needs an explicit unmarshal.
func idsFromHits(hits []meilisearch.Hit) []string {
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		raw, ok := hit["id"]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			logger.S.Debugw("skipping malformed search hit", "err", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func normalizeForIndex(content string) string {
	return strings.Join(strings.Fields(content), " ")
}
