package search

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/meilisearch/meilisearch-go"
)

func TestIdsFromHits(t *testing.T) {
	hits := []meilisearch.Hit{
		{"id": json.RawMessage(`"post-1"`), "title": json.RawMessage(`"first"`)},
		{"title": json.RawMessage(`"no id field"`)},
		{"id": json.RawMessage(`42`)},
		{"id": json.RawMessage(`"post-2"`)},
	}
	got := idsFromHits(hits)
	want := []string{"post-1", "post-2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("idsFromHits = %v, want %v", got, want)
	}
}

func TestNilIndexIsDisabled(t *testing.T) {
	idx := New("", "key")
	if idx != nil {
		t.Fatal("expected nil index when no host is configured")
	}
	idx.IndexPost(nil)
	idx.DeletePost("p1")
	ids, err := idx.SearchPosts("anything", 5)
	if err != nil {
		t.Fatalf("SearchPosts on disabled index: %v", err)
	}
	if ids != nil {
		t.Fatalf("expected no results from disabled index, got %v", ids)
	}
}
