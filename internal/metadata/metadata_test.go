package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCinemetaMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meta/movie/tt0133093.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, `{"meta": {"id": "tt0133093", "type": "movie", "name": "The Matrix", "releaseInfo": "1999"}}`)
	}))
	defer srv.Close()

	c := NewCinemeta(nil)
	c.baseURL = srv.URL

	meta, err := c.Meta(context.Background(), "movie", "tt0133093")
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta == nil {
		t.Fatal("want meta, got nil")
	}
	if meta.Name != "The Matrix" || meta.ReleaseInfo != "1999" {
		t.Errorf("got %+v", meta)
	}
}

func TestCinemetaUnknownIDIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewCinemeta(nil)
	c.baseURL = srv.URL

	meta, err := c.Meta(context.Background(), "movie", "tt999")
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta != nil {
		t.Errorf("unknown id must yield nil meta, got %+v", meta)
	}
}

func TestTMDBFindByIMDB(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/find/tt0133093" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("external_source") != "imdb_id" {
			t.Errorf("missing external_source: %s", r.URL.RawQuery)
		}
		_, _ = fmt.Fprint(w, `{"movie_results": [{"id": 603}], "tv_results": []}`)
	}))
	defer srv.Close()

	c := NewTMDB("key")
	c.baseURL = srv.URL

	id, err := c.FindByIMDB(context.Background(), "tt0133093")
	if err != nil {
		t.Fatalf("FindByIMDB: %v", err)
	}
	if id != 603 {
		t.Errorf("want 603, got %d", id)
	}
}

func TestTMDBFallsBackToTVResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"movie_results": [], "tv_results": [{"id": 1396}]}`)
	}))
	defer srv.Close()

	c := NewTMDB("key")
	c.baseURL = srv.URL

	id, err := c.FindByIMDB(context.Background(), "tt0903747")
	if err != nil {
		t.Fatalf("FindByIMDB: %v", err)
	}
	if id != 1396 {
		t.Errorf("want 1396, got %d", id)
	}
}

func TestTMDBDisabledWithoutKey(t *testing.T) {
	c := NewTMDB("")
	id, err := c.FindByIMDB(context.Background(), "tt0133093")
	if err != nil {
		t.Fatalf("FindByIMDB: %v", err)
	}
	if id != 0 {
		t.Errorf("disabled client must return 0, got %d", id)
	}
}
