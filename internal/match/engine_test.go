package match

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/voyagen/streamvault/internal/models"
	"github.com/voyagen/streamvault/internal/store"
)

type fakeMeta struct {
	metas map[string]*models.Meta
}

func (f *fakeMeta) Meta(_ context.Context, _, id string) (*models.Meta, error) {
	return f.metas[id], nil
}

type fakeRefresher struct {
	calls int
}

func (f *fakeRefresher) RefreshCatalog(context.Context) error {
	f.calls++
	return nil
}

type fakeLive struct{}

func (fakeLive) LiveURL(streamID int64) string {
	return fmt.Sprintf("http://panel.example/live/u/p/%d.ts", streamID)
}

const testTenant = "t1"

func newTestEngine(mem *store.Memory, meta *fakeMeta, refresher *fakeRefresher) *Engine {
	oracle := &fakeOracle{answers: map[string]int64{"tt0133093": 603}}
	return NewEngine(mem, meta, NewResolver(mem, oracle), refresher, fakeLive{}, testTenant)
}

func seedCatalog(mem *store.Memory, entries ...models.CatalogEntry) {
	_ = mem.UpsertCatalogEntries(context.Background(), entries)
}

func movie(internal int64, title, secondary string) models.CatalogEntry {
	return models.CatalogEntry{
		TenantID:    testTenant,
		ContentType: models.ContentTypeMovie,
		CanonicalID: fmt.Sprintf("streamvault:%d", internal),
		InternalID:  internal,
		Title:       title,
		SecondaryID: secondary,
	}
}

func TestResolveWithoutMetadataReturnsEmpty(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem, movie(101, "The Matrix", "603"))
	refresher := &fakeRefresher{}
	e := newTestEngine(mem, &fakeMeta{metas: map[string]*models.Meta{}}, refresher)

	got := e.Resolve(context.Background(), models.ContentTypeMovie, "tt0133093", "http://addon")
	if len(got) != 0 {
		t.Errorf("want empty result, got %d candidates", len(got))
	}
	// No metadata means the catalog refresh is skipped entirely.
	if refresher.calls != 0 {
		t.Errorf("catalog refreshes: want 0, got %d", refresher.calls)
	}
}

func TestResolveExactTierWinsOverFuzzy(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem,
		movie(101, "The Matrix", "603"),
		movie(102, "The Matrix", ""),
	)
	meta := &fakeMeta{metas: map[string]*models.Meta{
		"tt0133093": {ID: "tt0133093", Name: "The Matrix"},
	}}
	refresher := &fakeRefresher{}
	e := newTestEngine(mem, meta, refresher)

	got := e.Resolve(context.Background(), models.ContentTypeMovie, "tt0133093", "http://addon")
	if refresher.calls != 1 {
		t.Errorf("catalog refreshes: want 1, got %d", refresher.calls)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 candidates, got %d", len(got))
	}

	byURL := map[string]models.StreamCandidate{}
	for _, c := range got {
		byURL[c.URL] = c
	}
	exact, ok := byURL["http://addon/redirect/movie/101"]
	if !ok {
		t.Fatal("entry 101 missing from candidates")
	}
	if exact.Provenance != models.ProvenanceExact {
		t.Errorf("entry 101 provenance: want exact, got %q", exact.Provenance)
	}
	if !strings.HasPrefix(exact.Title, "⭐") {
		t.Errorf("exact candidate title: want ⭐ prefix, got %q", exact.Title)
	}

	fuzzy, ok := byURL["http://addon/redirect/movie/102"]
	if !ok {
		t.Fatal("entry 102 missing from candidates")
	}
	if fuzzy.Provenance != models.ProvenanceFuzzy {
		t.Errorf("entry 102 provenance: want fuzzy, got %q", fuzzy.Provenance)
	}
	if fuzzy.Score != 100 {
		t.Errorf("entry 102 score: want 100, got %d", fuzzy.Score)
	}
	if !strings.Contains(fuzzy.Title, "🎯100%") {
		t.Errorf("fuzzy candidate title: want 🎯100%% tag, got %q", fuzzy.Title)
	}
}

func TestResolveFuzzyScoreFloor(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem,
		movie(201, "The Matrix Reloaded", ""),
		// Shares a token so the text search finds it, but the edit
		// distance keeps it under the floor.
		movie(202, "Matrix zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", ""),
	)
	meta := &fakeMeta{metas: map[string]*models.Meta{
		"tt0234215": {ID: "tt0234215", Name: "The Matrix Reloaded"},
	}}
	e := newTestEngine(mem, meta, &fakeRefresher{})

	got := e.Resolve(context.Background(), models.ContentTypeMovie, "tt0234215", "http://addon")
	if len(got) != 1 {
		t.Fatalf("want 1 candidate above the score floor, got %d", len(got))
	}
	if got[0].URL != "http://addon/redirect/movie/201" {
		t.Errorf("unexpected candidate: %q", got[0].URL)
	}
}

func TestResolveFallbackTier(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem,
		movie(301, "Unrelated Film", ""),
		movie(302, "Another Film", ""),
	)
	meta := &fakeMeta{metas: map[string]*models.Meta{
		"tt555": {ID: "tt555", Name: "Qqqqqqqq"},
	}}
	e := newTestEngine(mem, meta, &fakeRefresher{})

	got := e.Resolve(context.Background(), models.ContentTypeMovie, "tt555", "http://addon")
	if len(got) != 2 {
		t.Fatalf("want the full sample as fallback, got %d", len(got))
	}
	for _, c := range got {
		if c.Provenance != models.ProvenanceFallback {
			t.Errorf("candidate %q provenance: want fallback, got %q", c.URL, c.Provenance)
		}
		if !strings.HasPrefix(c.Title, "📺") {
			t.Errorf("fallback title: want 📺 prefix, got %q", c.Title)
		}
	}
}

func TestResolveSeriesEmbedsEpisodeCode(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem, models.CatalogEntry{
		TenantID:    testTenant,
		ContentType: models.ContentTypeSeries,
		CanonicalID: "tt123",
		InternalID:  401,
		Title:       "Great Show",
	})
	meta := &fakeMeta{metas: map[string]*models.Meta{
		"tt123": {ID: "tt123", Name: "Great Show"},
	}}
	e := newTestEngine(mem, meta, &fakeRefresher{})

	got := e.Resolve(context.Background(), models.ContentTypeSeries, "tt123:1:5", "http://addon")
	if len(got) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(got))
	}
	if !strings.Contains(got[0].Title, "S01E05") {
		t.Errorf("title: want S01E05 embedded, got %q", got[0].Title)
	}
	if got[0].URL != "http://addon/redirect/series/401/1/5" {
		t.Errorf("url: got %q", got[0].URL)
	}
}

func TestResolveLiveBypassesMatching(t *testing.T) {
	mem := store.NewMemory()
	refresher := &fakeRefresher{}
	e := newTestEngine(mem, &fakeMeta{metas: map[string]*models.Meta{}}, refresher)

	got := e.Resolve(context.Background(), models.ContentTypeTV, "streamvault:77", "http://addon")
	if len(got) != 1 {
		t.Fatalf("want 1 live candidate, got %d", len(got))
	}
	if got[0].URL != "http://panel.example/live/u/p/77.ts" {
		t.Errorf("live url: got %q", got[0].URL)
	}
	if refresher.calls != 0 {
		t.Errorf("live resolution must not touch the catalog, got %d refreshes", refresher.calls)
	}
}

func TestParseCompositeID(t *testing.T) {
	show, season, episode := ParseCompositeID("tt123:1:5")
	if show != "tt123" || season != 1 || episode != 5 {
		t.Errorf("got (%q, %d, %d)", show, season, episode)
	}
	show, season, episode = ParseCompositeID("tt123")
	if show != "tt123" || season != 0 || episode != 0 {
		t.Errorf("got (%q, %d, %d)", show, season, episode)
	}
}
