package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voyagen/streamvault/internal/freshness"
	"github.com/voyagen/streamvault/internal/models"
	"github.com/voyagen/streamvault/internal/store"
	"github.com/voyagen/streamvault/internal/xtream"
)

type fakeProvider struct {
	vodCalls  int
	liveCalls int
	catCalls  int
}

func (f *fakeProvider) TenantID() string { return "t1" }

func (f *fakeProvider) VODStreams(context.Context) ([]xtream.VODStream, error) {
	f.vodCalls++
	return []xtream.VODStream{
		{StreamID: 7, TMDBID: 603, Name: "Movie With TMDB", Plot: "plot", Rating: "7.1", Genre: "Action", ReleaseDate: "1999-03-31"},
		{StreamID: 8, Name: "Movie Without TMDB"},
	}, nil
}

func (f *fakeProvider) Series(context.Context) ([]xtream.SeriesEntry, error) {
	return []xtream.SeriesEntry{{Name: "Some Show"}}, nil
}

func (f *fakeProvider) LiveCategories(context.Context) ([]xtream.LiveCategoryEntry, error) {
	f.catCalls++
	return []xtream.LiveCategoryEntry{{CategoryID: "10", CategoryName: "News"}}, nil
}

func (f *fakeProvider) LiveStreams(context.Context, string) ([]xtream.LiveStream, error) {
	f.liveCalls++
	return []xtream.LiveStream{
		{Name: "News 24", EPGChannelID: "news.example", CategoryID: "10"},
	}, nil
}

func TestRefreshCatalogMapsEntries(t *testing.T) {
	mem := store.NewMemory()
	p := &fakeProvider{}
	s := NewSyncer(mem, p, freshness.New(mem))
	ctx := context.Background()

	if err := s.RefreshCatalog(ctx); err != nil {
		t.Fatalf("RefreshCatalog: %v", err)
	}
	if len(mem.Catalog) != 3 {
		t.Fatalf("want 3 catalog entries, got %d", len(mem.Catalog))
	}

	byInternal := map[int64]models.CatalogEntry{}
	for _, e := range mem.Catalog {
		byInternal[e.InternalID] = e
	}
	withTMDB := byInternal[7]
	if withTMDB.CanonicalID != "tt603" || withTMDB.SecondaryID != "603" {
		t.Errorf("tmdb-backed entry: got canonical=%q secondary=%q", withTMDB.CanonicalID, withTMDB.SecondaryID)
	}
	if withTMDB.ReleaseInfo != "1999" {
		t.Errorf("release info: want 1999, got %q", withTMDB.ReleaseInfo)
	}
	withoutTMDB := byInternal[8]
	if withoutTMDB.CanonicalID != "streamvault:8" || withoutTMDB.SecondaryID != "" {
		t.Errorf("fallback entry: got canonical=%q secondary=%q", withoutTMDB.CanonicalID, withoutTMDB.SecondaryID)
	}
}

func TestRefreshCatalogTTLGate(t *testing.T) {
	mem := store.NewMemory()
	p := &fakeProvider{}
	s := NewSyncer(mem, p, freshness.New(mem))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.RefreshCatalog(ctx); err != nil {
			t.Fatalf("RefreshCatalog %d: %v", i, err)
		}
	}
	// Marker is fresh after the first run, so the provider is hit once.
	if p.vodCalls != 1 {
		t.Errorf("provider fetches: want 1, got %d", p.vodCalls)
	}
}

func TestCanonicalIDFallback(t *testing.T) {
	if got := canonicalID(603, 7); got != "tt603" {
		t.Errorf("with tmdb: want tt603, got %q", got)
	}
	if got := canonicalID(0, 7); got != "streamvault:7" {
		t.Errorf("without tmdb: want streamvault:7, got %q", got)
	}
}

func TestRefreshLiveChannelsJoinsCategoryName(t *testing.T) {
	mem := store.NewMemory()
	p := &fakeProvider{}
	s := NewSyncer(mem, p, freshness.New(mem))
	ctx := context.Background()

	if err := s.RefreshLiveChannels(ctx); err != nil {
		t.Fatalf("RefreshLiveChannels: %v", err)
	}
	if len(mem.LiveChans) != 1 {
		t.Fatalf("want 1 channel, got %d", len(mem.LiveChans))
	}
	if mem.LiveChans[0].CategoryName != "News" {
		t.Errorf("category name: want News, got %q", mem.LiveChans[0].CategoryName)
	}

	// A second call inside the linkage window skips the provider.
	if err := s.RefreshLiveChannels(ctx); err != nil {
		t.Fatalf("RefreshLiveChannels again: %v", err)
	}
	if p.liveCalls != 1 {
		t.Errorf("live fetches: want 1, got %d", p.liveCalls)
	}
}

func TestLiveChannelMetaCarriesGuide(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC)
	mem.Programs = []models.Program{
		{Channel: "news.example", Start: "2024-01-15T06:00:00Z", Stop: "2024-01-15T07:00:00Z", Title: "Morning Report", Description: "Headlines"},
		{Channel: "news.example", Start: "2024-01-15T07:00:00Z", Stop: "2024-01-15T08:00:00Z", Title: "Midday Update"},
	}

	s := NewSyncer(mem, &fakeProvider{}, freshness.New(mem))
	s.now = func() time.Time { return now }

	meta := s.LiveChannelMeta(context.Background(), models.LiveChannel{
		TenantID:     "t1",
		StreamID:     5,
		Name:         "News 24",
		EPGChannelID: "news.example",
		CategoryName: "News",
	})

	if meta.Type != models.ContentTypeTV {
		t.Errorf("type: want tv, got %q", meta.Type)
	}
	if !strings.Contains(meta.Description, "Now: Morning Report") {
		t.Errorf("description missing current programme: %q", meta.Description)
	}
	if !strings.Contains(meta.Description, "Next: Midday Update") {
		t.Errorf("description missing next programme: %q", meta.Description)
	}
}

func TestLiveChannelMetaWithoutLinkage(t *testing.T) {
	mem := store.NewMemory()
	s := NewSyncer(mem, &fakeProvider{}, freshness.New(mem))

	meta := s.LiveChannelMeta(context.Background(), models.LiveChannel{StreamID: 5, Name: "News 24"})
	if meta.Description != "" {
		t.Errorf("no linkage must leave description empty, got %q", meta.Description)
	}
}
