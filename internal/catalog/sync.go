// Package catalog keeps the per-tenant provider catalog and live channel
// listings mirrored into the store, gated by freshness windows.
package catalog

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/voyagen/streamvault/internal/freshness"
	"github.com/voyagen/streamvault/internal/models"
	"github.com/voyagen/streamvault/internal/store"
	"github.com/voyagen/streamvault/internal/xtream"
)

// Provider is the slice of the panel client the syncer needs.
type Provider interface {
	TenantID() string
	VODStreams(ctx context.Context) ([]xtream.VODStream, error)
	Series(ctx context.Context) ([]xtream.SeriesEntry, error)
	LiveCategories(ctx context.Context) ([]xtream.LiveCategoryEntry, error)
	LiveStreams(ctx context.Context, categoryID string) ([]xtream.LiveStream, error)
}

// Syncer mirrors provider listings into the store.
type Syncer struct {
	store    store.Store
	provider Provider
	fresh    *freshness.Controller
	now      func() time.Time
}

// NewSyncer creates a Syncer.
func NewSyncer(s store.Store, p Provider, f *freshness.Controller) *Syncer {
	return &Syncer{store: s, provider: p, fresh: f, now: time.Now}
}

// RefreshCatalog mirrors the movie and series listings when the catalog
// marker is stale. One provider fetch covers both content types, so they
// share a marker.
func (s *Syncer) RefreshCatalog(ctx context.Context) error {
	tenant := s.provider.TenantID()
	stale, err := s.fresh.ShouldRefresh(ctx, tenant, models.KeyCatalogFetch, freshness.CatalogWindow)
	if err != nil {
		return fmt.Errorf("checking catalog freshness: %w", err)
	}
	if !stale {
		return nil
	}

	movies, err := s.provider.VODStreams(ctx)
	if err != nil {
		return fmt.Errorf("fetching vod streams: %w", err)
	}
	series, err := s.provider.Series(ctx)
	if err != nil {
		return fmt.Errorf("fetching series: %w", err)
	}

	entries := make([]models.CatalogEntry, 0, len(movies)+len(series))
	for _, m := range movies {
		entries = append(entries, movieEntry(tenant, m))
	}
	for _, se := range series {
		entries = append(entries, seriesEntry(tenant, se))
	}

	if err := s.store.UpsertCatalogEntries(ctx, entries); err != nil {
		return fmt.Errorf("upserting catalog: %w", err)
	}
	if err := s.fresh.MarkRefreshed(ctx, tenant, models.KeyCatalogFetch); err != nil {
		return fmt.Errorf("marking catalog refreshed: %w", err)
	}
	log.Printf("[catalog] refreshed %d movies and %d series for tenant %s", len(movies), len(series), tenant)
	return nil
}

// RefreshLiveCategories mirrors the live category listing when its marker
// is stale.
func (s *Syncer) RefreshLiveCategories(ctx context.Context) error {
	tenant := s.provider.TenantID()
	stale, err := s.fresh.ShouldRefresh(ctx, tenant, models.KeyLiveCategoriesFetch, freshness.LiveCategoriesWindow)
	if err != nil {
		return fmt.Errorf("checking live category freshness: %w", err)
	}
	if !stale {
		return nil
	}

	cats, err := s.provider.LiveCategories(ctx)
	if err != nil {
		return fmt.Errorf("fetching live categories: %w", err)
	}
	rows := make([]models.LiveCategory, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, models.LiveCategory{
			TenantID:     tenant,
			CategoryID:   c.CategoryID,
			CategoryName: c.CategoryName,
		})
	}
	if err := s.store.UpsertLiveCategories(ctx, rows); err != nil {
		return fmt.Errorf("upserting live categories: %w", err)
	}
	if err := s.fresh.MarkRefreshed(ctx, tenant, models.KeyLiveCategoriesFetch); err != nil {
		return fmt.Errorf("marking live categories refreshed: %w", err)
	}
	log.Printf("[catalog] refreshed %d live categories for tenant %s", len(rows), tenant)
	return nil
}

// RefreshLiveChannels mirrors the full channel listing when the EPG linkage
// marker is stale. Channel rows carry the guide linkage (epg_channel_id), so
// this runs on the shorter linkage window.
func (s *Syncer) RefreshLiveChannels(ctx context.Context) error {
	tenant := s.provider.TenantID()
	stale, err := s.fresh.ShouldRefresh(ctx, tenant, models.KeyLiveEPGFetch, freshness.LiveLinkageWindow)
	if err != nil {
		return fmt.Errorf("checking live channel freshness: %w", err)
	}
	if !stale {
		return nil
	}

	if err := s.RefreshLiveCategories(ctx); err != nil {
		return err
	}
	names := map[string]string{}
	cats, err := s.store.ListLiveCategories(ctx, tenant)
	if err != nil {
		return fmt.Errorf("listing live categories: %w", err)
	}
	for _, c := range cats {
		names[c.CategoryID] = c.CategoryName
	}

	streams, err := s.provider.LiveStreams(ctx, "")
	if err != nil {
		return fmt.Errorf("fetching live streams: %w", err)
	}
	rows := make([]models.LiveChannel, 0, len(streams))
	for _, st := range streams {
		rows = append(rows, models.LiveChannel{
			TenantID:     tenant,
			StreamID:     st.StreamID.Int64(),
			EPGChannelID: st.EPGChannelID,
			CategoryID:   st.CategoryID,
			CategoryName: names[st.CategoryID],
			Name:         st.Name,
			Icon:         st.StreamIcon,
			Ordinal:      int(st.Number.Int64()),
		})
	}
	if err := s.store.UpsertLiveChannels(ctx, rows); err != nil {
		return fmt.Errorf("upserting live channels: %w", err)
	}
	if err := s.fresh.MarkRefreshed(ctx, tenant, models.KeyLiveEPGFetch); err != nil {
		return fmt.Errorf("marking live channels refreshed: %w", err)
	}
	log.Printf("[catalog] refreshed %d live channels for tenant %s", len(rows), tenant)
	return nil
}

// LiveChannelMeta builds a display meta for one channel, attaching the
// current and upcoming programme from the guide when the channel carries an
// EPG linkage.
func (s *Syncer) LiveChannelMeta(ctx context.Context, ch models.LiveChannel) models.Meta {
	meta := models.Meta{
		ID:     fmt.Sprintf("streamvault:tv:%d", ch.StreamID),
		Type:   models.ContentTypeTV,
		Name:   ch.Name,
		Poster: ch.Icon,
		Logo:   ch.Icon,
	}
	if ch.CategoryName != "" {
		meta.Genres = []string{ch.CategoryName}
	}
	if ch.EPGChannelID == "" {
		return meta
	}

	now := s.now()
	if cur, err := s.store.ProgramAt(ctx, ch.EPGChannelID, now); err == nil {
		meta.Description = "Now: " + cur.Title
		if cur.Description != "" {
			meta.Description += "\n" + cur.Description
		}
	}
	if next, err := s.store.NextProgram(ctx, ch.EPGChannelID, now, now.Add(12*time.Hour)); err == nil {
		if meta.Description != "" {
			meta.Description += "\n\n"
		}
		meta.Description += "Next: " + next.Title
	}
	return meta
}

func movieEntry(tenant string, m xtream.VODStream) models.CatalogEntry {
	tmdb := m.TMDBID.Int64()
	return models.CatalogEntry{
		TenantID:    tenant,
		ContentType: models.ContentTypeMovie,
		CanonicalID: canonicalID(tmdb, m.StreamID.Int64()),
		InternalID:  m.StreamID.Int64(),
		Title:       m.Name,
		Poster:      m.StreamIcon,
		Description: m.Plot,
		SecondaryID: secondaryID(tmdb),
		ReleaseInfo: releaseYear(m.ReleaseDate),
		Rating:      m.Rating,
		Genre:       m.Genre,
	}
}

func seriesEntry(tenant string, se xtream.SeriesEntry) models.CatalogEntry {
	tmdb := se.TMDBID.Int64()
	return models.CatalogEntry{
		TenantID:    tenant,
		ContentType: models.ContentTypeSeries,
		CanonicalID: canonicalID(tmdb, se.SeriesID.Int64()),
		InternalID:  se.SeriesID.Int64(),
		Title:       se.Name,
		Poster:      se.Cover,
		Description: se.Plot,
		SecondaryID: secondaryID(tmdb),
		ReleaseInfo: releaseYear(se.ReleaseDate),
		Rating:      se.Rating,
		Genre:       se.Genre,
	}
}

func canonicalID(tmdb, internal int64) string {
	if tmdb > 0 {
		return "tt" + strconv.FormatInt(tmdb, 10)
	}
	return fmt.Sprintf("streamvault:%d", internal)
}

func secondaryID(tmdb int64) string {
	if tmdb <= 0 {
		return ""
	}
	return strconv.FormatInt(tmdb, 10)
}

func releaseYear(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
