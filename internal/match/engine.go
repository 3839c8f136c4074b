package match

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/voyagen/streamvault/internal/models"
	"github.com/voyagen/streamvault/internal/store"
)

const fuzzyScoreFloor = 20

const (
	symbolExact    = "⭐"
	symbolFuzzy    = "🎯"
	symbolFallback = "📺"
)

const (
	tierLimit     = 50
	fallbackLimit = 100
)

// MetaOracle looks up descriptive metadata for an external content id.
type MetaOracle interface {
	Meta(ctx context.Context, contentType, id string) (*models.Meta, error)
}

// CatalogRefresher brings the tenant catalog up to date before matching.
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) error
}

// LivePlayback builds direct playback URLs for live channels.
type LivePlayback interface {
	LiveURL(streamID int64) string
}

// Engine resolves an external content id to ranked playback candidates
// through three tiers: exact secondary-id match, fuzzy title match, and a
// catalog sample fallback.
type Engine struct {
	store    store.Store
	meta     MetaOracle
	identity *Resolver
	catalog  CatalogRefresher
	live     LivePlayback
	tenant   string
}

// NewEngine creates an Engine for one tenant.
func NewEngine(s store.Store, meta MetaOracle, identity *Resolver, cat CatalogRefresher, live LivePlayback, tenant string) *Engine {
	return &Engine{store: s, meta: meta, identity: identity, catalog: cat, live: live, tenant: tenant}
}

// Resolve returns playback candidates for the given content id. It never
// fails: any unresolved dependency yields an empty result.
func (e *Engine) Resolve(ctx context.Context, contentType, externalID, baseURL string) []models.StreamCandidate {
	if contentType == "" || externalID == "" {
		return nil
	}

	if contentType == models.ContentTypeTV {
		return e.resolveLive(externalID)
	}

	meta, err := e.meta.Meta(ctx, contentType, StripEpisodeSuffix(externalID))
	if err != nil {
		log.Printf("[match] metadata lookup for %s: %v", externalID, err)
		return nil
	}
	if meta == nil {
		log.Printf("[match] no metadata for %s, returning empty", externalID)
		return nil
	}

	if err := e.catalog.RefreshCatalog(ctx); err != nil {
		log.Printf("[match] catalog refresh: %v", err)
	}

	secondaryID, err := e.identity.Resolve(ctx, externalID)
	if err != nil {
		log.Printf("[match] identity resolution for %s: %v", externalID, err)
		secondaryID = 0
	}

	matched := e.collect(ctx, contentType, meta.Name, secondaryID)
	for _, m := range matched {
		metricCandidates.WithLabelValues(m.provenance).Inc()
	}
	if contentType == models.ContentTypeSeries {
		return e.seriesCandidates(matched, externalID, baseURL)
	}
	return e.movieCandidates(matched, baseURL)
}

type scoredEntry struct {
	entry      models.CatalogEntry
	provenance string
	score      int
}

// collect runs the three matching tiers. Each catalog entry is tagged by
// the first tier that found it; the fallback tier runs only when the first
// two produced nothing.
func (e *Engine) collect(ctx context.Context, contentType, searchName string, secondaryID int64) []scoredEntry {
	var matched []scoredEntry
	seen := map[int64]bool{}

	if secondaryID > 0 {
		exact, err := e.store.FindCatalogBySecondaryID(ctx, e.tenant, contentType, secondaryID, tierLimit)
		if err != nil {
			log.Printf("[match] secondary id lookup: %v", err)
		}
		for _, en := range exact {
			matched = append(matched, scoredEntry{entry: en, provenance: models.ProvenanceExact})
			seen[en.InternalID] = true
		}
	}

	if searchName != "" {
		hits, err := e.store.SearchCatalog(ctx, e.tenant, contentType, searchName, tierLimit)
		if err != nil {
			log.Printf("[match] title search: %v", err)
		}
		var fuzzy []scoredEntry
		for _, en := range hits {
			if seen[en.InternalID] {
				continue
			}
			if s := Score(searchName, en.Title); s >= fuzzyScoreFloor {
				fuzzy = append(fuzzy, scoredEntry{entry: en, provenance: models.ProvenanceFuzzy, score: s})
			}
		}
		sort.SliceStable(fuzzy, func(i, j int) bool { return fuzzy[i].score > fuzzy[j].score })
		for _, f := range fuzzy {
			matched = append(matched, f)
			seen[f.entry.InternalID] = true
		}
	}

	if len(matched) == 0 {
		sample, err := e.store.SampleCatalog(ctx, e.tenant, contentType, fallbackLimit)
		if err != nil {
			log.Printf("[match] fallback sample: %v", err)
		}
		for _, en := range sample {
			matched = append(matched, scoredEntry{entry: en, provenance: models.ProvenanceFallback})
		}
	}
	return matched
}

func (e *Engine) resolveLive(externalID string) []models.StreamCandidate {
	raw := strings.TrimPrefix(externalID, "streamvault:")
	raw = strings.TrimPrefix(raw, "tv:")
	streamID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("[match] bad live stream id %q", externalID)
		return nil
	}
	return []models.StreamCandidate{{
		Title:      "Watch Now",
		URL:        e.live.LiveURL(streamID),
		BingeGroup: "streamvault-live",
	}}
}

func (e *Engine) movieCandidates(matched []scoredEntry, baseURL string) []models.StreamCandidate {
	out := make([]models.StreamCandidate, 0, len(matched))
	for _, m := range matched {
		out = append(out, models.StreamCandidate{
			Title:      fmt.Sprintf("%s %s", tierTag(m), DecorateTitle(m.entry.Title)),
			URL:        fmt.Sprintf("%s/redirect/movie/%d", baseURL, m.entry.InternalID),
			Provenance: m.provenance,
			Score:      m.score,
			BingeGroup: "streamvault-movie",
		})
	}
	return out
}

func (e *Engine) seriesCandidates(matched []scoredEntry, externalID, baseURL string) []models.StreamCandidate {
	_, season, episode := ParseCompositeID(externalID)
	code := fmt.Sprintf("S%02dE%02d", season, episode)
	out := make([]models.StreamCandidate, 0, len(matched))
	for _, m := range matched {
		out = append(out, models.StreamCandidate{
			Title:      fmt.Sprintf("%s %s %s", tierTag(m), code, DecorateTitle(m.entry.Title)),
			URL:        fmt.Sprintf("%s/redirect/series/%d/%d/%d", baseURL, m.entry.InternalID, season, episode),
			Provenance: m.provenance,
			Score:      m.score,
			BingeGroup: "streamvault-series",
		})
	}
	return out
}

func tierTag(m scoredEntry) string {
	switch m.provenance {
	case models.ProvenanceExact:
		return symbolExact
	case models.ProvenanceFuzzy:
		return fmt.Sprintf("%s%d%%", symbolFuzzy, m.score)
	default:
		return symbolFallback
	}
}

// ParseCompositeID splits "tt123:1:5" into its show id, season and episode.
// Missing or malformed parts come back as zero.
func ParseCompositeID(externalID string) (showID string, season, episode int) {
	parts := strings.SplitN(externalID, ":", 3)
	showID = parts[0]
	if len(parts) > 1 {
		season, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		episode, _ = strconv.Atoi(parts[2])
	}
	return showID, season, episode
}
