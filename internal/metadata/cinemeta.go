// Package metadata resolves titles and artwork from external catalogs.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/voyagen/streamvault/internal/cache"
	"github.com/voyagen/streamvault/internal/models"
)

const cinemetaBaseURL = "https://v3-cinemeta.strem.io"

// Cinemeta fetches public Stremio metadata for IMDb ids.
type Cinemeta struct {
	baseURL string
	client  *http.Client
	cache   *cache.Redis
}

// NewCinemeta creates a Cinemeta client. redisCache may be nil, in which
// case every lookup goes to the network.
func NewCinemeta(redisCache *cache.Redis) *Cinemeta {
	return &Cinemeta{
		baseURL: cinemetaBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   redisCache,
	}
}

// Meta looks up one title. A missing entry is reported as (nil, nil) so
// callers can distinguish "unknown id" from a transport failure.
func (c *Cinemeta) Meta(ctx context.Context, contentType, id string) (*models.Meta, error) {
	cacheKey := fmt.Sprintf("streamvault:meta:%s:%s", contentType, id)
	if c.cache != nil {
		if meta, err := cache.Get[models.Meta](ctx, c.cache, cacheKey); err == nil {
			return &meta, nil
		}
	}

	u := fmt.Sprintf("%s/meta/%s/%s.json", c.baseURL, contentType, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching meta for %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching meta for %s: unexpected status %d", id, resp.StatusCode)
	}

	var out struct {
		Meta *models.Meta `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding meta for %s: %w", id, err)
	}
	if out.Meta == nil || out.Meta.Name == "" {
		return nil, nil
	}

	if c.cache != nil {
		if err := cache.Set(ctx, c.cache, cacheKey, *out.Meta, 24*time.Hour); err != nil {
			log.Printf("[metadata] cache meta %s: %v", id, err)
		}
	}
	return out.Meta, nil
}
