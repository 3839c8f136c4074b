// Package freshness decides whether a tenant-scoped cached resource is
// stale. The persisted FreshnessMarker is the only synchronization state:
// two concurrent callers can both observe staleness and both refresh, which
// is accepted because every refresh is idempotent.
package freshness

import (
	"context"
	"errors"
	"time"

	"github.com/voyagen/streamvault/internal/store"
)

// Refresh windows for the resources the surrounding system caches.
const (
	CatalogWindow        = 6 * time.Hour
	LiveCategoriesWindow = 2 * time.Hour
	LiveLinkageWindow    = 1 * time.Hour
	GuideWindow          = 12 * time.Hour
)

// MarkerStore is the slice of store.Store the controller needs.
type MarkerStore interface {
	GetFreshness(ctx context.Context, tenantID, resourceKey string) (time.Time, error)
	SetFreshness(ctx context.Context, tenantID, resourceKey string, at time.Time) error
}

// Controller answers staleness questions against persisted markers.
type Controller struct {
	store MarkerStore
	now   func() time.Time
}

// New creates a Controller over the given marker store.
func New(s MarkerStore) *Controller {
	return &Controller{store: s, now: time.Now}
}

// ShouldRefresh reports whether the (tenant, key) resource needs a refresh:
// true when no marker exists or when the marker is at least window old.
func (c *Controller) ShouldRefresh(ctx context.Context, tenantID, resourceKey string, window time.Duration) (bool, error) {
	last, err := c.store.GetFreshness(ctx, tenantID, resourceKey)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return c.now().Sub(last) >= window, nil
}

// MarkRefreshed sets the marker to now, unconditionally. Call it only after
// the corresponding refresh actually succeeded, or the resource will be
// reported fresh while holding stale data.
func (c *Controller) MarkRefreshed(ctx context.Context, tenantID, resourceKey string) error {
	return c.store.SetFreshness(ctx, tenantID, resourceKey, c.now())
}
