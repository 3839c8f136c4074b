package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/voyagen/streamvault/internal/store"
)

// IdentityOracle translates an IMDb id into the provider-side numeric id
// space. A zero result with nil error means the oracle does not know the id.
type IdentityOracle interface {
	FindByIMDB(ctx context.Context, imdbID string) (int64, error)
}

// Resolver maps external canonical ids to secondary ids, backed by a
// permanent mapping table. Unresolved ids are not cached, so every call for
// an unknown id asks the oracle again.
type Resolver struct {
	store  store.Store
	oracle IdentityOracle
}

// NewResolver creates a Resolver.
func NewResolver(s store.Store, o IdentityOracle) *Resolver {
	return &Resolver{store: s, oracle: o}
}

// Resolve returns the secondary id for externalID, or 0 when unknown.
// Composite series ids ("tt123:1:5") resolve at the show level.
func (r *Resolver) Resolve(ctx context.Context, externalID string) (int64, error) {
	id := StripEpisodeSuffix(externalID)
	if id == "" {
		return 0, nil
	}

	cached, err := r.store.GetIdentityMapping(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("reading identity mapping for %s: %w", id, err)
	}

	secondary, err := r.oracle.FindByIMDB(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", id, err)
	}
	if secondary <= 0 {
		return 0, nil
	}

	if err := r.store.PutIdentityMapping(ctx, id, secondary); err != nil {
		log.Printf("[match] caching identity mapping %s: %v", id, err)
	}
	return secondary, nil
}

// StripEpisodeSuffix reduces a composite ":season:episode" id to its
// show-level part.
func StripEpisodeSuffix(externalID string) string {
	if i := strings.Index(externalID, ":"); i >= 0 {
		return externalID[:i]
	}
	return externalID
}
