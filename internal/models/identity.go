package models

import "time"

// IdentityMapping is a permanent canonical-id → secondary-id cross reference
// (IMDb → TMDB). No TTL: created on first successful lookup, read forever.
type IdentityMapping struct {
	CanonicalID string `json:"canonical_id"`
	SecondaryID int64  `json:"secondary_id"`
}

// FreshnessMarker records the last successful refresh of a tenant-scoped
// resource. It is the only synchronization state for TTL decisions.
type FreshnessMarker struct {
	TenantID      string    `json:"tenant_id"`
	ResourceKey   string    `json:"resource_key"`
	LastFetchedAt time.Time `json:"last_fetched_at"`
}
