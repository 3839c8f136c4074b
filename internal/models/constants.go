package models

// Content types as they appear in client requests and catalog rows.
const (
	ContentTypeMovie  = "movie"
	ContentTypeSeries = "series"
	ContentTypeTV     = "tv"
)

// Provenance tags recording which resolution tier produced a candidate.
const (
	ProvenanceExact    = "exact"
	ProvenanceFuzzy    = "fuzzy"
	ProvenanceFallback = "fallback"
)

// Freshness marker resource keys.
const (
	KeyCatalogFetch        = "last_catalog_fetch"
	KeyLiveCategoriesFetch = "last_live_categories_fetch"
	KeyLiveEPGFetch        = "last_epg_fetch"
	KeyGuideUpdate         = "last_epg_update"
)

// GlobalTenant scopes resources that are shared across tenants (the XMLTV
// guide feed is one download for everyone).
const GlobalTenant = "global"
