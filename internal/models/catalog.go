package models

// CatalogEntry is one VOD item (movie or series) from the provider catalog,
// scoped to a tenant. SecondaryID holds the provider-reported TMDB id as raw
// text ("" when absent).
type CatalogEntry struct {
	ID          int64  `json:"id,omitempty"`
	TenantID    string `json:"tenant_id"`
	ContentType string `json:"content_type"` // ContentTypeMovie or ContentTypeSeries
	CanonicalID string `json:"canonical_id"`
	InternalID  int64  `json:"internal_id"`
	Title       string `json:"title"`
	Poster      string `json:"poster,omitempty"`
	Description string `json:"description,omitempty"`
	SecondaryID string `json:"secondary_id,omitempty"`
	ReleaseInfo string `json:"release_info,omitempty"`
	Rating      string `json:"rating,omitempty"`
	Genre       string `json:"genre,omitempty"`
}
