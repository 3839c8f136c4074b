package models

// StreamCandidate is one playable result from content resolution.
type StreamCandidate struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Provenance string `json:"provenance"`
	Score      int    `json:"score,omitempty"` // similarity percentage, fuzzy tier only
	BingeGroup string `json:"binge_group,omitempty"`
}

// Meta is the descriptive metadata for a content id as reported by the
// external metadata oracle.
type Meta struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Genres      []string `json:"genres,omitempty"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	Description string   `json:"description,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
}
