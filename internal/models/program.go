package models

import "time"

// Program is one guide entry from the XMLTV feed. Start and Stop hold
// RFC3339 UTC strings when the provider timestamp parsed, or the raw
// provider string when it did not. RFC3339 strings compare
// lexicographically in time order, so window queries stay plain string
// comparisons either way.
type Program struct {
	ID          int64     `json:"id,omitempty"`
	Channel     string    `json:"channel"`
	Start       string    `json:"start"`
	Stop        string    `json:"stop"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
