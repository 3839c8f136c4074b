package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// TMDB translates IMDb ids into TMDB ids via the find endpoint.
type TMDB struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewTMDB creates a TMDB client. An empty apiKey disables lookups.
func NewTMDB(apiKey string) *TMDB {
	return &TMDB{
		apiKey:  apiKey,
		baseURL: tmdbBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether the client has an API key.
func (t *TMDB) Enabled() bool { return t.apiKey != "" }

// FindByIMDB resolves an IMDb id ("tt0133093") to a TMDB numeric id.
// Returns 0 when TMDB does not know the id.
func (t *TMDB) FindByIMDB(ctx context.Context, imdbID string) (int64, error) {
	if !t.Enabled() {
		return 0, nil
	}

	q := url.Values{}
	q.Set("api_key", t.apiKey)
	q.Set("external_source", "imdb_id")
	u := fmt.Sprintf("%s/find/%s?%s", t.baseURL, url.PathEscape(imdbID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("finding %s: %w", imdbID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("finding %s: unexpected status %d", imdbID, resp.StatusCode)
	}

	var out struct {
		MovieResults []struct {
			ID int64 `json:"id"`
		} `json:"movie_results"`
		TVResults []struct {
			ID int64 `json:"id"`
		} `json:"tv_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding find response for %s: %w", imdbID, err)
	}

	if len(out.MovieResults) > 0 {
		return out.MovieResults[0].ID, nil
	}
	if len(out.TVResults) > 0 {
		return out.TVResults[0].ID, nil
	}
	return 0, nil
}
