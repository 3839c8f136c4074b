// Package xtream talks to Xtream-codes compatible IPTV provider panels.
package xtream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Credentials identify one provider account. The hash of the credentials is
// used as the tenant id so the same account always maps to the same rows.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Hash returns a stable tenant id derived from the credentials.
func (c Credentials) Hash() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s:%s", c.Host, c.Port, c.Username, c.Password)))
	return hex.EncodeToString(sum[:])[:16]
}

func (c Credentials) baseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// Client wraps the provider's player_api endpoint.
type Client struct {
	creds     Credentials
	client    *http.Client
	userAgent string
}

// New creates a Client for the given account.
func New(creds Credentials, userAgent string) *Client {
	return &Client{
		creds:     creds,
		client:    &http.Client{Timeout: 20 * time.Second},
		userAgent: userAgent,
	}
}

// Credentials returns the account this client talks for.
func (c *Client) Credentials() Credentials { return c.creds }

// TenantID returns the tenant id for this client's account.
func (c *Client) TenantID() string { return c.creds.Hash() }

// CallAction performs one player_api call and returns the raw JSON body.
func (c *Client) CallAction(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("username", c.creds.Username)
	q.Set("password", c.creds.Password)
	if action != "" {
		q.Set("action", action)
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	u := c.creds.baseURL() + "/player_api.php?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calling %s: unexpected status %d", action, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", action, err)
	}
	return body, nil
}

// ValidateCredentials checks the account by listing VOD categories. Panels
// answer bad credentials with a non-array body, which fails the decode.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	if _, err := c.VODCategories(ctx); err != nil {
		return fmt.Errorf("validating credentials for %s: %w", c.creds.Username, err)
	}
	return nil
}

// VODCategory is one category from get_vod_categories.
type VODCategory struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// VODCategories returns the provider's movie categories.
func (c *Client) VODCategories(ctx context.Context) ([]VODCategory, error) {
	raw, err := c.CallAction(ctx, "get_vod_categories", nil)
	if err != nil {
		return nil, err
	}
	var out []VODCategory
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding vod categories: %w", err)
	}
	return out, nil
}

// flexInt decodes panel fields that arrive as either a number or a string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	// Some panels emit floats for ids.
	var fl float64
	if err := json.Unmarshal(data, &fl); err != nil {
		return err
	}
	*f = flexInt(int64(fl))
	return nil
}

// Int64 returns the decoded value.
func (f flexInt) Int64() int64 { return int64(f) }

// VODStream is one movie entry from get_vod_streams.
type VODStream struct {
	StreamID           flexInt `json:"stream_id"`
	Name               string  `json:"name"`
	StreamIcon         string  `json:"stream_icon"`
	Rating             string  `json:"rating"`
	Genre              string  `json:"genre"`
	Plot               string  `json:"plot"`
	TMDBID             flexInt `json:"tmdb"`
	ReleaseDate        string  `json:"releasedate"`
	ContainerExtension string  `json:"container_extension"`
	CategoryID         string  `json:"category_id"`
}

// SeriesEntry is one series from get_series.
type SeriesEntry struct {
	SeriesID    flexInt `json:"series_id"`
	Name        string  `json:"name"`
	Cover       string  `json:"cover"`
	Plot        string  `json:"plot"`
	Genre       string  `json:"genre"`
	Rating      string  `json:"rating"`
	TMDBID      flexInt `json:"tmdb"`
	ReleaseDate string  `json:"releaseDate"`
	CategoryID  string  `json:"category_id"`
}

// LiveCategoryEntry is one category from get_live_categories.
type LiveCategoryEntry struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// LiveStream is one channel from get_live_streams.
type LiveStream struct {
	StreamID     flexInt `json:"stream_id"`
	Name         string  `json:"name"`
	StreamIcon   string  `json:"stream_icon"`
	EPGChannelID string  `json:"epg_channel_id"`
	CategoryID   string  `json:"category_id"`
	Number       flexInt `json:"num"`
}

// VODStreams returns the provider's full movie list.
func (c *Client) VODStreams(ctx context.Context) ([]VODStream, error) {
	raw, err := c.CallAction(ctx, "get_vod_streams", nil)
	if err != nil {
		return nil, err
	}
	var out []VODStream
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding vod streams: %w", err)
	}
	return out, nil
}

// Series returns the provider's full series list.
func (c *Client) Series(ctx context.Context) ([]SeriesEntry, error) {
	raw, err := c.CallAction(ctx, "get_series", nil)
	if err != nil {
		return nil, err
	}
	var out []SeriesEntry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding series: %w", err)
	}
	return out, nil
}

// LiveCategories returns the provider's live TV categories.
func (c *Client) LiveCategories(ctx context.Context) ([]LiveCategoryEntry, error) {
	raw, err := c.CallAction(ctx, "get_live_categories", nil)
	if err != nil {
		return nil, err
	}
	var out []LiveCategoryEntry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding live categories: %w", err)
	}
	return out, nil
}

// LiveStreams returns the channels of one category, or all channels when
// categoryID is empty.
func (c *Client) LiveStreams(ctx context.Context, categoryID string) ([]LiveStream, error) {
	params := url.Values{}
	if categoryID != "" {
		params.Set("category_id", categoryID)
	}
	raw, err := c.CallAction(ctx, "get_live_streams", params)
	if err != nil {
		return nil, err
	}
	var out []LiveStream
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding live streams: %w", err)
	}
	return out, nil
}

// VODInfo is the detail payload for one movie.
type VODInfo struct {
	MovieData struct {
		StreamID           flexInt `json:"stream_id"`
		ContainerExtension string  `json:"container_extension"`
	} `json:"movie_data"`
}

// VODInfoFor fetches the detail payload for one movie id.
func (c *Client) VODInfoFor(ctx context.Context, streamID int64) (*VODInfo, error) {
	params := url.Values{}
	params.Set("vod_id", strconv.FormatInt(streamID, 10))
	raw, err := c.CallAction(ctx, "get_vod_info", params)
	if err != nil {
		return nil, err
	}
	var out VODInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding vod info: %w", err)
	}
	return &out, nil
}

// Episode is one episode from get_series_info.
type Episode struct {
	ID                 string  `json:"id"`
	EpisodeNum         flexInt `json:"episode_num"`
	ContainerExtension string  `json:"container_extension"`
}

// SeriesInfo is the detail payload for one series. Episodes are keyed by
// season number.
type SeriesInfo struct {
	Episodes map[string][]Episode `json:"episodes"`
}

// SeriesInfoFor fetches the detail payload for one series id.
func (c *Client) SeriesInfoFor(ctx context.Context, seriesID int64) (*SeriesInfo, error) {
	params := url.Values{}
	params.Set("series_id", strconv.FormatInt(seriesID, 10))
	raw, err := c.CallAction(ctx, "get_series_info", params)
	if err != nil {
		return nil, err
	}
	var out SeriesInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding series info: %w", err)
	}
	return &out, nil
}

// LiveURL builds the playable URL for one live channel.
func (c *Client) LiveURL(streamID int64) string {
	return fmt.Sprintf("%s/live/%s/%s/%d.ts",
		c.creds.baseURL(), c.creds.Username, c.creds.Password, streamID)
}

// MovieURL resolves the playable URL for one movie, asking the panel for the
// container extension and defaulting to mp4 when the lookup fails.
func (c *Client) MovieURL(ctx context.Context, streamID int64) string {
	ext := "mp4"
	if info, err := c.VODInfoFor(ctx, streamID); err == nil && info.MovieData.ContainerExtension != "" {
		ext = info.MovieData.ContainerExtension
	}
	return fmt.Sprintf("%s/movie/%s/%s/%d.%s",
		c.creds.baseURL(), c.creds.Username, c.creds.Password, streamID, ext)
}

// SeriesEpisodeURL resolves the playable URL for one episode of a series.
func (c *Client) SeriesEpisodeURL(ctx context.Context, seriesID int64, season, episode int) (string, error) {
	info, err := c.SeriesInfoFor(ctx, seriesID)
	if err != nil {
		return "", err
	}
	eps, ok := info.Episodes[strconv.Itoa(season)]
	if !ok {
		return "", fmt.Errorf("series %d has no season %d", seriesID, season)
	}
	for _, ep := range eps {
		if ep.EpisodeNum.Int64() == int64(episode) {
			ext := ep.ContainerExtension
			if ext == "" {
				ext = "mp4"
			}
			return fmt.Sprintf("%s/series/%s/%s/%s.%s",
				c.creds.baseURL(), c.creds.Username, c.creds.Password, ep.ID, ext), nil
		}
	}
	return "", fmt.Errorf("series %d season %d has no episode %d", seriesID, season, episode)
}
