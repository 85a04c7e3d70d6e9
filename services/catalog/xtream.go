package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	xtreamListTimeout = 60 * time.Second
	xtreamInfoTimeout = 30 * time.Second
	xtreamRetries     = 3
	// Response size caps; the full VOD list of a large provider can run to
	// tens of megabytes.
	xtreamListLimit = 50 * 1024 * 1024
	xtreamInfoLimit = 1 * 1024 * 1024
)

// looseString decodes a JSON string, number, or null into a string. Xtream
// providers are inconsistent about numeric fields.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(b)
	return nil
}

// String returns the decoded value.
func (s looseString) String() string { return string(s) }

// Float parses the value as a float, returning 0 when missing or malformed.
func (s looseString) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		return 0
	}
	return f
}

// xtreamVODStream is one entry of the get_vod_streams listing.
type xtreamVODStream struct {
	StreamID   json.Number `json:"stream_id"`
	Name       string      `json:"name"`
	StreamIcon string      `json:"stream_icon"`
	Rating     looseString `json:"rating"`
	CategoryID looseString `json:"category_id"`
}

// xtreamVODInfo is the metadata block of a get_vod_info response.
type xtreamVODInfo struct {
	TMDBID      looseString `json:"tmdb_id"`
	Name        string      `json:"name"`
	Genre       string      `json:"genre"`
	Cast        string      `json:"cast"`
	Director    string      `json:"director"`
	Description string      `json:"description"`
	Rating      looseString `json:"rating"`
}

// xtreamSeries is one entry of the get_series listing.
type xtreamSeries struct {
	SeriesID   json.Number `json:"series_id"`
	TMDB       looseString `json:"tmdb"`
	Name       string      `json:"name"`
	Cover      string      `json:"cover"`
	Plot       string      `json:"plot"`
	Genre      string      `json:"genre"`
	Rating     looseString `json:"rating"`
	CategoryID looseString `json:"category_id"`
}

// xtreamClient talks to an Xtream-codes player API.
type xtreamClient struct {
	baseURL  string
	username string
	password string
	httpc    *http.Client
}

func newXtreamClient(baseURL, username, password string, httpc *http.Client) *xtreamClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: xtreamListTimeout}
	}
	return &xtreamClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpc:    httpc,
	}
}

func (c *xtreamClient) apiURL(action string, extra url.Values) string {
	q := url.Values{}
	q.Set("username", c.username)
	q.Set("password", c.password)
	q.Set("action", action)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return fmt.Sprintf("%s?%s", c.baseURL, q.Encode())
}

// get performs a player API request, retrying transient failures. A non-2xx
// response is returned as nil body with no error: the provider being
// unhappy means "no data", not a hard failure.
func (c *xtreamClient) get(ctx context.Context, apiURL string, limit int64, timeout time.Duration) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, apiURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				body = nil
				return nil
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, limit))
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(xtreamRetries),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// fetchAllMovies fetches the full VOD stream listing. Missing data (non-2xx
// or undecodable payload) degrades to an empty list.
func (c *xtreamClient) fetchAllMovies(ctx context.Context) ([]xtreamVODStream, error) {
	body, err := c.get(ctx, c.apiURL("get_vod_streams", nil), xtreamListLimit, xtreamListTimeout)
	if err != nil {
		return nil, fmt.Errorf("fetch vod streams: %w", err)
	}
	if len(body) == 0 {
		return nil, nil
	}

	var streams []xtreamVODStream
	if err := json.Unmarshal(body, &streams); err != nil {
		return nil, nil
	}
	return streams, nil
}

// fetchMovieInfo fetches detail metadata for one VOD stream. Returns nil
// with no error when the provider has no usable response; ok reports
// whether the info payload was a metadata object at all (some providers
// return an empty array for unknown ids).
func (c *xtreamClient) fetchMovieInfo(ctx context.Context, streamID int) (info *xtreamVODInfo, ok bool, err error) {
	extra := url.Values{"vod_id": []string{strconv.Itoa(streamID)}}
	body, err := c.get(ctx, c.apiURL("get_vod_info", extra), xtreamInfoLimit, xtreamInfoTimeout)
	if err != nil {
		return nil, false, fmt.Errorf("fetch vod info %d: %w", streamID, err)
	}
	if len(body) == 0 {
		return nil, false, nil
	}

	var envelope struct {
		Info json.RawMessage `json:"info"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false, nil
	}

	raw := bytes.TrimSpace(envelope.Info)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false, nil
	}

	var decoded xtreamVODInfo
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, false, nil
	}
	return &decoded, true, nil
}

// fetchAllSeries fetches the full series listing. Missing data degrades to
// an empty list.
func (c *xtreamClient) fetchAllSeries(ctx context.Context) ([]xtreamSeries, error) {
	body, err := c.get(ctx, c.apiURL("get_series", nil), xtreamListLimit, xtreamListTimeout)
	if err != nil {
		return nil, fmt.Errorf("fetch series: %w", err)
	}
	if len(body) == 0 {
		return nil, nil
	}

	var series []xtreamSeries
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, nil
	}
	return series, nil
}
