// Package geocode wraps a rate-limited place-lookup service.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Result represents the single best match for a place query.
type Result struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Geocoder resolves a place name to coordinates.
// A nil Result with nil error means the provider found no match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Client is a Nominatim search client with bounded retries and an
// in-memory result cache. All upstream calls pass through the shared
// limiter, so lookups are strictly sequential.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *Limiter
	maxRetries int
	backoff    time.Duration
	cache      *gocache.Cache
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL    string        // default: https://nominatim.openstreetmap.org/search
	UserAgent  string        // identifies the app per the provider's usage policy
	MaxRetries int           // retry attempts after a transient failure (default 2)
	Backoff    time.Duration // wait between attempts (default 2s)
	CacheTTL   time.Duration // how long resolved lookups are kept (default 1h)
	Timeout    time.Duration // per-request HTTP timeout (default 10s)
}

// cached is the cache entry shape; a miss from the provider is cached
// too, so repeated unknown names skip the network and the limiter.
type cached struct {
	result *Result
}

// NewClient creates a geocoding client. The limiter is required and
// shared across every consumer in the process.
func NewClient(limiter *Limiter, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://nominatim.openstreetmap.org/search"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "claimgis_demo_app"
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	if opts.Backoff == 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		cache:      gocache.New(opts.CacheTTL, 10*time.Minute),
	}
}

// Geocode resolves query to the single best match.
// Returns (nil, nil) when the provider has no match. Transient failures
// are retried up to MaxRetries times with Backoff between attempts.
func (c *Client) Geocode(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	key := strings.ToLower(query)
	if entry, found := c.cache.Get(key); found {
		return entry.(cached).result, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, retryable, err := c.lookup(ctx, query)
		if err == nil {
			c.cache.SetDefault(key, cached{result: result})
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, lastErr
}

// lookup performs one provider round-trip. The second return value
// reports whether the failure is worth retrying.
func (c *Client) lookup(ctx context.Context, query string) (*Result, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("geocode status: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("geocode status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}

	// Nominatim encodes lat/lon as strings
	var places []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 {
		return nil, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse lon: %w", err)
	}

	return &Result{Lat: lat, Lon: lon, DisplayName: places[0].DisplayName}, false, nil
}
