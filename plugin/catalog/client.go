// Package catalog is a client for a Kaggle-style public dataset catalog.
// It exposes the three calls the acquisition service consumes: metadata lookup,
// file download and free-text search.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hrygo/automl/ai/core/errclass"
	"github.com/hrygo/automl/ai/observability/logging"
)

const (
	DefaultBaseURL          = "https://www.kaggle.com/api/v1"
	DefaultTimeout          = 30 * time.Second
	DefaultMaxDownloadBytes = 200 << 20
)

// Config represents catalog client configuration.
type Config struct {
	BaseURL  string
	Username string
	Key      string
	Timeout  time.Duration
	// RequestsPerSecond caps outgoing calls; zero disables the limiter.
	RequestsPerSecond float64
	MaxDownloadBytes  int64
}

// Client talks to the catalog REST API. It is safe for concurrent use.
type Client struct {
	client   *http.Client
	baseURL  string
	username string
	key      string
	limiter  *rate.Limiter
	maxBytes int64
}

// NewClient validates credentials up front; missing credentials are a configuration error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Key == "" {
		return nil, fmt.Errorf("%w: catalog username and key are required", errclass.ErrConfiguration)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid catalog base url: %v", errclass.ErrConfiguration, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := cfg.MaxDownloadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:  baseURL,
		username: cfg.Username,
		key:      cfg.Key,
		limiter:  limiter,
		maxBytes: maxBytes,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Metadata fetches the catalog entry for ref ("owner/slug").
func (c *Client) Metadata(ctx context.Context, ref string) (*DatasetMetadata, error) {
	path, err := refPath("datasets/view", ref)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "metadata", path, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // cleanup

	var meta DatasetMetadata
	if err := decode(resp.Body, &meta); err != nil {
		return nil, err
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Download fetches the raw data file (usually a zip archive) for ref.
func (c *Client) Download(ctx context.Context, ref string) ([]byte, error) {
	path, err := refPath("datasets/download", ref)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "download", path, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // cleanup

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, errclass.Transient(fmt.Errorf("catalog download %s: %w", ref, err))
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("catalog download %s: payload exceeds %d bytes", ref, c.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("catalog download %s: %w", ref, errclass.ErrEmptyResult)
	}
	return data, nil
}

// Search returns datasets matching query, best match first.
func (c *Client) Search(ctx context.Context, query string) ([]DatasetSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("catalog search: empty query")
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("page", "1")

	resp, err := c.do(ctx, "search", "datasets/list", params)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // cleanup

	var results []DatasetSummary
	if err := decode(resp.Body, &results); err != nil {
		return nil, err
	}
	// Malformed hits are dropped; the search fails only when none remain.
	valid := results[:0]
	var firstErr error
	for i := range results {
		if err := results[i].validate(); err != nil {
			logging.FromContext(ctx).Warn("catalog: dropping search hit", "index", i, "query", query, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("catalog search result %d: %w", i, err)
			}
			continue
		}
		valid = append(valid, results[i])
	}
	if len(valid) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return valid, nil
}

// do issues an authenticated GET and maps non-2xx responses to classified errors.
func (c *Client) do(ctx context.Context, op, path string, params url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", op, err)
		}
	}

	endpoint := c.baseURL + "/" + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", op, err)
	}
	req.SetBasicAuth(c.username, c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errclass.Transient(fmt.Errorf("catalog %s: %w", op, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }() //nolint:errcheck // cleanup
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, errclass.Transient(statusErr)
		}
		return nil, statusErr
	}
	return resp, nil
}

// StatusError is a non-2xx catalog response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog %s: HTTP %d", e.Op, e.Code)
	}
	return fmt.Sprintf("catalog %s: HTTP %d: %s", e.Op, e.Code, e.Body)
}

func decode(r io.Reader, target any) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return errclass.Transient(err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errclass.ErrEmptyResult
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", errclass.ErrParse, err)
	}
	return nil
}

// refPath validates "owner/slug" and builds the escaped request path.
func refPath(prefix, ref string) (string, error) {
	owner, slug, ok := strings.Cut(strings.Trim(ref, "/ "), "/")
	if !ok || owner == "" || slug == "" || strings.Contains(slug, "/") {
		return "", fmt.Errorf("invalid dataset ref %q: want owner/slug", ref)
	}
	return prefix + "/" + url.PathEscape(owner) + "/" + url.PathEscape(slug), nil
}
