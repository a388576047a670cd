package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetries       = 2
	defaultRetryInterval = 500 * time.Millisecond

	// maxTorrentSize caps .torrent downloads; metadata files are small.
	maxTorrentSize = 10 << 20
)

// Client talks to the catalog service.
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	maxRetries    uint64
	retryInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets how many times transient analyze failures are retried.
func WithRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryInterval sets the initial retry backoff interval.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

// NewClient creates a catalog client for the given base URL and API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		maxRetries:    defaultRetries,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze asks the catalog to inspect a torrent and propose matches.
// Analyze is read-only, so transient failures are retried with exponential
// backoff before giving up. Rejected requests are not retried.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	var result AnalyzeResult

	op := func() error {
		err := c.postJSON(ctx, "/api/v1/analyze", req, &result)
		if err != nil && !errors.Is(err, ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)); err != nil {
		return nil, err
	}
	return &result, nil
}

// Import submits a torrent into the catalog. Import mutates remote state and
// is never retried here; the orchestrator owns retry semantics per item.
func (c *Client) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	var result ImportResult
	if err := c.postJSON(ctx, "/api/v1/import", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadTorrent fetches .torrent file bytes from a URL.
func (c *Client) DownloadTorrent(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download torrent: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTorrentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read torrent: %w", err)
	}
	if len(data) > maxTorrentSize {
		return nil, ErrTorrentTooLarge
	}
	return data, nil
}

// postJSON executes one JSON POST. Transport failures and 5xx/429 responses
// wrap ErrUnavailable; other non-2xx responses wrap ErrBadRequest.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	default:
		return fmt.Errorf("%w: %s", ErrBadRequest, resp.Status)
	}
}
