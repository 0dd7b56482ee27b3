package feather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Routes served by Feather.
const (
	RouteConfig      = "/config"
	RouteLogs        = "/logs"
	RoutePerformance = "/performance"
	RouteObservers   = "/observers"
	RoutePlugins     = "/plugins"
)

// APIKeyHeader carries the configured key on every request.
const APIKeyHeader = "x-api-key"

// DefaultTimeout bounds each request when Options.Timeout is zero.
const DefaultTimeout = 3 * time.Second

// productID identifies this client to the /config endpoint.
const productID = "feather"

// maxBodyBytes caps how much of a response body is decoded.
const maxBodyBytes = 64 << 20

// ErrUnexpectedStatus is wrapped by errors for non-2xx responses.
var ErrUnexpectedStatus = errors.New("feather: unexpected status")

// Options configures a Client.
type Options struct {
	// BaseURL is "scheme://host:port" with no trailing slash.
	BaseURL string

	// APIKey is sent as x-api-key when non-empty.
	APIKey string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// Transport overrides the base round tripper, for tests.
	Transport http.RoundTripper
}

// Client talks to one Feather server. The base URL, key and timeout may be
// changed at runtime; in-flight requests keep the values they started with.
//
// Client is safe for concurrent use.
type Client struct {
	http *http.Client
	auth *authRoundTripper

	mu      sync.RWMutex
	baseURL string
	timeout time.Duration
}

// authRoundTripper injects the API key into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper

	mu  sync.RWMutex
	key string
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	key := t.key
	t.mu.RUnlock()

	if key != "" {
		req = req.Clone(req.Context())
		req.Header.Set(APIKeyHeader, key)
	}
	return t.base.RoundTrip(req)
}

func (t *authRoundTripper) setKey(key string) {
	t.mu.Lock()
	t.key = key
	t.mu.Unlock()
}

func (t *authRoundTripper) getKey() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.key
}

// New returns a Client for opts.
func New(opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	auth := &authRoundTripper{base: base, key: opts.APIKey}
	return &Client{
		http:    &http.Client{Transport: auth},
		auth:    auth,
		timeout: timeout,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// SetServer points the client at a new base URL and API key.
func (c *Client) SetServer(baseURL, apiKey string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.mu.Unlock()
	c.auth.setKey(apiKey)
}

// BaseURL returns the current server base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// APIKey returns the key sent with every request.
func (c *Client) APIKey() string { return c.auth.getKey() }

// SetTimeout changes the per-request bound. Zero or less means DefaultTimeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Timeout returns the per-request bound.
func (c *Client) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

// do performs one request bounded by the client timeout and decodes a JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, out any) error {
	c.mu.RLock()
	base, timeout := c.baseURL, c.timeout
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := base + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("feather: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("feather: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return fmt.Errorf("%w %d from %s %s", ErrUnexpectedStatus, resp.StatusCode, method, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("feather: decode %s: %w", path, err)
	}
	return nil
}

// doRaw is like do but returns the raw body for callers that handle several
// response shapes.
func (c *Client) doRaw(ctx context.Context, method, path string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, method, path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
