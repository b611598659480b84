package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies tiledl to tile servers.
const DefaultUserAgent = "MapTileDownloader/1.0"

// StatusError is returned for any response other than 200 OK.
//
// Use errors.As to inspect the status code:
//
//	var se *http.StatusError
//	if errors.As(err, &se) && se.Code == 404 { ... }
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
}

// Options configures a Client.
type Options struct {
	// Timeout bounds one request, including reading the body.
	// Default: 10s
	Timeout time.Duration

	// UserAgent is sent with every request.
	// Default: DefaultUserAgent
	UserAgent string

	// RequestsPerSecond caps the request rate across all goroutines using
	// the client. Zero disables limiting.
	RequestsPerSecond float64

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// DefaultOptions returns the options used by tile downloads.
func DefaultOptions() Options {
	return Options{
		Timeout:   10 * time.Second,
		UserAgent: DefaultUserAgent,
	}
}

// Client wraps HTTP operations for tile servers.
//
// Client provides:
//   - A User-Agent header; many tile servers reject anonymous clients
//   - Per-request timeout handling
//   - Optional client-side rate limiting
//   - Strict 200-only success semantics
//
// Example usage:
//
//	client := NewClient(DefaultOptions())
//	data, err := client.Get(ctx, "https://a.tile.openstreetmap.org/3/4/2.png")
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates a new HTTP client. Zero option fields take their
// defaults.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		userAgent: opts.UserAgent,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// Get performs a GET request and returns the response body as bytes.
//
// The request includes the configured User-Agent header.
//
// Returns an error if:
//   - The rate limiter wait is cancelled
//   - The request fails
//   - The response status is not 200 OK (*StatusError)
//   - Reading the body fails
//
// Example:
//
//	data, err := client.Get(ctx, "https://tiles.example.org/3/4/2.png")
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	return io.ReadAll(resp.Body)
}
