// Package clients provides the shared HTTP client used by registry
// collectors: retries with exponential backoff, per-host circuit breakers,
// DNS caching and an LRU response cache for URLs fetched more than once in a
// run (repository lookups in particular repeat across registries).
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/agentstation/mcpmap/pkg/errors"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	defaultCacheSize  = 512
	defaultUserAgent  = "mcpmap/1.0"

	// maxResponseBytes bounds a single registry response body.
	maxResponseBytes = 10 << 20
)

// Client is an HTTP client for registry APIs.
type Client struct {
	http       *http.Client
	userAgent  string
	headers    map[string]string
	maxRetries int
	baseDelay  time.Duration

	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker

	cache *lru.Cache[string, []byte]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeader sets a header sent on every request, typically an
// Authorization header for authenticated registries.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithMaxRetries sets the maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff between retries.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// New creates a client with DNS caching, retry and circuit breaking.
func New(opts ...Option) *Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	cache, _ := lru.New[string, []byte](defaultCacheSize)

	c := &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP")
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent:  defaultUserAgent,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		breakers:   make(map[string]*circuit.Breaker),
		cache:      cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches a URL and unmarshals the JSON response into v.
// Successful responses are served from the LRU cache on repeat requests.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	if data, ok := c.cache.Get(rawURL); ok {
		return json.Unmarshal(data, v)
	}

	host := extractHost(rawURL)
	breaker := c.breaker(host)
	if !breaker.Ready() {
		return &errors.APIError{
			Source:   host,
			Message:  "circuit breaker open",
			Endpoint: rawURL,
			Err:      errors.ErrSourceUnavailable,
		}
	}

	var data []byte
	err := breaker.Call(func() error {
		var fetchErr error
		data, fetchErr = c.getWithRetry(ctx, rawURL)
		return fetchErr
	}, 0)
	if err != nil {
		return err
	}

	c.cache.Add(rawURL, data)
	return json.Unmarshal(data, v)
}

// getWithRetry fetches with exponential backoff and 10% jitter, retrying
// rate limits and server errors only.
func (c *Client) getWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			delay += time.Duration(float64(delay) * (rand.Float64() * 0.1))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		data, err := c.get(ctx, rawURL)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if errors.IsNotFound(err) {
			return nil, err
		}
		if errors.IsRateLimited(err) || errors.IsSourceUnavailable(err) {
			continue
		}
		return nil, err
	}

	return nil, lastErr
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	host := extractHost(rawURL)
	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		return data, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, &errors.APIError{
			Source: host, StatusCode: resp.StatusCode, Message: "not found",
			Endpoint: rawURL, Err: errors.ErrNotFound,
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.NewAPIError(host, resp.StatusCode, "rate limited")

	case resp.StatusCode >= 500:
		return nil, errors.NewAPIError(host, resp.StatusCode, "upstream unavailable")

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.NewAPIError(host, resp.StatusCode, string(body))
	}
}

// breaker returns or creates the circuit breaker for a host. Breakers trip
// after 5 consecutive failures and back off exponentially.
func (c *Client) breaker(host string) *circuit.Breaker {
	c.mu.RLock()
	breaker, exists := c.breakers[host]
	c.mu.RUnlock()
	if exists {
		return breaker
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if breaker, exists := c.breakers[host]; exists {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	c.breakers[host] = breaker
	return breaker
}

// extractHost extracts a host for circuit breaker grouping.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
