package quotes

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/etnz/allocator"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// client holds what remote providers have in common.
type client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	log      zerolog.Logger
	currency string
	cacheDir string
}

// Option configures a remote provider.
type Option func(*client)

// WithBaseURL sets the API root.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *client) { c.http = h }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *client) { c.log = log }
}

// WithRateLimit sets the maximum number of requests per second.
func WithRateLimit(perSecond int) Option {
	return func(c *client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithCurrency sets the currency of prices the API does not qualify.
func WithCurrency(code string) Option {
	return func(c *client) { c.currency = code }
}

// WithDailyCache keeps responses in dir until the end of the day.
func WithDailyCache(dir string) Option {
	return func(c *client) { c.cacheDir = dir }
}

func newClient(baseURL string, opts []Option) client {
	c := client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: DefaultTimeout},
		limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:      zerolog.Nop(),
		currency: allocator.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.cacheDir != "" {
		base := c.http.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.http = &http.Client{
			Timeout:   c.http.Timeout,
			Transport: &dailyCache{base: base, dir: c.cacheDir, log: c.log},
		}
	}
	return c
}

// getJSON performs a rate limited GET and decodes the JSON body into a
// generic document for jsonpath.
func (c *client) getJSON(ctx context.Context, addr string) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; alloc)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	c.log.Debug().Str("method", req.Method).Str("host", req.URL.Host).Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("remote call")
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return doc, nil
}

// dailyCache is an http.RoundTripper keeping successful responses on disk.
// The cache key includes the current day so entries expire every day.
type dailyCache struct {
	base http.RoundTripper
	dir  string
	log  zerolog.Logger
	// today defaults to the current local date.
	today func() string
}

func (c *dailyCache) key(req *http.Request) string {
	day := time.Now().Format(time.DateOnly)
	if c.today != nil {
		day = c.today()
	}
	return fmt.Sprintf("%x", sha1.Sum([]byte(day+" "+req.Method+" "+req.URL.String())))
}

func (c *dailyCache) RoundTrip(req *http.Request) (*http.Response, error) {
	key := c.key(req)
	if resp, err := c.get(key, req); err == nil {
		return resp, nil
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		c.log.Warn().Err(err).Msg("cache write failed (ignored)")
	}
	return resp, nil
}

func (c *dailyCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores resp on disk. DumpResponse leaves the body readable.
func (c *dailyCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0o644)
}
