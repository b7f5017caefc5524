package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit keeps the fetch cadence well under the point
	// where the site starts challenging.
	DefaultRateLimit = 1.0

	// DefaultUserAgent matches a desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:70.0) Gecko/20100101 Firefox/70.0"

	maxBodyBytes = 4 << 20
)

// HTTPFetcher is a rate-limited Fetcher that presents browser headers.
type HTTPFetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithRateLimit sets the sustained requests-per-second limit.
func WithRateLimit(rps float64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewHTTPFetcher creates a fetcher with browser-like defaults.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch waits for the rate limiter, issues a GET with browser headers,
// and returns the body. Non-2xx statuses and transport failures come
// back as *TransportError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return body, nil
}
