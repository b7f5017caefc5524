// Package crawler drives the crawl: a rate-limited fetcher, a bounded
// worker pool, a FIFO frontier scheduler, and the anti-bot checkpoint.
package crawler

import (
	"context"
	"fmt"
)

// Fetcher retrieves the raw body of a URL. Implementations handle
// transport concerns only; robot detection and parsing happen above.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TransportError wraps a fetch failure with the URL that caused it.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
