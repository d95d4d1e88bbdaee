package extractor

import (
	"context"
	"net/url"
)

// Backend is one concrete strategy for turning a URL into extracted content.
// Extract always returns a non-nil Result; failures are reported through the
// result's error kind, never through panics or raw errors.
type Backend interface {
	// Name returns the unique identifier for this backend
	Name() string

	// Extract fetches and extracts content from a URL
	Extract(ctx context.Context, rawURL string) *Result
}

// validateURL checks that rawURL is an absolute http(s) URL. On failure it
// returns an InvalidUrl result so that no backend work is attempted.
func validateURL(rawURL string) *Result {
	u, err := url.Parse(rawURL)
	if err != nil {
		return failure(rawURL, KindInvalidURL, "invalid URL: "+err.Error())
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return failure(rawURL, KindInvalidURL, "invalid URL: expected absolute http(s) URL, got "+rawURL)
	}
	return nil
}
