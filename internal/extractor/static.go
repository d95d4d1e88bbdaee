package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// CookieSource supplies cookies for a target URL, typically read from a local
// browser profile. A nil source means no cookie injection.
type CookieSource interface {
	CookiesFor(rawURL string) []*http.Cookie
}

// StaticBackend fetches the page over plain HTTP and runs article extraction
// on the unrendered HTML. It is the cheapest backend and only works for
// server-rendered pages, so it belongs at the front of a fallback chain.
type StaticBackend struct {
	Timeout       time.Duration
	UserAgent     string // custom user agent; empty picks from the pool
	BrowserAgent  string // pool family when UserAgent is empty
	IncludeImages bool
	Cookies       CookieSource

	client    *http.Client
	userAgent *UserAgentSelector
}

func NewStaticBackend(timeout time.Duration) *StaticBackend {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &StaticBackend{
		Timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: NewUserAgentSelector(),
	}
}

// Name returns the backend identifier
func (s *StaticBackend) Name() string {
	return "static"
}

func (s *StaticBackend) Extract(ctx context.Context, rawURL string) *Result {
	if bad := validateURL(rawURL); bad != nil {
		return bad
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failure(rawURL, KindUpstreamError, "static: failed to create request: "+err.Error())
	}

	userAgent := s.UserAgent
	if userAgent == "" {
		userAgent = s.userAgent.GetUserAgent(s.BrowserAgent)
	}
	req.Header.Set("User-Agent", userAgent)

	// Headers that make the request look like a real browser.
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Cache-Control", "max-age=0")

	if s.Cookies != nil {
		for _, cookie := range s.Cookies.CookiesFor(rawURL) {
			req.AddCookie(cookie)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return failure(rawURL, KindTimeout, fmt.Sprintf("static: request timed out after %s", s.Timeout))
		}
		return failure(rawURL, KindUpstreamError, "static: request failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return failure(rawURL, KindRateLimited, "static: rate limited by origin")
		}
		return failure(rawURL, KindUpstreamError, fmt.Sprintf("static: HTTP %d %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(rawURL, KindUpstreamError, "static: failed to read response body: "+err.Error())
	}

	html := string(body)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return failure(rawURL, KindUpstreamError, "static: failed to parse HTML: "+err.Error())
	}

	content := articleMarkdown(doc, html, rawURL, s.IncludeImages)
	if len(content) < minContentLength {
		// Likely a JS-rendered shell; let a rendering backend take over.
		return failure(rawURL, KindUpstreamError, fmt.Sprintf("static: content too short (%d chars), page likely needs rendering", len(content)))
	}

	result := newResult(rawURL, docTitle(doc), content)
	result.Author = docAuthor(doc)
	result.PublishedAt = docPublished(doc)
	return result
}
