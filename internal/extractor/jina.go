package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// removeSelectors are stripped server-side by the rendering endpoint: ad
// containers, popups and banner iframes that would otherwise pollute the
// Markdown body.
const removeSelectors = ".ad,.ads,.advertisement,.ad-container,.google-ad,.adsense,.adsbygoogle," +
	".popup,.modal,.overlay,.mask,.dialog," +
	".banner,.top-banner,.bottom-banner,.side-banner," +
	"#ad,#ads,#advertisement," +
	"[class*='ad-'],[class*='ads-'],[id*='ad-'],[id*='ads-']," +
	"iframe[src*='ad'],iframe[src*='ads'],iframe[src*='doubleclick']"

// JinaBackend extracts content through the Jina Reader rendering endpoint
// (r.jina.ai), which fetches and converts a page to Markdown server-side.
type JinaBackend struct {
	APIKey        string // optional - works without auth but with rate limits
	BaseURL       string // overridable for testing
	Timeout       time.Duration
	IncludeImages bool
	client        *http.Client
}

// NewJinaBackend creates a new Jina Reader extraction backend
func NewJinaBackend(apiKey string, timeout time.Duration) *JinaBackend {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &JinaBackend{
		APIKey:  apiKey,
		BaseURL: "https://r.jina.ai/",
		Timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the backend identifier
func (j *JinaBackend) Name() string {
	return "jina"
}

// Extract issues exactly one request to the rendering endpoint and maps the
// response onto a Result. Non-success statuses become UpstreamError, except
// 429 which is surfaced as RateLimited so callers can back off longer.
func (j *JinaBackend) Extract(ctx context.Context, rawURL string) *Result {
	if bad := validateURL(rawURL); bad != nil {
		return bad
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.BaseURL+rawURL, nil)
	if err != nil {
		return failure(rawURL, KindUpstreamError, "jina: failed to create request: "+err.Error())
	}

	req.Header.Set("X-Return-Format", "markdown")
	req.Header.Set("X-Timeout", strconv.Itoa(int(j.Timeout.Seconds())))
	req.Header.Set("X-With-Generated-Alt", "false")
	req.Header.Set("X-With-Images-Summary", strconv.FormatBool(j.IncludeImages))
	req.Header.Set("X-Remove-Selector", removeSelectors)
	if j.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+j.APIKey)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return failure(rawURL, KindTimeout, fmt.Sprintf("jina: request timed out after %s", j.Timeout))
		}
		return failure(rawURL, KindUpstreamError, "jina: request failed: "+err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(rawURL, KindUpstreamError, "jina: failed to read response: "+err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			return failure(rawURL, KindRateLimited, "jina: rate limited - consider adding an API key")
		}
		return failure(rawURL, KindUpstreamError, fmt.Sprintf("jina: HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	content := string(body)
	if !j.IncludeImages {
		content = removeAdImages(content)
	}
	content = cleanMarkdown(content)

	if content == "" {
		return failure(rawURL, KindUpstreamError, "jina: empty response body")
	}

	result := newResult(rawURL, titleFromMarkdown(content), content)
	result.Author = resp.Header.Get("X-Author")
	result.PublishedAt = resp.Header.Get("X-Publish-Date")
	return result
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// titleFromMarkdown returns the first heading, or failing that the first
// non-empty line capped at 100 runes.
func titleFromMarkdown(content string) string {
	var firstLine string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if title := strings.TrimSpace(strings.TrimLeft(line, "#")); title != "" {
				return title
			}
			continue
		}
		if firstLine == "" {
			firstLine = line
		}
	}
	if r := []rune(firstLine); len(r) > 100 {
		return string(r[:100])
	}
	return firstLine
}

var (
	mdImageRe   = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	htmlImageRe = regexp.MustCompile(`(?i)<img[^>]*>`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// adKeywords flag images whose URL or alt text identifies them as ads.
var adKeywords = []string{
	"ad", "ads", "advertisement", "banner", "popup",
	"doubleclick", "googlesyndication", "adservice",
	"sponsor", "promo", "promotion",
}

// removeAdImages drops ad images from Markdown while keeping article images.
func removeAdImages(content string) string {
	content = mdImageRe.ReplaceAllStringFunc(content, func(m string) string {
		sub := mdImageRe.FindStringSubmatch(m)
		if containsAdKeyword(sub[1]) || containsAdKeyword(sub[2]) {
			return ""
		}
		return m
	})
	return htmlImageRe.ReplaceAllStringFunc(content, func(m string) string {
		if containsAdKeyword(m) {
			return ""
		}
		return m
	})
}

func containsAdKeyword(s string) bool {
	s = strings.ToLower(s)
	for _, kw := range adKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// cleanMarkdown collapses runs of blank lines and trims trailing whitespace.
func cleanMarkdown(content string) string {
	content = blankRunRe.ReplaceAllString(content, "\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
