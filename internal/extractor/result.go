package extractor

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrorKind classifies extraction failures. Expected failures (timeouts, rate
// limits, parse problems) travel as kinds on a Result, never as raw errors.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindInvalidURL        ErrorKind = "InvalidUrl"
	KindTimeout           ErrorKind = "Timeout"
	KindNavigationTimeout ErrorKind = "NavigationTimeout"
	KindRenderError       ErrorKind = "RenderError"
	KindUpstreamError     ErrorKind = "UpstreamError"
	KindRateLimited       ErrorKind = "RateLimited"
	KindAllBackendsFailed ErrorKind = "AllBackendsFailed"
)

// Result is the outcome of extracting one URL. It is constructed exactly once
// by a backend (or an error-path constructor) and never mutated afterwards.
type Result struct {
	SourceURL    string    `json:"source_url"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Platform     string    `json:"platform"`
	PlatformIcon string    `json:"platform_icon"`
	Author       string    `json:"author,omitempty"`
	PublishedAt  string    `json:"published_at,omitempty"`
	WordCount    int       `json:"word_count"`
	Succeeded    bool      `json:"succeeded"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

// newResult builds a successful result. The word count is always recomputed
// from the content, never trusted from upstream.
func newResult(sourceURL, title, content string) *Result {
	return &Result{
		SourceURL:    sourceURL,
		Title:        title,
		Content:      content,
		Platform:     platformFromURL(sourceURL),
		PlatformIcon: platformIcon(sourceURL),
		WordCount:    utf8.RuneCountInString(content),
		Succeeded:    content != "",
		ExtractedAt:  time.Now(),
	}
}

// failure builds a failed result for the given URL.
func failure(sourceURL string, kind ErrorKind, msg string) *Result {
	if msg == "" {
		msg = string(kind)
	}
	return &Result{
		SourceURL:    sourceURL,
		Platform:     platformFromURL(sourceURL),
		PlatformIcon: platformIcon(sourceURL),
		Succeeded:    false,
		ErrorKind:    kind,
		ErrorMessage: msg,
		ExtractedAt:  time.Now(),
	}
}

// knownPlatforms maps domains to human-readable site names.
var knownPlatforms = map[string]string{
	"zhihu.com":         "知乎",
	"juejin.cn":         "掘金",
	"csdn.net":          "CSDN",
	"jianshu.com":       "简书",
	"cnblogs.com":       "博客园",
	"oschina.net":       "开源中国",
	"infoq.cn":          "InfoQ",
	"toutiao.com":       "今日头条",
	"weixin.qq.com":     "微信公众号",
	"stackoverflow.com": "Stack Overflow",
	"medium.com":        "Medium",
	"github.com":        "GitHub",
}

// platformFromURL derives a site name from the URL host, preferring the known
// platform table and falling back to the first host label.
func platformFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)

	for domain, name := range knownPlatforms {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return name
		}
	}

	host = strings.TrimPrefix(host, "www.")
	if label, _, ok := strings.Cut(host, "."); ok && label != "" {
		return strings.ToUpper(label[:1]) + label[1:]
	}
	return host
}

// platformIcon returns a favicon URL for the site, via the Google favicon
// service the way the upstream record carries a platform logo.
func platformIcon(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=64", u.Host)
}
