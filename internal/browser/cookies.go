// Package browser reads cookies from local browser profiles so the static
// extraction backend can fetch pages that require an existing login session.
package browser

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register all browser store readers
)

type BrowserType string

const (
	BrowserAuto    BrowserType = "auto"
	BrowserChrome  BrowserType = "chrome"
	BrowserFirefox BrowserType = "firefox"
	BrowserSafari  BrowserType = "safari"
)

// CookieJar implements extractor.CookieSource on top of the local browser
// cookie stores. Lookups traverse the stores on demand; a failed or empty
// lookup simply yields no cookies.
type CookieJar struct {
	browserType BrowserType
}

func NewCookieJar(browserType BrowserType) *CookieJar {
	if browserType == "" {
		browserType = BrowserAuto
	}
	return &CookieJar{browserType: browserType}
}

// CookiesFor returns the stored cookies matching the target URL's domain.
func (j *CookieJar) CookiesFor(rawURL string) []*http.Cookie {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil
	}

	var cookies []*http.Cookie
	for cookie, err := range kooky.TraverseCookies(context.Background()) {
		if err != nil {
			continue
		}
		if !j.matchesBrowser(cookie.Browser) || !matchesDomain(cookie.Domain, parsed.Hostname()) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		})
	}
	return cookies
}

func (j *CookieJar) matchesBrowser(info kooky.BrowserInfo) bool {
	if j.browserType == BrowserAuto {
		return true
	}
	name := strings.ToLower(info.Browser())
	switch j.browserType {
	case BrowserChrome:
		return strings.Contains(name, "chrome") || strings.Contains(name, "chromium")
	case BrowserFirefox:
		return strings.Contains(name, "firefox")
	case BrowserSafari:
		return strings.Contains(name, "safari")
	}
	return false
}

func matchesDomain(cookieDomain, targetDomain string) bool {
	if cookieDomain == "" || targetDomain == "" {
		return false
	}
	cookieDomain = strings.TrimPrefix(cookieDomain, ".")
	return cookieDomain == targetDomain || strings.HasSuffix(targetDomain, "."+cookieDomain)
}
