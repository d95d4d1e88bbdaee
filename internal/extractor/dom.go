package extractor

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength gates the selector cascade: anything shorter is assumed to
// be navigation chrome rather than the article body.
const minContentLength = 100

// contentSelectors is the article-container cascade, in priority order.
var contentSelectors = []string{
	"article",
	".article-content",
	".post-content",
	".entry-content",
	".content",
	".main-content",
	"#article-content",
	"#content",
	"main",
}

// titleSelectors pairs a selector with the attribute carrying the value
// ("text" meaning element text).
var titleSelectors = []selectorAttr{
	{"meta[property='og:title']", "content"},
	{"meta[name='twitter:title']", "content"},
	{"article h1", "text"},
	{"h1", "text"},
	{".article-title", "text"},
	{".post-title", "text"},
	{"title", "text"},
}

var authorSelectors = []selectorAttr{
	{"meta[name='author']", "content"},
	{"meta[property='article:author']", "content"},
	{".author", "text"},
	{".author-name", "text"},
	{".post-author", "text"},
	{"[rel='author']", "text"},
}

var publishedSelectors = []selectorAttr{
	{"meta[property='article:published_time']", "content"},
	{"meta[name='publish_date']", "content"},
	{"time", "datetime"},
	{"time", "text"},
	{".publish-date", "text"},
	{".post-date", "text"},
	{".entry-date", "text"},
}

type selectorAttr struct {
	selector string
	attr     string
}

// firstMatch walks a selector cascade and returns the first non-empty value.
func firstMatch(doc *goquery.Document, cascade []selectorAttr) string {
	for _, sa := range cascade {
		sel := doc.Find(sa.selector).First()
		if sel.Length() == 0 {
			continue
		}
		var value string
		if sa.attr == "text" {
			value = sel.Text()
		} else {
			value = sel.AttrOr(sa.attr, "")
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func docTitle(doc *goquery.Document) string {
	return firstMatch(doc, titleSelectors)
}

func docAuthor(doc *goquery.Document) string {
	return firstMatch(doc, authorSelectors)
}

func docPublished(doc *goquery.Document) string {
	return firstMatch(doc, publishedSelectors)
}

// articleMarkdown turns a fully rendered HTML document into a Markdown body.
// It tries the container cascade first, then readability over the whole
// document, then the bare body text.
func articleMarkdown(doc *goquery.Document, html, pageURL string, includeImages bool) string {
	doc.Find("script, style, noscript").Remove()
	removeUnwanted(doc)

	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		inner, err := sel.Html()
		if err != nil {
			continue
		}
		if body := htmlToMarkdown(inner, includeImages); len(body) >= minContentLength {
			return body
		}
	}

	if article, err := readability.FromReader(strings.NewReader(html), nil); err == nil {
		if body := htmlToMarkdown(article.Content, includeImages); len(body) >= minContentLength {
			return body
		}
		if text := cleanMarkdown(article.TextContent); text != "" {
			return text
		}
	}

	return cleanMarkdown(doc.Find("body").Text())
}

// unwantedSelectors remove ads, popups and overlay chrome before conversion.
var unwantedSelectors = []string{
	".ad", ".ads", ".advertisement", ".ad-container",
	".google-ad", ".adsense", ".adsbygoogle",
	"#ad", "#ads", "#advertisement",
	"[class*='ad-']", "[class*='ads-']",
	"[id*='ad-']", "[id*='ads-']",
	".popup", ".modal", ".overlay", ".mask",
	".dialog", ".lightbox",
	".banner", ".top-banner", ".bottom-banner", ".side-banner",
	"iframe[src*='ad']", "iframe[src*='ads']",
	"iframe[src*='doubleclick']", "iframe[src*='googlesyndication']",
	"nav", "footer", "aside",
}

func removeUnwanted(doc *goquery.Document) {
	for _, selector := range unwantedSelectors {
		doc.Find(selector).Remove()
	}
}

// htmlToMarkdown converts an HTML fragment to cleaned Markdown, optionally
// stripping images.
func htmlToMarkdown(html string, includeImages bool) string {
	body, err := md.ConvertString(html)
	if err != nil {
		return ""
	}
	if !includeImages {
		body = mdImageRe.ReplaceAllString(body, "")
		body = htmlImageRe.ReplaceAllString(body, "")
	}
	return cleanMarkdown(body)
}
