package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// ChromeBackend extracts content by rendering the page in a headless Chrome
// instance. The browser process is shared across calls and started lazily on
// first use; every extraction runs in its own tab so that concurrent callers
// render in parallel. Close releases the browser.
type ChromeBackend struct {
	Headless        bool
	Timeout         time.Duration
	Settle          time.Duration // post-ready grace for late network activity
	WaitForSelector string        // optional content-ready selector
	UserAgent       string
	IncludeImages   bool

	startOnce sync.Once
	allocCtx  context.Context
	allocStop context.CancelFunc
	startErr  error
}

// NewChromeBackend creates a headless-browser extraction backend. The
// renderer is not started until the first Extract call.
func NewChromeBackend(timeout time.Duration) *ChromeBackend {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ChromeBackend{
		Headless: true,
		Timeout:  timeout,
		Settle:   time.Second,
	}
}

// Name returns the backend identifier
func (c *ChromeBackend) Name() string {
	return "chrome"
}

// start launches the shared exec allocator. Called at most once.
func (c *ChromeBackend) start() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if c.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.UserAgent))
	}
	c.allocCtx, c.allocStop = chromedp.NewExecAllocator(context.Background(), opts...)
}

// Close shuts down the browser process if it was ever started.
func (c *ChromeBackend) Close() error {
	if c.allocStop != nil {
		c.allocStop()
	}
	return nil
}

// Extract renders the URL in a fresh tab and converts the resulting DOM to a
// Result. The tab is released on every exit path.
func (c *ChromeBackend) Extract(ctx context.Context, rawURL string) (result *Result) {
	if bad := validateURL(rawURL); bad != nil {
		return bad
	}

	// Unexpected renderer faults must not escape the backend boundary.
	defer func() {
		if r := recover(); r != nil {
			result = failure(rawURL, KindRenderError, fmt.Sprintf("chrome: renderer panic: %v", r))
		}
	}()

	c.startOnce.Do(c.start)
	if c.startErr != nil {
		return failure(rawURL, KindRenderError, "chrome: failed to start browser: "+c.startErr.Error())
	}

	tabCtx, closeTab := chromedp.NewContext(c.allocCtx)
	defer closeTab()

	runCtx, cancel := context.WithTimeout(tabCtx, c.Timeout)
	defer cancel()
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-runCtx.Done():
			}
		}()
	}

	tasks := []chromedp.Action{
		chromedp.Navigate(rawURL),
	}
	if c.WaitForSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(c.WaitForSelector))
	} else {
		tasks = append(tasks, chromedp.WaitReady("body"))
	}
	if c.Settle > 0 {
		// Late XHR content: give the page a moment after the ready condition.
		tasks = append(tasks, chromedp.Sleep(c.Settle))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return failure(rawURL, KindNavigationTimeout, fmt.Sprintf("chrome: page did not become ready within %s", c.Timeout))
		}
		return failure(rawURL, KindRenderError, "chrome: "+err.Error())
	}

	return c.resultFromHTML(rawURL, html)
}

// resultFromHTML parses the rendered DOM into a Result.
func (c *ChromeBackend) resultFromHTML(rawURL, html string) *Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return failure(rawURL, KindRenderError, "chrome: failed to parse rendered DOM: "+err.Error())
	}

	title := docTitle(doc)
	author := docAuthor(doc)
	published := docPublished(doc)

	content := articleMarkdown(doc, html, rawURL, c.IncludeImages)
	if content == "" {
		return failure(rawURL, KindRenderError, "chrome: no readable content in rendered page")
	}

	result := newResult(rawURL, title, content)
	result.Author = author
	result.PublishedAt = published
	return result
}
