// Package extraction implements the brand extraction pipeline: source
// fetching with browser-automation fallback, CSS harvesting, multi-source
// aggregation, and AI synthesis of the design system.
package extraction

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonathan/brandforge/internal/logger"
)

const (
	// Direct fetch bounds.
	fetchTimeout = 30 * time.Second
	maxRedirects = 10
	maxBodyBytes = 5 * 1024 * 1024

	// CSS fetch bounds (smaller: stylesheets are best-effort).
	cssFetchTimeout = 10 * time.Second
	maxCSSBytes     = 2 * 1024 * 1024
	maxStylesheets  = 5

	userAgent = "Mozilla/5.0 (compatible; BrandForge/1.0; +https://brandforge.dev)"
)

// Error represents an error while fetching a brand source.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// PageContent holds the captured content for one URL source.
type PageContent struct {
	HTML string
	CSS  string
	// UsedBrowser reports that the browser fallback captured the page.
	// The rendered document already carries its stylesheet rules, so
	// CSS harvesting is skipped.
	UsedBrowser bool
}

// Fetcher retrieves brand source pages, falling back to headless browser
// automation when the direct fetch fails.
type Fetcher struct {
	client    *http.Client
	cssClient *http.Client
	browse    func(ctx context.Context, url string) (string, error)
	log       *logger.Logger
}

// NewFetcher creates a fetcher. chromePath optionally pins the browser
// executable used by the fallback.
func NewFetcher(log *logger.Logger, chromePath string) *Fetcher {
	checkRedirect := func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:       fetchTimeout,
			CheckRedirect: checkRedirect,
		},
		cssClient: &http.Client{
			Timeout:       cssFetchTimeout,
			CheckRedirect: checkRedirect,
		},
		browse: browserFetch(chromePath),
		log:    log.WithComponent("fetch"),
	}
}

// Fetch retrieves a URL. The direct path applies the timeout, redirect,
// and size bounds; any direct failure triggers the browser fallback. The
// source is exhausted only when both paths fail.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*PageContent, error) {
	html, directErr := f.direct(ctx, rawURL)
	if directErr != nil {
		f.log.WithField("url", rawURL).Warnf("direct fetch failed (%v), falling back to browser", directErr)

		rendered, browserErr := f.browse(ctx, rawURL)
		if browserErr != nil {
			return nil, &Error{
				URL:     rawURL,
				Message: fmt.Sprintf("direct fetch: %v; browser fetch: %v", directErr, browserErr),
			}
		}
		return &PageContent{HTML: rendered, UsedBrowser: true}, nil
	}

	return &PageContent{
		HTML: html,
		CSS:  f.harvestCSS(ctx, html, rawURL),
	}, nil
}

// direct performs the primary HTTP GET with bounded timeout, redirect
// ceiling, and response size.
func (f *Fetcher) direct(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}
	if len(body) > maxBodyBytes {
		return "", &Error{URL: rawURL, Message: fmt.Sprintf("response body exceeds %d bytes", maxBodyBytes)}
	}

	return string(body), nil
}

// fetchCSS retrieves a single stylesheet with the smaller CSS bounds.
func (f *Fetcher) fetchCSS(ctx context.Context, cssURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cssURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.cssClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCSSBytes+1))
	if err != nil {
		return "", err
	}
	if len(body) > maxCSSBytes {
		return "", fmt.Errorf("stylesheet exceeds %d bytes", maxCSSBytes)
	}

	return string(body), nil
}
