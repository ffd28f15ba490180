package extraction

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// harvestCSS finds the page's linked stylesheets and fetches them
// concurrently. Harvesting is best-effort: unparseable documents, bad
// hrefs, and failed fetches are logged and skipped.
func (f *Fetcher) harvestCSS(ctx context.Context, html, pageURL string) string {
	urls := f.stylesheetURLs(html, pageURL)
	if len(urls) == 0 {
		return ""
	}
	if len(urls) > maxStylesheets {
		urls = urls[:maxStylesheets]
	}

	sheets := make([]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, cssURL := range urls {
		g.Go(func() error {
			css, err := f.fetchCSS(gctx, cssURL)
			if err != nil {
				f.log.WithField("url", cssURL).Warnf("stylesheet fetch failed: %v", err)
				return nil
			}
			sheets[i] = fmt.Sprintf("/* From: %s */\n%s", cssURL, css)
			return nil
		})
	}
	_ = g.Wait()

	var parts []string
	for _, s := range sheets {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// stylesheetURLs extracts the absolute URLs of the document's
// link[rel=stylesheet] references, resolved against the page URL.
func (f *Fetcher) stylesheetURLs(html, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		f.log.WithField("url", pageURL).Warnf("failed to parse HTML for stylesheets: %v", err)
		return nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var urls []string
	seen := make(map[string]bool)
	doc.Find(`link[rel="stylesheet"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		abs := resolved.String()
		if !seen[abs] {
			seen[abs] = true
			urls = append(urls, abs)
		}
	})
	return urls
}
