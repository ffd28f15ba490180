package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const browserTimeout = 45 * time.Second

// stylesheetJS reads every accessible CSSStyleSheet rule from the rendered
// page. Cross-origin sheets throw on access and are skipped.
const stylesheetJS = `
(() => {
	let css = '';
	for (const sheet of document.styleSheets) {
		try {
			for (const rule of sheet.cssRules) {
				css += rule.cssText + '\n';
			}
		} catch (e) {
			// cross-origin stylesheet, not readable
		}
	}
	return css;
})()
`

// browserFetch returns a function that renders a URL in a headless browser
// and captures the post-JavaScript document together with its stylesheet
// rules. chromePath optionally pins the browser executable.
func browserFetch(chromePath string) func(ctx context.Context, url string) (string, error) {
	return func(ctx context.Context, url string) (string, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if chromePath != "" {
			opts = append(opts, chromedp.ExecPath(chromePath))
		}

		allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
		defer cancel()

		browserCtx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		browserCtx, cancel = context.WithTimeout(browserCtx, browserTimeout)
		defer cancel()

		var html, css string
		err := chromedp.Run(browserCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body"),
			// Give client-side rendering a moment to settle.
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(stylesheetJS, &css),
			chromedp.OuterHTML("html", &html),
		)
		if err != nil {
			return "", fmt.Errorf("browser rendering failed: %w", err)
		}

		if css != "" {
			html += "\n<style>/* Extracted computed styles */\n" + css + "\n</style>"
		}
		return html, nil
	}
}
