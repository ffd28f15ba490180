package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const pdfTimeout = 90 * time.Second

// A4 portrait for reports; a 16:9 sheet for slides. Inches.
const (
	reportPaperWidth  = 8.27
	reportPaperHeight = 11.69
	slidesPaperWidth  = 10
	slidesPaperHeight = 5.63
)

// printToPDF renders the composed HTML in a headless browser and prints
// it to PDF. chromePath optionally pins the browser executable.
func printToPDF(ctx context.Context, html string, format Format, chromePath string) ([]byte, error) {
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

	browserCtx, cancel = context.WithTimeout(browserCtx, pdfTimeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		// Let web fonts and late layout settle before printing.
		chromedp.Sleep(1*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			params := page.PrintToPDF().WithPrintBackground(true)
			if format == FormatSlides {
				params = params.
					WithLandscape(true).
					WithPaperWidth(slidesPaperWidth).
					WithPaperHeight(slidesPaperHeight).
					WithMarginTop(0).
					WithMarginBottom(0).
					WithMarginLeft(0).
					WithMarginRight(0)
			} else {
				params = params.
					WithPaperWidth(reportPaperWidth).
					WithPaperHeight(reportPaperHeight)
			}
			var err error
			pdf, _, err = params.Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("PDF printing failed: %w", err)
	}
	return pdf, nil
}
