package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/marketbrief/internal/config"
)

// Browser renders pages in headless Chrome. Each call starts its own browser
// so concurrent scrapes do not share tabs.
type Browser struct {
	userAgent string
	wait      time.Duration
	execPath  string
	logger    arbor.ILogger
}

// NewBrowser returns a renderer, or a nil interface when the browser is disabled.
func NewBrowser(cfg config.BrowserConfig, userAgent string, logger arbor.ILogger) PageRenderer {
	if !cfg.Enabled {
		return nil
	}
	return &Browser{
		userAgent: userAgent,
		wait:      cfg.Wait,
		execPath:  cfg.ExecPath,
		logger:    logger,
	}
}

// RenderHTML navigates to url, waits for scripts to settle and returns the DOM.
func (b *Browser) RenderHTML(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.userAgent),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	start := time.Now()
	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.wait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	b.logger.Debug().
		Str("url", url).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Int("bytes", len(html)).
		Msg("Rendered page")
	return html, nil
}
