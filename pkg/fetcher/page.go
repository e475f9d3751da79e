package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/sitecrawl/internal/browser"
	"github.com/jmylchreest/sitecrawl/internal/challenge"
	"github.com/jmylchreest/sitecrawl/internal/logger"
	"github.com/jmylchreest/sitecrawl/internal/pacing"
	"github.com/jmylchreest/sitecrawl/internal/stealth"
)

// Load strategies, tried in order until one succeeds.
var loadCascade = []browser.WaitUntil{
	browser.WaitDOMContentLoaded,
	browser.WaitLoad,
	browser.WaitNetworkIdle,
}

const (
	fallbackTimeout   = 10 * time.Second
	lastResortTimeout = 5 * time.Second
	linkPollAttempts  = 3
	linkPollBackoff   = 2 * time.Second
)

// PageFetcher fetches pages in a browser context, one tab per page.
type PageFetcher struct {
	pacer *pacing.Pacer
	now   func() time.Time
}

// PageFetcherOption configures a PageFetcher.
type PageFetcherOption func(*PageFetcher)

// WithPacer sets the source of randomized delays and positions.
func WithPacer(p *pacing.Pacer) PageFetcherOption {
	return func(f *PageFetcher) { f.pacer = p }
}

// WithClock overrides the clock used for Content.FetchedAt.
func WithClock(now func() time.Time) PageFetcherOption {
	return func(f *PageFetcher) { f.now = now }
}

// NewPageFetcher creates a PageFetcher.
func NewPageFetcher(opts ...PageFetcherOption) *PageFetcher {
	f := &PageFetcher{
		pacer: pacing.New(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch opens a page in bctx, loads url and extracts its content. The page
// is closed on every return path.
func (f *PageFetcher) Fetch(ctx context.Context, bctx browser.Context, url string, opts Options) (Content, error) {
	opts = opts.withDefaults()

	page, err := bctx.NewPage(ctx)
	if err != nil {
		return Content{}, fmt.Errorf("%w: open page: %v", ErrNavigation, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("page close failed", "url", url, "error", err)
		}
	}()

	stealth.Apply(ctx, page)

	if err := f.pacer.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return Content{}, err
	}

	nav, err := f.load(ctx, page, url, opts.NavigationTimeout)
	if err != nil {
		return Content{}, err
	}
	finalURL := nav.URL
	if finalURL == "" {
		finalURL = url
	}

	if challenge.IsChallengeURL(finalURL) {
		logger.Warn("redirected to challenge page", "url", url, "final_url", finalURL)
		return Content{}, fmt.Errorf("%w: redirected to captcha: %s", ErrCaptchaChallenge, finalURL)
	}
	if challenge.IsBlocked(ctx, page) {
		logger.Warn("challenge page detected", "url", url)
		return Content{}, fmt.Errorf("%w: captcha detected on %s", ErrCaptchaChallenge, url)
	}

	f.emulateHuman(ctx, page)

	if err := f.pacer.Sleep(ctx, opts.SettleDelay); err != nil {
		return Content{}, err
	}

	f.waitForLinks(ctx, page)

	html, err := page.HTML(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Content{}, ctx.Err()
		}
		return Content{}, fmt.Errorf("%w: read html: %v", ErrExtraction, err)
	}

	extracted, err := Extract(html, opts.ContentSelector)
	if err != nil {
		return Content{}, err
	}

	content := Content{
		URL:       url,
		FinalURL:  finalURL,
		Title:     extracted.Title,
		Text:      extracted.Text,
		Links:     extracted.Links,
		FetchedAt: f.now(),
	}
	if content.Title == "" {
		content.Title = url
	}
	if opts.CaptureHTML {
		content.HTML = html
	}

	logger.Debug("page fetched",
		"url", url,
		"final_url", finalURL,
		"text_size", len(content.Text),
		"links", len(content.Links))

	return content, nil
}

// load runs the load-strategy cascade. When the three strategies and both
// fallbacks fail, the last error of the main cascade is returned.
func (f *PageFetcher) load(ctx context.Context, page browser.Page, url string, timeout time.Duration) (browser.Navigation, error) {
	var lastErr error

	for i, until := range loadCascade {
		f.hover(ctx, page)

		nav, err := page.Navigate(ctx, url, until, timeout)
		if err == nil {
			logger.Debug("page loaded", "url", url, "strategy", string(until))
			return nav, nil
		}
		if ctx.Err() != nil {
			return browser.Navigation{}, ctx.Err()
		}
		lastErr = err
		logger.Debug("load strategy failed", "url", url, "strategy", string(until), "error", err)

		if i < len(loadCascade)-1 {
			if err := f.pacer.Pause(ctx, time.Second, 2*time.Second); err != nil {
				return browser.Navigation{}, err
			}
		}
	}

	nav, err := page.Navigate(ctx, url, browser.WaitDOMContentLoaded, min(timeout, fallbackTimeout))
	if err == nil {
		logger.Debug("page loaded with fallback strategy", "url", url)
		return nav, nil
	}
	if ctx.Err() != nil {
		return browser.Navigation{}, ctx.Err()
	}
	logger.Debug("fallback load failed", "url", url, "error", err)

	nav, err = page.Navigate(ctx, url, browser.WaitNone, lastResortTimeout)
	if err == nil {
		err = page.WaitForSelector(ctx, "body", lastResortTimeout)
	}
	if err == nil {
		logger.Debug("page loaded with bare navigation", "url", url)
		return nav, nil
	}
	if ctx.Err() != nil {
		return browser.Navigation{}, ctx.Err()
	}

	logger.Info("all load strategies failed", "url", url, "error", lastErr)
	return browser.Navigation{}, fmt.Errorf("%w: %s: %v", ErrNavigation, url, lastErr)
}

// hover moves the pointer somewhere near the top-left and pauses briefly.
func (f *PageFetcher) hover(ctx context.Context, page browser.Page) {
	x, y := f.pacer.Float(100, 200), f.pacer.Float(100, 200)
	if err := page.MouseMove(ctx, x, y, 1); err != nil {
		logger.Debug("mouse move failed", "error", err)
	}
	_ = f.pacer.Pause(ctx, 100*time.Millisecond, 300*time.Millisecond)
}

// emulateHuman scrolls down the page in a few steps with pauses and mouse
// movement, then returns to the top. Failures are logged and ignored.
func (f *PageFetcher) emulateHuman(ctx context.Context, page browser.Page) {
	vp, err := page.Viewport(ctx)
	if err != nil {
		logger.Debug("behaviour emulation skipped", "error", err)
		return
	}

	steps := f.pacer.Int(3, 5)
	for i := 1; i <= steps; i++ {
		y := vp.ScrollHeight * float64(i) / float64(steps)
		if err := page.ScrollTo(ctx, y, true); err != nil {
			logger.Debug("scroll failed", "error", err)
			return
		}
		if err := f.pacer.Pause(ctx, 300*time.Millisecond, 1000*time.Millisecond); err != nil {
			return
		}
		x, my := f.pacer.Float(0, vp.Width), f.pacer.Float(0, vp.Height)
		if err := page.MouseMove(ctx, x, my, f.pacer.Int(5, 14)); err != nil {
			logger.Debug("mouse move failed", "error", err)
		}
	}

	if err := page.ScrollTo(ctx, 0, true); err != nil {
		logger.Debug("scroll failed", "error", err)
		return
	}
	_ = f.pacer.Pause(ctx, 500*time.Millisecond, 1000*time.Millisecond)
}

// waitForLinks polls for a[href] elements on client-rendered pages. It
// gives up silently after a few attempts.
func (f *PageFetcher) waitForLinks(ctx context.Context, page browser.Page) {
	for attempt := 0; attempt < linkPollAttempts; attempt++ {
		if err := page.ScrollTo(ctx, f.pacer.Float(0, 500), false); err != nil {
			logger.Debug("scroll failed", "error", err)
		}
		if err := f.pacer.Pause(ctx, 500*time.Millisecond, 1000*time.Millisecond); err != nil {
			return
		}

		n, err := page.CountLinks(ctx)
		if err == nil && n > 0 {
			logger.Debug("links found", "count", n, "attempt", attempt+1)
			return
		}

		if attempt < linkPollAttempts-1 {
			if err := f.pacer.Sleep(ctx, linkPollBackoff*time.Duration(attempt+1)); err != nil {
				return
			}
		}
	}
	logger.Debug("no links found after waiting, extracting anyway")
}
