package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/sitecrawl/internal/browser"
	"github.com/jmylchreest/sitecrawl/internal/logger"
	"github.com/jmylchreest/sitecrawl/internal/pacing"
	"github.com/jmylchreest/sitecrawl/pkg/fetcher"
)

// Setup errors. These are the only failures Crawl returns; per-page
// failures are recorded in Result.Errors.
var (
	ErrInvalidSeed    = errors.New("invalid seed URL")
	ErrBrowserContext = errors.New("failed to create browser context")
)

// Fetcher loads one page in a browser context.
type Fetcher interface {
	Fetch(ctx context.Context, bctx browser.Context, url string, opts fetcher.Options) (fetcher.Content, error)
}

// Archiver stores the raw HTML of a crawled page and returns a reference
// to it.
type Archiver interface {
	Save(html, pageURL, baseDomain string) (string, error)
}

// RobotsGate decides whether a URL may be fetched.
type RobotsGate interface {
	Allowed(ctx context.Context, url string) bool
}

// Crawler walks one site per Crawl call. A Crawler may run several crawls
// concurrently; each crawl has its own state and browser context.
type Crawler struct {
	session  browser.Session
	fetcher  Fetcher
	policy   Policy
	archiver Archiver
	robots   RobotsGate
	pacer    *pacing.Pacer
	now      func() time.Time
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithArchiver stores raw HTML of crawled pages when the policy asks for it.
func WithArchiver(a Archiver) Option {
	return func(c *Crawler) { c.archiver = a }
}

// WithRobots sets the gate consulted when the policy respects robots.txt.
func WithRobots(r RobotsGate) Option {
	return func(c *Crawler) { c.robots = r }
}

// WithPacer sets the source of the delays between requests.
func WithPacer(p *pacing.Pacer) Option {
	return func(c *Crawler) { c.pacer = p }
}

// WithClock overrides the clock used for error timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) { c.now = now }
}

// New creates a new Crawler.
func New(session browser.Session, f Fetcher, policy Policy, opts ...Option) *Crawler {
	c := &Crawler{
		session: session,
		fetcher: f,
		policy:  policy,
		pacer:   pacing.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the crawl policy.
func (c *Crawler) Policy() Policy {
	return c.policy
}

// crawl is the state of one Crawl call.
type crawl struct {
	*Crawler
	bctx       browser.Context
	baseDomain string
	state      *CrawlState
	throttle   *pacing.Throttle
}

// Crawl fetches the site rooted at seed depth-first and returns what it
// collected. Only setup failures are returned as errors, except that when
// ctx is cancelled the partial result is returned together with ctx.Err().
// Reaching the policy's MaxDuration ends the crawl with a nil error.
func (c *Crawler) Crawl(ctx context.Context, seed string) (*Result, error) {
	if err := c.policy.Validate(); err != nil {
		return nil, err
	}

	base, ok := Normalize(seed, "")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	baseDomain := StripWWW(Hostname(base))

	crawlCtx := ctx
	if c.policy.MaxDuration > 0 {
		var cancel context.CancelFunc
		crawlCtx, cancel = context.WithTimeout(ctx, c.policy.MaxDuration)
		defer cancel()
	}

	bctx, err := c.session.NewContext(crawlCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserContext, err)
	}
	defer func() {
		if err := bctx.Close(); err != nil {
			logger.Debug("browser context close failed", "error", err)
		}
	}()

	log := logger.With("seed", base)
	log.Info("crawl starting",
		"max_depth", c.policy.MaxDepth,
		"max_pages", c.policy.MaxPages)
	start := time.Now()

	r := &crawl{
		Crawler:    c,
		bctx:       bctx,
		baseDomain: baseDomain,
		state:      NewCrawlState(),
		throttle:   pacing.NewThrottle(c.policy.RequestsPerMinute),
	}
	r.visit(crawlCtx, base, 0)
	r.run(crawlCtx)

	result := r.state.Result()
	log.Info("crawl complete",
		"pages", result.TotalPages,
		"errors", len(result.Errors),
		"duration", time.Since(start).Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if crawlCtx.Err() != nil {
		log.Info("crawl stopped at max duration", "max_duration", c.policy.MaxDuration)
	}
	return result, nil
}

// run drains the frame stack. Each frame's links are visited in order, and
// a visit that discovers links pushes a new frame, which gives depth-first
// traversal in extraction order.
func (r *crawl) run(ctx context.Context) {
	for {
		f := r.state.top()
		if f == nil {
			return
		}
		if ctx.Err() != nil {
			logger.Debug("crawl cancelled", "error", ctx.Err())
			return
		}
		if r.state.PageCount() >= r.policy.MaxPages {
			logger.Debug("crawler reached max pages", "max_pages", r.policy.MaxPages)
			return
		}
		if f.next >= len(f.links) {
			r.state.pop()
			continue
		}

		link := f.links[f.next]
		f.next++

		n, ok := Normalize(link, r.baseDomain)
		if !ok || r.state.Visited(n) || !ShouldCrawl(n, r.baseDomain, r.policy) {
			continue
		}

		if err := r.pacer.Pause(ctx, 2*time.Second, 5*time.Second); err != nil {
			return
		}
		r.visit(ctx, n, f.depth)
	}
}

// visit fetches one URL at depth and, when the budgets allow, pushes its
// links as a new frame. It never returns an error: failures are recorded
// in the state.
func (r *crawl) visit(ctx context.Context, rawURL string, depth uint) {
	p := r.policy
	if depth > p.MaxDepth || r.state.PageCount() >= p.MaxPages {
		return
	}
	n, ok := Normalize(rawURL, r.baseDomain)
	if !ok || r.state.Visited(n) || !ShouldCrawl(n, r.baseDomain, p) {
		return
	}
	if p.RespectRobots && r.robots != nil && !r.robots.Allowed(ctx, n) {
		logger.Info("disallowed by robots.txt", "url", n)
		return
	}
	r.state.Reserve(n)

	if err := r.throttle.Wait(ctx); err != nil {
		return
	}

	archiving := p.SaveHTML && r.archiver != nil
	logger.Debug("crawler processing URL", "url", n, "depth", depth)
	fetchStart := time.Now()
	content, err := r.fetcher.Fetch(ctx, r.bctx, n, fetcher.Options{
		NavigationTimeout: p.NavigationTimeout,
		SettleDelay:       p.ContentSettleDelay,
		ContentSelector:   p.ContentSelector,
		CaptureHTML:       archiving,
	})
	fetchDuration := time.Since(fetchStart)

	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("fetch aborted", "url", n, "error", err)
			return
		}
		logger.Info("fetch failed", "url", n, "error", err, "duration", fetchDuration.Round(time.Millisecond))
		r.state.AddError(PageError{URL: n, Message: err.Error(), OccurredAt: r.now()})
		return
	}

	if text := strings.TrimSpace(content.Text); text != "" {
		page := Page{
			URL:       n,
			Title:     content.Title,
			Content:   text,
			FetchedAt: content.FetchedAt,
		}
		if page.Title == "" {
			page.Title = n
		}
		if page.FetchedAt.IsZero() {
			page.FetchedAt = r.now()
		}
		if archiving && content.HTML != "" {
			path, err := r.archiver.Save(content.HTML, n, r.baseDomain)
			if err != nil {
				logger.Warn("failed to save HTML", "url", n, "error", err)
			} else {
				page.HTMLPath = path
			}
		}
		r.state.AddPage(page)
		logger.Info("crawled",
			"url", n,
			"depth", depth,
			"pages", r.state.PageCount(),
			"fetch", fetchDuration.Round(time.Millisecond))
	} else {
		logger.Debug("page has no content", "url", n)
	}

	if depth < p.MaxDepth && r.state.PageCount() < p.MaxPages {
		links := ExtractLinks(content.Links, r.baseDomain, p, n)
		logger.Debug("crawler found links", "url", n, "links", len(links), "depth", depth)
		if len(links) > 0 {
			r.state.push(&frame{links: links, depth: depth + 1})
		}
	}
}
