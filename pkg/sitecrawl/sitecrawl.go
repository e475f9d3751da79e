// Package sitecrawl provides the public API for crawling a site through a
// stealth headless browser and collecting the text of its pages.
package sitecrawl

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/sitecrawl/internal/archive"
	"github.com/jmylchreest/sitecrawl/internal/browser"
	"github.com/jmylchreest/sitecrawl/internal/crawler"
	"github.com/jmylchreest/sitecrawl/internal/logger"
	"github.com/jmylchreest/sitecrawl/internal/pacing"
	"github.com/jmylchreest/sitecrawl/internal/robots"
	"github.com/jmylchreest/sitecrawl/pkg/fetcher"
)

// Result types re-exported from internal/crawler.
type (
	Result    = crawler.Result
	Page      = crawler.Page
	PageError = crawler.PageError
	Policy    = crawler.Policy

	PruneReport = archive.PruneReport
)

// Errors returned by Crawl. Use errors.Is to check for them.
var (
	ErrInvalidSeed    = crawler.ErrInvalidSeed
	ErrInvalidPolicy  = crawler.ErrInvalidPolicy
	ErrBrowserContext = crawler.ErrBrowserContext
)

// Version returns the module version of the sitecrawl library.
// Returns "(devel)" when built from source without version info.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return "(unknown)"
}

// Client shares one browser process across crawls.
type Client struct {
	session browser.Session
	fetcher *fetcher.PageFetcher
	archive *archive.Store
	robots  *robots.Agent
	pacer   *pacing.Pacer
	config  Config
}

// New starts the browser and creates a Client.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}

	session := cfg.session
	if session == nil {
		s, err := browser.NewChromeSession(cfg.Browser)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		session = s
	}

	pacer := cfg.pacer
	if pacer == nil {
		pacer = pacing.New()
	}

	fs := cfg.fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Client{
		session: session,
		fetcher: fetcher.NewPageFetcher(fetcher.WithPacer(pacer)),
		archive: archive.New(fs, cfg.ArchiveDir),
		robots:  robots.New(robots.WithTTL(cfg.RobotsTTL)),
		pacer:   pacer,
		config:  cfg,
	}, nil
}

// Policy returns the effective policy for a crawl with opts applied.
func (c *Client) Policy(opts ...CrawlOption) Policy {
	p := c.config.Policy
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Crawl crawls the site rooted at seed. The returned result may be partial
// when ctx is cancelled, in which case ctx.Err() is returned alongside it.
func (c *Client) Crawl(ctx context.Context, seed string, opts ...CrawlOption) (*Result, error) {
	policy := c.Policy(opts...)

	crawlOpts := []crawler.Option{
		crawler.WithPacer(c.pacer),
		crawler.WithArchiver(c.archive),
	}
	if policy.RespectRobots {
		crawlOpts = append(crawlOpts, crawler.WithRobots(c.robots))
	}

	return crawler.New(c.session, c.fetcher, policy, crawlOpts...).Crawl(ctx, seed)
}

// SeedResult is the outcome of one seed in CrawlMany.
type SeedResult struct {
	Seed   string
	Result *Result
	Err    error
}

// CrawlMany crawls several sites concurrently, each in its own browsing
// context. Results are returned in seed order. The error is non-nil only
// when ctx ends before every crawl finished.
func (c *Client) CrawlMany(ctx context.Context, seeds []string, concurrency int, opts ...CrawlOption) ([]SeedResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]SeedResult, len(seeds))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = SeedResult{Seed: seed, Err: err}
				return nil
			}
			res, err := c.Crawl(ctx, seed, opts...)
			if err != nil {
				logger.Warn("crawl failed", "seed", seed, "error", err)
			}
			results[i] = SeedResult{Seed: seed, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

// Prune removes archived HTML of domain older than keepDays.
func (c *Client) Prune(domain string, keepDays int) (PruneReport, error) {
	return c.archive.Prune(crawler.StripWWW(domain), keepDays)
}

// Close shuts the browser down.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}
