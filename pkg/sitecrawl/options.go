package sitecrawl

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/jmylchreest/sitecrawl/internal/archive"
	"github.com/jmylchreest/sitecrawl/internal/browser"
	"github.com/jmylchreest/sitecrawl/internal/crawler"
	"github.com/jmylchreest/sitecrawl/internal/pacing"
	"github.com/jmylchreest/sitecrawl/internal/robots"
)

// Config holds all sitecrawl client configuration.
type Config struct {
	// Browser settings
	Browser browser.Config

	// Archive settings
	ArchiveDir string

	// RobotsTTL is how long a fetched robots.txt is cached when a crawl
	// respects robots.txt.
	RobotsTTL time.Duration

	// Policy is the baseline for every crawl; CrawlOptions adjust a copy.
	Policy crawler.Policy

	// Logger replaces the package logger when set.
	Logger *slog.Logger

	session browser.Session
	pacer   *pacing.Pacer
	fs      afero.Fs
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Browser:    browser.DefaultConfig(),
		ArchiveDir: archive.DefaultRoot,
		RobotsTTL:  robots.DefaultTTL,
		Policy:     crawler.DefaultPolicy(),
	}
}

// Option configures the client.
type Option func(*Config)

// WithHeadless toggles headless Chrome.
func WithHeadless(enabled bool) Option {
	return func(c *Config) {
		c.Browser.Headless = enabled
	}
}

// WithChromePath sets the Chrome binary to launch.
func WithChromePath(path string) Option {
	return func(c *Config) {
		c.Browser.ExecPath = path
	}
}

// WithUserAgents sets the user agents rotated across crawls.
func WithUserAgents(agents ...string) Option {
	return func(c *Config) {
		c.Browser.UserAgents = agents
	}
}

// WithArchiveDir sets the root directory for archived HTML.
func WithArchiveDir(dir string) Option {
	return func(c *Config) {
		c.ArchiveDir = dir
	}
}

// WithRobotsTTL sets the robots.txt cache lifetime.
func WithRobotsTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.RobotsTTL = ttl
	}
}

// WithPolicy sets the baseline crawl policy.
func WithPolicy(p crawler.Policy) Option {
	return func(c *Config) {
		c.Policy = p
	}
}

// WithLogger routes library logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// CrawlOption configures a single crawl.
type CrawlOption func(*crawler.Policy)

// WithMaxDepth sets the deepest link level followed.
func WithMaxDepth(depth uint) CrawlOption {
	return func(p *crawler.Policy) {
		p.MaxDepth = depth
	}
}

// WithMaxPages caps the pages collected.
func WithMaxPages(n uint) CrawlOption {
	return func(p *crawler.Policy) {
		p.MaxPages = n
	}
}

// WithNavigationTimeout bounds each navigation attempt.
func WithNavigationTimeout(d time.Duration) CrawlOption {
	return func(p *crawler.Policy) {
		p.NavigationTimeout = d
	}
}

// WithContentSettleDelay sets the wait for client-side rendering.
func WithContentSettleDelay(d time.Duration) CrawlOption {
	return func(p *crawler.Policy) {
		p.ContentSettleDelay = d
	}
}

// WithContentSelector sets the CSS selector the text is extracted from.
func WithContentSelector(selector string) CrawlOption {
	return func(p *crawler.Policy) {
		p.ContentSelector = selector
	}
}

// WithSameDomainOnly restricts crawling to the seed's site.
func WithSameDomainOnly(enabled bool) CrawlOption {
	return func(p *crawler.Policy) {
		p.SameDomainOnly = enabled
	}
}

// WithExcludePatterns skips URLs containing any of the patterns.
func WithExcludePatterns(patterns ...string) CrawlOption {
	return func(p *crawler.Policy) {
		p.ExcludePatterns = patterns
	}
}

// WithIncludePatterns only follows URLs containing one of the patterns.
func WithIncludePatterns(patterns ...string) CrawlOption {
	return func(p *crawler.Policy) {
		p.IncludePatterns = patterns
	}
}

// WithSaveHTML toggles raw HTML archival.
func WithSaveHTML(enabled bool) CrawlOption {
	return func(p *crawler.Policy) {
		p.SaveHTML = enabled
	}
}

// WithRespectRobots makes the crawl consult robots.txt.
func WithRespectRobots(enabled bool) CrawlOption {
	return func(p *crawler.Policy) {
		p.RespectRobots = enabled
	}
}

// WithMaxDuration bounds the whole crawl.
func WithMaxDuration(d time.Duration) CrawlOption {
	return func(p *crawler.Policy) {
		p.MaxDuration = d
	}
}

// WithRequestsPerMinute caps the fetch rate.
func WithRequestsPerMinute(n int) CrawlOption {
	return func(p *crawler.Policy) {
		p.RequestsPerMinute = n
	}
}
