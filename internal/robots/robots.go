// Package robots answers whether a URL may be crawled according to the
// site's robots.txt. Lookups are cached per origin and fail open.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/jmylchreest/sitecrawl/internal/logger"
	"github.com/jmylchreest/sitecrawl/internal/version"
)

const (
	// DefaultTTL is how long a fetched robots.txt is trusted.
	DefaultTTL = time.Hour

	maxBodySize    = 512 * 1024
	requestTimeout = 10 * time.Second
)

type entry struct {
	data      *robotstxt.RobotsData // nil means everything is allowed
	fetchedAt time.Time
}

// Agent checks URLs against robots.txt rules.
type Agent struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]entry
}

// Option configures an Agent.
type Option func(*Agent)

// WithHTTPClient sets the client used to fetch robots.txt.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Agent) { a.client = c }
}

// WithUserAgent sets the agent token matched against robots.txt groups.
func WithUserAgent(ua string) Option {
	return func(a *Agent) { a.userAgent = ua }
}

// WithTTL sets how long fetched rules are cached.
func WithTTL(ttl time.Duration) Option {
	return func(a *Agent) { a.ttl = ttl }
}

// WithClock overrides the clock used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// New creates an Agent.
func New(opts ...Option) *Agent {
	a := &Agent{
		client:    &http.Client{Timeout: requestTimeout},
		userAgent: version.UserAgentToken(),
		ttl:       DefaultTTL,
		now:       time.Now,
		cache:     make(map[string]entry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allowed reports whether rawURL may be fetched. Unparseable URLs and
// robots.txt files that cannot be retrieved are treated as allowed.
func (a *Agent) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	origin := u.Scheme + "://" + u.Host

	data := a.rules(ctx, origin)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, a.userAgent)
}

func (a *Agent) rules(ctx context.Context, origin string) *robotstxt.RobotsData {
	a.mu.Lock()
	e, ok := a.cache[origin]
	a.mu.Unlock()
	if ok && a.now().Sub(e.fetchedAt) < a.ttl {
		return e.data
	}

	data, err := a.fetch(ctx, origin)
	if err != nil {
		logger.Debug("robots.txt unavailable, allowing", "origin", origin, "error", err)
		if ctx.Err() != nil {
			return nil
		}
	}

	a.mu.Lock()
	a.cache[origin] = entry{data: data, fetchedAt: a.now()}
	a.mu.Unlock()
	return data
}

func (a *Agent) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// Server errors would make robotstxt disallow everything.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read robots.txt: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return data, nil
}
