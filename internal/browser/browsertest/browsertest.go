// Package browsertest provides an in-memory browser for tests. A Site serves
// fixed HTML per URL and records every navigation, browser context and page
// so tests can assert on fetch counts and resource release.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/sitecrawl/internal/browser"
)

// ErrNotFound is returned by Navigate for URLs the site does not serve.
var ErrNotFound = errors.New("net::ERR_NAME_NOT_RESOLVED")

// Site is a fake browser.Session serving a fixed set of pages.
type Site struct {
	mu sync.Mutex

	pages      map[string]string
	titles     map[string]string
	redirects  map[string]string
	navErrs    map[string]error
	contextErr error

	navigations    []string
	initScripts    int
	contexts       int
	closedContexts int
	openedPages    int
	closedPages    int
}

// NewSite returns an empty site.
func NewSite() *Site {
	return &Site{
		pages:     make(map[string]string),
		titles:    make(map[string]string),
		redirects: make(map[string]string),
		navErrs:   make(map[string]error),
	}
}

// Page serves html at url.
func (s *Site) Page(url, html string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = html
	return s
}

// Title sets the document.title reported for url.
func (s *Site) Title(url, title string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles[url] = title
	return s
}

// Redirect makes navigation to from end at to.
func (s *Site) Redirect(from, to string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[from] = to
	return s
}

// FailNavigation makes every navigation to url fail with err.
func (s *Site) FailNavigation(url string, err error) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navErrs[url] = err
	return s
}

// FailContexts makes NewContext fail with err.
func (s *Site) FailContexts(err error) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextErr = err
	return s
}

// Navigations returns every URL passed to Navigate, in call order.
func (s *Site) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// NavigationCount returns how many times url was navigated to.
func (s *Site) NavigationCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.navigations {
		if u == url {
			n++
		}
	}
	return n
}

// InitScripts returns the number of init scripts installed across pages.
func (s *Site) InitScripts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initScripts
}

// OpenContexts returns the number of browser contexts not yet closed.
func (s *Site) OpenContexts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contexts - s.closedContexts
}

// ContextCount returns the number of browser contexts created.
func (s *Site) ContextCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contexts
}

// OpenPages returns the number of pages not yet closed.
func (s *Site) OpenPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openedPages - s.closedPages
}

// NewContext implements browser.Session.
func (s *Site) NewContext(ctx context.Context) (browser.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contextErr != nil {
		return nil, s.contextErr
	}
	s.contexts++
	return &fakeContext{site: s}, nil
}

// Close implements browser.Session.
func (s *Site) Close() error { return nil }

type fakeContext struct {
	site   *Site
	once   sync.Once
	closed bool
}

func (c *fakeContext) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.site.mu.Lock()
	defer c.site.mu.Unlock()
	if c.closed {
		return nil, errors.New("browser context closed")
	}
	c.site.openedPages++
	return &fakePage{site: c.site}, nil
}

func (c *fakeContext) Close() error {
	c.once.Do(func() {
		c.site.mu.Lock()
		defer c.site.mu.Unlock()
		c.closed = true
		c.site.closedContexts++
	})
	return nil
}

type fakePage struct {
	site    *Site
	current string
	once    sync.Once
}

func (p *fakePage) AddInitScript(ctx context.Context, _ string) error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	p.site.initScripts++
	return ctx.Err()
}

func (p *fakePage) HideAutomation(ctx context.Context) error { return ctx.Err() }

func (p *fakePage) Navigate(ctx context.Context, url string, _ browser.WaitUntil, _ time.Duration) (browser.Navigation, error) {
	if err := ctx.Err(); err != nil {
		return browser.Navigation{}, err
	}
	s := p.site
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, url)

	if err := s.navErrs[url]; err != nil {
		return browser.Navigation{}, err
	}
	final := url
	if to, ok := s.redirects[url]; ok {
		final = to
	}
	if _, ok := s.pages[final]; !ok {
		return browser.Navigation{}, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	p.current = final
	return browser.Navigation{URL: final}, nil
}

func (p *fakePage) WaitForSelector(ctx context.Context, _ string, _ time.Duration) error {
	return ctx.Err()
}

func (p *fakePage) Viewport(ctx context.Context) (browser.Viewport, error) {
	return browser.Viewport{Width: 1920, Height: 1080, ScrollHeight: 3000}, ctx.Err()
}

func (p *fakePage) ScrollTo(ctx context.Context, _ float64, _ bool) error { return ctx.Err() }

func (p *fakePage) MouseMove(ctx context.Context, _, _ float64, _ int) error { return ctx.Err() }

func (p *fakePage) CountLinks(ctx context.Context) (int, error) {
	html, err := p.HTML(ctx)
	if err != nil {
		return 0, err
	}
	return strings.Count(html, "<a "), nil
}

func (p *fakePage) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	return p.site.titles[p.current], nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	return p.current, ctx.Err()
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if p.current == "" {
		return "", errors.New("no document loaded")
	}
	return p.site.pages[p.current], nil
}

func (p *fakePage) Close() error {
	p.once.Do(func() {
		p.site.mu.Lock()
		defer p.site.mu.Unlock()
		p.site.closedPages++
	})
	return nil
}
