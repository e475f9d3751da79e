package fetcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmylchreest/sitecrawl/internal/browser"
	"github.com/jmylchreest/sitecrawl/internal/pacing"
	"github.com/jmylchreest/sitecrawl/internal/stealth"
)

// navCall records one Navigate call.
type navCall struct {
	url     string
	until   browser.WaitUntil
	timeout time.Duration
}

// scriptedPage is a browser.Page whose navigation outcomes are scripted per
// load strategy.
type scriptedPage struct {
	html     string
	finalURL string
	title    string

	failUntil   map[browser.WaitUntil]error // strategies that fail
	failAll     error                       // every navigation fails
	failBody    error                       // WaitForSelector fails
	htmlErr     error
	viewportErr error
	links       int

	navs        []navCall
	initScripts int
	scrolls     int
	mouseMoves  int
	linkChecks  int
	closed      int
	loaded      bool
}

func (p *scriptedPage) AddInitScript(context.Context, string) error {
	p.initScripts++
	return nil
}

func (p *scriptedPage) HideAutomation(context.Context) error { return nil }

func (p *scriptedPage) Navigate(ctx context.Context, url string, until browser.WaitUntil, timeout time.Duration) (browser.Navigation, error) {
	p.navs = append(p.navs, navCall{url, until, timeout})
	if err := ctx.Err(); err != nil {
		return browser.Navigation{}, err
	}
	if p.failAll != nil {
		return browser.Navigation{}, p.failAll
	}
	if err := p.failUntil[until]; err != nil {
		return browser.Navigation{}, err
	}
	p.loaded = true
	final := p.finalURL
	if final == "" {
		final = url
	}
	return browser.Navigation{URL: final}, nil
}

func (p *scriptedPage) WaitForSelector(context.Context, string, time.Duration) error {
	return p.failBody
}

func (p *scriptedPage) Viewport(context.Context) (browser.Viewport, error) {
	if p.viewportErr != nil {
		return browser.Viewport{}, p.viewportErr
	}
	return browser.Viewport{Width: 1920, Height: 1080, ScrollHeight: 5000}, nil
}

func (p *scriptedPage) ScrollTo(context.Context, float64, bool) error {
	p.scrolls++
	return nil
}

func (p *scriptedPage) MouseMove(context.Context, float64, float64, int) error {
	p.mouseMoves++
	return nil
}

func (p *scriptedPage) CountLinks(context.Context) (int, error) {
	p.linkChecks++
	return p.links, nil
}

func (p *scriptedPage) Title(context.Context) (string, error) { return p.title, nil }

func (p *scriptedPage) URL(context.Context) (string, error) { return p.finalURL, nil }

func (p *scriptedPage) HTML(context.Context) (string, error) {
	if p.htmlErr != nil {
		return "", p.htmlErr
	}
	return p.html, nil
}

func (p *scriptedPage) Close() error {
	p.closed++
	return nil
}

type scriptedContext struct {
	page *scriptedPage
	err  error
}

func (c *scriptedContext) NewPage(context.Context) (browser.Page, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.page, nil
}

func (c *scriptedContext) Close() error { return nil }

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestFetcher() *PageFetcher {
	return NewPageFetcher(WithPacer(pacing.Instant()), WithClock(func() time.Time { return fixedNow }))
}

const simplePage = `<html><head><title>Hello</title></head><body><p>Some text</p><a href="/next">next</a></body></html>`

func TestFetch_Success(t *testing.T) {
	page := &scriptedPage{html: simplePage, links: 1}
	f := newTestFetcher()

	got, err := f.Fetch(context.Background(), &scriptedContext{page: page}, "https://example.com/", DefaultOptions())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got.Title != "Hello" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Text != "Some text\nnext" {
		t.Errorf("Text = %q", got.Text)
	}
	if len(got.Links) != 1 || got.Links[0] != "/next" {
		t.Errorf("Links = %v", got.Links)
	}
	if got.HTML != "" {
		t.Error("HTML should be empty without CaptureHTML")
	}
	if !got.FetchedAt.Equal(fixedNow) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, fixedNow)
	}
	if got.FinalURL != "https://example.com/" {
		t.Errorf("FinalURL = %q", got.FinalURL)
	}

	if len(page.navs) != 1 || page.navs[0].until != browser.WaitDOMContentLoaded {
		t.Errorf("navigations = %+v, want one domcontentloaded", page.navs)
	}
	if page.initScripts != len(stealth.Patches()) {
		t.Errorf("init scripts = %d, want %d", page.initScripts, len(stealth.Patches()))
	}
	if page.scrolls < 4 {
		t.Errorf("scrolls = %d, want behaviour emulation to scroll", page.scrolls)
	}
	if page.linkChecks != 1 {
		t.Errorf("link checks = %d, want 1 when links are present", page.linkChecks)
	}
	if page.closed != 1 {
		t.Errorf("page closed %d times, want 1", page.closed)
	}
}

func TestFetch_ZeroOptionsUseDefaults(t *testing.T) {
	page := &scriptedPage{
		html:  `<html><body><nav>menu</nav><main>story</main></body></html>`,
		links: 1,
	}

	got, err := newTestFetcher().Fetch(context.Background(), &scriptedContext{page: page}, "https://example.com/", Options{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Text != "menu\nstory" {
		t.Errorf("Text = %q, want the whole body", got.Text)
	}
	if want := DefaultOptions().NavigationTimeout; len(page.navs) != 1 || page.navs[0].timeout != want {
		t.Errorf("navigations = %+v, want one with timeout %v", page.navs, want)
	}
}

func TestFetch_CaptureHTML(t *testing.T) {
	page := &scriptedPage{html: simplePage, links: 1}
	opts := DefaultOptions()
	opts.CaptureHTML = true

	got, err := newTestFetcher().Fetch(context.Background(), &scriptedContext{page: page}, "https://example.com/", opts)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.HTML != simplePage {
		t.Error("HTML should be the captured document")
	}
}

func TestFetch_TitleFallsBackToURL(t *testing.T) {
	page := &scriptedPage{html: `<html><body><p>x</p></body></html>`}
	got, err := newTestFetcher().Fetch(context.Background(), &scriptedContext{page: page}, "https://example.com/x", DefaultOptions())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Title != "https://example.com/x" {
		t.Errorf("Title = %q, want the URL", got.Title)
	}
}

func TestFetch_LoadCascade(t *testing.T) {
	timeout := 30 * time.Second
	errBoom := errors.New("boom")

	tests := []struct {
		name      string
		page      *scriptedPage
		wantErr   error
		wantNavs  []browser.WaitUntil
		wantFinal time.Duration // timeout of the last navigation
	}{
		{
			name:      "load succeeds after domcontentloaded fails",
			page:      &scriptedPage{failUntil: map[browser.WaitUntil]error{browser.WaitDOMContentLoaded: errBoom}},
			wantNavs:  []browser.WaitUntil{browser.WaitDOMContentLoaded, browser.WaitLoad},
			wantFinal: timeout,
		},
		{
			name: "networkidle succeeds",
			page: &scriptedPage{failUntil: map[browser.WaitUntil]error{
				browser.WaitDOMContentLoaded: errBoom,
				browser.WaitLoad:             errBoom,
			}},
			wantNavs:  []browser.WaitUntil{browser.WaitDOMContentLoaded, browser.WaitLoad, browser.WaitNetworkIdle},
			wantFinal: timeout,
		},
		{
			name: "bare navigation succeeds",
			page: &scriptedPage{failUntil: map[browser.WaitUntil]error{
				browser.WaitDOMContentLoaded: errBoom,
				browser.WaitLoad:             errBoom,
				browser.WaitNetworkIdle:      errBoom,
			}},
			wantNavs: []browser.WaitUntil{
				browser.WaitDOMContentLoaded, browser.WaitLoad, browser.WaitNetworkIdle,
				browser.WaitDOMContentLoaded, browser.WaitNone,
			},
			wantFinal: 5 * time.Second,
		},
		{
			name:    "all strategies fail",
			page:    &scriptedPage{failAll: errBoom},
			wantErr: ErrNavigation,
			wantNavs: []browser.WaitUntil{
				browser.WaitDOMContentLoaded, browser.WaitLoad, browser.WaitNetworkIdle,
				browser.WaitDOMContentLoaded, browser.WaitNone,
			},
			wantFinal: 5 * time.Second,
		},
		{
			name: "body never appears",
			page: &scriptedPage{
				failUntil: map[browser.WaitUntil]error{
					browser.WaitDOMContentLoaded: errBoom,
					browser.WaitLoad:             errBoom,
					browser.WaitNetworkIdle:      errBoom,
				},
				failBody: errors.New("timeout"),
			},
			wantErr: ErrNavigation,
			wantNavs: []browser.WaitUntil{
				browser.WaitDOMContentLoaded, browser.WaitLoad, browser.WaitNetworkIdle,
				browser.WaitDOMContentLoaded, browser.WaitNone,
			},
			wantFinal: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.page.html = simplePage
			opts := DefaultOptions()
			opts.NavigationTimeout = timeout

			_, err := newTestFetcher().Fetch(context.Background(), &scriptedContext{page: tt.page}, "https://example.com/", opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Fetch() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}

			var got []browser.WaitUntil
			for _, n := range tt.page.navs {
				got = append(got, n.until)
			}
			if len(got) != len(tt.wantNavs) {
				t.Fatalf("navigations = %v, want %v", got, tt.wantNavs)
			}
			for i := range got {
				if got[i] != tt.wantNavs[i] {
					t.Errorf("navigation %d = %q, want %q", i, got[i], tt.wantNavs[i])
				}
			}
			if last := tt.page.navs[len(tt.page.navs)-1].timeout; last != tt.wantFinal {
				t.Errorf("last navigation timeout = %v, want %v", last, tt.wantFinal)
			}
			if tt.page.closed != 1 {
				t.Errorf("page closed %d times, want 1", tt.page.closed)
			}
		})
	}
}

func TestFetch_FallbackTimeoutIsShortened(t *testing.T) {
	page := &scriptedPage{failAll: errors.New("boom")}
	opts := DefaultOptions()
	opts.NavigationTimeout = time.Minute

	_, _ = newTestFetcher().Fetch(context.Background(), &scriptedContext{page: page}, "https://example.com/", opts)

	if len(page.navs) < 4 {
		t.Fatalf("navigations = %d, want at least 4", len(page.navs))
	}
	if got := page.navs[3].timeout; got != 10*time.Second {
		t.Errorf("fallback timeout = %v, want 10s", got)
	}
	for i := 0; i < 3; i++ {
		if page.navs[i].timeout != time.Minute {
			t.Errorf("strategy %d timeout = %v, want 1m", i, page.navs[i].timeout)
		}
	}
}

func TestFetch_NavigationErrorWrapsLastStrategyError(t *testing.T) {
	page := &scriptedPage{failUntil: map[browser.WaitUntil]error{
		browser.WaitDOMContentLoaded: errors.New("first failure"),
		browser.WaitLoad:             errors.New("second failure"),
		browser.WaitNetworkIdle:      errors.New("third failure"),
	}, failBody: errors.New("no body")}

	// The shortened fallback also uses domcontentloaded and fails with it.
	_, err := newTestFetcher().Fetch(context.Background(), &scriptedContext{page: page}, "https://example.com/", DefaultOptions())
	if !errors.Is(err, ErrNavigation) {
		t.Fatalf("Fetch() error = %v, want ErrNavigation", err)
	}
	if !strings.Contains(err.Error(), "third failure") {
		t.Errorf("error = %v, want the last strategy error", err)
	}
}

func TestFetch_Captcha(t *testing.T) {
	tests := []struct {
		name    string
		page    *scriptedPage
		message string
	}{
		{
			name:    "redirected to challenge URL",
			page:    &scriptedPage{html: simplePage, finalURL: "https://example.com/cdn-cgi/cloudflare-challenge"},
			message: "redirected to captcha",
		},
		{
			name:    "challenge markup",
			page:    &scriptedPage{html: `<html><body><div class="h-captcha"></div></body></html>`, finalURL: "https://example.com/"},
			message: "captcha detected",
		},
		{
			name:    "challenge title",
			page:    &scriptedPage{html: simplePage, finalURL: "https://example.com/", title: "Checking your browser..."},
			message: "captcha detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestFetcher().Fetch(context.Background(), &scriptedContext{page: tt.page}, "https://example.com/", DefaultOptions())
			if !errors.Is(err, ErrCaptchaChallenge) {
				t.Fatalf("Fetch() error = %v, want ErrCaptchaChallenge", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error = %v, want %q", err, tt.message)
			}
			if tt.page.scrolls != 0 {
				t.Error("a blocked page should not be processed further")
			}
			if tt.page.closed != 1 {
				t.Errorf("page closed %d times, want 1", tt.page.closed)
			}
		})
	}
}

func TestFetch_ExtractionError(t *testing.T) {
	page := &scriptedPage{html: simplePage, finalURL: "https://example.com/"}
	ctx := &scriptedContext{page: page}

	// Challenge detection reads the HTML first and treats a failure as
	// not blocked; the failure then surfaces at extraction.
	page.htmlErr = errors.New("target closed")

	_, err := newTestFetcher().Fetch(context.Background(), ctx, "https://example.com/", DefaultOptions())
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("Fetch() error = %v, want ErrExtraction", err)
	}
	if page.closed != 1 {
		t.Errorf("page closed %d times, want 1", page.closed)
	}
}

func TestFetch_OpenPageFails(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), &scriptedContext{err: errors.New("context gone")}, "https://example.com/", DefaultOptions())
	if !errors.Is(err, ErrNavigation) {
		t.Errorf("Fetch() error = %v, want ErrNavigation", err)
	}
}

func TestFetch_PollsForLinks(t *testing.T) {
	page := &scriptedPage{html: `<html><body><p>loading</p></body></html>`, links: 0}
	if _, err := newTestFetcher().Fetch(context.Background(), &scriptedContext{page: page}, "https://example.com/", DefaultOptions()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if page.linkChecks != 3 {
		t.Errorf("link checks = %d, want 3", page.linkChecks)
	}
}

func TestFetch_BehaviourFailureIsIgnored(t *testing.T) {
	page := &scriptedPage{html: simplePage, links: 1, viewportErr: browser.ErrMalformedResult}
	got, err := newTestFetcher().Fetch(context.Background(), &scriptedContext{page: page}, "https://example.com/", DefaultOptions())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Text == "" {
		t.Error("content should still be extracted")
	}
}

func TestFetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &scriptedPage{html: simplePage}
	_, err := newTestFetcher().Fetch(ctx, &scriptedContext{page: page}, "https://example.com/", DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
	if page.closed != 1 {
		t.Errorf("page closed %d times, want 1", page.closed)
	}
}
