package browser

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// chromePage is a Page backed by a chromedp tab context.
type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	mouseX    float64
	mouseY    float64
	closeOnce sync.Once
}

// defaultOpTimeout bounds page operations that take no explicit timeout.
const defaultOpTimeout = 15 * time.Second

// run executes actions on the tab, bounded by timeout and by the caller's
// ctx. Cancelling the derived context never closes the tab itself.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	opCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *chromePage) AddInitScript(ctx context.Context, source string) error {
	return p.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(source).Do(ctx)
		return err
	}))
}

func (p *chromePage) HideAutomation(ctx context.Context) error {
	return p.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetAutomationOverride(false).Do(ctx)
	}))
}

func (p *chromePage) Navigate(ctx context.Context, url string, until WaitUntil, timeout time.Duration) (Navigation, error) {
	var final string
	err := p.run(ctx, timeout,
		navigateAndWait(url, until.lifecycleEvent()),
		chromedp.Location(&final),
	)
	if err != nil {
		return Navigation{}, err
	}
	return Navigation{URL: final}, nil
}

// navigateAndWait navigates the main frame and blocks until Chrome reports
// the lifecycle event for the new document. An empty event returns once
// the navigation is committed.
func navigateAndWait(url, event string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return err
		}

		events := make(chan *page.EventLifecycleEvent, 256)
		lctx, cancel := context.WithCancel(ctx)
		defer cancel()
		chromedp.ListenTarget(lctx, func(ev any) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok {
				select {
				case events <- e:
				default:
				}
			}
		})

		frameID, loaderID, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("navigation to %s failed: %s", url, errorText)
		}
		if event == "" {
			return nil
		}

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case e := <-events:
				if e.FrameID != frameID || e.Name != event {
					continue
				}
				// Same-document navigations have no loader.
				if loaderID == "" || e.LoaderID == loaderID {
					return nil
				}
			}
		}
	}
}

func (p *chromePage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *chromePage) Viewport(ctx context.Context) (Viewport, error) {
	var vp Viewport
	err := p.run(ctx, 0, chromedp.Evaluate(`({
		width: window.innerWidth,
		height: window.innerHeight,
		scrollHeight: document.documentElement ? document.documentElement.scrollHeight : 0
	})`, &vp))
	if err != nil {
		return Viewport{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if err := vp.Validate(); err != nil {
		return Viewport{}, err
	}
	return vp, nil
}

func (p *chromePage) ScrollTo(ctx context.Context, y float64, smooth bool) error {
	behavior := "instant"
	if smooth {
		behavior = "smooth"
	}
	js := fmt.Sprintf(`window.scrollTo({top: %s, behavior: %q})`, strconv.FormatFloat(y, 'f', 0, 64), behavior)
	return p.run(ctx, 0, chromedp.Evaluate(js, nil))
}

// MouseMove dispatches steps intermediate mouseMoved events on a straight
// line from the last known pointer position to (x, y).
func (p *chromePage) MouseMove(ctx context.Context, x, y float64, steps int) error {
	if steps < 1 {
		steps = 1
	}
	p.mu.Lock()
	fromX, fromY := p.mouseX, p.mouseY
	p.mu.Unlock()

	actions := make([]chromedp.Action, 0, steps)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px := math.Round(fromX + (x-fromX)*t)
		py := math.Round(fromY + (y-fromY)*t)
		actions = append(actions, chromedp.MouseEvent(input.MouseMoved, px, py))
	}
	if err := p.run(ctx, 0, actions...); err != nil {
		return err
	}

	p.mu.Lock()
	p.mouseX, p.mouseY = x, y
	p.mu.Unlock()
	return nil
}

func (p *chromePage) CountLinks(ctx context.Context) (int, error) {
	var n int
	if err := p.run(ctx, 0, chromedp.Evaluate(`document.querySelectorAll('a[href]').length`, &n)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: link count %d", ErrMalformedResult, n)
	}
	return n, nil
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, 0, chromedp.Title(&title))
	return title, err
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, 0, chromedp.Location(&loc))
	return loc, err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Close closes the tab.
func (p *chromePage) Close() error {
	p.closeOnce.Do(p.cancel)
	return nil
}

// emulateProfile applies the per-context identity to a fresh tab.
func emulateProfile(cfg Config, userAgent string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if userAgent != "" {
			override := emulation.SetUserAgentOverride(userAgent).
				WithAcceptLanguage(cfg.Locale + ",en;q=0.9")
			if platform := platformFor(userAgent); platform != "" {
				override = override.WithPlatform(platform)
			}
			if err := override.Do(ctx); err != nil {
				return fmt.Errorf("user agent override: %w", err)
			}
		}
		if err := emulation.SetLocaleOverride().WithLocale(cfg.Locale).Do(ctx); err != nil {
			return fmt.Errorf("locale override: %w", err)
		}
		if err := emulation.SetTimezoneOverride(cfg.Timezone).Do(ctx); err != nil {
			return fmt.Errorf("timezone override: %w", err)
		}
		return emulation.SetDeviceMetricsOverride(int64(cfg.WindowWidth), int64(cfg.WindowHeight), 1, false).Do(ctx)
	})
}
