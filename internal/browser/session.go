package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/sitecrawl/internal/logger"
)

// ChromeSession is a Session backed by one headless Chrome process.
type ChromeSession struct {
	config      Config
	agents      *rotator
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

// NewChromeSession launches Chrome and waits until it accepts commands.
func NewChromeSession(cfg Config) (*ChromeSession, error) {
	cfg = cfg.withDefaults()
	if cfg.ExecPath == "" {
		cfg.ExecPath = FindChromePath()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Printf("chromedp")),
		chromedp.WithErrorf(logger.Printf("chromedp error")),
	)

	// The first Run starts the process. It must not carry a timeout, which
	// would kill the browser when it fires, so the deadline is enforced by
	// cancelling from the side.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	select {
	case err := <-started:
		if err != nil {
			cancel()
			cancelAlloc()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-time.After(cfg.StartTimeout):
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: no response within %s", cfg.StartTimeout)
	}

	logger.Debug("browser session started",
		"exec", cfg.ExecPath,
		"headless", cfg.Headless,
		"user_agents", len(cfg.UserAgents))

	return &ChromeSession{
		config:      cfg,
		agents:      newRotator(cfg.UserAgents),
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancel:      cancel,
	}, nil
}

// NewContext opens an isolated browser context. Pages opened from it share
// its cookies and storage and nothing else.
func (s *ChromeSession) NewContext(ctx context.Context) (Context, error) {
	if err := s.browserCtx.Err(); err != nil {
		return nil, fmt.Errorf("browser session closed: %w", err)
	}

	bctx, cancel := chromedp.NewContext(s.browserCtx, chromedp.WithNewBrowserContext())
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	// Creates the browser context and its initial blank target.
	if err := chromedp.Run(bctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	ua := s.agents.Next()
	logger.Debug("browser context created", "user_agent", ua)

	return &chromeContext{
		ctx:       bctx,
		cancel:    cancel,
		config:    s.config,
		userAgent: ua,
	}, nil
}

// Close shuts down the browser process.
func (s *ChromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.cancelAlloc()
		logger.Debug("browser session closed")
	})
	return nil
}

// chromeContext is a Context bound to one chromedp browser context.
type chromeContext struct {
	ctx       context.Context
	cancel    context.CancelFunc
	config    Config
	userAgent string
	closeOnce sync.Once
}

// NewPage opens a tab in the browser context and applies the emulated
// profile (user agent, locale, timezone, viewport).
func (c *chromeContext) NewPage(ctx context.Context) (Page, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, fmt.Errorf("browser context closed: %w", err)
	}

	tabCtx, cancel := chromedp.NewContext(c.ctx)
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tabCtx, emulateProfile(c.config, c.userAgent)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

// Close disposes the browser context and every page still open in it.
func (c *chromeContext) Close() error {
	c.closeOnce.Do(c.cancel)
	return nil
}
