package browser

import (
	"github.com/chromedp/chromedp"
)

// allocatorOptions returns the Chrome flags for a crawl session: chromedp
// defaults, the anti-detection flags, and the window profile from cfg.
func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),

		// Anti-detection flags
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process,Translate"),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-plugins-discovery", true),

		// Realistic browser behavior
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("use-fake-ui-for-media-stream", true),

		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.Flag("accept-lang", cfg.Locale+",en;q=0.9"),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if len(cfg.UserAgents) > 0 {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgents[0]))
	}
	return opts
}
