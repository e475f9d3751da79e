// Package fetcher drives one page through the browser: stealth setup, the
// load-strategy cascade, challenge detection, human-like behaviour, and
// extraction of title, text and links from the rendered DOM.
package fetcher

import (
	"errors"
	"time"
)

// Options controls fetching behavior for one page.
type Options struct {
	NavigationTimeout time.Duration // Bound for each load strategy
	SettleDelay       time.Duration // Wait after behaviour emulation
	ContentSelector   string        // CSS selector for the text, falls back to body
	CaptureHTML       bool          // Return the raw HTML in Content.HTML
}

// DefaultOptions returns the fetch options matching the default crawl policy.
func DefaultOptions() Options {
	return Options{
		NavigationTimeout: 60 * time.Second,
		SettleDelay:       3 * time.Second,
		ContentSelector:   "body",
	}
}

// withDefaults fills the fields a fetch cannot run without. A zero
// SettleDelay is kept: it means no settle wait.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = def.NavigationTimeout
	}
	if o.ContentSelector == "" {
		o.ContentSelector = def.ContentSelector
	}
	return o
}

// Content represents fetched page data.
type Content struct {
	URL       string   // Requested URL
	FinalURL  string   // URL after redirects
	Title     string   // Document title, or URL when the page has none
	Text      string   // Visible text of the content selector
	HTML      string   // Raw HTML, only with Options.CaptureHTML
	Links     []string // Raw href values in document order
	FetchedAt time.Time
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, fetcher.ErrCaptchaChallenge).
var (
	// ErrNavigation indicates every load strategy failed.
	ErrNavigation = errors.New("navigation failed")
	// ErrCaptchaChallenge indicates the page is a captcha or anti-bot challenge.
	ErrCaptchaChallenge = errors.New("captcha challenge detected")
	// ErrExtraction indicates the rendered page could not be read.
	ErrExtraction = errors.New("content extraction failed")
)
