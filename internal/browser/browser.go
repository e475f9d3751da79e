// Package browser is the browser-session collaborator of the crawler: one
// long-lived Chrome process, one isolated browsing context per crawl, one
// short-lived page per fetched URL.
//
// The interfaces keep the crawler independent from chromedp; the Chrome
// implementation lives in session.go and page.go.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Session owns the browser process.
type Session interface {
	// NewContext opens an isolated browsing context (own cookies, cache and
	// storage) configured with a realistic profile.
	NewContext(ctx context.Context) (Context, error)

	// Close shuts the browser down.
	Close() error
}

// Context is an isolated browsing context owned by exactly one crawl.
type Context interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab. Every method that talks to the browser takes a
// context and returns typed values validated at this boundary.
type Page interface {
	// AddInitScript registers a script evaluated before any page script in
	// every new document of this page.
	AddInitScript(ctx context.Context, source string) error

	// HideAutomation overrides the automation flag at the protocol level.
	HideAutomation(ctx context.Context) error

	// Navigate loads url and waits for the given readiness signal, bounded
	// by timeout. WaitNone returns as soon as the navigation is committed.
	Navigate(ctx context.Context, url string, until WaitUntil, timeout time.Duration) (Navigation, error)

	// WaitForSelector waits until selector matches an element.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	Viewport(ctx context.Context) (Viewport, error)
	ScrollTo(ctx context.Context, y float64, smooth bool) error
	MouseMove(ctx context.Context, x, y float64, steps int) error

	// CountLinks returns the number of a[href] elements in the document.
	CountLinks(ctx context.Context) (int, error)

	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)

	Close() error
}

// WaitUntil is a navigation readiness signal.
type WaitUntil string

const (
	WaitNone             WaitUntil = ""
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitLoad             WaitUntil = "load"
	WaitNetworkIdle      WaitUntil = "networkidle"
)

// lifecycleEvent maps a readiness signal to the Page.lifecycleEvent name
// Chrome emits for it.
func (w WaitUntil) lifecycleEvent() string {
	switch w {
	case WaitDOMContentLoaded:
		return "DOMContentLoaded"
	case WaitLoad:
		return "load"
	case WaitNetworkIdle:
		return "networkIdle"
	default:
		return ""
	}
}

// Navigation is the outcome of a successful navigation.
type Navigation struct {
	URL string // final URL after redirects
}

// Viewport describes the visible window and the document height.
type Viewport struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	ScrollHeight float64 `json:"scrollHeight"`
}

// ErrMalformedResult is returned when the browser hands back a value that
// does not match the expected shape.
var ErrMalformedResult = errors.New("malformed browser result")

// Validate rejects shapes a real window cannot have.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 || v.ScrollHeight < 0 {
		return fmt.Errorf("%w: viewport %+v", ErrMalformedResult, v)
	}
	return nil
}
