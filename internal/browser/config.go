package browser

import (
	"time"
)

// Config holds configuration for the Chrome session.
type Config struct {
	ExecPath     string        // Chrome binary; discovered when empty
	Headless     bool          // Run without a visible window
	UserAgents   []string      // Rotated per browsing context
	Locale       string        // navigator.language and Accept-Language
	Timezone     string        // IANA timezone reported to pages
	WindowWidth  int           // Viewport width
	WindowHeight int           // Viewport height
	StartTimeout time.Duration // Max time to launch Chrome
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:     true,
		UserAgents:   DefaultUserAgents(),
		Locale:       "en-US",
		Timezone:     "America/New_York",
		WindowWidth:  1920,
		WindowHeight: 1080,
		StartTimeout: 30 * time.Second,
	}
}

// DefaultUserAgents returns the desktop Chrome user agents rotated across
// browsing contexts.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.UserAgents) == 0 {
		c.UserAgents = def.UserAgents
	}
	if c.Locale == "" {
		c.Locale = def.Locale
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		c.WindowWidth, c.WindowHeight = def.WindowWidth, def.WindowHeight
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = def.StartTimeout
	}
	return c
}
