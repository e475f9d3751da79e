package browser

import (
	"os"
	"os/exec"

	"github.com/jmylchreest/sitecrawl/internal/logger"
)

// chromePathEnv overrides binary discovery.
const chromePathEnv = "CHROME_PATH"

// Common Chrome/Chromium binary names across different systems
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	// macOS paths
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	// Common Linux paths
	"/usr/bin/google-chrome-stable",
	"/usr/bin/google-chrome",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	// Windows paths
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// FindChromePath searches for a Chrome/Chromium binary. CHROME_PATH wins,
// then PATH lookup and common installation locations are tried in order.
// Returns empty string if no Chrome binary is found, in which case chromedp
// falls back to its own lookup.
func FindChromePath() string {
	if p := os.Getenv(chromePathEnv); p != "" {
		logger.Debug("using Chrome binary from environment", "path", p)
		return p
	}
	return lookupChrome(chromeBinaryNames, exec.LookPath)
}

func lookupChrome(names []string, lookPath func(string) (string, error)) string {
	for _, name := range names {
		if path, err := lookPath(name); err == nil {
			logger.Debug("found Chrome binary", "name", name, "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found, relying on chromedp discovery")
	return ""
}
