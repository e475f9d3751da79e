// Package stealth installs browser-environment patches that make an
// automated page look like an ordinary desktop Chrome session.
//
// Patches are applied before navigation through the browser's init-script
// mechanism, followed by one DevTools-protocol level override of the
// automation flag. Failures are logged and swallowed: the layer lowers the
// detection rate but never decides whether a page can be crawled.
package stealth

import (
	"context"

	"github.com/jmylchreest/sitecrawl/internal/logger"
)

// Target is the part of a browser page the patches are installed on.
type Target interface {
	// AddInitScript registers a script evaluated in every new document
	// before any page script runs.
	AddInitScript(ctx context.Context, source string) error

	// HideAutomation disables the automation flag at the protocol level.
	HideAutomation(ctx context.Context) error
}

// Report summarises one Apply call.
type Report struct {
	Applied  int
	Failed   []string
	Override bool // protocol-level automation override succeeded
}

// Patches returns a copy of the installed patch list.
func Patches() []Patch {
	out := make([]Patch, len(patches))
	copy(out, patches)
	return out
}

// Apply installs every patch on t. It never returns an error; the report is
// informational.
func Apply(ctx context.Context, t Target) Report {
	var report Report
	for _, p := range Patches() {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, p.Name)
			continue
		}
		if err := t.AddInitScript(ctx, p.Script); err != nil {
			logger.Debug("stealth patch failed", "patch", p.Name, "error", err)
			report.Failed = append(report.Failed, p.Name)
			continue
		}
		report.Applied++
	}

	if err := t.HideAutomation(ctx); err != nil {
		logger.Debug("automation override failed", "error", err)
	} else {
		report.Override = true
	}

	if len(report.Failed) > 0 {
		logger.Warn("some stealth patches were not applied",
			"applied", report.Applied,
			"failed", len(report.Failed))
	} else {
		logger.Debug("stealth patches applied", "count", report.Applied, "override", report.Override)
	}
	return report
}
