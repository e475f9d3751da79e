// Package challenge detects captcha and anti-bot challenge pages.
//
// Detection reads the page once at the browser boundary (URL, title, HTML)
// and runs every heuristic on that snapshot with goquery, so DOM access in
// the browser is limited to a single serialization.
package challenge

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/sitecrawl/internal/htmltext"
	"github.com/jmylchreest/sitecrawl/internal/logger"
)

// Inspectable is the read-only view of a loaded page the classifier needs.
type Inspectable interface {
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
}

// Snapshot is the typed page state captured for classification.
type Snapshot struct {
	URL   string
	Title string
	HTML  string
}

// Rule identifies which heuristic flagged a page.
type Rule string

const (
	RuleNone     Rule = ""
	RuleSelector Rule = "selector"
	RuleURL      Rule = "url"
	RuleTitle    Rule = "title"
	RuleBodyText Rule = "body-text"
)

// Verdict is the classification outcome.
type Verdict struct {
	Blocked bool
	Rule    Rule
	Match   string // selector or keyword that matched
}

// bodyRepeatThreshold is the number of occurrences a keyword must exceed in
// the visible text before the page counts as a challenge.
const bodyRepeatThreshold = 2

// Selectors are the known captcha and challenge containers.
var Selectors = []string{
	// reCAPTCHA
	".g-recaptcha",
	"#recaptcha",
	"[data-sitekey]",
	`iframe[src*="recaptcha"]`,
	`iframe[src*="google.com/recaptcha"]`,
	// hCaptcha
	".h-captcha",
	`iframe[src*="hcaptcha"]`,
	// Cloudflare
	".cf-browser-verification",
	"#cf-wrapper",
	"#challenge-form",
	// generic
	`[class*="captcha"]`,
	`[id*="captcha"]`,
	`[class*="challenge"]`,
	`[id*="challenge"]`,
}

// URLKeywords mark a destination URL as a challenge page.
var URLKeywords = []string{
	"challenge",
	"captcha",
	"verify",
	"recaptcha",
	"hcaptcha",
	"cloudflare",
	"ddos",
	"protection",
	"checking",
}

// Keywords are searched in the page title and visible body text.
var Keywords = []string{
	"captcha",
	"verify you are human",
	"verify you're human",
	"i'm not a robot",
	"challenge",
	"cloudflare",
	"checking your browser",
	"please wait",
	"ddos protection",
}

// IsChallengeURL reports whether a URL looks like a captcha or challenge
// endpoint.
func IsChallengeURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, kw := range URLKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Capture reads the snapshot from a page.
func Capture(ctx context.Context, p Inspectable) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.URL, err = p.URL(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Title, err = p.Title(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.HTML, err = p.HTML(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// IsBlocked captures and classifies the page. When the page cannot be read
// it returns false so the page is still attempted.
func IsBlocked(ctx context.Context, p Inspectable) bool {
	snap, err := Capture(ctx, p)
	if err != nil {
		logger.Debug("challenge check skipped", "error", err)
		return false
	}
	v := Classify(snap)
	if v.Blocked {
		logger.Debug("challenge page detected", "url", snap.URL, "rule", v.Rule, "match", v.Match)
	}
	return v.Blocked
}

// Classify evaluates the heuristics in priority order: container selectors,
// destination URL, title keywords, repeated body keywords. The first match
// wins.
func Classify(s Snapshot) Verdict {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		doc = nil
	}

	if doc != nil {
		for _, sel := range Selectors {
			if doc.Find(sel).Length() > 0 {
				return Verdict{Blocked: true, Rule: RuleSelector, Match: sel}
			}
		}
	}

	lowerURL := strings.ToLower(s.URL)
	for _, kw := range URLKeywords {
		if strings.Contains(lowerURL, kw) {
			return Verdict{Blocked: true, Rule: RuleURL, Match: kw}
		}
	}

	title := strings.ToLower(s.Title)
	for _, kw := range Keywords {
		if strings.Contains(title, kw) {
			return Verdict{Blocked: true, Rule: RuleTitle, Match: kw}
		}
	}

	if doc == nil {
		return Verdict{}
	}
	body := strings.ToLower(visibleText(doc))
	for _, kw := range Keywords {
		if strings.Count(body, kw) > bodyRepeatThreshold {
			return Verdict{Blocked: true, Rule: RuleBodyText, Match: kw}
		}
	}
	return Verdict{}
}

// visibleText approximates innerText of the body.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	return htmltext.Text(body.First())
}
