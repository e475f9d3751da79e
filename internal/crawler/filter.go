package crawler

import (
	"net/url"
	"strings"
)

// skippedSchemes are href prefixes that never lead to a crawlable page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "file:"}

// ShouldCrawl applies the policy's domain scope and URL filters. Exclude
// patterns win over include patterns; an empty include list admits all.
func ShouldCrawl(rawURL, baseDomain string, policy Policy) bool {
	if policy.SameDomainOnly && !SameSite(Hostname(rawURL), baseDomain) {
		return false
	}

	for _, pattern := range policy.ExcludePatterns {
		if pattern != "" && strings.Contains(rawURL, pattern) {
			return false
		}
	}

	hasInclude := false
	for _, pattern := range policy.IncludePatterns {
		if pattern == "" {
			continue
		}
		hasInclude = true
		if strings.Contains(rawURL, pattern) {
			return true
		}
	}
	return !hasInclude
}

// ExtractLinks turns the raw hrefs of the page at currentURL into unique
// absolute candidate URLs, in document order. Non-web schemes, off-site
// links (when scoped), the page's origin root and the page itself are
// dropped; fragments are stripped.
func ExtractLinks(hrefs []string, baseDomain string, policy Policy, currentURL string) []string {
	base, err := url.Parse(currentURL)
	if err != nil || base.Host == "" {
		return nil
	}
	originRoot := base.Scheme + "://" + base.Host + "/"
	self := stripFragment(*base)

	var links []string
	seen := make(map[string]bool)

	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || hasSkippedScheme(href) {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if policy.SameDomainOnly && !SameSite(abs.Hostname(), baseDomain) {
			continue
		}

		link := stripFragment(*abs)
		if link == originRoot || link == strings.TrimSuffix(originRoot, "/") || link == self {
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}

	return links
}

func hasSkippedScheme(href string) bool {
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

func stripFragment(u url.URL) string {
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
