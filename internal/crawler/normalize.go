// Package crawler walks one site per crawl: it normalizes and filters URLs,
// schedules page fetches depth-first within the policy's budgets, and
// assembles the pages and per-page errors into a Result.
package crawler

import (
	"net"
	"net/url"
	"slices"
	"strings"
)

// Normalize returns the canonical form of rawURL used for dedup and domain
// comparison. Absolute http(s) URLs are parsed as-is; anything else is
// resolved against https://baseDomain, and fails when baseDomain is empty.
// The fragment is dropped, the host lowercased, default ports removed and
// query parameters sorted by key. Malformed input reports false.
func Normalize(rawURL, baseDomain string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		if baseDomain == "" {
			return "", false
		}
		base, err := url.Parse("https://" + baseDomain + "/")
		if err != nil || base.Host == "" {
			return "", false
		}
		u = base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Hostname() == "" {
		return "", false
	}

	u.Host = canonicalHost(u)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	u.RawQuery = sortQuery(u.RawQuery)
	u.ForceQuery = false

	return u.String(), true
}

// canonicalHost lowercases the host and drops the scheme's default port.
func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}

// sortQuery orders raw query parameters by key. Parameters sharing a key
// keep their relative order and their original encoding.
func sortQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var params []string
	for _, p := range strings.Split(rawQuery, "&") {
		if p != "" {
			params = append(params, p)
		}
	}
	slices.SortStableFunc(params, func(a, b string) int {
		return strings.Compare(queryKey(a), queryKey(b))
	})
	return strings.Join(params, "&")
}

func queryKey(param string) string {
	key, _, _ := strings.Cut(param, "=")
	return key
}

// StripWWW lowercases host and removes a leading "www.".
func StripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// SameSite reports whether two hosts name the same site, ignoring case and
// a leading "www.".
func SameSite(hostA, hostB string) bool {
	a, b := StripWWW(hostA), StripWWW(hostB)
	return a != "" && a == b
}

// Hostname returns the host of rawURL without port, or "" when it does not
// parse.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
