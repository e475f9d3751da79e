package browser

import (
	"strings"
	"sync"
)

// rotator hands out user agents round-robin.
type rotator struct {
	mu     sync.Mutex
	agents []string
	next   int
}

func newRotator(agents []string) *rotator {
	return &rotator{agents: append([]string(nil), agents...)}
}

// Next returns the next user agent, or "" when none are configured.
func (r *rotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.agents) == 0 {
		return ""
	}
	ua := r.agents[r.next%len(r.agents)]
	r.next++
	return ua
}

// platformFor returns the navigator.platform value matching a user agent so
// the two never disagree.
func platformFor(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Windows"):
		return "Win32"
	case strings.Contains(userAgent, "Macintosh"):
		return "MacIntel"
	case strings.Contains(userAgent, "Linux"):
		return "Linux x86_64"
	default:
		return ""
	}
}
