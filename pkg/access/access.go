// Package access decides whether a caller may use the lookup service: API
// key check, allow-listed user ids and a per-key token bucket.
package access

import (
	"crypto/subtle"
	"sync"

	"github.com/rubiojr/crmdesk/pkg/clock"
	"golang.org/x/time/rate"
)

// Settings is the reloadable access policy.
type Settings struct {
	APIKey         string
	AllowedUserIDs []string
	// RateLimitPerMin is both the bucket capacity and the number of tokens
	// refilled per minute. Zero or less disables rate limiting.
	RateLimitPerMin int
}

// Control is safe for concurrent use.
type Control struct {
	clock clock.Clock

	mu       sync.RWMutex
	apiKey   string
	allowed  map[string]struct{}
	perMin   int
	limiters map[string]*rate.Limiter
}

func New(s Settings, c clock.Clock) *Control {
	if c == nil {
		c = clock.Real()
	}
	ctl := &Control{clock: c}
	ctl.Update(s)
	return ctl
}

// Update replaces the policy. Buckets are kept unless the rate changed.
func (c *Control) Update(s Settings) {
	allowed := make(map[string]struct{}, len(s.AllowedUserIDs))
	for _, id := range s.AllowedUserIDs {
		allowed[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = s.APIKey
	c.allowed = allowed
	if c.limiters == nil || c.perMin != s.RateLimitPerMin {
		c.limiters = make(map[string]*rate.Limiter)
	}
	c.perMin = s.RateLimitPerMin
}

// CheckAPIKey reports whether provided matches the configured key. With no
// key configured every request is refused.
func (c *Control) CheckAPIKey(provided string) bool {
	c.mu.RLock()
	key := c.apiKey
	c.mu.RUnlock()

	if key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1
}

// IsAllowedUser reports whether id is on the allow-list. An empty list
// allows nobody.
func (c *Control) IsAllowedUser(id string) bool {
	if id == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.allowed[id]
	return ok
}

// Allow takes one token from key's bucket.
func (c *Control) Allow(key string) bool {
	c.mu.Lock()
	if c.perMin <= 0 {
		c.mu.Unlock()
		return true
	}
	lim, ok := c.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(c.perMin)/60), c.perMin)
		c.limiters[key] = lim
	}
	c.mu.Unlock()

	return lim.AllowN(c.clock.Now(), 1)
}
