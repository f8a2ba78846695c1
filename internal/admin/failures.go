package admin

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	defaultFailureThreshold = 5
	defaultFailureWindow    = 5 * time.Minute
)

// FailureCounter counts wrong admin passwords per client in a sliding
// window. It only feeds logs and never refuses a request.
type FailureCounter struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	hits   map[string][]time.Time
}

func NewFailureCounter(window time.Duration) *FailureCounter {
	if window <= 0 {
		window = defaultFailureWindow
	}
	return &FailureCounter{
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// Fail records one failed attempt and returns the count inside the window.
func (c *FailureCounter) Fail(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	hits := append(c.prune(key, now), now)
	c.hits[key] = hits
	return len(hits)
}

// Count returns the failures of key inside the window.
func (c *FailureCounter) Count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prune(key, c.now()))
}

// Reset forgets key after a successful attempt.
func (c *FailureCounter) Reset(key string) {
	c.mu.Lock()
	delete(c.hits, key)
	c.mu.Unlock()
}

func (c *FailureCounter) prune(key string, now time.Time) []time.Time {
	hits := c.hits[key]
	cutoff := now.Add(-c.window)
	idx := 0
	for _, hit := range hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	hits = hits[idx:]
	if len(hits) == 0 {
		delete(c.hits, key)
		return nil
	}
	c.hits[key] = hits
	return hits
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
