package cooldown

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Tracker keeps per (guild, user) cooldown expiries in memory. Expired
// entries read as absent and are dropped lazily.
type Tracker struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]time.Time
	locks   map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewTracker() *Tracker {
	return &Tracker{
		clock:   realClock{},
		entries: make(map[string]time.Time),
		locks:   make(map[string]*keyLock),
	}
}

func (t *Tracker) WithClock(clock Clock) {
	t.clock = clock
}

func (t *Tracker) Now() time.Time {
	return t.clock.Now()
}

// Check returns the whole seconds, rounded up, until the cooldown for
// userID in guildID ends, or 0 if none is active.
func (t *Tracker) Check(guildID, userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := guildID + ":" + userID
	expiry, ok := t.entries[key]
	if !ok {
		return 0
	}
	remaining := expiry.Sub(t.clock.Now())
	if remaining <= 0 {
		delete(t.entries, key)
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Set starts a cooldown of length d from now, replacing any previous one.
func (t *Tracker) Set(guildID, userID string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := guildID + ":" + userID
	if d <= 0 {
		delete(t.entries, key)
		return
	}
	t.entries[key] = t.clock.Now().Add(d)
}

// Sweep drops expired entries and reports how many were removed.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	removed := 0
	for key, expiry := range t.entries {
		if !expiry.After(now) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Lock serializes callers working on the same (guild, user) key so a
// check and the matching set cannot interleave with another request. The
// returned func releases the lock.
func (t *Tracker) Lock(guildID, userID string) func() {
	key := guildID + ":" + userID

	t.mu.Lock()
	lock := t.locks[key]
	if lock == nil {
		lock = &keyLock{}
		t.locks[key] = lock
	}
	lock.refs++
	t.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		t.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}
