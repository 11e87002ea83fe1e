// Package cache provides the in-memory recent-write cache that masks
// the lag between writing an issue and it appearing in the list API.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/rgopal/ghmark/internal/bookmark"
)

// DefaultTTL is how long a write is remembered. GitHub's issue list
// index typically catches up well within this window.
const DefaultTTL = 5 * time.Minute

// Entry records the last known remote record for a URL written by this
// process.
type Entry struct {
	URL         string
	IssueNumber int
	IssueURL    string
	CreatedAt   time.Time
}

// Cache is an in-memory URL -> Entry map with per-entry TTL. It is safe
// for concurrent use. Entries never outlive the process.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]Entry
	timers  map[string]*time.Timer
}

// New creates a cache with the given TTL using the wall clock.
func New(ttl time.Duration) *Cache {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock creates a cache with an injected clock, used by tests to
// control expiry.
func NewWithClock(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]Entry),
		timers:  make(map[string]*time.Timer),
	}
}

// Put records a successful write for url. Concurrent puts for the same
// key are last-write-wins; the eviction timer is reset each time.
func (c *Cache) Put(url string, issueNumber int, issueURL string) {
	key := normalizeKey(url)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{
		URL:         key,
		IssueNumber: issueNumber,
		IssueURL:    issueURL,
		CreatedAt:   c.now(),
	}
	c.entries[key] = entry

	if t, ok := c.timers[key]; ok {
		t.Stop()
	}
	stamp := entry.CreatedAt
	c.timers[key] = time.AfterFunc(c.ttl, func() {
		c.evict(key, stamp)
	})
}

// evict removes an entry when its timer fires, unless the entry was
// replaced by a newer put in the meantime.
func (c *Cache) evict(key string, createdAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && e.CreatedAt.Equal(createdAt) {
		delete(c.entries, key)
		delete(c.timers, key)
	}
}

// Get looks up url, first by exact key, then trailing-slash-insensitively
// against every live entry. Entries past their TTL are treated as absent
// and dropped.
func (c *Cache) Get(url string) (Entry, bool) {
	key := normalizeKey(url)
	if key == "" {
		return Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if c.fresh(e) {
			return e, true
		}
		c.remove(key)
	}

	for k, e := range c.entries {
		if !bookmark.SameURL(key, e.URL) {
			continue
		}
		if c.fresh(e) {
			return e, true
		}
		c.remove(k)
	}

	return Entry{}, false
}

// Remove drops the entry for url, if any, matching the same way Get
// does. Used when a bookmark is closed so a later save starts fresh.
func (c *Cache) Remove(url string) {
	key := normalizeKey(url)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.remove(key)
		return
	}
	for k, e := range c.entries {
		if bookmark.SameURL(key, e.URL) {
			c.remove(k)
			return
		}
	}
}

// Clear drops all entries and stops their timers.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, t := range c.timers {
		t.Stop()
		delete(c.timers, k)
	}
	c.entries = make(map[string]Entry)
}

// Len reports the number of live entries, counting expired ones out.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if c.fresh(e) {
			n++
		}
	}
	return n
}

func (c *Cache) fresh(e Entry) bool {
	return c.now().Sub(e.CreatedAt) < c.ttl
}

// remove must be called with the lock held.
func (c *Cache) remove(key string) {
	if t, ok := c.timers[key]; ok {
		t.Stop()
		delete(c.timers, key)
	}
	delete(c.entries, key)
}

func normalizeKey(url string) string {
	return strings.TrimSpace(url)
}
