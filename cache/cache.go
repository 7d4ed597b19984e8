// Package cache keeps recent harvest responses in memory so repeated API
// calls for the same catalog can skip the browser.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/use-agent/cataloger/models"
)

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  models.HarvestResponse
	createdAt time.Time
}

// Cache is an in-memory response cache bounded by entry count.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a Cache holding up to maxEntries responses. Entries older
// than ttl are swept by a background goroutine until Close is called.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	go c.cleanupLoop()
	return c
}

// Key identifies a harvest by everything in the body that changes its
// result.
func Key(body models.HarvestBody) string {
	stealth := ""
	if body.Stealth != nil {
		stealth = strconv.FormatBool(*body.Stealth)
	}

	h := sha256.New()
	for _, part := range []string{
		body.URL,
		body.FetchMode,
		body.ReadySelector,
		strconv.Itoa(body.StepTimeout),
		strconv.Itoa(body.ScrollTimeoutMs),
		strconv.Itoa(body.MaxScrolls),
		strconv.Itoa(body.ScrollBudget),
		stealth,
	} {
		h.Write([]byte(part))
		h.Write([]byte("|"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached response younger than maxAgeMs milliseconds.
// maxAgeMs <= 0 disables the lookup.
func (c *Cache) Get(key string, maxAgeMs int) (models.HarvestResponse, bool) {
	if maxAgeMs <= 0 {
		return models.HarvestResponse{}, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return models.HarvestResponse{}, false
	}
	if c.now().Sub(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return models.HarvestResponse{}, false
	}
	return e.response, true
}

// Set stores a successful response. At capacity the oldest entry is evicted.
func (c *Cache) Set(key string, resp models.HarvestResponse) {
	if !resp.Success {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}

	c.store[key] = &entry{response: resp, createdAt: c.now()}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the background sweeper.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache) sweep() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

// cleanupLoop sweeps expired entries every ttl/4 (at least once a minute).
func (c *Cache) cleanupLoop() {
	if c.ttl <= 0 {
		return
	}
	interval := c.ttl / 4
	if interval > time.Minute || interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}
