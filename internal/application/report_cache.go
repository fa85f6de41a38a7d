package application

import (
	"sync"
	"time"
)

// reportCache stores recently computed utilization reports so repeated polls
// of the same window do not rescan the booking table. Entries expire on a
// short TTL and are purged whenever a booking is created or cancelled, so a
// report never misses a write that preceded it.
type reportCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]reportCacheEntry
}

type reportCacheEntry struct {
	report    []UtilizationEntry
	expiresAt time.Time
}

func newReportCache(ttl time.Duration, maxEntries int, now func() time.Time) *reportCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &reportCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]reportCacheEntry),
	}
}

func (c *reportCache) Get(key string) ([]UtilizationEntry, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneReport(entry.report), true
}

func (c *reportCache) Set(key string, report []UtilizationEntry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = reportCacheEntry{
		report:    cloneReport(report),
		expiresAt: c.now().Add(c.ttl),
	}
}

// Purge drops every cached report.
func (c *reportCache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]reportCacheEntry)
	c.mu.Unlock()
}

// evictLocked removes the entry closest to expiry. Callers hold the lock.
func (c *reportCache) evictLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = entry.expiresAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func cloneReport(report []UtilizationEntry) []UtilizationEntry {
	if report == nil {
		return nil
	}
	out := make([]UtilizationEntry, len(report))
	copy(out, report)
	return out
}
