package cache

import (
	"sync"
	"time"

	"packdash/models"
)

// StatsCache holds the last dashboard stats for a fixed TTL. Writers that
// change line items call Invalidate.
type StatsCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
	stats     models.DashboardStats
	expiresAt time.Time
	valid     bool
}

func NewStatsCache(ttl time.Duration) *StatsCache {
	return &StatsCache{ttl: ttl, now: time.Now}
}

func (c *StatsCache) Get() (models.DashboardStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || !c.now().Before(c.expiresAt) {
		return models.DashboardStats{}, false
	}
	return c.stats, true
}

func (c *StatsCache) Set(s models.DashboardStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = s
	c.expiresAt = c.now().Add(c.ttl)
	c.valid = c.ttl > 0
}

func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
