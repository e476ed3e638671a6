package cache

import (
	"testing"
	"time"

	"packdash/models"
)

func TestStatsCacheExpiresAndInvalidates(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	c := NewStatsCache(30 * time.Second)
	c.now = func() time.Time { return now }

	if _, ok := c.Get(); ok {
		t.Fatalf("expected empty cache miss")
	}
	c.Set(models.DashboardStats{TotalRemessas: 3})
	if s, ok := c.Get(); !ok || s.TotalRemessas != 3 {
		t.Fatalf("expected hit, got %+v %v", s, ok)
	}

	now = now.Add(31 * time.Second)
	if _, ok := c.Get(); ok {
		t.Fatalf("expected expiry")
	}

	c.Set(models.DashboardStats{TotalRemessas: 4})
	c.Invalidate()
	if _, ok := c.Get(); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestStatsCacheZeroTTLNeverHits(t *testing.T) {
	c := NewStatsCache(0)
	c.Set(models.DashboardStats{TotalRemessas: 1})
	if _, ok := c.Get(); ok {
		t.Fatalf("expected zero ttl to disable caching")
	}
}
