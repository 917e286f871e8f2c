package roadmap

import (
	"sync"
	"time"

	"hiveroadmap/internal/platform/models"
)

type cachedOrganization struct {
	org      *models.OrganizationRaw
	cachedAt time.Time
}

// organizationCache keeps the last upstream organization for ttl. A zero
// ttl disables it.
type organizationCache struct {
	mu    sync.RWMutex
	entry *cachedOrganization
	ttl   time.Duration
	now   func() time.Time
}

func newOrganizationCache(ttl time.Duration) *organizationCache {
	return &organizationCache{ttl: ttl, now: time.Now}
}

func (c *organizationCache) Get() (*models.OrganizationRaw, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil || c.now().Sub(c.entry.cachedAt) > c.ttl {
		return nil, false
	}
	return c.entry.org, true
}

func (c *organizationCache) Set(org *models.OrganizationRaw) {
	if c == nil || c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entry = &cachedOrganization{org: org, cachedAt: c.now()}
	c.mu.Unlock()
}
