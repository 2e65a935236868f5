package browser

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type countKey struct {
	ConnectionID int64
	Collection   string
	Tenant       string
}

// CountCache remembers total object counts per collection and tenant.
// Entries expire after ttl so counts don't go stale forever.
type CountCache struct {
	lru *expirable.LRU[countKey, int64]
}

func NewCountCache(size int, ttl time.Duration) *CountCache {
	if size <= 0 {
		size = 256
	}
	return &CountCache{lru: expirable.NewLRU[countKey, int64](size, nil, ttl)}
}

func (c *CountCache) Get(connID int64, collection, tenant string) (int64, bool) {
	return c.lru.Get(countKey{connID, collection, tenant})
}

func (c *CountCache) Add(connID int64, collection, tenant string, n int64) {
	c.lru.Add(countKey{connID, collection, tenant}, n)
}

func (c *CountCache) Invalidate(connID int64, collection, tenant string) {
	c.lru.Remove(countKey{connID, collection, tenant})
}

// InvalidateConnection drops every count of a connection
func (c *CountCache) InvalidateConnection(connID int64) {
	for _, k := range c.lru.Keys() {
		if k.ConnectionID == connID {
			c.lru.Remove(k)
		}
	}
}

func (c *CountCache) Len() int {
	return c.lru.Len()
}
