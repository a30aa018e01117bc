package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
)

type catalogEntry struct {
	catalog domain.ColumnCatalog
	at      time.Time
}

// CatalogCache keeps discovered table layouts for a fixed TTL.
// A zero TTL disables caching.
type CatalogCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]catalogEntry
	now     func() time.Time
}

func NewCatalogCache(ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		ttl:     ttl,
		entries: make(map[string]catalogEntry),
		now:     time.Now,
	}
}

// Get returns the cached catalog of table when it is younger than the TTL.
func (c *CatalogCache) Get(table string) (domain.ColumnCatalog, bool) {
	if c.ttl <= 0 {
		return domain.ColumnCatalog{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[table]
	if !ok || c.now().Sub(e.at) >= c.ttl {
		return domain.ColumnCatalog{}, false
	}
	return e.catalog, true
}

func (c *CatalogCache) Put(table string, catalog domain.ColumnCatalog) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[table] = catalogEntry{catalog: catalog, at: c.now()}
}

// Invalidate drops every entry.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]catalogEntry)
}

// Len returns the number of cached tables, expired ones included.
func (c *CatalogCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
