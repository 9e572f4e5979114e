package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

// Cache stores successful responses keyed by tenant, scope and query text.
// Implementations must return the stored response unchanged so repeated
// lookups within the TTL are indistinguishable.
type Cache interface {
	Get(ctx context.Context, key string) (*models.QueryResponse, bool)
	Set(ctx context.Context, key string, resp *models.QueryResponse, ttl time.Duration) error
	Clear(ctx context.Context) error
	Len() int
}

type memoryEntry struct {
	resp      *models.QueryResponse
	expiresAt time.Time
	hits      int64
}

// MemoryCache is the in-process default. Expired entries are dropped lazily
// on read and swept opportunistically on write.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	clock   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*memoryEntry),
		clock:   time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*models.QueryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.clock().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	entry.hits++
	return entry.resp, true
}

func (c *MemoryCache) Set(ctx context.Context, key string, resp *models.QueryResponse, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	for k, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = &memoryEntry{resp: resp, expiresAt: now.Add(ttl)}
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memoryEntry)
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
