package fares

import (
	"sync"
	"time"

	"github.com/bluele/gcache"
)

// LedgerCache keeps recently used ledger snapshots keyed by route id.
// Snapshots are immutable, so a cached entry is either the old ledger or
// the new one, never a mix.
type LedgerCache struct {
	cache gcache.Cache

	mu   sync.Mutex
	gens map[uint]uint64 // bumped by Invalidate
}

// NewLedgerCache returns an LRU cache holding up to size ledgers, each for
// at most ttl. A zero ttl keeps entries until they are evicted or invalidated.
func NewLedgerCache(size int, ttl time.Duration) *LedgerCache {
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &LedgerCache{cache: b.Build(), gens: map[uint]uint64{}}
}

func (c *LedgerCache) get(routeID uint) (*Ledger, bool) {
	v, err := c.cache.Get(routeID)
	if err != nil {
		return nil, false
	}
	l, ok := v.(*Ledger)
	return l, ok
}

// generation returns the invalidation count of a route. Read it before
// loading a ledger and hand it to put.
func (c *LedgerCache) generation(routeID uint) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[routeID]
}

// put stores l unless the route was invalidated after gen was read, in
// which case l may predate the change and is dropped.
func (c *LedgerCache) put(routeID uint, gen uint64, l *Ledger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[routeID] != gen {
		return
	}
	_ = c.cache.Set(routeID, l)
}

// Invalidate drops the cached ledger of a route. Loads already in flight
// will not repopulate it.
func (c *LedgerCache) Invalidate(routeID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[routeID]++
	c.cache.Remove(routeID)
}

// Len reports the number of cached ledgers, expired ones excluded.
func (c *LedgerCache) Len() int {
	return c.cache.Len(true)
}
