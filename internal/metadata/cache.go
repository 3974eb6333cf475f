package metadata

import "sync"

type cacheKey struct {
	genesisHash string
	specVersion uint32
}

// Cache holds parsed metadata keyed by (genesis hash, spec version). Spec
// versions are not unique across chains, so the genesis hash is part of the
// key. Entries are immutable; a runtime upgrade produces a new entry under a
// new key, never an in-place update.
//
// The cache starts empty and is only emptied by Clear. Callers construct and
// inject their own instance; there is no package-level singleton.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*Metadata
}

// NewCache builds an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*Metadata)}
}

// Get returns the cached metadata for the key, if present.
func (c *Cache) Get(genesisHash string, specVersion uint32) (*Metadata, bool) {
	c.mu.RLock()
	meta, ok := c.entries[cacheKey{genesisHash, specVersion}]
	c.mu.RUnlock()
	return meta, ok
}

// Put stores metadata under the key. Two concurrent builds of the same key
// are equivalent, so the last write winning is fine; only the map mutation
// is locked.
func (c *Cache) Put(genesisHash string, specVersion uint32, meta *Metadata) {
	c.mu.Lock()
	c.entries[cacheKey{genesisHash, specVersion}] = meta
	c.mu.Unlock()
}

// Clear evicts every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]*Metadata)
	c.mu.Unlock()
}
