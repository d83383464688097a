package metadata

import (
	"log/slog"
	"path/filepath"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// Maximum number of cached entries.
const CacheCapacity = 500

// Process-wide cache of assembly metadata keyed by [FileKey].
//
// Safe for concurrent use. Concurrent misses for the same key share one
// parse; the entry is stored once.
type Cache struct {
	items *ttlcache.Cache[FileKey, *Metadata]
	group singleflight.Group
}

// Counters describing cache effectiveness.
type Stats struct {
	Hits      uint64 // Lookups served from the cache.
	Misses    uint64 // Lookups that had to parse the file.
	Evictions uint64 // Entries dropped to make room.
	Entries   int    // Live entries.
}

// Creates an empty cache bounded to [CacheCapacity] entries.
func NewCache() *Cache {
	return newCache(CacheCapacity)
}

func newCache(capacity uint64) *Cache {
	items := ttlcache.New[FileKey, *Metadata](
		ttlcache.WithTTL[FileKey, *Metadata](ttlcache.NoTTL),
		ttlcache.WithCapacity[FileKey, *Metadata](capacity),
	)
	return &Cache{items: items}
}

// Releases resources held by the cache. Entries are discarded.
func (c *Cache) Close() {
	c.items.DeleteAll()
}

// Returns the metadata of the file at path.
//
// A cached entry with an equal [FileKey] is returned without touching the
// file. Otherwise the file is parsed and, for [AssemblyKind] only, the
// result is stored. A file that cannot be stat'ed is parsed on every call
// and never cached.
func (c *Cache) GetMetadata(path string, props Properties) (*Metadata, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	key, err := NewFileKey(path)
	if err != nil {
		slog.Debug("metadata key unavailable, reading uncached", "path", path, "error", err)
		return parse(path, FileKey{}, props)
	}

	if props.Kind == AssemblyKind {
		if item := c.items.Get(key); item != nil {
			return item.Value(), nil
		}
	}

	v, err, _ := c.group.Do(props.Kind.String()+"|"+key.String(), func() (any, error) {
		md, err := parse(path, key, props)
		if err != nil {
			return nil, err
		}
		if props.Kind == AssemblyKind {
			c.store(key, md)
		}
		return md, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Metadata), nil
}

// Stores md under key, evicting the least recently used entry when full.
func (c *Cache) store(key FileKey, md *Metadata) {
	c.items.Set(key, md, ttlcache.NoTTL)
}

// Returns true if key is cached, without affecting recency.
func (c *Cache) contains(key FileKey) bool {
	return c.items.Has(key)
}

// Returns the current cache counters.
func (c *Cache) Stats() Stats {
	m := c.items.Metrics()
	return Stats{
		Hits:      m.Hits,
		Misses:    m.Misses,
		Evictions: m.Evictions,
		Entries:   c.items.Len(),
	}
}
