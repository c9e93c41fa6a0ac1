package workflow

import (
	"sort"
	"sync"
	"time"
)

// CacheEntry is one cached intermediate result.
type CacheEntry struct {
	Key        string    `json:"key"`
	Value      any       `json:"-"`
	ProducedBy int       `json:"produced_by"`
	Timestamp  time.Time `json:"timestamp"`
}

// Cache is the key/value store for results passed between tasks. A key,
// once written, returns its most recent value until deleted or cleared.
//
// The executor itself is sequential, but the cache is also read by the
// HTTP surface and the narrative integrator, so access is guarded.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
}

// NewCache creates an empty data cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*CacheEntry)}
}

// Set stores a value, overwriting any previous entry under key.
func (c *Cache) Set(key string, value any) {
	c.SetProducedBy(key, value, -1)
}

// SetProducedBy stores a value attributed to the producing task index.
func (c *Cache) SetProducedBy(key string, value any, taskIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &CacheEntry{
		Key:        key,
		Value:      value,
		ProducedBy: taskIndex,
		Timestamp:  time.Now(),
	}
}

// Get returns the value under key, or nil when absent.
func (c *Cache) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.entries[key]; ok {
		return entry.Value
	}
	return nil
}

// Entry returns the full cache entry under key.
func (c *Cache) Entry(key string) (*CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Exists reports whether key is present.
func (c *Cache) Exists(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Delete removes the entry under key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
}

// Keys returns all cached keys, newest first.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].Timestamp.After(c.entries[keys[j]].Timestamp)
	})
	return keys
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// DataForTask resolves the active dataset for a task, in priority
// order: inline "data" parameter, cache lookup via the "data_key"
// parameter, then the conventional default key. Values must be tabular.
func (c *Cache) DataForTask(task string, params Parameters) (*Dataset, error) {
	if raw, ok := params[ParamData]; ok && raw != nil {
		ds, ok := raw.(*Dataset)
		if !ok {
			return nil, NewDataMismatchError(task, ParamData, raw)
		}
		return ds, nil
	}

	if rawKey, ok := params[ParamDataKey]; ok {
		key, _ := rawKey.(string)
		if key != "" {
			if value := c.Get(key); value != nil {
				return assertDataset(task, key, value)
			}
		}
	}

	if value := c.Get(DefaultDataKey); value != nil {
		return assertDataset(task, DefaultDataKey, value)
	}

	return nil, NewNoDataError(task)
}

func assertDataset(task, key string, value any) (*Dataset, error) {
	ds, ok := value.(*Dataset)
	if !ok {
		return nil, NewDataMismatchError(task, key, value)
	}
	return ds, nil
}
