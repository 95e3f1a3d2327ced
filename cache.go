package polystore

// CacheKey identifies a resolved relationship value within one traversal.
type CacheKey struct {
	Value string // Foreign-key value (or owner id for collection lookups)
	Type  string // Target entity type
	Scope string // Optional owner qualifier, "" for target-identity keys
}

// String returns the string representation of the cache key.
// Unscoped keys are the plain concatenation of value and type.
func (k CacheKey) String() string {
	if k.Scope == "" {
		return k.Value + k.Type
	}
	return k.Scope + ":" + k.Value + k.Type
}

// Cache holds relationship values already fetched during a single
// traversal. It is not safe for concurrent use; a traversal owns its cache
// exclusively and discards it when the traversal ends.
type Cache struct {
	entries map[string]any
	hits    int
	misses  int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Get returns the value stored under key.
func (c *Cache) Get(key CacheKey) (any, bool) {
	v, ok := c.entries[key.String()]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores v under key, replacing any previous value.
func (c *Cache) Put(key CacheKey, v any) {
	c.entries[key.String()] = v
}

// Len returns the number of cached keys.
func (c *Cache) Len() int { return len(c.entries) }

// Hits returns the number of successful lookups.
func (c *Cache) Hits() int { return c.hits }

// Misses returns the number of failed lookups.
func (c *Cache) Misses() int { return c.misses }
