package history

// Cache is a bounded in-memory snapshot cache fronting the persistent
// store. Eviction is by insertion order, not access order: once the cap is
// exceeded the oldest-inserted entries are removed until the size is back
// at the cap. The cache is owned and serialized by the Engine and performs
// no locking of its own.
type Cache struct {
	cap     int
	entries map[SnapshotID]Snapshot
	order   []SnapshotID
}

// DefaultCacheSize is the number of snapshots kept in memory.
const DefaultCacheSize = 20

// NewCache creates a cache holding at most size snapshots. A size of zero
// or less falls back to DefaultCacheSize.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		cap:     size,
		entries: make(map[SnapshotID]Snapshot, size),
	}
}

// Get returns the cached snapshot for id, or nil when absent.
func (c *Cache) Get(id SnapshotID) Snapshot {
	return c.entries[id]
}

// Has reports whether id is currently cached.
func (c *Cache) Has(id SnapshotID) bool {
	_, ok := c.entries[id]
	return ok
}

// Put inserts a snapshot, evicting the oldest-inserted entries if the cap
// would be exceeded. Re-inserting an existing id refreshes the blob without
// changing its insertion position.
func (c *Cache) Put(id SnapshotID, snap Snapshot) {
	if _, ok := c.entries[id]; ok {
		c.entries[id] = snap
		return
	}
	c.entries[id] = snap
	c.order = append(c.order, id)
	for len(c.entries) > c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Delete removes id from the cache if present.
func (c *Cache) Delete(id SnapshotID) {
	if _, ok := c.entries[id]; !ok {
		return
	}
	delete(c.entries, id)
	for i, ordered := range c.order {
		if ordered == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Clear drops every cached snapshot.
func (c *Cache) Clear() {
	c.entries = make(map[SnapshotID]Snapshot, c.cap)
	c.order = c.order[:0]
}

// Len reports the current population.
func (c *Cache) Len() int { return len(c.entries) }
