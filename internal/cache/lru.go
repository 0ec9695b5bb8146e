// Package cache provides the Community and Pro tier caches behind
// the domain Cache interface.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clearskin/accord/internal/domain"
)

// LRUCache is the Community tier cache and the L1 of the two-phase
// cache. Byte values live in an LRU list with per-entry TTL; session
// snapshots and run counters are held in typed side tables so the
// reconcile path never pays a JSON round-trip for a snapshot lookup.
type LRUCache struct {
	mu       sync.Mutex
	cap      int
	now      func() time.Time
	entries  map[string]*list.Element
	lru      *list.List
	sessions map[string]sessionEntry
	counters map[string]counterEntry
}

type byteEntry struct {
	scoped   string
	data     []byte
	deadline time.Time
}

// sessionEntry holds a snapshot as-is. Callers treat snapshots as
// read-only once cached.
type sessionEntry struct {
	snap     *domain.SessionSnapshot
	deadline time.Time
}

type counterEntry struct {
	count    int64
	deadline time.Time
}

// NewLRUCache creates an LRU cache bounded to maxSize byte entries.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &LRUCache{
		cap:      maxSize,
		now:      time.Now,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		sessions: make(map[string]sessionEntry),
		counters: make(map[string]counterEntry),
	}
}

// scope prefixes a key with its clinic so clinics can never read each
// other's entries.
func scope(clinicID, key string) string {
	return clinicID + "/" + key
}

// Get retrieves a byte value. A miss or an expired entry returns
// nil, nil.
func (c *LRUCache) Get(ctx context.Context, clinicID string, key string) ([]byte, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinicID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[scope(clinicID, key)]
	if !ok {
		return nil, nil
	}

	entry := elem.Value.(*byteEntry)
	if c.now().After(entry.deadline) {
		c.drop(elem)
		return nil, nil
	}

	c.lru.MoveToFront(elem)
	return entry.data, nil
}

// Set stores a byte value with a TTL, evicting the least recently
// used entries when over capacity.
func (c *LRUCache) Set(ctx context.Context, clinicID string, key string, value []byte, ttl time.Duration) error {
	if clinicID == "" {
		return fmt.Errorf("clinicID is required")
	}

	scoped := scope(clinicID, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[scoped]; ok {
		entry := elem.Value.(*byteEntry)
		entry.data = value
		entry.deadline = c.now().Add(ttl)
		c.lru.MoveToFront(elem)
		return nil
	}

	c.entries[scoped] = c.lru.PushFront(&byteEntry{
		scoped:   scoped,
		data:     value,
		deadline: c.now().Add(ttl),
	})

	for c.lru.Len() > c.cap {
		if oldest := c.lru.Back(); oldest != nil {
			c.drop(oldest)
		}
	}

	return nil
}

// Delete removes a byte value.
func (c *LRUCache) Delete(ctx context.Context, clinicID string, key string) error {
	if clinicID == "" {
		return fmt.Errorf("clinicID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[scope(clinicID, key)]; ok {
		c.drop(elem)
	}
	return nil
}

// GetSession returns the cached snapshot for a session, or nil, nil
// when none is cached. The snapshot is returned as stored, bands and
// profile intact, with no decoding step.
func (c *LRUCache) GetSession(ctx context.Context, clinicID string, sessionID string) (*domain.SessionSnapshot, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinicID is required")
	}

	scoped := scope(clinicID, sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.sessions[scoped]
	if !ok {
		return nil, nil
	}
	if c.now().After(entry.deadline) {
		delete(c.sessions, scoped)
		return nil, nil
	}
	return entry.snap, nil
}

// SetSession caches a session snapshot for the reconcile pipeline.
func (c *LRUCache) SetSession(ctx context.Context, clinicID string, sessionID string, snap *domain.SessionSnapshot, ttl time.Duration) error {
	if clinicID == "" {
		return fmt.Errorf("clinicID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[scope(clinicID, sessionID)] = sessionEntry{
		snap:     snap,
		deadline: c.now().Add(ttl),
	}
	return nil
}

// IncrementCounter bumps a windowed counter and returns the new
// value. A counter whose window has lapsed restarts at 1.
func (c *LRUCache) IncrementCounter(ctx context.Context, clinicID string, key string, window time.Duration) (int64, error) {
	if clinicID == "" {
		return 0, fmt.Errorf("clinicID is required")
	}

	scoped := scope(clinicID, "counter/"+key)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.counters[scoped]
	if !ok || now.After(entry.deadline) {
		c.counters[scoped] = counterEntry{count: 1, deadline: now.Add(window)}
		return 1, nil
	}

	entry.count++
	c.counters[scoped] = entry
	return entry.count, nil
}

// Ping always succeeds for the in-process cache.
func (c *LRUCache) Ping(ctx context.Context) error {
	return nil
}

// Close discards all cached state.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru = list.New()
	c.sessions = make(map[string]sessionEntry)
	c.counters = make(map[string]counterEntry)
	return nil
}

// Stats returns the number of byte entries and the configured
// capacity.
func (c *LRUCache) Stats() (size int, capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.cap
}

// drop removes an element from both the list and the index. Callers
// hold the lock.
func (c *LRUCache) drop(elem *list.Element) {
	c.lru.Remove(elem)
	delete(c.entries, elem.Value.(*byteEntry).scoped)
}
