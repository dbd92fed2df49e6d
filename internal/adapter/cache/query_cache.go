package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lawrag/internal/domain"
)

// QueryCache is a bounded LRU over retrieval results. Keys canonicalize
// the law filter (sorted, deduplicated) so filter order never causes a
// miss. Entries expire on TTL and on index generation change; the
// critical section covers only map/order bookkeeping, never search
// work.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	indexGen uint64
	hits     uint64
	misses   uint64
}

type cacheEntry struct {
	results   []domain.SearchResult
	timestamp time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Key builds the canonical cache key for a request tuple.
func Key(query string, laws []string, topK, maxChars int) string {
	canon := CanonicalFilter(laws)
	data := fmt.Sprintf("%s\x1f%s\x1f%d\x1f%d", query, strings.Join(canon, ","), topK, maxChars)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// CanonicalFilter returns the sorted, deduplicated law filter.
func CanonicalFilter(laws []string) []string {
	if len(laws) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(laws))
	canon := make([]string, 0, len(laws))
	for _, id := range laws {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		canon = append(canon, id)
	}
	sort.Strings(canon)
	return canon
}

func (c *QueryCache) Get(key string) ([]domain.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.indexGen != c.indexGen {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses++
		return nil, false
	}

	c.moveToEnd(key)
	c.hits++
	return entry.results, true
}

func (c *QueryCache) Put(key string, results []domain.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{
			results:   results,
			timestamp: time.Now(),
			indexGen:  c.indexGen,
		}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{
		results:   results,
		timestamp: time.Now(),
		indexGen:  c.indexGen,
	}
	c.order = append(c.order, key)
}

// Invalidate drops every entry; called after an index swap.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.indexGen++
}

// Stats returns hit count, miss count, and current size.
func (c *QueryCache) Stats() (hits, misses uint64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
