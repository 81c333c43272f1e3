// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chatbot

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teradata-labs/quill/pkg/types"
)

// DefaultCacheSize bounds the per-thread query cache. The cache is a
// convenience layer over conversation history, not a source of truth, so
// a small bound keeps memory flat without losing anything that cannot be
// rebuilt.
const DefaultCacheSize = 10

// Fingerprint derives the stable identifier for an executed query: the
// first 12 hex characters of the SHA-256 of the whitespace-trimmed SQL.
// Identical SQL always yields the identical fingerprint, so re-running a
// question refreshes the existing cache entry instead of duplicating it.
func Fingerprint(sql string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sql)))
	return hex.EncodeToString(sum[:])[:12]
}

// QueryCache holds recent successful query results keyed by fingerprint.
// Safe for concurrent use; one cache is shared by all runs of a thread.
type QueryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*types.CacheEntry
}

// NewQueryCache returns a cache bounded to capacity entries. A capacity
// of zero or less falls back to DefaultCacheSize.
func NewQueryCache(capacity int) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &QueryCache{
		capacity: capacity,
		entries:  make(map[string]*types.CacheEntry),
	}
}

// Put stores entry under id, evicting the globally oldest entry (by
// StoredAt) when the cache is at capacity. Re-putting an existing id
// replaces the entry without eviction.
func (c *QueryCache) Put(id string, entry *types.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[id]; !exists && len(c.entries) >= c.capacity {
		oldestID := ""
		var oldest time.Time
		for candidate, e := range c.entries {
			if oldestID == "" || e.StoredAt.Before(oldest) {
				oldestID = candidate
				oldest = e.StoredAt
			}
		}
		delete(c.entries, oldestID)
	}
	c.entries[id] = entry
}

// Get returns the entry for id, if present.
func (c *QueryCache) Get(id string) (*types.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	return entry, ok
}

// Len reports the number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CachedQuery pairs a fingerprint with its entry for ordered iteration.
type CachedQuery struct {
	ID    string
	Entry *types.CacheEntry
}

// Sorted returns all entries ordered oldest first by StoredAt.
func (c *QueryCache) Sorted() []CachedQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CachedQuery, 0, len(c.entries))
	for id, entry := range c.entries {
		out = append(out, CachedQuery{ID: id, Entry: entry})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Entry.StoredAt.Before(out[j].Entry.StoredAt)
	})
	return out
}

// MostRecent returns the newest entry by StoredAt, if any.
func (c *QueryCache) MostRecent() (string, *types.CacheEntry, bool) {
	sorted := c.Sorted()
	if len(sorted) == 0 {
		return "", nil, false
	}
	last := sorted[len(sorted)-1]
	return last.ID, last.Entry, true
}
