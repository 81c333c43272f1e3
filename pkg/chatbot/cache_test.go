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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/quill/pkg/types"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("SELECT 1")
	b := Fingerprint("SELECT 1")
	c := Fingerprint("SELECT 2")

	assert.Len(t, a, 12)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Surrounding whitespace does not change identity.
	assert.Equal(t, a, Fingerprint("  SELECT 1\n"))
}

func TestQueryCacheEviction(t *testing.T) {
	cache := NewQueryCache(3)
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("q%d", i), &types.CacheEntry{
			SQL:      fmt.Sprintf("SELECT %d", i),
			StoredAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	require.Equal(t, 3, cache.Len())

	// A fourth entry pushes out the oldest.
	cache.Put("q3", &types.CacheEntry{SQL: "SELECT 3", StoredAt: base.Add(3 * time.Second)})
	assert.Equal(t, 3, cache.Len())

	_, ok := cache.Get("q0")
	assert.False(t, ok, "oldest entry should have been evicted")
	for _, id := range []string{"q1", "q2", "q3"} {
		_, ok := cache.Get(id)
		assert.True(t, ok, id)
	}
}

func TestQueryCacheReplaceDoesNotEvict(t *testing.T) {
	cache := NewQueryCache(2)
	base := time.Now().UTC()
	cache.Put("a", &types.CacheEntry{StoredAt: base})
	cache.Put("b", &types.CacheEntry{StoredAt: base.Add(time.Second)})

	cache.Put("a", &types.CacheEntry{StoredAt: base.Add(2 * time.Second)})
	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("b")
	assert.True(t, ok)
}

func TestQueryCacheSortedAndMostRecent(t *testing.T) {
	cache := NewQueryCache(5)
	base := time.Now().UTC()
	cache.Put("new", &types.CacheEntry{StoredAt: base.Add(time.Minute)})
	cache.Put("old", &types.CacheEntry{StoredAt: base})
	cache.Put("mid", &types.CacheEntry{StoredAt: base.Add(30 * time.Second)})

	sorted := cache.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"old", "mid", "new"},
		[]string{sorted[0].ID, sorted[1].ID, sorted[2].ID})

	id, _, ok := cache.MostRecent()
	require.True(t, ok)
	assert.Equal(t, "new", id)
}

func TestQueryCacheMostRecentEmpty(t *testing.T) {
	_, _, ok := NewQueryCache(2).MostRecent()
	assert.False(t, ok)
}
