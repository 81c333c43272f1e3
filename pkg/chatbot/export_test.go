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
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/quill/pkg/types"
)

func TestEncodeCSV(t *testing.T) {
	result := &types.QueryResult{
		Columns: []string{"country", "revenue", "note"},
		Rows: []map[string]interface{}{
			{"country": "USA", "revenue": float64(1200.5), "note": "has, comma"},
			{"country": "Japan", "revenue": int64(900), "note": nil},
		},
		RowCount: 2,
	}

	content, err := encodeCSV(result)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"country", "revenue", "note"}, records[0])
	assert.Equal(t, []string{"USA", "1200.5", "has, comma"}, records[1])
	assert.Equal(t, []string{"Japan", "900", ""}, records[2])
}

func sortedEntries(times ...string) []CachedQuery {
	base := time.Now().UTC()
	out := make([]CachedQuery, len(times))
	for i, q := range times {
		out[i] = CachedQuery{
			ID: Fingerprint(q),
			Entry: &types.CacheEntry{
				SQL:          "SELECT 1",
				NaturalQuery: q,
				StoredAt:     base.Add(time.Duration(i) * time.Second),
			},
		}
	}
	return out
}

func TestPickByOrdinal(t *testing.T) {
	sorted := sortedEntries(
		"Which country generates the most revenue?",
		"How many Android apps do we have?",
		"List iOS apps by popularity",
	)

	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"show me the first query", "Which country generates the most revenue?", true},
		{"show the second query's sql", "How many Android apps do we have?", true},
		{"export the last one", "List iOS apps by popularity", true},
		{"show the previous sql", "List iOS apps by popularity", true},
		{"was it the first or the last query?", "Which country generates the most revenue?", true},
		{"show me the sql", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			picked, ok := pickByOrdinal(tt.query, sorted)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, picked.Entry.NaturalQuery)
			}
		})
	}
}

func TestPickByKeywords(t *testing.T) {
	sorted := sortedEntries(
		"Which country generates the most revenue?",
		"How many Android apps do we have?",
	)

	picked, ok := pickByKeywords("export the revenue by country data", sorted)
	require.True(t, ok)
	assert.Equal(t, "Which country generates the most revenue?", picked.Entry.NaturalQuery)

	picked, ok = pickByKeywords("show the android numbers", sorted)
	require.True(t, ok)
	assert.Equal(t, "How many Android apps do we have?", picked.Entry.NaturalQuery)

	_, ok = pickByKeywords("csv", sorted)
	assert.False(t, ok)
}

func TestSignificantWords(t *testing.T) {
	words := significantWords("Which country generates the most revenue?")
	assert.True(t, words["country"])
	assert.True(t, words["revenue"])
	assert.False(t, words["the"], "short words are ignored")
	assert.True(t, words["most"])
}
