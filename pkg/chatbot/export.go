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
	"context"
	"encoding/csv"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/slack"
	"github.com/teradata-labs/quill/pkg/types"
)

const nothingCachedMessage = "I don't have a previous query to work with in this conversation. " +
	"Ask an analytics question first, then I can export or show its SQL."

// exportCSV serves an export request entirely from cached results; it
// never calls the model. Missing cache entries are rebuilt from history
// by re-executing the stored SQL.
func (p *Pipeline) exportCSV(ctx context.Context, state *State) {
	entry := p.resolveReference(ctx, state, true)
	if entry == nil {
		state.ResponseFormat = types.FormatSimple
		state.ResponseText = nothingCachedMessage
		state.Blocks = []slack.Block{slack.Section(state.ResponseText)}
		return
	}

	// A rebuild for show-SQL skips re-execution, so the entry may hold
	// SQL without a result yet.
	if entry.Result == nil {
		result, err := p.executor.Execute(ctx, entry.SQL)
		if err != nil {
			p.logger.Warn("re-execution for export failed",
				zap.String("query_id", state.QueryID), zap.Error(err))
			state.ResponseFormat = types.FormatError
			state.ResponseText = "I couldn't re-run the referenced query to export it. " +
				"The data may have changed; try asking the question again."
			state.Blocks = []slack.Block{slack.Section(state.ResponseText)}
			return
		}
		entry.Result = result
	}

	content, err := encodeCSV(entry.Result)
	if err != nil {
		p.logger.Error("CSV encoding failed", zap.Error(err))
		state.ResponseFormat = types.FormatError
		state.ResponseText = "Something went wrong while building the CSV file."
		state.Blocks = []slack.Block{slack.Section(state.ResponseText)}
		return
	}

	state.CSVContent = content
	state.CSVFilename = "analytics_export_" + state.QueryID + ".csv"
	state.CSVTitle = truncate(entry.NaturalQuery, 80)
	state.ResponseFormat = types.FormatSimple
	state.ResponseText = "Here's the CSV export for: _" + truncate(entry.NaturalQuery, 150) + "_"
	state.Blocks = []slack.Block{slack.Section(state.ResponseText)}
	p.logger.Info("CSV export prepared",
		zap.String("query_id", state.QueryID),
		zap.Int("rows", entry.Result.RowCount))
}

// showSQL returns the SQL of a referenced past query from cache, with no
// model call and no re-execution.
func (p *Pipeline) showSQL(ctx context.Context, state *State) {
	entry := p.resolveReference(ctx, state, false)
	if entry == nil {
		state.ResponseFormat = types.FormatSimple
		state.ResponseText = nothingCachedMessage
		state.Blocks = []slack.Block{slack.Section(state.ResponseText)}
		return
	}

	state.GeneratedSQL = entry.SQL
	state.ResponseFormat = types.FormatSimple
	state.ResponseText = "Here's the SQL used for: _" + truncate(entry.NaturalQuery, 150) + "_"
	state.Blocks = []slack.Block{
		slack.Section(state.ResponseText),
		slack.Section("```\n" + entry.SQL + "\n```"),
	}
}

// resolveReference picks the cache entry a cached operation refers to,
// in precedence order: explicit button payload, ordinal words in the
// message ("the first query"), keyword overlap with past questions, most
// recent. An empty cache is first rebuilt from history; executeResults
// controls whether the rebuild re-executes stored SQL. Returns nil when
// the thread has no usable past query, with state.QueryID set on success.
func (p *Pipeline) resolveReference(ctx context.Context, state *State, executeResults bool) *types.CacheEntry {
	if state.Cache.Len() == 0 {
		p.rebuildCache(ctx, state, executeResults)
	}
	if state.Cache.Len() == 0 {
		return nil
	}

	if state.ReferencedQueryID != "" {
		if entry, ok := state.Cache.Get(state.ReferencedQueryID); ok {
			state.QueryID = state.ReferencedQueryID
			return entry
		}
		p.logger.Warn("referenced query not in cache",
			zap.String("query_id", state.ReferencedQueryID))
	}

	sorted := state.Cache.Sorted()
	if picked, ok := pickByOrdinal(state.UserQuery, sorted); ok {
		state.QueryID = picked.ID
		return picked.Entry
	}
	if picked, ok := pickByKeywords(state.UserQuery, sorted); ok {
		state.QueryID = picked.ID
		return picked.Entry
	}

	last := sorted[len(sorted)-1]
	state.QueryID = last.ID
	return last.Entry
}

// rebuildCache repopulates an empty cache from SQL-bearing history
// turns. Statements that no longer execute are skipped rather than
// failing the whole rebuild.
func (p *Pipeline) rebuildCache(ctx context.Context, state *State, executeResults bool) {
	turns, err := p.store.RecentWithSQL(ctx, state.ThreadID, p.config.CacheSize)
	if err != nil {
		p.logger.Warn("failed to load SQL history for cache rebuild", zap.Error(err))
		return
	}
	rebuilt := 0
	for _, turn := range turns {
		entry := &types.CacheEntry{
			SQL:          turn.SQL,
			NaturalQuery: turn.UserMessage,
			StoredAt:     turn.CreatedAt,
		}
		if executeResults {
			result, err := p.executor.Execute(ctx, turn.SQL)
			if err != nil {
				p.logger.Warn("cache rebuild skipped a statement",
					zap.String("sql", turn.SQL), zap.Error(err))
				continue
			}
			entry.Result = result
		}
		state.Cache.Put(Fingerprint(turn.SQL), entry)
		rebuilt++
	}
	if rebuilt > 0 {
		p.logger.Info("query cache rebuilt from history",
			zap.String("thread_id", state.ThreadID), zap.Int("entries", rebuilt))
	}
}

// ordinalWords maps position phrases to zero-based indexes into the
// oldest-first cache ordering, checked in order so that a message
// mixing ordinals resolves the same way every time. Negative means
// "newest".
var ordinalWords = []struct {
	word  string
	index int
}{
	{"first", 0},
	{"1st", 0},
	{"second", 1},
	{"2nd", 1},
	{"third", 2},
	{"3rd", 2},
	{"last", -1},
	{"latest", -1},
	{"previous", -1},
	{"recent", -1},
}

func pickByOrdinal(query string, sorted []CachedQuery) (CachedQuery, bool) {
	lowered := strings.ToLower(query)
	for _, ordinal := range ordinalWords {
		word, index := ordinal.word, ordinal.index
		if !strings.Contains(lowered, word) {
			continue
		}
		if index < 0 {
			return sorted[len(sorted)-1], true
		}
		if index < len(sorted) {
			return sorted[index], true
		}
	}
	return CachedQuery{}, false
}

// pickByKeywords matches the request against cached natural-language
// questions by overlap of words longer than three characters.
func pickByKeywords(query string, sorted []CachedQuery) (CachedQuery, bool) {
	queryWords := significantWords(query)
	if len(queryWords) == 0 {
		return CachedQuery{}, false
	}
	best := -1
	bestScore := 0
	for i, candidate := range sorted {
		score := 0
		for word := range significantWords(candidate.Entry.NaturalQuery) {
			if queryWords[word] {
				score++
			}
		}
		// Ties go to the newer entry.
		if score > 0 && score >= bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return CachedQuery{}, false
	}
	return sorted[best], true
}

func significantWords(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?:;\"'()")
		if len(w) > 3 {
			words[w] = true
		}
	}
	return words
}

// encodeCSV writes the full result as CSV, header row first, preserving
// column and row order.
func encodeCSV(result *types.QueryResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(result.Columns); err != nil {
		return nil, err
	}
	for _, row := range result.Rows {
		record := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			record[i] = csvValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvValue(v interface{}) string {
	if v == nil {
		return ""
	}
	// No width cap for file output.
	return formatCell(v, int(^uint(0)>>1))
}
