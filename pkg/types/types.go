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

// Package types contains shared types used across the quill pipeline.
// This package breaks import cycles by providing common types that the
// pipeline, storage, and gateway packages all depend on.
package types

import "time"

// Intent is the classified purpose of one user message.
type Intent string

const (
	// IntentAnalyticsQuery is a new question about app data.
	IntentAnalyticsQuery Intent = "analytics_query"

	// IntentFollowUp references previous conversation context
	// (e.g. "what about iOS?", "and last month?").
	IntentFollowUp Intent = "follow_up"

	// IntentExportCSV is a request to download data as CSV.
	IntentExportCSV Intent = "export_csv"

	// IntentShowSQL is a request to see the SQL behind an answer.
	IntentShowSQL Intent = "show_sql"

	// IntentOffTopic is anything unrelated to app analytics.
	IntentOffTopic Intent = "off_topic"
)

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentAnalyticsQuery, IntentFollowUp, IntentExportCSV, IntentShowSQL, IntentOffTopic:
		return true
	}
	return false
}

// ResponseFormat selects how query results are presented.
type ResponseFormat string

const (
	// FormatSimple is a single natural-language answer. Used when the
	// result is one row with at most two scalar columns.
	FormatSimple ResponseFormat = "simple"

	// FormatTable renders the result set as an aligned monospace table.
	FormatTable ResponseFormat = "table"

	// FormatError is a terminal error response.
	FormatError ResponseFormat = "error"
)

// Turn is one persisted exchange: a user message and the bot's answer.
// Immutable once written; ordered by CreatedAt within a thread.
type Turn struct {
	// ID is the database row identifier.
	ID int64

	// ThreadID is the conversation key.
	ThreadID string

	// UserMessage is the user's message verbatim.
	UserMessage string

	// BotResponse is the bot's answer, truncated at write time to keep
	// history rows bounded.
	BotResponse string

	// Intent is the classified intent of the turn.
	Intent Intent

	// SQL is the generated SQL for analytics turns, empty otherwise.
	SQL string

	// CreatedAt is when the turn was persisted.
	CreatedAt time.Time
}

// QueryResult holds the normalized output of one read-only SQL execution.
// Rows are field→value maps; Columns preserves the select-list order since
// Go maps do not.
type QueryResult struct {
	// Columns is the ordered list of column names.
	Columns []string

	// Rows contains one map per row. Values are normalized to
	// JSON-serializable forms: times as RFC 3339 strings, byte slices as
	// strings, integers as int64, floats as float64, NULLs as nil.
	Rows []map[string]interface{}

	// RowCount is len(Rows), kept explicit for logging and templates.
	RowCount int
}

// CacheEntry is one session-scoped cached query result. The durable truth
// is the history store, which holds the SQL text; entries can always be
// rebuilt by re-executing that SQL.
type CacheEntry struct {
	// SQL is the executed statement.
	SQL string

	// Result is the normalized result set.
	Result *QueryResult

	// NaturalQuery is the resolved natural-language question that produced
	// the SQL.
	NaturalQuery string

	// Assumptions are the generator's stated assumptions.
	Assumptions []string

	// StoredAt orders entries for eviction and "most recent" lookup.
	StoredAt time.Time
}

// Usage accumulates model-call accounting for one pipeline run.
type Usage struct {
	// ModelCalls counts language-model invocations.
	ModelCalls int

	// InputTokens and OutputTokens are summed across calls. Estimated
	// locally when the provider does not report usage.
	InputTokens  int
	OutputTokens int

	// CostUSD is the estimated spend for the run.
	CostUSD float64
}

// Add merges another usage record into u.
func (u *Usage) Add(other Usage) {
	u.ModelCalls += other.ModelCalls
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CostUSD += other.CostUSD
}
