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
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/quill/pkg/llm"
	"github.com/teradata-labs/quill/pkg/prompts"
	"github.com/teradata-labs/quill/pkg/types"
)

// fakeProvider replays scripted completions and records every request.
type fakeProvider struct {
	responses []string
	requests  []llm.Request
	err       error
}

func (f *fakeProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.requests) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &llm.Response{Content: f.responses[idx], InputTokens: 10, OutputTokens: 5}, nil
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "claude-sonnet-test" }

func (f *fakeProvider) calls() int { return len(f.requests) }

// memoryStore is an in-memory history.Store.
type memoryStore struct {
	turns  []types.Turn
	nextID int64
}

func (m *memoryStore) Recent(_ context.Context, threadID string, limit int) ([]types.Turn, error) {
	return m.filter(threadID, limit, false), nil
}

func (m *memoryStore) RecentWithSQL(_ context.Context, threadID string, limit int) ([]types.Turn, error) {
	return m.filter(threadID, limit, true), nil
}

func (m *memoryStore) filter(threadID string, limit int, sqlOnly bool) []types.Turn {
	var matched []types.Turn
	for _, t := range m.turns {
		if t.ThreadID != threadID {
			continue
		}
		if sqlOnly && t.SQL == "" {
			continue
		}
		matched = append(matched, t)
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

func (m *memoryStore) Append(_ context.Context, threadID, userMessage, botResponse string, intent types.Intent, sqlText string) (*types.Turn, error) {
	m.nextID++
	turn := types.Turn{
		ID:          m.nextID,
		ThreadID:    threadID,
		UserMessage: userMessage,
		BotResponse: botResponse,
		Intent:      intent,
		SQL:         sqlText,
		CreatedAt:   time.Now().UTC(),
	}
	m.turns = append(m.turns, turn)
	return &turn, nil
}

func (m *memoryStore) MostRecentSQL(_ context.Context, threadID string) (string, error) {
	for i := len(m.turns) - 1; i >= 0; i-- {
		if m.turns[i].ThreadID == threadID && m.turns[i].SQL != "" {
			return m.turns[i].SQL, nil
		}
	}
	return "", errNoSQLForTest
}

var errNoSQLForTest = &types.ExecutionError{Message: "no sql"}

// fakeExecutor records executed SQL and replays scripted outcomes.
type fakeExecutor struct {
	executed []string
	failures int
	result   *types.QueryResult
}

func (f *fakeExecutor) Execute(_ context.Context, sqlText string) (*types.QueryResult, error) {
	f.executed = append(f.executed, sqlText)
	if len(f.executed) <= f.failures {
		return nil, types.NewExecutionError("execution failed: column does not exist")
	}
	if f.result == nil {
		return &types.QueryResult{Columns: []string{"n"}, Rows: []map[string]interface{}{{"n": int64(1)}}, RowCount: 1}, nil
	}
	return f.result, nil
}

func newTestPipeline(provider *fakeProvider, store *memoryStore, executor *fakeExecutor) *Pipeline {
	return New(Config{}, provider, prompts.NewRegistry(nil), store, executor)
}

func tableResult() *types.QueryResult {
	return &types.QueryResult{
		Columns: []string{"country", "total_revenue"},
		Rows: []map[string]interface{}{
			{"country": "USA", "total_revenue": float64(1200.50)},
			{"country": "Japan", "total_revenue": float64(900.25)},
			{"country": "Germany", "total_revenue": float64(450.00)},
		},
		RowCount: 3,
	}
}

func TestRunAnalyticsQuestion(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"intent": "analytics_query", "confidence": 0.92}`,
		`{"sql": "SELECT country, SUM(in_app_revenue + ads_revenue) AS total_revenue FROM app_metrics GROUP BY country", "assumptions": ["Revenue = in_app + ads"]}`,
		"USA generates the most revenue.",
	}}
	store := &memoryStore{}
	executor := &fakeExecutor{result: tableResult()}
	p := newTestPipeline(provider, store, executor)

	result, err := p.Run(context.Background(), Request{
		ThreadID:  "T1",
		ChannelID: "C1",
		UserID:    "U1",
		Text:      "Which country generates the most revenue?",
	})
	require.NoError(t, err)

	assert.Equal(t, types.IntentAnalyticsQuery, result.Intent)
	assert.Equal(t, types.FormatTable, result.Format)
	assert.Equal(t, "USA generates the most revenue.", result.Text)
	assert.Len(t, result.QueryID, 12)
	assert.Equal(t, 3, provider.calls())
	assert.Equal(t, 3, result.Usage.ModelCalls)

	// Block layout: answer, table, assumptions, action buttons.
	require.Len(t, result.Blocks, 4)
	assert.Equal(t, "actions", result.Blocks[3].Type)
	assert.Equal(t, "export_csv", result.Blocks[3].Elements[0].ActionID)
	assert.Equal(t, result.QueryID, result.Blocks[3].Elements[0].Value)

	// The turn is persisted with its SQL.
	require.Len(t, store.turns, 1)
	assert.NotEmpty(t, store.turns[0].SQL)
	assert.Equal(t, types.IntentAnalyticsQuery, store.turns[0].Intent)
}

func TestRunRepairLoopRecovers(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"intent": "analytics_query", "confidence": 0.9}`,
		`{"sql": "SELECT revenu FROM app_metrics", "assumptions": []}`,
		`{"sql": "SELECT in_app_revenue FROM app_metrics LIMIT 5", "assumptions": []}`,
		"Here are the revenue figures.",
	}}
	executor := &fakeExecutor{failures: 1, result: tableResult()}
	p := newTestPipeline(provider, &memoryStore{}, executor)

	result, err := p.Run(context.Background(), Request{ThreadID: "T1", Text: "show revenue"})
	require.NoError(t, err)

	assert.Len(t, executor.executed, 2)
	assert.Equal(t, types.FormatTable, result.Format)
	// Classification, two generations, one interpretation.
	assert.Equal(t, 4, provider.calls())
}

func TestRunRetryBudgetExhausted(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"intent": "analytics_query", "confidence": 0.9}`,
		`{"sql": "SELECT bogus FROM app_metrics", "assumptions": []}`,
	}}
	executor := &fakeExecutor{failures: 100}
	p := newTestPipeline(provider, &memoryStore{}, executor)

	result, err := p.Run(context.Background(), Request{ThreadID: "T1", Text: "what is the revenue"})
	require.NoError(t, err)

	assert.Equal(t, types.FormatError, result.Format)
	assert.Len(t, executor.executed, DefaultMaxRetries)
	assert.Contains(t, result.Text, "trouble running")
	assert.Contains(t, result.Text, "what is the revenue")
	assert.Empty(t, result.QueryID)
}

func TestRunUnsafeSQLNeverReachesDatabase(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"intent": "analytics_query", "confidence": 0.9}`,
		`{"sql": "DROP TABLE app_metrics", "assumptions": []}`,
	}}
	executor := &fakeExecutor{}
	p := newTestPipeline(provider, &memoryStore{}, executor)

	result, err := p.Run(context.Background(), Request{ThreadID: "T1", Text: "remove the metrics tabl"})
	require.NoError(t, err)

	assert.Empty(t, executor.executed)
	assert.Equal(t, types.FormatError, result.Format)
	assert.Contains(t, result.Text, "read-only")
}

func TestRunOffTopicDeclines(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"intent": "off_topic", "confidence": 0.97}`,
	}}
	executor := &fakeExecutor{}
	p := newTestPipeline(provider, &memoryStore{}, executor)

	result, err := p.Run(context.Background(), Request{ThreadID: "T1", Text: "what's the weather like"})
	require.NoError(t, err)

	assert.Equal(t, types.IntentOffTopic, result.Intent)
	assert.Contains(t, result.Text, "analytics assistant")
	assert.Equal(t, 1, provider.calls())
	assert.Empty(t, executor.executed)
}

func TestRunExportKeywordWithEmptyThread(t *testing.T) {
	provider := &fakeProvider{}
	p := newTestPipeline(provider, &memoryStore{}, &fakeExecutor{})

	result, err := p.Run(context.Background(), Request{ThreadID: "T1", Text: "export that as CSV please"})
	require.NoError(t, err)

	// Keyword fast-path plus an empty cache: no model calls at all.
	assert.Equal(t, 0, provider.calls())
	assert.Equal(t, types.IntentExportCSV, result.Intent)
	assert.Contains(t, result.Text, "previous query")
	assert.Empty(t, result.CSVContent)
}

func TestRunExportWithButtonReference(t *testing.T) {
	provider := &fakeProvider{}
	executor := &fakeExecutor{}
	p := newTestPipeline(provider, &memoryStore{}, executor)

	cache := NewQueryCache(0)
	id := Fingerprint("SELECT country FROM app_metrics")
	cache.Put(id, &types.CacheEntry{
		SQL:          "SELECT country FROM app_metrics",
		Result:       tableResult(),
		NaturalQuery: "Which country generates the most revenue?",
		StoredAt:     time.Now().UTC(),
	})

	result, err := p.Run(context.Background(), Request{
		ThreadID:          "T1",
		Text:              "export csv",
		ReferencedQueryID: id,
		Cache:             cache,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, provider.calls())
	assert.Equal(t, id, result.QueryID)
	assert.Equal(t, "analytics_export_"+id+".csv", result.CSVFilename)

	lines := strings.Split(strings.TrimSpace(string(result.CSVContent)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "country,total_revenue", lines[0])
}

func TestRunShowSQLRebuildsFromHistory(t *testing.T) {
	store := &memoryStore{}
	_, err := store.Append(context.Background(), "T1", "Which country generates the most revenue?",
		"USA leads.", types.IntentAnalyticsQuery, "SELECT country FROM app_metrics GROUP BY country")
	require.NoError(t, err)

	provider := &fakeProvider{}
	executor := &fakeExecutor{}
	p := newTestPipeline(provider, store, executor)

	result, err := p.Run(context.Background(), Request{ThreadID: "T1", Text: "show me the sql"})
	require.NoError(t, err)

	// Show-SQL rebuilds cache without re-executing anything.
	assert.Empty(t, executor.executed)
	assert.Equal(t, 0, provider.calls())
	assert.Equal(t, "SELECT country FROM app_metrics GROUP BY country", result.GeneratedSQL)
	require.Len(t, result.Blocks, 2)
	assert.Contains(t, result.Blocks[1].Text.Text, "SELECT country")
}

func TestRunFollowUpUsesResolvedQuestion(t *testing.T) {
	store := &memoryStore{}
	_, err := store.Append(context.Background(), "T1", "How many Android apps do we have?",
		"We have 8 Android apps.", types.IntentAnalyticsQuery, "SELECT COUNT(DISTINCT app_name) FROM app_metrics WHERE platform = 'Android'")
	require.NoError(t, err)

	provider := &fakeProvider{responses: []string{
		`{"intent": "follow_up", "confidence": 0.88}`,
		"How many iOS apps do we have?",
		`{"sql": "SELECT COUNT(DISTINCT app_name) AS ios_apps FROM app_metrics WHERE platform = 'iOS'", "assumptions": []}`,
		"You have 8 iOS apps.",
	}}
	p := newTestPipeline(provider, store, &fakeExecutor{})

	result, err := p.Run(context.Background(), Request{ThreadID: "T1", Text: "what about iOS?"})
	require.NoError(t, err)

	require.Equal(t, 4, provider.calls())
	// The generation prompt sees the resolved standalone question.
	assert.Contains(t, provider.requests[2].User, "How many iOS apps do we have?")
	assert.Equal(t, types.FormatSimple, result.Format)
}

func TestRunEmptyResultShortCircuitsInterpretation(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"intent": "analytics_query", "confidence": 0.9}`,
		`{"sql": "SELECT app_name FROM app_metrics WHERE country = 'Atlantis'", "assumptions": []}`,
	}}
	executor := &fakeExecutor{result: &types.QueryResult{Columns: []string{"app_name"}}}
	p := newTestPipeline(provider, &memoryStore{}, executor)

	result, err := p.Run(context.Background(), Request{ThreadID: "T1", Text: "apps in Atlantis"})
	require.NoError(t, err)

	// Classification and generation only; no interpretation call.
	assert.Equal(t, 2, provider.calls())
	assert.Equal(t, types.FormatSimple, result.Format)
	assert.Contains(t, result.Text, "no data")
}

func TestRunModelTransportFailurePropagates(t *testing.T) {
	provider := &fakeProvider{
		responses: []string{`{"intent": "analytics_query", "confidence": 0.9}`},
	}
	p := newTestPipeline(provider, &memoryStore{}, &fakeExecutor{})

	// First call (classification) succeeds via scripted response; make the
	// resolver path fail by flipping err after classification. Simpler: a
	// provider that always errors, so classification falls back and the
	// generator surfaces it.
	provider.err = &types.ModelError{Provider: "fake", Err: context.DeadlineExceeded}
	_, err := p.Run(context.Background(), Request{ThreadID: "T1", Text: "revenue by country"})
	require.Error(t, err)

	var modelErr *types.ModelError
	assert.ErrorAs(t, err, &modelErr)
}

func TestRouteByIntent(t *testing.T) {
	tests := []struct {
		intent types.Intent
		want   node
	}{
		{types.IntentAnalyticsQuery, nodeResolveContext},
		{types.IntentFollowUp, nodeResolveContext},
		{types.IntentExportCSV, nodeExportCSV},
		{types.IntentShowSQL, nodeShowSQL},
		{types.IntentOffTopic, nodeDecline},
		{types.Intent("garbage"), nodeDecline},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			assert.Equal(t, tt.want, routeByIntent(tt.intent))
		})
	}
}

func TestRouteAfterExecution(t *testing.T) {
	tests := []struct {
		name       string
		sqlError   string
		retryCount int
		want       node
	}{
		{"success goes to interpretation", "", 1, nodeInterpret},
		{"failure inside budget repairs", "execution failed: boom", 1, nodeGenerateSQL},
		{"failure at budget gives up", "execution failed: boom", 3, nodeError},
		{"success at budget still interprets", "", 3, nodeInterpret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{SQLError: tt.sqlError, RetryCount: tt.retryCount}
			assert.Equal(t, tt.want, routeAfterExecution(s, 3))
		})
	}
}
