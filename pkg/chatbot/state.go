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

// Package chatbot implements the analytics assistant's core pipeline:
// intent classification, context resolution, SQL generation with a
// bounded repair loop, read-only execution, result interpretation, and
// Slack Block Kit formatting, plus the cached operations (CSV export,
// show SQL) that never invoke the language model.
package chatbot

import (
	"github.com/teradata-labs/quill/pkg/slack"
	"github.com/teradata-labs/quill/pkg/types"
)

// State is the working record threaded through one pipeline run. Created
// fresh per incoming message and never persisted wholesale; only the
// fields relevant to history are written back at the end of the run.
type State struct {
	// Inputs.
	UserQuery string
	ThreadID  string
	ChannelID string
	UserID    string

	// History is the bounded recent window, oldest first.
	History []types.Turn

	// Intent classification.
	Intent     types.Intent
	Confidence float64

	// Context resolution.
	ResolvedQuery     string
	ReferencedQueryID string

	// SQL pipeline. GeneratedSQL is only replaced by a fresh generation
	// attempt; RetryCount strictly increases across repair cycles.
	GeneratedSQL string
	SQLError     string
	RetryCount   int
	Result       *types.QueryResult

	// QueryID is the fingerprint of the executed SQL, the stable handle
	// for later export / show-SQL references.
	QueryID string

	// Response generation.
	ResponseFormat types.ResponseFormat
	ResponseText   string
	Assumptions    []string
	Blocks         []slack.Block

	// CSV export payload, handed to the platform layer for upload.
	CSVContent  []byte
	CSVFilename string
	CSVTitle    string

	// Cache is the session's query cache, shared across runs of one
	// thread.
	Cache *QueryCache

	// Usage accumulates model-call accounting for the run.
	Usage types.Usage
}

// question returns the best available phrasing of the user's question:
// the resolved standalone form when the resolver ran, else the raw text.
func (s *State) question() string {
	if s.ResolvedQuery != "" {
		return s.ResolvedQuery
	}
	return s.UserQuery
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
