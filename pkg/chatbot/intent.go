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
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/llm"
	"github.com/teradata-labs/quill/pkg/prompts"
	"github.com/teradata-labs/quill/pkg/types"
)

// Keyword fast-paths checked before any model call. A hit classifies
// with fixed high confidence and costs nothing.
var (
	csvKeywords = []string{"export", "csv", "download", "save as", "get file"}
	sqlKeywords = []string{
		"show sql", "show me the sql", "what sql", "sql query",
		"sql statement", "what query", "see the query",
	}
)

const keywordConfidence = 0.95

var intentSchema = mustCompileSchema(`{
	"type": "object",
	"required": ["intent", "confidence"],
	"properties": {
		"intent": {
			"type": "string",
			"enum": ["analytics_query", "follow_up", "export_csv", "show_sql", "off_topic"]
		},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`)

type intentResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// classifyIntent assigns Intent and Confidence. It never fails the run:
// keyword hits skip the model entirely, and any model or parse problem
// degrades to a default analytics_query classification so the question
// still gets a chance at an answer.
func (p *Pipeline) classifyIntent(ctx context.Context, state *State) {
	lowered := strings.ToLower(state.UserQuery)

	for _, kw := range sqlKeywords {
		if strings.Contains(lowered, kw) {
			state.Intent = types.IntentShowSQL
			state.Confidence = keywordConfidence
			p.logger.Debug("intent keyword match",
				zap.String("intent", string(state.Intent)), zap.String("keyword", kw))
			return
		}
	}
	for _, kw := range csvKeywords {
		if strings.Contains(lowered, kw) {
			state.Intent = types.IntentExportCSV
			state.Confidence = keywordConfidence
			p.logger.Debug("intent keyword match",
				zap.String("intent", string(state.Intent)), zap.String("keyword", kw))
			return
		}
	}

	system, err := p.registry.Get(prompts.KeyIntentSystem, nil)
	if err != nil {
		p.classifyFallback(state, err)
		return
	}
	user, err := p.registry.Get(prompts.KeyIntentUser, map[string]interface{}{
		"history": p.historyForPrompt(state.History),
		"query":   state.UserQuery,
	})
	if err != nil {
		p.classifyFallback(state, err)
		return
	}

	content, err := p.complete(ctx, state, llm.Request{System: system, User: user})
	if err != nil {
		p.classifyFallback(state, err)
		return
	}

	var parsed intentResponse
	if err := decodeValidated(content, intentSchema, &parsed); err != nil {
		p.classifyFallback(state, err)
		return
	}

	state.Intent = types.Intent(parsed.Intent)
	state.Confidence = parsed.Confidence
	p.logger.Info("intent classified",
		zap.String("intent", string(state.Intent)),
		zap.Float64("confidence", state.Confidence))
}

// classifyFallback defaults an unclassifiable message to a low-confidence
// analytics question. Misclassifying chatter as a question produces a
// harmless failed query; misclassifying a question as chatter loses it.
func (p *Pipeline) classifyFallback(state *State, cause error) {
	state.Intent = types.IntentAnalyticsQuery
	state.Confidence = 0.5
	p.logger.Warn("intent classification fell back to default", zap.Error(cause))
}

// historyForPrompt renders recent turns for inclusion in a prompt, bot
// answers truncated so one verbose table never dominates the context.
func (p *Pipeline) historyForPrompt(turns []types.Turn) string {
	if len(turns) == 0 {
		return "(no prior conversation)"
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "User: %s\n", t.UserMessage)
		fmt.Fprintf(&b, "Assistant: %s\n", truncate(t.BotResponse, 300))
	}
	return strings.TrimRight(b.String(), "\n")
}
