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
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/llm"
	"github.com/teradata-labs/quill/pkg/prompts"
	"github.com/teradata-labs/quill/pkg/types"
)

const emptyResultMessage = "The query ran successfully but returned no data. " +
	"There may be no records matching your criteria."

// interpretTemperature gives the summarizer a little latitude; intent and
// SQL generation stay deterministic at zero.
const interpretTemperature = 0.3

// interpretResults summarizes the query result and picks the response
// format. Empty results short-circuit without a model call. The format
// rule is structural: a single row of at most two scalar columns reads
// fine as a sentence; everything else gets a table.
func (p *Pipeline) interpretResults(ctx context.Context, state *State) error {
	result := state.Result

	if result == nil || result.RowCount == 0 {
		state.ResponseFormat = types.FormatSimple
		state.ResponseText = emptyResultMessage
		return nil
	}

	if isSimpleResult(result) {
		state.ResponseFormat = types.FormatSimple
	} else {
		state.ResponseFormat = types.FormatTable
	}

	system, err := p.registry.Get(prompts.KeyInterpretSystem, nil)
	if err != nil {
		return err
	}
	user, err := p.registry.Get(prompts.KeyInterpretUser, map[string]interface{}{
		"query":       state.question(),
		"assumptions": strings.Join(state.Assumptions, "; "),
		"row_count":   result.RowCount,
		"columns":     strings.Join(result.Columns, ", "),
		"sample_data": sampleRowsJSON(result, p.config.SampleRows),
	})
	if err != nil {
		return err
	}

	content, err := p.complete(ctx, state, llm.Request{
		System:      system,
		User:        user,
		Temperature: interpretTemperature,
	})
	if err != nil {
		return err
	}

	state.ResponseText = strings.TrimSpace(content)
	if state.ResponseText == "" {
		state.ResponseText = "Here are the results of your query."
	}
	p.logger.Debug("interpreted results",
		zap.String("format", string(state.ResponseFormat)),
		zap.Int("rows", result.RowCount))
	return nil
}

// isSimpleResult reports whether the result is a single row of at most
// two scalar values.
func isSimpleResult(result *types.QueryResult) bool {
	if result.RowCount != 1 || len(result.Columns) > 2 {
		return false
	}
	for _, v := range result.Rows[0] {
		if !isScalar(v) {
			return false
		}
	}
	return true
}

// isScalar covers the value set the executor normalizes to.
func isScalar(v interface{}) bool {
	switch v.(type) {
	case nil, string, int64, float64, bool:
		return true
	default:
		return false
	}
}

// sampleRowsJSON renders up to limit rows as JSON for the prompt.
func sampleRowsJSON(result *types.QueryResult, limit int) string {
	rows := result.Rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	encoded, err := json.Marshal(rows)
	if err != nil {
		return "(sample unavailable)"
	}
	return string(encoded)
}
