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

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/llm"
	"github.com/teradata-labs/quill/pkg/prompts"
)

var sqlSchema = mustCompileSchema(`{
	"type": "object",
	"required": ["sql"],
	"properties": {
		"sql": {"type": "string", "minLength": 1},
		"assumptions": {"type": "array", "items": {"type": "string"}}
	}
}`)

type sqlResponse struct {
	SQL         string   `json:"sql"`
	Assumptions []string `json:"assumptions"`
}

// generateSQL produces a candidate statement for the resolved question.
// On the first pass it uses the generation prompt; when SQLError carries
// a previous failure it switches to the repair prompt, handing the model
// the failed SQL and the error text. RetryCount increments on every
// invocation, which is what bounds the repair loop.
func (p *Pipeline) generateSQL(ctx context.Context, state *State) error {
	state.RetryCount++
	repairing := state.SQLError != ""

	var system, user string
	var err error
	if repairing {
		system, err = p.registry.Get(prompts.KeyRepairSystem, map[string]interface{}{
			"schema": prompts.SchemaDescription,
		})
		if err != nil {
			return err
		}
		user, err = p.registry.Get(prompts.KeyRepairUser, map[string]interface{}{
			"query":        state.question(),
			"previous_sql": state.GeneratedSQL,
			"error":        state.SQLError,
		})
		if err != nil {
			return err
		}
	} else {
		system, err = p.registry.Get(prompts.KeyGenerateSystem, map[string]interface{}{
			"schema":   prompts.SchemaDescription,
			"examples": prompts.FewShotExamples,
		})
		if err != nil {
			return err
		}
		user, err = p.registry.Get(prompts.KeyGenerateUser, map[string]interface{}{
			"query": state.question(),
		})
		if err != nil {
			return err
		}
	}

	content, err := p.complete(ctx, state, llm.Request{System: system, User: user})
	if err != nil {
		return err
	}

	var parsed sqlResponse
	if decodeErr := decodeValidated(content, sqlSchema, &parsed); decodeErr != nil {
		// Degraded path: the model sometimes answers with a bare statement
		// instead of the JSON envelope. A recognizable SELECT is still
		// usable; anything else counts as a generation failure and feeds
		// the repair loop.
		if recovered, ok := extractSelectStatement(content); ok {
			p.logger.Warn("SQL response was not valid JSON, recovered bare statement",
				zap.Int("attempt", state.RetryCount), zap.Error(decodeErr))
			state.GeneratedSQL = recovered
			state.Assumptions = nil
			state.SQLError = ""
			return nil
		}
		p.logger.Warn("SQL generation produced unusable output",
			zap.Int("attempt", state.RetryCount), zap.Error(decodeErr))
		state.GeneratedSQL = ""
		state.Assumptions = nil
		state.SQLError = "failed to parse model response into SQL: " + decodeErr.Error()
		return nil
	}

	state.GeneratedSQL = strings.TrimSpace(parsed.SQL)
	state.Assumptions = parsed.Assumptions
	state.SQLError = ""
	p.logger.Info("generated SQL",
		zap.Int("attempt", state.RetryCount),
		zap.Bool("repair", repairing),
		zap.String("sql", state.GeneratedSQL))
	return nil
}

// extractSelectStatement scans completion text for a line starting a
// SELECT or WITH statement and returns everything from there to the end
// of a trailing code fence or the text.
func extractSelectStatement(content string) (string, bool) {
	s := content
	if fenced, ok := stripCodeFence(strings.TrimSpace(s)); ok {
		s = fenced
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		upper := strings.ToUpper(strings.TrimSpace(line))
		if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
			rest := strings.Join(lines[i:], "\n")
			if fence := strings.Index(rest, "```"); fence >= 0 {
				rest = rest[:fence]
			}
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}
