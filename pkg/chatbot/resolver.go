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
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/history"
	"github.com/teradata-labs/quill/pkg/llm"
	"github.com/teradata-labs/quill/pkg/prompts"
)

// resolveContext rewrites the user's question as a standalone one using
// conversation history. With no history there is nothing to resolve and
// the question passes through verbatim without a model call. Both fresh
// questions and follow-ups take this path: the model leaves an already
// self-contained question unchanged, and paying one call for that
// uniformity is simpler than trusting the classifier's fresh-vs-follow-up
// split.
func (p *Pipeline) resolveContext(ctx context.Context, state *State) error {
	if len(state.History) == 0 {
		state.ResolvedQuery = state.UserQuery
		return nil
	}

	system, err := p.registry.Get(prompts.KeyResolverSystem, nil)
	if err != nil {
		return err
	}
	user, err := p.registry.Get(prompts.KeyResolverUser, map[string]interface{}{
		"history": p.historyForPrompt(state.History),
		"query":   state.UserQuery,
	})
	if err != nil {
		return err
	}

	content, err := p.complete(ctx, state, llm.Request{System: system, User: user})
	if err != nil {
		return err
	}

	resolved := strings.TrimSpace(content)
	if resolved == "" {
		resolved = state.UserQuery
	}
	state.ResolvedQuery = resolved

	// When the rewrite changed, the question leaned on prior context;
	// remember which query it most plausibly refers to.
	if !strings.EqualFold(resolved, strings.TrimSpace(state.UserQuery)) {
		state.ReferencedQueryID = p.mostRecentQueryID(ctx, state)
		p.logger.Info("resolved follow-up question",
			zap.String("original", state.UserQuery),
			zap.String("resolved", resolved))
	}
	return nil
}

// mostRecentQueryID returns the fingerprint of the thread's newest
// successful query, preferring the live cache over a history lookup.
func (p *Pipeline) mostRecentQueryID(ctx context.Context, state *State) string {
	if id, _, ok := state.Cache.MostRecent(); ok {
		return id
	}
	sqlText, err := p.store.MostRecentSQL(ctx, state.ThreadID)
	if err != nil {
		if !errors.Is(err, history.ErrNoSQL) {
			p.logger.Warn("failed to look up most recent SQL", zap.Error(err))
		}
		return ""
	}
	return Fingerprint(sqlText)
}
