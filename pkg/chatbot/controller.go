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
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/analytics"
	"github.com/teradata-labs/quill/pkg/types"
)

// executeSQL gates and runs the candidate statement. Success stores the
// result, fingerprints the query, and caches it; any failure lands in
// SQLError for the router to decide between repair and giving up. This
// node never returns an error itself: execution failures are repairable
// state, not pipeline failures.
func (p *Pipeline) executeSQL(ctx context.Context, state *State) {
	if err := analytics.CheckSQL(state.GeneratedSQL); err != nil {
		p.logger.Warn("SQL rejected by safety gate",
			zap.String("sql", state.GeneratedSQL), zap.Error(err))
		state.SQLError = err.Error()
		state.Result = nil
		return
	}

	result, err := p.executor.Execute(ctx, state.GeneratedSQL)
	if err != nil {
		p.logger.Warn("SQL execution failed",
			zap.String("sql", state.GeneratedSQL),
			zap.Int("attempt", state.RetryCount),
			zap.Error(err))
		state.SQLError = err.Error()
		state.Result = nil
		return
	}

	state.Result = result
	state.SQLError = ""
	state.QueryID = Fingerprint(state.GeneratedSQL)
	state.Cache.Put(state.QueryID, &types.CacheEntry{
		SQL:          state.GeneratedSQL,
		Result:       result,
		NaturalQuery: state.question(),
		Assumptions:  state.Assumptions,
		StoredAt:     time.Now().UTC(),
	})
	p.logger.Info("query executed",
		zap.String("query_id", state.QueryID),
		zap.Int("rows", result.RowCount))
}
