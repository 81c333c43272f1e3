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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/analytics"
	"github.com/teradata-labs/quill/pkg/history"
	"github.com/teradata-labs/quill/pkg/llm"
	"github.com/teradata-labs/quill/pkg/prompts"
	"github.com/teradata-labs/quill/pkg/slack"
	"github.com/teradata-labs/quill/pkg/types"
)

// Pipeline defaults.
const (
	DefaultMaxRetries    = 3
	DefaultHistoryWindow = 10
	DefaultTableRowCap   = 20
	DefaultColumnCap     = 30
	DefaultSampleRows    = 5
)

// Config tunes the pipeline. Zero values take the package defaults.
type Config struct {
	// MaxRetries bounds SQL generation attempts per question, the first
	// attempt included.
	MaxRetries int

	// HistoryWindow bounds the recent-turn window loaded per run.
	HistoryWindow int

	// CacheSize bounds the per-thread query cache.
	CacheSize int

	// TableRowCap bounds rows rendered in a Slack table.
	TableRowCap int

	// ColumnWidthCap bounds rendered column width in characters.
	ColumnWidthCap int

	// SampleRows bounds the rows shown to the interpreter model.
	SampleRows int

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = DefaultHistoryWindow
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.TableRowCap <= 0 {
		c.TableRowCap = DefaultTableRowCap
	}
	if c.ColumnWidthCap <= 0 {
		c.ColumnWidthCap = DefaultColumnCap
	}
	if c.SampleRows <= 0 {
		c.SampleRows = DefaultSampleRows
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Pipeline runs the conversation state machine for incoming messages.
type Pipeline struct {
	config    Config
	provider  llm.Provider
	registry  *prompts.Registry
	store     history.Store
	executor  analytics.Executor
	estimator *llm.UsageEstimator
	logger    *zap.Logger
}

// New assembles a pipeline from its collaborators.
func New(cfg Config, provider llm.Provider, registry *prompts.Registry, store history.Store, executor analytics.Executor) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{
		config:    cfg,
		provider:  provider,
		registry:  registry,
		store:     store,
		executor:  executor,
		estimator: llm.NewUsageEstimator(provider.Model()),
		logger:    cfg.Logger.Named("chatbot"),
	}
}

// Request is one incoming user message.
type Request struct {
	ThreadID  string
	ChannelID string
	UserID    string
	Text      string

	// ReferencedQueryID carries the button payload for interaction-driven
	// export / show-SQL requests. Empty for ordinary messages.
	ReferencedQueryID string

	// Cache is the thread's query cache. Nil starts an empty one.
	Cache *QueryCache
}

// Result is the completed response for one run.
type Result struct {
	Text         string
	Blocks       []slack.Block
	Format       types.ResponseFormat
	Intent       types.Intent
	GeneratedSQL string
	QueryID      string
	CSVContent   []byte
	CSVFilename  string
	CSVTitle     string
	Usage        types.Usage
}

// node identifies a pipeline stage.
type node int

const (
	nodeClassifyIntent node = iota
	nodeResolveContext
	nodeGenerateSQL
	nodeExecute
	nodeInterpret
	nodeFormat
	nodeExportCSV
	nodeShowSQL
	nodeDecline
	nodeError
	nodeDone
)

// routeByIntent dispatches the classified intent to its entry node.
// Fresh analytics questions and follow-ups share the resolution path;
// resolution is a no-op when the thread has no history.
func routeByIntent(intent types.Intent) node {
	switch intent {
	case types.IntentAnalyticsQuery, types.IntentFollowUp:
		return nodeResolveContext
	case types.IntentExportCSV:
		return nodeExportCSV
	case types.IntentShowSQL:
		return nodeShowSQL
	default:
		return nodeDecline
	}
}

// routeAfterExecution decides between interpretation, another repair
// cycle, and giving up. RetryCount is incremented by the generator, so
// comparing against MaxRetries here caps total generation attempts.
func routeAfterExecution(s *State, maxRetries int) node {
	if s.SQLError == "" {
		return nodeInterpret
	}
	if s.RetryCount < maxRetries {
		return nodeGenerateSQL
	}
	return nodeError
}

// Run processes one user message to completion. The returned error is
// non-nil only for model-transport failures that exhausted their own
// retry budget; every other failure mode produces a user-facing Result.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID), zap.String("thread_id", req.ThreadID))
	logger.Info("pipeline run started", zap.String("user_id", req.UserID))

	state := &State{
		UserQuery:         req.Text,
		ThreadID:          req.ThreadID,
		ChannelID:         req.ChannelID,
		UserID:            req.UserID,
		ReferencedQueryID: req.ReferencedQueryID,
		Cache:             req.Cache,
	}
	if state.Cache == nil {
		state.Cache = NewQueryCache(p.config.CacheSize)
	}

	turns, err := p.store.Recent(ctx, req.ThreadID, p.config.HistoryWindow)
	if err != nil {
		// A history outage degrades to a fresh conversation rather than
		// refusing the question.
		logger.Warn("failed to load history", zap.Error(err))
	}
	state.History = turns

	current := nodeClassifyIntent
	for current != nodeDone {
		var next node
		switch current {
		case nodeClassifyIntent:
			p.classifyIntent(ctx, state)
			next = routeByIntent(state.Intent)
		case nodeResolveContext:
			if err := p.resolveContext(ctx, state); err != nil {
				return nil, err
			}
			next = nodeGenerateSQL
		case nodeGenerateSQL:
			if err := p.generateSQL(ctx, state); err != nil {
				return nil, err
			}
			next = nodeExecute
		case nodeExecute:
			p.executeSQL(ctx, state)
			next = routeAfterExecution(state, p.config.MaxRetries)
		case nodeInterpret:
			if err := p.interpretResults(ctx, state); err != nil {
				return nil, err
			}
			next = nodeFormat
		case nodeFormat:
			p.formatResponse(state)
			next = nodeDone
		case nodeExportCSV:
			p.exportCSV(ctx, state)
			next = nodeDone
		case nodeShowSQL:
			p.showSQL(ctx, state)
			next = nodeDone
		case nodeDecline:
			p.decline(state)
			next = nodeDone
		case nodeError:
			p.handleError(state)
			next = nodeDone
		default:
			return nil, fmt.Errorf("unknown pipeline node %d", current)
		}
		current = next
	}

	p.persistTurn(ctx, state)

	logger.Info("pipeline run finished",
		zap.String("intent", string(state.Intent)),
		zap.String("format", string(state.ResponseFormat)),
		zap.Int("model_calls", state.Usage.ModelCalls),
		zap.Float64("cost_usd", state.Usage.CostUSD))

	return &Result{
		Text:         state.ResponseText,
		Blocks:       state.Blocks,
		Format:       state.ResponseFormat,
		Intent:       state.Intent,
		GeneratedSQL: state.GeneratedSQL,
		QueryID:      state.QueryID,
		CSVContent:   state.CSVContent,
		CSVFilename:  state.CSVFilename,
		CSVTitle:     state.CSVTitle,
		Usage:        state.Usage,
	}, nil
}

// persistTurn appends the completed turn to history. SQL is stored only
// for successful executions so cache rebuilds never replay broken
// statements.
func (p *Pipeline) persistTurn(ctx context.Context, state *State) {
	sqlForHistory := ""
	if state.QueryID != "" {
		sqlForHistory = state.GeneratedSQL
	}
	if _, err := p.store.Append(ctx, state.ThreadID, state.UserQuery, state.ResponseText, state.Intent, sqlForHistory); err != nil {
		p.logger.Warn("failed to persist turn", zap.String("thread_id", state.ThreadID), zap.Error(err))
	}
}

// complete issues one model call and folds its usage into the run total.
func (p *Pipeline) complete(ctx context.Context, state *State, req llm.Request) (string, error) {
	resp, err := p.provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	state.Usage.Add(p.estimator.Measure(req, resp))
	return resp.Content, nil
}
