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

// Package server exposes the Slack-facing HTTP surface: the Events API
// webhook, the interactivity webhook for block actions, and a health
// probe. Handlers acknowledge Slack within its three-second deadline and
// run the pipeline asynchronously, posting the answer back afterwards.
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/chatbot"
	"github.com/teradata-labs/quill/pkg/slack"
)

// Config for the HTTP server.
type Config struct {
	// Addr to listen on, e.g. ":8080".
	Addr string

	// SigningSecret verifies Slack request signatures. Empty disables
	// verification, for local development only.
	SigningSecret string

	// BotUserID filters out the bot's own messages to avoid answer loops.
	BotUserID string

	// RunTimeout bounds one pipeline run. Defaults to 2 minutes.
	RunTimeout time.Duration

	Logger *zap.Logger
}

// Poster delivers completed answers back to Slack. Satisfied by
// *slack.Client; tests substitute a recorder.
type Poster interface {
	PostMessage(ctx context.Context, channel, text, threadTS string, blocks []slack.Block) error
	UploadFile(ctx context.Context, channel, filename, title string, content []byte, threadTS string) error
}

// Server wires webhook handlers to the pipeline.
type Server struct {
	config   Config
	pipeline *chatbot.Pipeline
	poster   Poster
	logger   *zap.Logger

	mu     sync.Mutex
	caches map[string]*chatbot.QueryCache

	httpServer *http.Server
}

// New builds the server. poster delivers responses; nil is allowed in
// tests that only exercise request handling.
func New(cfg Config, pipeline *chatbot.Pipeline, poster Poster) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	s := &Server{
		config:   cfg,
		pipeline: pipeline,
		poster:   poster,
		logger:   cfg.Logger.Named("server"),
		caches:   make(map[string]*chatbot.QueryCache),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router assembles the chi route tree. Exposed for httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/slack/events", s.handleEvents)
	r.Post("/slack/interactions", s.handleInteractions)
	return r
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.config.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"status":"ok"}`) //nolint:errcheck
}

// cacheFor returns the per-thread query cache, creating it on first use.
// Caches are in-memory per process; after a restart they rebuild lazily
// from history.
func (s *Server) cacheFor(threadID string) *chatbot.QueryCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	cache, ok := s.caches[threadID]
	if !ok {
		cache = chatbot.NewQueryCache(0)
		s.caches[threadID] = cache
	}
	return cache
}
