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

// quilld is the analytics assistant service. "quilld serve" runs the
// Slack webhook server; "quilld seed" loads demo data into the metrics
// database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teradata-labs/quill/internal/config"
	"github.com/teradata-labs/quill/internal/version"
	"github.com/teradata-labs/quill/pkg/analytics"
	"github.com/teradata-labs/quill/pkg/chatbot"
	"github.com/teradata-labs/quill/pkg/history"
	"github.com/teradata-labs/quill/pkg/llm/factory"
	"github.com/teradata-labs/quill/pkg/prompts"
	"github.com/teradata-labs/quill/pkg/server"
	"github.com/teradata-labs/quill/pkg/slack"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "quilld",
		Short:        "Conversational analytics assistant for Slack",
		Version:      version.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(serveCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(parsed)
	return zapCfg.Build()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack webhook server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			logger.Info("starting quilld",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit))

			provider, err := factory.New(cmd.Context(), factory.Config{
				Provider:         cfg.LLM.Provider,
				Model:            cfg.LLM.Model,
				APIKey:           cfg.LLM.APIKey,
				Region:           cfg.LLM.Region,
				Profile:          cfg.LLM.Profile,
				MaxTokens:        cfg.LLM.MaxTokens,
				Timeout:          cfg.LLM.Timeout,
				TransportRetries: cfg.LLM.TransportRetries,
				Logger:           logger,
			})
			if err != nil {
				return fmt.Errorf("failed to build LLM provider: %w", err)
			}

			registry := prompts.NewRegistry(logger)
			if cfg.Prompts.OverridesPath != "" {
				if err := registry.LoadOverrides(cfg.Prompts.OverridesPath); err != nil {
					return fmt.Errorf("failed to load prompt overrides: %w", err)
				}
			}

			store, err := history.NewSQLiteStore(cfg.History.Path, logger)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer store.Close() //nolint:errcheck

			retention := history.NewRetentionJob(store, cfg.History.Retention, logger)
			if err := retention.Start(); err != nil {
				return fmt.Errorf("failed to start retention job: %w", err)
			}
			defer retention.Stop()

			db, err := analytics.Open(analytics.Config{
				Driver:       cfg.Database.Driver,
				DSN:          cfg.Database.DSN,
				MaxOpenConns: cfg.Database.MaxOpenConns,
				QueryTimeout: cfg.Database.QueryTimeout,
				Logger:       logger,
			})
			if err != nil {
				return fmt.Errorf("failed to open analytics database: %w", err)
			}
			defer db.Close() //nolint:errcheck

			pipeline := chatbot.New(chatbot.Config{
				MaxRetries:     cfg.Pipeline.MaxRetries,
				HistoryWindow:  cfg.Pipeline.HistoryWindow,
				CacheSize:      cfg.Pipeline.CacheSize,
				TableRowCap:    cfg.Pipeline.TableRowCap,
				ColumnWidthCap: cfg.Pipeline.ColumnWidthCap,
				SampleRows:     cfg.Pipeline.SampleRows,
				Logger:         logger,
			}, provider, registry, store, db)

			poster := slack.NewClient(slack.ClientConfig{
				BotToken: cfg.Slack.BotToken,
				APIBase:  cfg.Slack.APIBase,
				Logger:   logger,
			})

			srv := server.New(server.Config{
				Addr:          cfg.Server.Addr,
				SigningSecret: cfg.Slack.SigningSecret,
				BotUserID:     cfg.Slack.BotUserID,
				Logger:        logger,
			}, pipeline, poster)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				logger.Info("shutting down", zap.String("signal", sig.String()))
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}

func seedCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load deterministic demo data into the metrics database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			return analytics.Seed(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN, days, logger)
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "days of daily metrics to generate")
	return cmd
}
