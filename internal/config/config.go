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

// Package config loads service configuration from a YAML file with
// QUILL_-prefixed environment overrides. Secrets (tokens, API keys) are
// expected to arrive via environment in production.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration tree.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Server   ServerConfig   `mapstructure:"server"`
	Slack    SlackConfig    `mapstructure:"slack"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Database DatabaseConfig `mapstructure:"database"`
	History  HistoryConfig  `mapstructure:"history"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Prompts  PromptsConfig  `mapstructure:"prompts"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type SlackConfig struct {
	SigningSecret string `mapstructure:"signing_secret"`
	BotToken      string `mapstructure:"bot_token"`
	BotUserID     string `mapstructure:"bot_user_id"`
	APIBase       string `mapstructure:"api_base"`
}

type LLMConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	APIKey           string        `mapstructure:"api_key"`
	Region           string        `mapstructure:"region"`
	Profile          string        `mapstructure:"profile"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Timeout          time.Duration `mapstructure:"timeout"`
	TransportRetries int           `mapstructure:"transport_retries"`
}

type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type HistoryConfig struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

type PipelineConfig struct {
	MaxRetries     int `mapstructure:"max_retries"`
	HistoryWindow  int `mapstructure:"history_window"`
	CacheSize      int `mapstructure:"cache_size"`
	TableRowCap    int `mapstructure:"table_row_cap"`
	ColumnWidthCap int `mapstructure:"column_width_cap"`
	SampleRows     int `mapstructure:"sample_rows"`
}

type PromptsConfig struct {
	OverridesPath string `mapstructure:"overrides_path"`
}

// Load reads configuration from path (optional) and the environment.
// Environment variables use the QUILL_ prefix with underscores for
// nesting, e.g. QUILL_SLACK_BOT_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("quill")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/quill")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			// No file is fine; defaults plus environment cover it.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.addr", ":8080")

	// Secrets default to empty so environment overrides bind through
	// AutomaticEnv; viper only sees env values for known keys.
	v.SetDefault("slack.signing_secret", "")
	v.SetDefault("slack.bot_token", "")
	v.SetDefault("slack.bot_user_id", "")
	v.SetDefault("slack.api_base", "https://slack.com/api")

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.region", "")
	v.SetDefault("llm.profile", "")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.transport_retries", 2)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.query_timeout", 30*time.Second)

	v.SetDefault("prompts.overrides_path", "")

	v.SetDefault("history.path", "quill_history.db")
	v.SetDefault("history.retention", 24*time.Hour)

	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.history_window", 10)
	v.SetDefault("pipeline.cache_size", 10)
	v.SetDefault("pipeline.table_row_cap", 20)
	v.SetDefault("pipeline.column_width_cap", 30)
	v.SetDefault("pipeline.sample_rows", 5)
}
