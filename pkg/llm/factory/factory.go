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

// Package factory constructs llm.Provider implementations from
// configuration.
package factory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/llm"
	"github.com/teradata-labs/quill/pkg/llm/anthropic"
	"github.com/teradata-labs/quill/pkg/llm/bedrock"
)

// Config selects and configures a provider.
type Config struct {
	// Provider is "anthropic" or "bedrock".
	Provider string

	// Model identifier; provider-specific default when empty.
	Model string

	// APIKey for the Anthropic provider.
	APIKey string

	// Region and Profile for the Bedrock provider.
	Region  string
	Profile string

	// MaxTokens caps completion length.
	MaxTokens int

	// Timeout for a single call (Anthropic only; Bedrock uses the SDK's).
	Timeout time.Duration

	// TransportRetries is the transport-failure retry budget. Negative
	// disables the retry wrapper.
	TransportRetries int

	// Logger for retry reporting.
	Logger *zap.Logger
}

// New builds the configured provider, wrapped with transport retries.
func New(ctx context.Context, cfg Config) (llm.Provider, error) {
	var provider llm.Provider
	switch cfg.Provider {
	case "", "anthropic":
		provider = anthropic.NewClient(anthropic.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
	case "bedrock":
		client, err := bedrock.NewClient(ctx, bedrock.Config{
			ModelID:   cfg.Model,
			Region:    cfg.Region,
			Profile:   cfg.Profile,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		provider = client
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}

	if cfg.TransportRetries < 0 {
		return provider, nil
	}
	retryCfg := llm.DefaultRetryConfig()
	if cfg.TransportRetries > 0 {
		retryCfg.MaxRetries = cfg.TransportRetries
	}
	return llm.NewRetryingProvider(provider, retryCfg, cfg.Logger), nil
}
