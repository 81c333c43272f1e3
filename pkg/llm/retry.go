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

package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/types"
)

// RetryConfig controls transport-level retries. This budget is separate
// from the pipeline's SQL-repair budget: a transient network failure is
// retried here with backoff, and only surfaces to the pipeline once this
// budget is exhausted.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialDelay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the standard transport-retry budget:
// two retries with 500ms initial delay, doubling up to 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// RetryingProvider wraps a Provider with exponential-backoff retries on
// transport failures. Exhaustion is reported as *types.ModelError.
type RetryingProvider struct {
	inner  Provider
	config RetryConfig
	logger *zap.Logger
}

// NewRetryingProvider wraps inner with the given retry budget.
func NewRetryingProvider(inner Provider, config RetryConfig, logger *zap.Logger) *RetryingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingProvider{inner: inner, config: config, logger: logger}
}

// Complete calls the wrapped provider, retrying transport failures.
// Context cancellation is never retried.
func (p *RetryingProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.config.InitialDelay
	policy.MaxInterval = p.config.MaxDelay
	policy.MaxElapsedTime = 0 // bounded by retry count, not wall clock

	var resp *Response
	attempt := 0
	operation := func() error {
		var err error
		resp, err = p.inner.Complete(ctx, req)
		if err == nil {
			if attempt > 0 {
				p.logger.Info("model call succeeded after retry",
					zap.String("provider", p.inner.Name()),
					zap.Int("attempt", attempt+1),
				)
			}
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if attempt >= p.config.MaxRetries {
			return backoff.Permanent(err)
		}
		attempt++
		p.logger.Warn("model call failed, retrying",
			zap.String("provider", p.inner.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", p.config.MaxRetries),
			zap.Error(err),
		)
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, &types.ModelError{Provider: p.inner.Name(), Err: err}
	}
	return resp, nil
}

// Name returns the wrapped provider's name.
func (p *RetryingProvider) Name() string { return p.inner.Name() }

// Model returns the wrapped provider's model identifier.
func (p *RetryingProvider) Model() string { return p.inner.Model() }
