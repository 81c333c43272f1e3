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

// Package llm defines the language-model gateway interface and the
// transport-retry wrapper shared by all providers.
package llm

import "context"

// Request is one structured completion request. The pipeline always
// separates instructions (System) from the turn content (User).
type Request struct {
	// System is the system prompt.
	System string

	// User is the user-turn content.
	User string

	// Temperature in [0, 1]. Zero means deterministic generation, which
	// is what classification and SQL generation want; interpretation uses
	// a slightly higher value.
	Temperature float64

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int
}

// Response is the provider's completion.
type Response struct {
	// Content is the raw completion text.
	Content string

	// InputTokens and OutputTokens as reported by the provider, zero when
	// the provider does not report usage.
	InputTokens  int
	OutputTokens int
}

// Provider is a pluggable language-model gateway. Implementations exist
// for Anthropic and AWS Bedrock; tests use in-process fakes.
type Provider interface {
	// Complete sends one request and returns the completion. Blocking;
	// honors ctx cancellation.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name ("anthropic", "bedrock").
	Name() string

	// Model returns the model identifier in use.
	Model() string
}
