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
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teradata-labs/quill/pkg/types"
)

// modelPricing is USD per million tokens, keyed by model-name substring.
// Matched longest-prefix-wins; unknown models fall back to the default.
var modelPricing = map[string]struct{ input, output float64 }{
	"claude-opus":   {15.00, 75.00},
	"claude-sonnet": {3.00, 15.00},
	"claude-haiku":  {0.80, 4.00},
}

const (
	defaultInputPerMTok  = 3.00
	defaultOutputPerMTok = 15.00
)

// UsageEstimator converts provider responses into per-run usage
// accounting. Token counts reported by the provider are used as-is;
// when a provider reports nothing, counts are estimated locally with
// tiktoken so cost numbers stay comparable across providers.
type UsageEstimator struct {
	model string

	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewUsageEstimator creates an estimator for the given model identifier.
func NewUsageEstimator(model string) *UsageEstimator {
	return &UsageEstimator{model: model}
}

// Measure returns the usage record for one completed call.
func (e *UsageEstimator) Measure(req Request, resp *Response) types.Usage {
	in := resp.InputTokens
	out := resp.OutputTokens
	if in == 0 {
		in = e.countTokens(req.System + "\n" + req.User)
	}
	if out == 0 {
		out = e.countTokens(resp.Content)
	}

	inPrice, outPrice := e.pricing()
	return types.Usage{
		ModelCalls:   1,
		InputTokens:  in,
		OutputTokens: out,
		CostUSD:      float64(in)/1e6*inPrice + float64(out)/1e6*outPrice,
	}
}

func (e *UsageEstimator) pricing() (float64, float64) {
	for prefix, p := range modelPricing {
		if strings.Contains(e.model, prefix) {
			return p.input, p.output
		}
	}
	return defaultInputPerMTok, defaultOutputPerMTok
}

// countTokens estimates the token count of text. Uses the cl100k_base
// encoding as a cross-model approximation; a rune-length quarter is the
// fallback when the encoding cannot be loaded (offline environments).
func (e *UsageEstimator) countTokens(text string) int {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			e.encoding = enc
		}
	})
	if e.encoding == nil {
		n := len([]rune(text)) / 4
		if n == 0 && text != "" {
			n = 1
		}
		return n
	}
	return len(e.encoding.Encode(text, nil, nil))
}
