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
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/slack"
	"github.com/teradata-labs/quill/pkg/types"
)

// handleError turns an exhausted repair loop into an apology the user
// can act on. The message is picked by error class, includes the original
// question for context, and never exposes a stack trace.
func (p *Pipeline) handleError(state *State) {
	question := truncate(state.UserQuery, 100)
	lowered := strings.ToLower(state.SQLError)

	var message string
	switch {
	case strings.Contains(lowered, "not allowed") || strings.Contains(lowered, "only select"):
		message = fmt.Sprintf(
			"I can only run read-only queries, and the query for %q would have modified data. "+
				"Try rephrasing it as a question about existing data.", question)
	case strings.Contains(lowered, "execution failed"):
		message = fmt.Sprintf(
			"I had trouble running a query for %q. I tried a few variations but the database "+
				"kept rejecting them. Could you rephrase the question or be more specific?", question)
	case strings.Contains(lowered, "parse"):
		message = fmt.Sprintf(
			"I couldn't turn %q into a working query. Could you rephrase it? "+
				"Mentioning specific apps, metrics, or date ranges helps.", question)
	default:
		message = fmt.Sprintf(
			"Something went wrong while answering %q (%s). Please try again or rephrase "+
				"the question.", question, truncate(state.SQLError, 200))
	}

	p.logger.Error("pipeline gave up on question",
		zap.String("thread_id", state.ThreadID),
		zap.Int("attempts", state.RetryCount),
		zap.String("sql_error", state.SQLError))

	state.ResponseFormat = types.FormatError
	state.ResponseText = message
	state.Blocks = []slack.Block{slack.Section(message)}
}
