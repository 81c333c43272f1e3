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
	"github.com/MakeNowJust/heredoc"

	"github.com/teradata-labs/quill/pkg/slack"
	"github.com/teradata-labs/quill/pkg/types"
)

// declineMessage is the fixed redirect for off-topic messages. No model
// call; the supported topics are stable enough to hardcode.
var declineMessage = heredoc.Doc(`
	I'm an analytics assistant for mobile app data. I can help you with questions about:
	- App installs and downloads
	- Revenue (in-app purchases and ads)
	- User acquisition costs
	- Comparisons across apps, platforms, and countries
	- Trends over time

	Try asking something like "Which app earned the most revenue last month?"
`)

func (p *Pipeline) decline(state *State) {
	state.ResponseFormat = types.FormatSimple
	state.ResponseText = declineMessage
	state.Blocks = []slack.Block{slack.Section(declineMessage)}
}
