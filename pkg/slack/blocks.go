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

// Package slack implements the pieces of Slack's platform the assistant
// needs: request signature verification, Block Kit block construction,
// and an outbound Web API client.
package slack

// Text is a Block Kit text object.
type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Element is a Block Kit interactive or context element.
type Element struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	ActionID string `json:"action_id,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Block is one Block Kit layout block. Only the kinds the assistant
// emits are modeled: section, context, and actions.
type Block struct {
	Type     string    `json:"type"`
	Text     *Text     `json:"text,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Section builds a mrkdwn section block.
func Section(markdown string) Block {
	return Block{
		Type: "section",
		Text: &Text{Type: "mrkdwn", Text: markdown},
	}
}

// Context builds a muted context block with a single mrkdwn element.
func Context(markdown string) Block {
	return Block{
		Type: "context",
		Elements: []Element{
			{Type: "mrkdwn", Text: &Text{Type: "mrkdwn", Text: markdown}},
		},
	}
}

// Button builds an actions-block button carrying a value for the
// interaction callback.
func Button(label, actionID, value string) Element {
	return Element{
		Type:     "button",
		Text:     &Text{Type: "plain_text", Text: label, Emoji: true},
		ActionID: actionID,
		Value:    value,
	}
}

// Actions builds an actions block from buttons.
func Actions(buttons ...Element) Block {
	return Block{Type: "actions", Elements: buttons}
}
