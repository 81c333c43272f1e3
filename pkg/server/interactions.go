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

package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/chatbot"
)

// interactionPayload is the block_actions payload, reduced to the fields
// the buttons need.
type interactionPayload struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	Message struct {
		TS       string `json:"ts"`
		ThreadTS string `json:"thread_ts"`
	} `json:"message"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// handleInteractions serves button clicks from answer messages. The
// action carries the query fingerprint, so the synthesized request skips
// reference guessing entirely.
func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	body, ok := s.verifiedBody(w, r)
	if !ok {
		return
	}

	// Interactivity posts form-encoded bodies with the JSON in "payload".
	form, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "malformed interaction body", http.StatusBadRequest)
		return
	}
	var payload interactionPayload
	if err := json.Unmarshal([]byte(form.Get("payload")), &payload); err != nil {
		http.Error(w, "malformed interaction payload", http.StatusBadRequest)
		return
	}

	if payload.Type != "block_actions" || len(payload.Actions) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}
	action := payload.Actions[0]

	var text string
	switch action.ActionID {
	case "export_csv":
		text = "export csv"
	case "show_sql":
		text = "show sql"
	default:
		s.logger.Warn("unknown action", zap.String("action_id", action.ActionID))
		w.WriteHeader(http.StatusOK)
		return
	}

	threadID := payload.Message.ThreadTS
	if threadID == "" {
		threadID = payload.Message.TS
	}

	s.runAsync(chatbot.Request{
		ThreadID:          threadID,
		ChannelID:         payload.Channel.ID,
		UserID:            payload.User.ID,
		Text:              text,
		ReferencedQueryID: action.Value,
	})
	w.WriteHeader(http.StatusOK)
}
