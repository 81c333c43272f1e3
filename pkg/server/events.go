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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/chatbot"
	"github.com/teradata-labs/quill/pkg/slack"
)

// eventEnvelope is the Events API outer payload.
type eventEnvelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	Event     innerEvent `json:"event"`
}

type innerEvent struct {
	Type        string `json:"type"`
	User        string `json:"user"`
	BotID       string `json:"bot_id"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	TS          string `json:"ts"`
	ThreadTS    string `json:"thread_ts"`
}

// mentionPattern strips the leading "<@U123ABC>" from app mentions.
var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// handleEvents serves the Slack Events API: signature check, the
// one-time url_verification handshake, then message events. The webhook
// acknowledges immediately and answers out of band.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, ok := s.verifiedBody(w, r)
	if !ok {
		return
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		http.Error(w, "malformed event payload", http.StatusBadRequest)
		return
	}

	switch envelope.Type {
	case "url_verification":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"challenge": envelope.Challenge}) //nolint:errcheck
		return
	case "event_callback":
		// Fall through.
	default:
		w.WriteHeader(http.StatusOK)
		return
	}

	event := envelope.Event
	switch event.Type {
	case "app_mention":
		// Always answered.
	case "message":
		// A channel mention arrives as both an app_mention and a
		// message event; answering both would double every reply.
		// Plain message events only count in direct messages.
		if event.ChannelType != "im" {
			w.WriteHeader(http.StatusOK)
			return
		}
	default:
		w.WriteHeader(http.StatusOK)
		return
	}
	// Never answer ourselves or other bots.
	if event.BotID != "" || (s.config.BotUserID != "" && event.User == s.config.BotUserID) {
		w.WriteHeader(http.StatusOK)
		return
	}

	text := strings.TrimSpace(mentionPattern.ReplaceAllString(event.Text, ""))
	if text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	threadID := event.ThreadTS
	if threadID == "" {
		threadID = event.TS
	}

	s.runAsync(chatbot.Request{
		ThreadID:  threadID,
		ChannelID: event.Channel,
		UserID:    event.User,
		Text:      text,
	})
	w.WriteHeader(http.StatusOK)
}

// verifiedBody reads the request body and checks the Slack signature.
// Writes the error response itself when verification fails.
func (s *Server) verifiedBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return nil, false
	}
	if s.config.SigningSecret == "" {
		return body, true
	}
	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")
	if !slack.VerifySignature(s.config.SigningSecret, body, timestamp, signature) {
		s.logger.Warn("rejected request with bad signature",
			zap.String("path", r.URL.Path))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return nil, false
	}
	return body, true
}

// runAsync executes the pipeline in the background and posts the answer.
// Slack requires webhook acknowledgment within three seconds; a model
// round trip alone can exceed that.
func (s *Server) runAsync(req chatbot.Request) {
	req.Cache = s.cacheFor(req.ThreadID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
		defer cancel()

		result, err := s.pipeline.Run(ctx, req)
		if err != nil {
			s.logger.Error("pipeline run failed",
				zap.String("thread_id", req.ThreadID), zap.Error(err))
			s.post(ctx, req.ChannelID, req.ThreadID,
				"I'm having trouble reaching the language model right now. Please try again in a moment.",
				nil)
			return
		}

		s.post(ctx, req.ChannelID, req.ThreadID, result.Text, result.Blocks)
		if len(result.CSVContent) > 0 {
			if err := s.poster.UploadFile(ctx, req.ChannelID, result.CSVFilename, result.CSVTitle, result.CSVContent, req.ThreadID); err != nil {
				s.logger.Error("CSV upload failed",
					zap.String("thread_id", req.ThreadID), zap.Error(err))
			}
		}
	}()
}

func (s *Server) post(ctx context.Context, channel, threadID, text string, blocks []slack.Block) {
	if s.poster == nil {
		return
	}
	if err := s.poster.PostMessage(ctx, channel, text, threadID, blocks); err != nil {
		s.logger.Error("failed to post message",
			zap.String("channel", channel), zap.Error(err))
	}
}
