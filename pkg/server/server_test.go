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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/quill/pkg/chatbot"
	"github.com/teradata-labs/quill/pkg/llm"
	"github.com/teradata-labs/quill/pkg/prompts"
	"github.com/teradata-labs/quill/pkg/slack"
	"github.com/teradata-labs/quill/pkg/types"
)

// scriptedProvider replays canned completions in order.
type scriptedProvider struct {
	responses []string
	calls     int
}

func (s *scriptedProvider) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return &llm.Response{Content: s.responses[idx]}, nil
}

func (s *scriptedProvider) Name() string  { return "scripted" }
func (s *scriptedProvider) Model() string { return "test-model" }

// nullStore is an empty, write-discarding history store.
type nullStore struct{}

func (nullStore) Recent(context.Context, string, int) ([]types.Turn, error)        { return nil, nil }
func (nullStore) RecentWithSQL(context.Context, string, int) ([]types.Turn, error) { return nil, nil }
func (nullStore) MostRecentSQL(context.Context, string) (string, error)            { return "", nil }
func (nullStore) Append(_ context.Context, threadID, userMessage, botResponse string, intent types.Intent, sqlText string) (*types.Turn, error) {
	return &types.Turn{ThreadID: threadID}, nil
}

type staticExecutor struct{}

func (staticExecutor) Execute(context.Context, string) (*types.QueryResult, error) {
	return &types.QueryResult{
		Columns:  []string{"n"},
		Rows:     []map[string]interface{}{{"n": int64(7)}},
		RowCount: 1,
	}, nil
}

// recordingPoster captures deliveries and signals each one.
type recordingPoster struct {
	messages chan string
	uploads  chan string
}

func newRecordingPoster() *recordingPoster {
	return &recordingPoster{
		messages: make(chan string, 4),
		uploads:  make(chan string, 4),
	}
}

func (r *recordingPoster) PostMessage(_ context.Context, _, text, _ string, _ []slack.Block) error {
	r.messages <- text
	return nil
}

func (r *recordingPoster) UploadFile(_ context.Context, _, filename, _ string, _ []byte, _ string) error {
	r.uploads <- filename
	return nil
}

func newTestServer(secret string, provider llm.Provider, poster Poster) *Server {
	pipeline := chatbot.New(chatbot.Config{}, provider, prompts.NewRegistry(nil), nullStore{}, staticExecutor{})
	return New(Config{
		Addr:          ":0",
		SigningSecret: secret,
		BotUserID:     "UBOT",
	}, pipeline, poster)
}

func signedRequest(t *testing.T, secret, path, contentType string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", contentType)
	if secret != "" {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		mac := hmac.New(sha256.New, []byte(secret))
		fmt.Fprintf(mac, "v0:%s:%s", ts, body)
		req.Header.Set("X-Slack-Request-Timestamp", ts)
		req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	}
	return req
}

func TestHealthz(t *testing.T) {
	srv := newTestServer("", &scriptedProvider{responses: []string{"{}"}}, newRecordingPoster())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestURLVerificationChallenge(t *testing.T) {
	secret := "test-secret"
	srv := newTestServer(secret, &scriptedProvider{responses: []string{"{}"}}, newRecordingPoster())

	body := []byte(`{"type":"url_verification","challenge":"abc123xyz"}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, signedRequest(t, secret, "/slack/events", "application/json", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var parsed map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "abc123xyz", parsed["challenge"])
}

func TestEventsRejectsBadSignature(t *testing.T) {
	srv := newTestServer("real-secret", &scriptedProvider{responses: []string{"{}"}}, newRecordingPoster())

	body := []byte(`{"type":"url_verification","challenge":"abc"}`)
	req := signedRequest(t, "wrong-secret", "/slack/events", "application/json", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAppMentionRunsPipelineAndPostsAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "analytics_query", "confidence": 0.9}`,
		`{"sql": "SELECT COUNT(*) AS n FROM app_metrics", "assumptions": []}`,
		"You have 7 data points.",
	}}
	poster := newRecordingPoster()
	srv := newTestServer("", provider, poster)

	body := []byte(`{
		"type": "event_callback",
		"event": {
			"type": "app_mention",
			"user": "U123",
			"text": "<@UBOT> how many rows do we have?",
			"channel": "C1",
			"ts": "1700000000.000100"
		}
	}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, signedRequest(t, "", "/slack/events", "application/json", body))

	// Slack gets its ack immediately; the answer arrives asynchronously.
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case text := <-poster.messages:
		assert.Equal(t, "You have 7 data points.", text)
	case <-time.After(5 * time.Second):
		t.Fatal("no message posted")
	}
}

func TestBotMessagesAreIgnored(t *testing.T) {
	poster := newRecordingPoster()
	srv := newTestServer("", &scriptedProvider{responses: []string{"{}"}}, poster)

	body := []byte(`{
		"type": "event_callback",
		"event": {
			"type": "message",
			"user": "UBOT",
			"text": "echo echo",
			"channel": "D1",
			"channel_type": "im",
			"ts": "1700000000.000100"
		}
	}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, signedRequest(t, "", "/slack/events", "application/json", body))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-poster.messages:
		t.Fatal("bot message must not produce a reply")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelMentionDeliveredTwiceAnswersOnce(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "analytics_query", "confidence": 0.9}`,
		`{"sql": "SELECT COUNT(*) AS n FROM app_metrics", "assumptions": []}`,
		"You have 7 data points.",
	}}
	poster := newRecordingPoster()
	srv := newTestServer("", provider, poster)

	// Slack sends a channel mention as both an app_mention event and a
	// message event with channel_type "channel". Only the mention counts.
	mention := []byte(`{
		"type": "event_callback",
		"event": {
			"type": "app_mention",
			"user": "U123",
			"text": "<@UBOT> how many rows do we have?",
			"channel": "C1",
			"ts": "1700000000.000200"
		}
	}`)
	message := []byte(`{
		"type": "event_callback",
		"event": {
			"type": "message",
			"user": "U123",
			"text": "<@UBOT> how many rows do we have?",
			"channel": "C1",
			"channel_type": "channel",
			"ts": "1700000000.000200"
		}
	}`)

	router := srv.Router()
	for _, body := range [][]byte{mention, message} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, signedRequest(t, "", "/slack/events", "application/json", body))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	select {
	case text := <-poster.messages:
		assert.Equal(t, "You have 7 data points.", text)
	case <-time.After(5 * time.Second):
		t.Fatal("no message posted")
	}
	select {
	case <-poster.messages:
		t.Fatal("one channel mention must produce exactly one answer")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDirectMessageRunsPipeline(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "analytics_query", "confidence": 0.9}`,
		`{"sql": "SELECT COUNT(*) AS n FROM app_metrics", "assumptions": []}`,
		"You have 7 data points.",
	}}
	poster := newRecordingPoster()
	srv := newTestServer("", provider, poster)

	body := []byte(`{
		"type": "event_callback",
		"event": {
			"type": "message",
			"user": "U123",
			"text": "how many rows do we have?",
			"channel": "D1",
			"channel_type": "im",
			"ts": "1700000000.000300"
		}
	}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, signedRequest(t, "", "/slack/events", "application/json", body))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case text := <-poster.messages:
		assert.Equal(t, "You have 7 data points.", text)
	case <-time.After(5 * time.Second):
		t.Fatal("no message posted")
	}
}

func TestExportButtonUploadsCSV(t *testing.T) {
	poster := newRecordingPoster()
	srv := newTestServer("", &scriptedProvider{responses: []string{"{}"}}, poster)

	// Seed the thread's cache with a finished query.
	cache := srv.cacheFor("1700000000.000100")
	id := chatbot.Fingerprint("SELECT COUNT(*) AS n FROM app_metrics")
	cache.Put(id, &types.CacheEntry{
		SQL:          "SELECT COUNT(*) AS n FROM app_metrics",
		Result:       &types.QueryResult{Columns: []string{"n"}, Rows: []map[string]interface{}{{"n": int64(7)}}, RowCount: 1},
		NaturalQuery: "how many rows do we have?",
		StoredAt:     time.Now().UTC(),
	})

	payload := fmt.Sprintf(`{
		"type": "block_actions",
		"user": {"id": "U123"},
		"channel": {"id": "C1"},
		"message": {"ts": "1700000000.000100"},
		"actions": [{"action_id": "export_csv", "value": %q}]
	}`, id)
	body := []byte("payload=" + url.QueryEscape(payload))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, signedRequest(t, "", "/slack/interactions",
		"application/x-www-form-urlencoded", body))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case filename := <-poster.uploads:
		assert.Equal(t, "analytics_export_"+id+".csv", filename)
	case <-time.After(5 * time.Second):
		t.Fatal("no file uploaded")
	}
}
