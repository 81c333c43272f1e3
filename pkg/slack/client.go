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

package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIBase = "https://slack.com/api"
	defaultTimeout = 30 * time.Second
)

// APIError is a Slack Web API failure (ok=false responses included).
type APIError struct {
	Method string
	Reason string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Reason)
}

// Client is a minimal Slack Web API client covering message posting and
// file uploads.
type Client struct {
	token      string
	apiBase    string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig configures the outbound client.
type ClientConfig struct {
	// BotToken is the xoxb- bot token.
	BotToken string

	// APIBase overrides the API endpoint, used by tests.
	APIBase string

	// Timeout per API call.
	Timeout time.Duration

	// Logger for delivery reporting.
	Logger *zap.Logger
}

// NewClient creates an outbound Slack client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		token:      cfg.BotToken,
		apiBase:    cfg.APIBase,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

type postMessageRequest struct {
	Channel  string  `json:"channel"`
	Text     string  `json:"text"`
	ThreadTS string  `json:"thread_ts,omitempty"`
	Blocks   []Block `json:"blocks,omitempty"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PostMessage sends a message to a channel, optionally threaded. Text is
// the notification fallback; blocks carry the rich rendering.
func (c *Client) PostMessage(ctx context.Context, channel, text, threadTS string, blocks []Block) error {
	payload, err := json.Marshal(postMessageRequest{
		Channel:  channel,
		Text:     text,
		ThreadTS: threadTS,
		Blocks:   blocks,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, "chat.postMessage")
}

// UploadFile uploads a file (CSV export payloads) into a channel thread.
func (c *Client) UploadFile(ctx context.Context, channel, filename, title string, content []byte, threadTS string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("failed to write upload content: %w", err)
	}
	fields := map[string]string{
		"channels": channel,
		"filename": filename,
		"title":    title,
	}
	if threadTS != "" {
		fields["thread_ts"] = threadTS
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write upload field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/files.upload", &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, "files.upload")
}

func (c *Client) do(req *http.Request, method string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Method: method, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{Method: method, Reason: err.Error()}
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &APIError{Method: method, Reason: fmt.Sprintf("unparseable response (HTTP %d)", resp.StatusCode)}
	}
	if !parsed.OK {
		return &APIError{Method: method, Reason: parsed.Error}
	}

	c.logger.Debug("slack API call ok", zap.String("method", method))
	return nil
}
