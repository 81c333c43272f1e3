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

// Package bedrock implements the llm.Provider interface on AWS Bedrock,
// speaking Anthropic's message format over InvokeModel.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/teradata-labs/quill/pkg/llm"
)

const (
	// DefaultModelID is the default Bedrock model.
	DefaultModelID = "anthropic.claude-sonnet-4-5-20250929-v1:0"
	// DefaultRegion is used when no region is configured.
	DefaultRegion = "us-east-1"
	// DefaultMaxTokens is the default completion cap.
	DefaultMaxTokens = 2048

	// anthropicVersion is required by Bedrock for all Claude models.
	anthropicVersion = "bedrock-2023-05-31"
)

// Config holds configuration for the Bedrock client.
type Config struct {
	// ModelID is the Bedrock model identifier.
	ModelID string

	// Region is the AWS region.
	Region string

	// AccessKeyID and SecretAccessKey configure static credentials.
	// When empty, the default AWS credentials chain is used (IAM role,
	// environment, shared profile).
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Profile selects a named shared-config profile.
	Profile string

	// MaxTokens caps completions when the request does not set its own.
	MaxTokens int
}

// Client calls Claude models through AWS Bedrock.
type Client struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int
}

// NewClient creates a Bedrock-backed provider.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	var awsCfg aws.Config
	var err error
	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			)),
		)
	case cfg.Profile != "":
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithSharedConfigProfile(cfg.Profile),
		)
	default:
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   cfg.ModelID,
		maxTokens: cfg.MaxTokens,
	}, nil
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends one request through InvokeModel and returns the text
// completion.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	request := map[string]interface{}{
		"anthropic_version": anthropicVersion,
		"max_tokens":        maxTokens,
		"temperature":       req.Temperature,
		"messages": []bedrockMessage{
			{Role: "user", Content: req.User},
		},
	}
	if req.System != "" {
		request["system"] = req.System
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invocation failed: %w", err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	for _, block := range response.Content {
		if block.Type == "text" {
			return &llm.Response{
				Content:      block.Text,
				InputTokens:  response.Usage.InputTokens,
				OutputTokens: response.Usage.OutputTokens,
			}, nil
		}
	}
	return nil, fmt.Errorf("no text content in response")
}

// Name returns "bedrock".
func (c *Client) Name() string { return "bedrock" }

// Model returns the configured Bedrock model identifier.
func (c *Client) Model() string { return c.modelID }
