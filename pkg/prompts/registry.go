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

// Package prompts holds the pipeline's prompt templates.
//
// Templates ship as built-in defaults and can be overridden from a YAML
// file at startup, so prompt wording is tunable without a rebuild. All
// templates support {{.variable}} interpolation.
package prompts

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Registry resolves prompt keys to interpolated prompt text.
// Thread-safe for concurrent Get calls.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]string
	logger    *zap.Logger
}

// NewRegistry creates a registry with the built-in templates.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	templates := make(map[string]string, len(defaultTemplates))
	for k, v := range defaultTemplates {
		templates[k] = v
	}
	return &Registry{templates: templates, logger: logger}
}

// LoadOverrides merges a YAML override file (key → template) over the
// defaults. Unknown keys are rejected so a typo in the override file
// fails loudly instead of silently shipping the default wording.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompt overrides: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse prompt overrides: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for key, tmpl := range overrides {
		if _, ok := defaultTemplates[key]; !ok {
			return fmt.Errorf("unknown prompt key in overrides: %q", key)
		}
		r.templates[key] = tmpl
		r.logger.Info("prompt overridden", zap.String("key", key))
	}
	return nil
}

// Get returns the template for key with variables interpolated.
func (r *Registry) Get(key string, vars map[string]interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[key]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown prompt key: %q", key)
	}
	return Interpolate(tmpl, vars), nil
}
