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

package prompts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var placeholderRe = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// Interpolate performs variable substitution in a prompt template.
//
// Uses {{.variable_name}} syntax. Values are sanitized: control characters
// other than newline and tab are stripped so user-originated text cannot
// smuggle terminal escapes into a prompt. Placeholders without a matching
// variable are left in place, which makes a missing variable visible in
// the rendered prompt instead of silently producing an empty hole.
func Interpolate(template string, vars map[string]interface{}) string {
	if vars == nil {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "{{."), "}}")
		value, ok := vars[name]
		if !ok {
			return match
		}
		return sanitizeValue(value)
	})
}

func sanitizeValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return stripControl(v)
	case []string:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = stripControl(s)
		}
		return strings.Join(parts, ", ")
	default:
		return stripControl(fmt.Sprintf("%v", v))
	}
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
