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

package analytics

import (
	"fmt"
	"strings"

	"github.com/teradata-labs/quill/pkg/types"
)

// DeniedKeywords are statement verbs that must never reach the database.
// The gate runs before execution; the read-only rollback transaction in
// the executor is the second, independent layer.
var DeniedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "TRUNCATE", "ALTER",
	"CREATE", "GRANT", "REVOKE", "EXEC", "EXECUTE",
}

// CheckSQL statically validates a candidate statement. Returns nil when
// the statement is acceptable, or *types.UnsafeSQLError naming the first
// violated rule. Checks, in order: non-empty, denylist token scan,
// SELECT/WITH prefix.
func CheckSQL(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return &types.UnsafeSQLError{Reason: "no SQL query generated"}
	}

	tokens := tokenize(trimmed)
	tokenSet := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		tokenSet[strings.ToUpper(tok)] = true
	}
	for _, keyword := range DeniedKeywords {
		if tokenSet[keyword] {
			return &types.UnsafeSQLError{
				Reason: fmt.Sprintf("write operation %q not allowed; only SELECT queries are permitted", keyword),
			}
		}
	}

	if len(tokens) == 0 {
		return &types.UnsafeSQLError{Reason: "failed to parse SQL query"}
	}
	first := strings.ToUpper(tokens[0])
	if first != "SELECT" && first != "WITH" {
		return &types.UnsafeSQLError{Reason: "only SELECT queries are permitted"}
	}
	return nil
}

// tokenize splits SQL text into identifier/keyword tokens. Quoted string
// literals are skipped so a value like 'dropped calls' cannot trip the
// denylist, while DROP as a statement token always does.
func tokenize(sqlText string) []string {
	var tokens []string
	var current strings.Builder
	inString := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range sqlText {
		switch {
		case r == '\'':
			inString = !inString
			flush()
		case inString:
			// Literal contents are not tokens.
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_':
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
