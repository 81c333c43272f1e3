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
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/teradata-labs/quill/pkg/slack"
	"github.com/teradata-labs/quill/pkg/types"
)

// formatResponse assembles the Block Kit payload for a successful run.
// Pure assembly, no model calls and no I/O.
func (p *Pipeline) formatResponse(state *State) {
	blocks := []slack.Block{slack.Section(state.ResponseText)}

	if state.ResponseFormat == types.FormatTable && state.Result != nil {
		table := RenderTable(state.Result, p.config.TableRowCap, p.config.ColumnWidthCap)
		blocks = append(blocks, slack.Section("```\n"+table+"\n```"))
	}

	if len(state.Assumptions) > 0 {
		blocks = append(blocks,
			slack.Context("_Assumptions: "+strings.Join(state.Assumptions, "; ")+"_"))
	}

	if state.QueryID != "" && state.Result != nil && state.Result.RowCount > 0 {
		blocks = append(blocks, slack.Actions(
			slack.Button("Export CSV", "export_csv", state.QueryID),
			slack.Button("Show SQL", "show_sql", state.QueryID),
		))
	}

	state.Blocks = blocks
}

// RenderTable renders a query result as a fixed-width text table:
// headers, a dashed rule, then up to maxRows rows, columns separated by
// " | " and padded to the widest cell, capped at widthCap characters.
// Overflow rows collapse into a trailing "... and N more rows" line.
func RenderTable(result *types.QueryResult, maxRows, widthCap int) string {
	columns := result.Columns
	rows := result.Rows
	remaining := 0
	if len(rows) > maxRows {
		remaining = len(rows) - maxRows
		rows = rows[:maxRows]
	}

	widths := make([]int, len(columns))
	cells := make([][]string, len(rows))
	for i, col := range columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			cell := formatCell(row[col], widthCap)
			cells[r][i] = cell
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		if widths[i] > widthCap {
			widths[i] = widthCap
		}
	}

	var b strings.Builder
	headers := make([]string, len(columns))
	rules := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = pad(formatCell(col, widthCap), widths[i])
		rules[i] = strings.Repeat("-", widths[i])
	}
	b.WriteString(strings.Join(headers, " | "))
	b.WriteString("\n")
	b.WriteString(strings.Join(rules, "-+-"))
	for _, row := range cells {
		b.WriteString("\n")
		padded := make([]string, len(row))
		for i, cell := range row {
			padded[i] = pad(cell, widths[i])
		}
		b.WriteString(strings.Join(padded, " | "))
	}
	if remaining > 0 {
		fmt.Fprintf(&b, "\n... and %d more rows", remaining)
	}
	return b.String()
}

// pad measures by runes so non-ASCII cells line up.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// formatCell stringifies a normalized value, truncating to widthCap.
func formatCell(v interface{}, widthCap int) string {
	var s string
	switch value := v.(type) {
	case nil:
		s = ""
	case string:
		s = value
	case int64:
		s = strconv.FormatInt(value, 10)
	case float64:
		s = strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(value)
	default:
		s = fmt.Sprintf("%v", value)
	}
	if runes := []rune(s); len(runes) > widthCap {
		s = string(runes[:widthCap])
	}
	return s
}
