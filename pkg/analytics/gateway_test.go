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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	when := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"nil stays nil", nil, nil},
		{"string passthrough", "USA", "USA"},
		{"bytes become string", []byte("Paint"), "Paint"},
		{"int collapses to int64", int(7), int64(7)},
		{"int32 collapses to int64", int32(7), int64(7)},
		{"int64 passthrough", int64(7), int64(7)},
		{"float32 widens", float32(1.5), float64(1.5)},
		{"float64 passthrough", float64(2.25), float64(2.25)},
		{"bool passthrough", true, true},
		{"time becomes RFC3339", when, "2026-03-14T09:26:53Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.in))
		})
	}
}
