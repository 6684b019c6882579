/*
 * Copyright 2026 Fieldwatch Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text passes through",
			input: "Supply Air Temp",
			want:  "Supply Air Temp",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  Zone 4 \t",
			want:  "Zone 4",
		},
		{
			name:  "control characters stripped",
			input: "AHU\x001\x1fReturn\nFan",
			want:  "AHU1ReturnFan",
		},
		{
			name:  "replacement character empties whole field",
			input: "Temp � Sensor",
			want:  "",
		},
		{
			name:  "invalid encoding empties whole field",
			input: "Temp \xff\xfe Sensor",
			want:  "",
		},
		{
			name:  "umlauts survive",
			input: "Zuluft Küche",
			want:  "Zuluft Küche",
		},
		{
			name:  "empty stays empty",
			input: "",
			want:  "",
		},
		{
			name:  "only controls collapses to empty",
			input: "\x01\x02\x03",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.input))
		})
	}
}
