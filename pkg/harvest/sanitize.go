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
	"strings"
	"unicode/utf8"
)

// Clean normalizes a harvested text field. A replacement character means the
// device's charset could not be decoded; the whole field is unrecoverable,
// not partially salvageable, so it becomes empty. Control characters
// (0x00-0x1F) are stripped and the result is trimmed.
func Clean(s string) string {
	// ContainsRune with RuneError also matches invalid UTF-8 sequences.
	if strings.ContainsRune(s, utf8.RuneError) {
		return ""
	}

	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if r < 0x20 {
			continue
		}

		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}
