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

package reconcile

import (
	"path/filepath"
	"strings"
)

// SummaryPrefix marks merged artifact files. Merge inputs carrying it are
// skipped so re-running a merge never folds a prior summary into itself.
const SummaryPrefix = "summary_"

// MergeInput is one artifact file offered to MergeDaily: its name decides
// whether it participates, its body is what gets concatenated.
type MergeInput struct {
	Name string
	Body string
}

// IsSummary reports whether a file name denotes a previously merged artifact.
func IsSummary(name string) bool {
	return strings.HasPrefix(filepath.Base(name), SummaryPrefix)
}

// MergeDaily concatenates the bodies of all non-summary inputs in the order
// given, one trailing newline between and after entries. Empty bodies and
// summary files contribute nothing. An all-skipped input set yields "".
func MergeDaily(inputs []MergeInput) string {
	var b strings.Builder

	for _, in := range inputs {
		if IsSummary(in.Name) {
			continue
		}

		body := strings.TrimRight(in.Body, "\n")
		if body == "" {
			continue
		}

		b.WriteString(body)
		b.WriteByte('\n')
	}

	return b.String()
}
