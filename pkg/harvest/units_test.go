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

func TestUnitSymbol(t *testing.T) {
	known := map[uint16]string{
		19:  "kWh",
		27:  "Hz",
		48:  "kW",
		53:  "Pa",
		54:  "kPa",
		62:  "°C",
		98:  "%",
		111: "rpm",
		135: "m³/h",
		206: "mWS",
	}

	for code, want := range known {
		assert.Equal(t, want, UnitSymbol(code), "code %d", code)
	}

	// Codes outside the table come back as the bare code.
	assert.Equal(t, "407", UnitSymbol(407))
	assert.Equal(t, "0", UnitSymbol(0))
}
