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
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwatch/pointscan/pkg/models"
)

const testDeviceKey = "FW-4711"

func row(id, name, description, unit string, decimal bool, typeCode int) models.CatalogRow {
	return models.CatalogRow{
		DeviceKey:   testDeviceKey,
		SyntheticID: id,
		Name:        name,
		Description: description,
		Unit:        unit,
		Decimal:     decimal,
		TypeCode:    typeCode,
		ServerID:    3,
		SystemID:    7,
		OrderID:     9,
	}
}

func point(id, name, description, unit string, decimal bool, typeCode int) models.HarvestedPoint {
	return models.HarvestedPoint{
		SyntheticID: id,
		TypeCode:    typeCode,
		Name:        name,
		Description: description,
		Unit:        unit,
		Decimal:     decimal,
	}
}

func TestReconcileRenameAndAddition(t *testing.T) {
	rows := []models.CatalogRow{
		row("AI-1", "Old Temp", "AHU1 supply", "°C", true, 0),
	}
	points := []models.HarvestedPoint{
		point("AI-1", "New Temp", "AHU1 supply", "°C", true, 0),
		point("BV-3", "Fan Enable", "", "", false, 5),
	}

	result := Reconcile(testDeviceKey, rows, points)

	require.Len(t, result.Additions, 1)
	assert.Equal(t, "BV-3", result.Additions[0].SyntheticID)

	require.Len(t, result.Changes, 1)
	assert.Equal(t, models.FieldChange{
		SyntheticID: "AI-1",
		Column:      "name",
		OldValue:    "Old Temp",
		NewValue:    "New Temp",
	}, result.Changes[0])

	assert.Empty(t, result.Removals)
	assert.Equal(t, 0, result.Unchanged)
	assert.False(t, result.Empty())
}

func TestReconcileRemoval(t *testing.T) {
	rows := []models.CatalogRow{
		row("AI-1", "Supply Temp", "", "°C", true, 0),
		row("AI-2", "Return Temp", "", "°C", true, 0),
	}
	points := []models.HarvestedPoint{
		point("AI-1", "Supply Temp", "", "°C", true, 0),
	}

	result := Reconcile(testDeviceKey, rows, points)

	assert.Empty(t, result.Additions)
	assert.Empty(t, result.Changes)
	assert.Equal(t, []string{"AI-2"}, result.Removals)
	assert.Equal(t, 1, result.Unchanged)
}

func TestReconcileUnchangedIsSilent(t *testing.T) {
	rows := []models.CatalogRow{
		row("MSV-9", "Op Mode", "plant mode", "", false, 19),
	}
	points := []models.HarvestedPoint{
		point("MSV-9", "Op Mode", "plant mode", "", false, 19),
	}

	result := Reconcile(testDeviceKey, rows, points)

	assert.True(t, result.Empty())
	assert.Equal(t, 1, result.Unchanged)
}

func TestReconcileEmptySides(t *testing.T) {
	t.Run("no prior rows", func(t *testing.T) {
		points := []models.HarvestedPoint{point("AI-1", "Supply Temp", "", "°C", true, 0)}

		result := Reconcile(testDeviceKey, nil, points)

		require.Len(t, result.Additions, 1)
		assert.Empty(t, result.Removals)
	})

	t.Run("empty harvest removes everything", func(t *testing.T) {
		rows := []models.CatalogRow{
			row("BV-2", "Pump", "", "", false, 5),
			row("AI-1", "Supply Temp", "", "°C", true, 0),
		}

		result := Reconcile(testDeviceKey, rows, nil)

		assert.Empty(t, result.Additions)
		assert.Equal(t, []string{"AI-1", "BV-2"}, result.Removals)
	})
}

func TestReconcileColumnOrder(t *testing.T) {
	rows := []models.CatalogRow{
		row("AV-5", "Setpoint", "zone sp", "°C", true, 2),
	}
	points := []models.HarvestedPoint{
		point("AV-5", "Zone Setpoint", "zone 5 sp", "%", false, 5),
	}

	result := Reconcile(testDeviceKey, rows, points)

	require.Len(t, result.Changes, 5)

	columns := make([]string, 0, len(result.Changes))
	for _, change := range result.Changes {
		assert.Equal(t, "AV-5", change.SyntheticID)
		columns = append(columns, change.Column)
	}

	assert.Equal(t, []string{"name", "description", "unit", "decimalFlag", "typeCode"}, columns)

	assert.Equal(t, "true", result.Changes[3].OldValue)
	assert.Equal(t, "false", result.Changes[3].NewValue)
	assert.Equal(t, "2", result.Changes[4].OldValue)
	assert.Equal(t, "5", result.Changes[4].NewValue)
}

func TestReconcileRemovalsSorted(t *testing.T) {
	rows := []models.CatalogRow{
		row("MSV-3", "C", "", "", false, 19),
		row("AI-10", "A", "", "", true, 0),
		row("BV-2", "B", "", "", false, 5),
	}

	result := Reconcile(testDeviceKey, rows, nil)

	assert.Equal(t, []string{"AI-10", "BV-2", "MSV-3"}, result.Removals)
}

// TestReconcilePartition drives randomized catalog and harvest sets through
// Reconcile and checks that every synthetic ID lands in exactly one bucket.
func TestReconcilePartition(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for trial := 0; trial < 50; trial++ {
		var (
			rows   []models.CatalogRow
			points []models.HarvestedPoint
		)

		catalogIDs := make(map[string]struct{})
		harvestIDs := make(map[string]struct{})

		for i := uint32(0); i < 40; i++ {
			id := models.SyntheticID(models.ObjectAnalogValue, i)
			inCatalog := r.Intn(2) == 0
			inHarvest := r.Intn(2) == 0

			if inCatalog {
				rows = append(rows, row(id, "Point "+id, "", "", true, 2))
				catalogIDs[id] = struct{}{}
			}

			if inHarvest {
				name := "Point " + id
				if inCatalog && r.Intn(3) == 0 {
					name = "Renamed " + id
				}

				points = append(points, point(id, name, "", "", true, 2))
				harvestIDs[id] = struct{}{}
			}
		}

		result := Reconcile(testDeviceKey, rows, points)

		buckets := make(map[string]string)
		claim := func(id, bucket string) {
			prev, dup := buckets[id]
			require.False(t, dup, "trial %d: %s in both %s and %s", trial, id, prev, bucket)
			buckets[id] = bucket
		}

		for _, p := range result.Additions {
			claim(p.SyntheticID, "additions")
			_, known := catalogIDs[p.SyntheticID]
			require.False(t, known, "trial %d: addition %s already cataloged", trial, p.SyntheticID)
		}

		changedIDs := make(map[string]struct{})
		for _, c := range result.Changes {
			changedIDs[c.SyntheticID] = struct{}{}
		}

		for id := range changedIDs {
			claim(id, "changes")
		}

		for _, id := range result.Removals {
			claim(id, "removals")
			_, live := harvestIDs[id]
			require.False(t, live, "trial %d: removal %s still harvested", trial, id)
		}

		matched := 0

		for id := range harvestIDs {
			if _, ok := catalogIDs[id]; ok {
				matched++
			}
		}

		require.Equal(t, matched, len(changedIDs)+result.Unchanged, "trial %d", trial)
		require.Len(t, result.Additions, len(harvestIDs)-matched, "trial %d", trial)
		require.Len(t, result.Removals, len(catalogIDs)-matched, "trial %d", trial)
	}
}

func TestInheritIdentifiers(t *testing.T) {
	defaults := models.Identifiers{ServerID: 100, SystemID: 200, OrderID: 300}

	t.Run("from existing rows", func(t *testing.T) {
		rows := []models.CatalogRow{row("AI-1", "Supply Temp", "", "°C", true, 0)}

		ids := InheritIdentifiers(rows, defaults)

		assert.Equal(t, models.Identifiers{ServerID: 3, SystemID: 7, OrderID: 9}, ids)
	})

	t.Run("defaults for a new device", func(t *testing.T) {
		ids := InheritIdentifiers(nil, defaults)

		assert.Equal(t, defaults, ids)
	})
}

func TestScriptStatements(t *testing.T) {
	result := &models.ReconciliationResult{
		DeviceKey: testDeviceKey,
		Additions: []models.HarvestedPoint{
			point("BV-3", "O'Neill Zone", "wing B", "", false, 5),
		},
		Changes: []models.FieldChange{
			{SyntheticID: "AI-1", Column: "name", OldValue: "Old Temp", NewValue: "New Temp"},
			{SyntheticID: "AI-1", Column: "decimalFlag", OldValue: "false", NewValue: "true"},
		},
		Removals: []string{"AI-2"},
	}

	script := Script(result, models.Identifiers{ServerID: 3, SystemID: 7, OrderID: 9})
	lines := strings.Split(strings.TrimRight(script, "\n"), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t,
		"INSERT INTO catalog_points (device_key, synthetic_id, name, description, unit, decimal_flag, type_code, server_id, system_id, order_id) "+
			"VALUES ('FW-4711', 'BV-3', 'O''Neill Zone', 'wing B', '', false, 5, 3, 7, 9);",
		lines[0])
	assert.Equal(t,
		"UPDATE catalog_points SET name = 'New Temp' WHERE device_key = 'FW-4711' AND synthetic_id = 'AI-1'; -- was: Old Temp",
		lines[1])
	assert.Equal(t,
		"UPDATE catalog_points SET decimal_flag = true WHERE device_key = 'FW-4711' AND synthetic_id = 'AI-1'; -- was: false",
		lines[2])
	assert.Equal(t, DestructiveWarning, lines[3])
	assert.Equal(t,
		"DELETE FROM catalog_points WHERE device_key = 'FW-4711' AND synthetic_id = 'AI-2';",
		lines[4])
}

func TestScriptWarnsEveryRemoval(t *testing.T) {
	result := &models.ReconciliationResult{
		DeviceKey: testDeviceKey,
		Removals:  []string{"AI-2", "BV-7"},
	}

	script := Script(result, models.Identifiers{})

	assert.Equal(t, 2, strings.Count(script, DestructiveWarning))
	assert.Equal(t, 2, strings.Count(script, "DELETE FROM"))

	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(line, "DELETE") {
			continue
		}

		if line != "" {
			assert.Equal(t, DestructiveWarning, line)
		}
	}
}

func TestScriptEmptyResult(t *testing.T) {
	result := &models.ReconciliationResult{DeviceKey: testDeviceKey}

	assert.Empty(t, Script(result, models.Identifiers{}))
}

func TestMergeDaily(t *testing.T) {
	tests := []struct {
		name     string
		inputs   []MergeInput
		expected string
	}{
		{
			name: "concatenates in order",
			inputs: []MergeInput{
				{Name: "history_FW-1_20260823-060000.sql", Body: "UPDATE a;\n"},
				{Name: "history_FW-2_20260823-061500.sql", Body: "UPDATE b;"},
			},
			expected: "UPDATE a;\nUPDATE b;\n",
		},
		{
			name: "skips prior summaries",
			inputs: []MergeInput{
				{Name: "summary_history_20260822.sql", Body: "UPDATE old;\n"},
				{Name: "history_FW-1_20260823-060000.sql", Body: "UPDATE a;\n"},
			},
			expected: "UPDATE a;\n",
		},
		{
			name: "summary detection uses the base name",
			inputs: []MergeInput{
				{Name: "/var/lib/pointscan/2026-08-23/summary_history_20260823.sql", Body: "UPDATE old;\n"},
				{Name: "/var/lib/pointscan/2026-08-23/history_FW-1_20260823-060000.sql", Body: "UPDATE a;\n"},
			},
			expected: "UPDATE a;\n",
		},
		{
			name: "skips empty bodies",
			inputs: []MergeInput{
				{Name: "history_FW-1_20260823-060000.sql", Body: "\n\n"},
				{Name: "history_FW-2_20260823-061500.sql", Body: "UPDATE b;\n\n"},
			},
			expected: "UPDATE b;\n",
		},
		{
			name: "all skipped yields empty",
			inputs: []MergeInput{
				{Name: "summary_history_20260823.sql", Body: "UPDATE old;\n"},
				{Name: "history_FW-1_20260823-060000.sql", Body: ""},
			},
			expected: "",
		},
		{
			name:     "no inputs",
			inputs:   nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MergeDaily(tt.inputs))
		})
	}
}

func TestIsSummary(t *testing.T) {
	assert.True(t, IsSummary("summary_history_20260823.sql"))
	assert.True(t, IsSummary("/data/day/summary_delta_20260823.txt"))
	assert.False(t, IsSummary("history_FW-1_20260823-060000.sql"))
	assert.False(t, IsSummary(fmt.Sprintf("%s/history.sql", "summary_dir")))
}
