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

// Package reconcile computes the additions, changes, and removals between a
// device's catalog rows and a freshly harvested inventory, and renders the
// mutation script that carries them into the catalog. Everything in this
// package is purely functional over its inputs.
package reconcile

import (
	"sort"
	"strconv"

	"github.com/fieldwatch/pointscan/pkg/models"
)

// trackedColumn is one compared attribute. The comparison order is fixed so
// change lists and generated scripts stay byte-stable across runs.
type trackedColumn struct {
	name      string
	fromRow   func(*models.CatalogRow) string
	fromPoint func(*models.HarvestedPoint) string
}

var trackedColumns = []trackedColumn{
	{
		name:      "name",
		fromRow:   func(r *models.CatalogRow) string { return r.Name },
		fromPoint: func(p *models.HarvestedPoint) string { return p.Name },
	},
	{
		name:      "description",
		fromRow:   func(r *models.CatalogRow) string { return r.Description },
		fromPoint: func(p *models.HarvestedPoint) string { return p.Description },
	},
	{
		name:      "unit",
		fromRow:   func(r *models.CatalogRow) string { return r.Unit },
		fromPoint: func(p *models.HarvestedPoint) string { return p.Unit },
	},
	{
		name:      "decimalFlag",
		fromRow:   func(r *models.CatalogRow) string { return strconv.FormatBool(r.Decimal) },
		fromPoint: func(p *models.HarvestedPoint) string { return strconv.FormatBool(p.Decimal) },
	},
	{
		name:      "typeCode",
		fromRow:   func(r *models.CatalogRow) string { return strconv.Itoa(r.TypeCode) },
		fromPoint: func(p *models.HarvestedPoint) string { return strconv.Itoa(p.TypeCode) },
	},
}

// Reconcile classifies a device's harvested points against its catalog rows.
// Every synthetic ID from either side lands in exactly one of additions,
// changes, removals, or the unchanged count. Unchanged points produce no
// records at all; silence is the expected case. Removals are sorted so the
// result is deterministic regardless of input order.
func Reconcile(deviceKey string, rows []models.CatalogRow, points []models.HarvestedPoint) *models.ReconciliationResult {
	remaining := make(map[string]models.CatalogRow, len(rows))
	for _, row := range rows {
		remaining[row.SyntheticID] = row
	}

	result := &models.ReconciliationResult{DeviceKey: deviceKey}

	for i := range points {
		point := &points[i]

		row, known := remaining[point.SyntheticID]
		if !known {
			result.Additions = append(result.Additions, *point)

			continue
		}

		delete(remaining, point.SyntheticID)

		changed := false

		for _, col := range trackedColumns {
			oldValue := col.fromRow(&row)
			newValue := col.fromPoint(point)

			if oldValue == newValue {
				continue
			}

			result.Changes = append(result.Changes, models.FieldChange{
				SyntheticID: point.SyntheticID,
				Column:      col.name,
				OldValue:    oldValue,
				NewValue:    newValue,
			})

			changed = true
		}

		if !changed {
			result.Unchanged++
		}
	}

	for id := range remaining {
		result.Removals = append(result.Removals, id)
	}

	sort.Strings(result.Removals)

	return result
}

// InheritIdentifiers resolves the catalog identifiers new rows must carry:
// from any existing row of the device, or from the configured defaults when
// the device has no prior rows at all.
func InheritIdentifiers(rows []models.CatalogRow, defaults models.Identifiers) models.Identifiers {
	if len(rows) == 0 {
		return defaults
	}

	return models.Identifiers{
		ServerID: rows[0].ServerID,
		SystemID: rows[0].SystemID,
		OrderID:  rows[0].OrderID,
	}
}
