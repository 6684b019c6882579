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
	"strings"

	"github.com/fieldwatch/pointscan/pkg/models"
)

const tableName = "catalog_points"

// DestructiveWarning precedes every DELETE in a generated script. Removal
// statements are meant to be reviewed by an operator before execution.
const DestructiveWarning = "-- WARNING: destructive, removes a catalog row"

// sqlColumns maps tracked column names to their catalog column names.
var sqlColumns = map[string]string{
	"name":        "name",
	"description": "description",
	"unit":        "unit",
	"decimalFlag": "decimal_flag",
	"typeCode":    "type_code",
}

// Script renders the SQL mutation script for one reconciliation result.
// Statement order follows the result: INSERTs for additions, UPDATEs for
// changes, DELETEs for removals. Each UPDATE carries the prior value as a
// trailing comment so a reviewer can judge the change without querying the
// catalog. An empty result renders an empty script.
func Script(result *models.ReconciliationResult, ids models.Identifiers) string {
	var b strings.Builder

	for i := range result.Additions {
		point := &result.Additions[i]

		fmt.Fprintf(&b,
			"INSERT INTO %s (device_key, synthetic_id, name, description, unit, decimal_flag, type_code, server_id, system_id, order_id) VALUES (%s, %s, %s, %s, %s, %t, %d, %d, %d, %d);\n",
			tableName,
			quote(result.DeviceKey), quote(point.SyntheticID),
			quote(point.Name), quote(point.Description), quote(point.Unit),
			point.Decimal, point.TypeCode,
			ids.ServerID, ids.SystemID, ids.OrderID)
	}

	for _, change := range result.Changes {
		fmt.Fprintf(&b,
			"UPDATE %s SET %s = %s WHERE device_key = %s AND synthetic_id = %s; -- was: %s\n",
			tableName,
			sqlColumns[change.Column], literal(change.Column, change.NewValue),
			quote(result.DeviceKey), quote(change.SyntheticID),
			change.OldValue)
	}

	for _, id := range result.Removals {
		b.WriteString(DestructiveWarning)
		b.WriteByte('\n')
		fmt.Fprintf(&b,
			"DELETE FROM %s WHERE device_key = %s AND synthetic_id = %s;\n",
			tableName, quote(result.DeviceKey), quote(id))
	}

	return b.String()
}

// quote renders a single-quoted SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// literal renders a column value for an UPDATE. Boolean and numeric columns
// stay unquoted; everything else is a string.
func literal(column, value string) string {
	switch column {
	case "decimalFlag", "typeCode":
		return value
	default:
		return quote(value)
	}
}
