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

package models

import "fmt"

// ObjectType is the numeric object type carried in a protocol object
// identifier (10-bit field).
type ObjectType uint16

const (
	ObjectAnalogInput      ObjectType = 0
	ObjectAnalogOutput     ObjectType = 1
	ObjectAnalogValue      ObjectType = 2
	ObjectBinaryInput      ObjectType = 3
	ObjectBinaryOutput     ObjectType = 4
	ObjectBinaryValue      ObjectType = 5
	ObjectDevice           ObjectType = 8
	ObjectMultiStateInput  ObjectType = 13
	ObjectMultiStateOutput ObjectType = 14
	ObjectMultiStateValue  ObjectType = 19
)

// objectPrefixes maps the monitorable object types onto the short mnemonics
// used in synthetic point IDs. Types outside this map are skipped during
// harvesting.
var objectPrefixes = map[ObjectType]string{
	ObjectAnalogInput:      "AI",
	ObjectAnalogOutput:     "AO",
	ObjectAnalogValue:      "AV",
	ObjectBinaryInput:      "BI",
	ObjectBinaryOutput:     "BO",
	ObjectBinaryValue:      "BV",
	ObjectMultiStateInput:  "MSI",
	ObjectMultiStateOutput: "MSO",
	ObjectMultiStateValue:  "MSV",
}

// Prefix returns the synthetic-ID mnemonic for this type, or "" if the type
// is not monitorable.
func (t ObjectType) Prefix() string {
	return objectPrefixes[t]
}

// Monitorable reports whether objects of this type are harvested.
func (t ObjectType) Monitorable() bool {
	_, ok := objectPrefixes[t]
	return ok
}

// Analog reports whether this type carries decimal-valued readings.
func (t ObjectType) Analog() bool {
	switch t {
	case ObjectAnalogInput, ObjectAnalogOutput, ObjectAnalogValue:
		return true
	default:
		return false
	}
}

// MultiState reports whether objects of this type carry state-text labels.
func (t ObjectType) MultiState() bool {
	switch t {
	case ObjectMultiStateInput, ObjectMultiStateOutput, ObjectMultiStateValue:
		return true
	default:
		return false
	}
}

// SyntheticID builds the human-readable point key used to correlate a
// harvested object with a catalog row across scans, e.g. "AI-12".
func SyntheticID(t ObjectType, instance uint32) string {
	return fmt.Sprintf("%s-%d", t.Prefix(), instance)
}

// HarvestedPoint is one monitorable object read off a device during a single
// harvest pass. Instances are immutable.
type HarvestedPoint struct {
	SyntheticID string   `json:"synthetic_id"`
	TypeCode    int      `json:"type_code"`
	Instance    uint32   `json:"instance"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Unit        string   `json:"unit"`
	Decimal     bool     `json:"decimal"`
	StateTexts  []string `json:"state_texts,omitempty"` // multi-state types only, at most 10
}

// CatalogRow is the persisted prior record for a point, keyed by
// (DeviceKey, SyntheticID). ServerID/SystemID/OrderID are catalog-assigned
// identifiers that must be propagated unchanged into newly inserted rows for
// the same device.
type CatalogRow struct {
	DeviceKey   string `json:"device_key"`
	SyntheticID string `json:"synthetic_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Decimal     bool   `json:"decimal"`
	TypeCode    int    `json:"type_code"`
	ServerID    int64  `json:"server_id"`
	SystemID    int64  `json:"system_id"`
	OrderID     int64  `json:"order_id"`
}

// Identifiers are the catalog-assigned ids new rows must carry: taken from
// the device's existing rows, or from configured defaults when the device
// has no prior rows at all.
type Identifiers struct {
	ServerID int64 `json:"server_id"`
	SystemID int64 `json:"system_id"`
	OrderID  int64 `json:"order_id"`
}

// FieldChange records one tracked column that differs between a catalog row
// and the freshly harvested point with the same synthetic ID.
type FieldChange struct {
	SyntheticID string `json:"synthetic_id"`
	Column      string `json:"column"`
	OldValue    string `json:"old_value"`
	NewValue    string `json:"new_value"`
}

// ReconciliationResult classifies one device's harvest against its catalog
// snapshot. A synthetic ID appears in at most one of Additions, Changes, and
// Removals per run.
type ReconciliationResult struct {
	DeviceKey string           `json:"device_key"`
	Additions []HarvestedPoint `json:"additions"`
	Changes   []FieldChange    `json:"changes"`
	Removals  []string         `json:"removals"`
	Unchanged int              `json:"unchanged"`
}

// Empty reports whether the reconciliation produced no catalog mutations.
func (r *ReconciliationResult) Empty() bool {
	return len(r.Additions) == 0 && len(r.Changes) == 0 && len(r.Removals) == 0
}
