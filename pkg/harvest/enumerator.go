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

// Package harvest walks a device's object directory and reads the attributes
// that make up its point inventory. One object's flakiness never costs the
// rest of the device; an unreadable directory costs the whole device.
package harvest

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/wire"
)

// maxStateTexts caps how many state labels are read per multi-state object.
const maxStateTexts = 10

// PropertyReader reads one named property of one object on a device. It is
// the only capability the enumerator needs from the protocol client.
type PropertyReader interface {
	ReadProperty(ctx context.Context, obj wire.ObjectID, prop wire.PropertyID, arrayIndex int) (wire.Value, error)
}

// Result is one device's harvest. Objects maps each synthetic ID back to its
// wire identifier; later control paths need the protocol-level type and
// instance, and the map is built here once per session instead of kept in
// any ambient cache. Skipped counts points dropped by read failures, not
// objects filtered out by type.
type Result struct {
	Points  []models.HarvestedPoint
	Objects map[string]wire.ObjectID
	Skipped int
}

// Enumerator produces point inventories from property reads.
type Enumerator struct {
	logger logger.Logger
}

// NewEnumerator creates a point enumerator.
func NewEnumerator(log logger.Logger) *Enumerator {
	return &Enumerator{logger: log}
}

// Harvest reads the device's object-list and the attributes of every
// monitorable object in it. A failed directory count read aborts the device
// with ErrDirectoryUnavailable: a device that will not answer its directory
// cannot be trusted for a partial inventory. A zero-count directory is a
// valid harvest of a live device with no configured points.
func (e *Enumerator) Harvest(ctx context.Context, reader PropertyReader, device *models.DiscoveredDevice) (*Result, error) {
	deviceObj := wire.ObjectID{Type: models.ObjectDevice, Instance: device.DeviceID}

	countVal, err := reader.ReadProperty(ctx, deviceObj, wire.PropObjectList, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryUnavailable, err)
	}

	count, ok := countVal.Uint()
	if !ok {
		return nil, fmt.Errorf("%w: directory count is not a number", ErrDirectoryUnavailable)
	}

	result := &Result{Objects: make(map[string]wire.ObjectID)}

	for i := uint32(1); i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		entry, err := reader.ReadProperty(ctx, deviceObj, wire.PropObjectList, int(i))
		if err != nil {
			e.logger.Warn().Err(err).
				Str("ip", device.IP).
				Uint32("index", i).
				Msg("Object identifier read failed, skipping")

			result.Skipped++

			continue
		}

		if entry.Kind != wire.ValueObjectID {
			e.logger.Warn().
				Str("ip", device.IP).
				Uint32("index", i).
				Msg("Directory entry is not an object identifier, skipping")

			result.Skipped++

			continue
		}

		obj := entry.Object
		if !obj.Type.Monitorable() {
			continue
		}

		// Some stacks list an object at more than one directory index.
		if _, dup := result.Objects[models.SyntheticID(obj.Type, obj.Instance)]; dup {
			continue
		}

		point, err := e.harvestObject(ctx, reader, obj)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("ip", device.IP).
				Str("object", models.SyntheticID(obj.Type, obj.Instance)).
				Msg("Point read failed, skipping")

			result.Skipped++

			continue
		}

		result.Points = append(result.Points, *point)
		result.Objects[point.SyntheticID] = obj
	}

	e.logger.Debug().
		Str("ip", device.IP).
		Uint32("deviceId", device.DeviceID).
		Int("points", len(result.Points)).
		Int("skipped", result.Skipped).
		Msg("Harvest complete")

	return result, nil
}

// harvestObject reads one object's attributes. A transport-level failure on
// any read fails the point; a device answering "unknown property" is the
// routine absent case and degrades to an empty field.
func (e *Enumerator) harvestObject(ctx context.Context, reader PropertyReader, obj wire.ObjectID) (*models.HarvestedPoint, error) {
	name, err := e.readText(ctx, reader, obj, wire.PropObjectName)
	if err != nil {
		return nil, fmt.Errorf("object name: %w", err)
	}

	description, err := e.readText(ctx, reader, obj, wire.PropDescription)
	if err != nil {
		return nil, fmt.Errorf("description: %w", err)
	}

	unit, err := e.readUnit(ctx, reader, obj)
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}

	point := &models.HarvestedPoint{
		SyntheticID: models.SyntheticID(obj.Type, obj.Instance),
		TypeCode:    int(obj.Type),
		Instance:    obj.Instance,
		Name:        name,
		Description: description,
		Unit:        unit,
		Decimal:     obj.Type.Analog(),
	}

	if obj.Type.MultiState() {
		point.StateTexts = e.readStateTexts(ctx, reader, obj)
	}

	return point, nil
}

func (e *Enumerator) readText(ctx context.Context, reader PropertyReader, obj wire.ObjectID, prop wire.PropertyID) (string, error) {
	val, err := reader.ReadProperty(ctx, obj, prop, wire.ArrayIndexNone)
	if err != nil {
		if errors.Is(err, wire.ErrErrorResponse) {
			return "", nil
		}

		return "", err
	}

	return Clean(val.String()), nil
}

func (e *Enumerator) readUnit(ctx context.Context, reader PropertyReader, obj wire.ObjectID) (string, error) {
	val, err := reader.ReadProperty(ctx, obj, wire.PropUnits, wire.ArrayIndexNone)
	if err != nil {
		if errors.Is(err, wire.ErrErrorResponse) {
			return "", nil
		}

		return "", err
	}

	code, ok := val.Uint()
	if !ok {
		return "", nil
	}

	return UnitSymbol(uint16(code)), nil
}

// readStateTexts reads up to maxStateTexts labels. Labels that fail to read
// inside the declared count keep their slot as an empty string so state
// numbering stays aligned. No labels at all is not an error.
func (e *Enumerator) readStateTexts(ctx context.Context, reader PropertyReader, obj wire.ObjectID) []string {
	countVal, err := reader.ReadProperty(ctx, obj, wire.PropStateText, 0)
	if err != nil {
		e.logger.Debug().Err(err).
			Str("object", models.SyntheticID(obj.Type, obj.Instance)).
			Msg("State-text count unavailable")

		return nil
	}

	count, ok := countVal.Uint()
	if !ok {
		return nil
	}

	if count > maxStateTexts {
		count = maxStateTexts
	}

	texts := make([]string, 0, count)

	for i := uint32(1); i <= count; i++ {
		val, err := reader.ReadProperty(ctx, obj, wire.PropStateText, int(i))
		if err != nil {
			texts = append(texts, "")

			continue
		}

		texts = append(texts, Clean(val.String()))
	}

	return texts
}
