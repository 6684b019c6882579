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

// Package catalog persists point inventories in Postgres. Reads and writes
// are scoped to one device key at a time; a device's mutations are applied as
// a single batch so reruns never see a half-applied device.
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
)

// Store is the catalog boundary the reconciliation pipeline reads and writes
// through.
type Store interface {
	RowsForDevice(ctx context.Context, deviceKey string) ([]models.CatalogRow, error)
	Apply(ctx context.Context, result *models.ReconciliationResult, ids models.Identifiers) error
	Defaults() models.Identifiers
	Close()
}

const selectRowsSQL = `
SELECT device_key,
       synthetic_id,
       name,
       description,
       unit,
       decimal_flag,
       type_code,
       server_id,
       system_id,
       order_id
FROM catalog_points
WHERE device_key = $1
ORDER BY synthetic_id`

const insertPointSQL = `
INSERT INTO catalog_points (
    device_key,
    synthetic_id,
    name,
    description,
    unit,
    decimal_flag,
    type_code,
    server_id,
    system_id,
    order_id
) VALUES (
    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`

const deletePointSQL = `DELETE FROM catalog_points WHERE device_key = $1 AND synthetic_id = $2`

// updateColumnSQL maps a tracked column to its update statement. Column names
// cannot be bind parameters, so each tracked column carries its own constant.
var updateColumnSQL = map[string]string{
	"name":        `UPDATE catalog_points SET name = $1 WHERE device_key = $2 AND synthetic_id = $3`,
	"description": `UPDATE catalog_points SET description = $1 WHERE device_key = $2 AND synthetic_id = $3`,
	"unit":        `UPDATE catalog_points SET unit = $1 WHERE device_key = $2 AND synthetic_id = $3`,
	"decimalFlag": `UPDATE catalog_points SET decimal_flag = $1 WHERE device_key = $2 AND synthetic_id = $3`,
	"typeCode":    `UPDATE catalog_points SET type_code = $1 WHERE device_key = $2 AND synthetic_id = $3`,
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool     *pgxpool.Pool
	defaults models.Identifiers
	logger   logger.Logger
}

// NewPostgres dials the configured catalog database.
func NewPostgres(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*Postgres, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	pool, err := newPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &Postgres{
		pool:     pool,
		defaults: cfg.DefaultIdentifiers,
		logger:   log,
	}, nil
}

// RowsForDevice returns the device's catalog rows ordered by synthetic ID. A
// device the catalog has never seen yields an empty slice.
func (s *Postgres) RowsForDevice(ctx context.Context, deviceKey string) ([]models.CatalogRow, error) {
	rows, err := s.pool.Query(ctx, selectRowsSQL, deviceKey)
	if err != nil {
		return nil, fmt.Errorf("%w catalog rows: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.CatalogRow

	for rows.Next() {
		var row models.CatalogRow

		if err := rows.Scan(
			&row.DeviceKey,
			&row.SyntheticID,
			&row.Name,
			&row.Description,
			&row.Unit,
			&row.Decimal,
			&row.TypeCode,
			&row.ServerID,
			&row.SystemID,
			&row.OrderID,
		); err != nil {
			return nil, fmt.Errorf("%w catalog row: %w", ErrFailedToScan, err)
		}

		out = append(out, row)
	}

	return out, rows.Err()
}

// Apply carries one device's reconciliation into the catalog. All mutations
// ride a single batch pipeline, so they land together or not at all. An empty
// result is a no-op.
func (s *Postgres) Apply(ctx context.Context, result *models.ReconciliationResult, ids models.Identifiers) error {
	if result == nil || result.Empty() {
		return nil
	}

	batch := s.mutationBatch(result, ids)
	if batch.Len() == 0 {
		return nil
	}

	return s.send(ctx, batch, result.DeviceKey)
}

// Defaults returns the configured identifiers for devices without prior rows.
func (s *Postgres) Defaults() models.Identifiers {
	return s.defaults
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) mutationBatch(result *models.ReconciliationResult, ids models.Identifiers) *pgx.Batch {
	batch := &pgx.Batch{}

	for i := range result.Additions {
		point := &result.Additions[i]
		batch.Queue(insertPointSQL,
			result.DeviceKey,
			point.SyntheticID,
			point.Name,
			point.Description,
			point.Unit,
			point.Decimal,
			point.TypeCode,
			ids.ServerID,
			ids.SystemID,
			ids.OrderID,
		)
	}

	for _, change := range result.Changes {
		sql, ok := updateColumnSQL[change.Column]
		if !ok {
			s.logger.Warn().
				Str("deviceKey", result.DeviceKey).
				Str("column", change.Column).
				Msg("skipping change for untracked column")

			continue
		}

		value, err := changeValue(change)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("deviceKey", result.DeviceKey).
				Str("syntheticID", change.SyntheticID).
				Str("column", change.Column).
				Msg("skipping change with unusable value")

			continue
		}

		batch.Queue(sql, value, result.DeviceKey, change.SyntheticID)
	}

	for _, id := range result.Removals {
		batch.Queue(deletePointSQL, result.DeviceKey, id)
	}

	return batch
}

// changeValue converts a field change's rendered value back into the column's
// native type.
func changeValue(change models.FieldChange) (interface{}, error) {
	switch change.Column {
	case "decimalFlag":
		return strconv.ParseBool(change.NewValue)
	case "typeCode":
		return strconv.Atoi(change.NewValue)
	default:
		return change.NewValue, nil
	}
}

func (s *Postgres) send(ctx context.Context, batch *pgx.Batch, deviceKey string) (err error) {
	br := s.pool.SendBatch(ctx, batch)

	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("catalog %s batch close: %w", deviceKey, closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err = br.Exec(); err != nil {
			return fmt.Errorf("catalog %s mutation (command %d): %w", deviceKey, i, err)
		}
	}

	s.logger.Debug().
		Str("deviceKey", deviceKey).
		Int("mutations", batch.Len()).
		Msg("Applied catalog mutations")

	return nil
}
