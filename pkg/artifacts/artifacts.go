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

// Package artifacts writes per-run scan evidence to the filesystem: a full
// harvested snapshot, a delta of new points, and a history paired with the
// mutation script. File names embed the device key and the run timestamp so
// repeated runs never overwrite prior evidence.
package artifacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/reconcile"
)

const (
	kindSnapshot = "snapshot"
	kindDelta    = "delta"
	kindHistory  = "history"
	kindScript   = "script"

	stampLayout = "20060102-150405"
	dayLayout   = "20060102"

	fileMode = 0o644
	dirMode  = 0o755
)

var snapshotHeader = []string{
	"synthetic_id", "name", "description", "unit", "decimal_flag", "type_code", "state_texts",
}

// RunArtifacts is everything one device produced in one scan run.
type RunArtifacts struct {
	DeviceKey string
	Stamp     time.Time
	Points    []models.HarvestedPoint
	Result    *models.ReconciliationResult
	Script    string
}

// Writer persists run artifacts under a single directory.
type Writer struct {
	dir    string
	logger logger.Logger
}

// NewWriter creates the artifact directory if needed and returns a writer
// bound to it.
func NewWriter(cfg *models.ScannerConfig, log logger.Logger) (*Writer, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	if cfg.ArtifactDir == "" {
		return nil, ErrDirMissing
	}

	if err := os.MkdirAll(cfg.ArtifactDir, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	return &Writer{dir: cfg.ArtifactDir, logger: log}, nil
}

// WriteRun persists one device's artifacts. The snapshot is always written;
// the delta only when the run added points, and the history/script pair only
// when the reconciliation produced mutations. Failures on one file do not
// stop the others; the joined error is returned for the caller to count
// against this device alone.
func (w *Writer) WriteRun(run *RunArtifacts) error {
	if run == nil {
		return ErrRunNil
	}

	stamp := run.Stamp.Format(stampLayout)

	var errs []error

	if err := w.writeCSV(w.path(kindSnapshot, run.DeviceKey, stamp, ".csv"), run.Points); err != nil {
		errs = append(errs, err)
	}

	if run.Result != nil {
		if len(run.Result.Additions) > 0 {
			if err := w.writeCSV(w.path(kindDelta, run.DeviceKey, stamp, ".csv"), run.Result.Additions); err != nil {
				errs = append(errs, err)
			}
		}

		if !run.Result.Empty() {
			history := historyText(run.Result)
			if err := w.writeFile(w.path(kindHistory, run.DeviceKey, stamp, ".log"), history); err != nil {
				errs = append(errs, err)
			}

			if err := w.writeFile(w.path(kindScript, run.DeviceKey, stamp, ".sql"), run.Script); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	w.logger.Debug().
		Str("deviceKey", run.DeviceKey).
		Str("stamp", stamp).
		Int("points", len(run.Points)).
		Msg("Wrote run artifacts")

	return nil
}

// MergeDay folds the day's per-device history and script files into one
// summary per kind. Prior summaries never feed a new merge. Unreadable
// inputs are logged and skipped so one damaged file cannot block the day.
func (w *Writer) MergeDay(day time.Time) error {
	var errs []error

	for _, m := range []struct{ kind, ext string }{
		{kindHistory, ".log"},
		{kindScript, ".sql"},
	} {
		if err := w.mergeKind(m.kind, m.ext, day); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (w *Writer) mergeKind(kind, ext string, day time.Time) error {
	dayStamp := day.Format(dayLayout)

	pattern := filepath.Join(w.dir, fmt.Sprintf("%s_*_%s-*%s", kind, dayStamp, ext))

	paths, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to list %s artifacts: %w", kind, err)
	}

	inputs := make([]reconcile.MergeInput, 0, len(paths))

	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable artifact")

			continue
		}

		inputs = append(inputs, reconcile.MergeInput{Name: path, Body: string(body)})
	}

	merged := reconcile.MergeDaily(inputs)
	if merged == "" {
		return nil
	}

	name := fmt.Sprintf("%s%s_%s%s", reconcile.SummaryPrefix, kind, dayStamp, ext)
	if err := w.writeFile(filepath.Join(w.dir, name), merged); err != nil {
		return err
	}

	w.logger.Info().
		Str("kind", kind).
		Str("day", dayStamp).
		Int("inputs", len(inputs)).
		Msg("Merged daily artifacts")

	return nil
}

func (w *Writer) path(kind, deviceKey, stamp, ext string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s_%s%s", kind, deviceKey, stamp, ext))
}

func (w *Writer) writeFile(path, body string) error {
	if err := os.WriteFile(path, []byte(body), fileMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return nil
}

func (w *Writer) writeCSV(path string, points []models.HarvestedPoint) error {
	var b strings.Builder

	cw := csv.NewWriter(&b)

	if err := cw.Write(snapshotHeader); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}

	for i := range points {
		point := &points[i]

		record := []string{
			point.SyntheticID,
			point.Name,
			point.Description,
			point.Unit,
			strconv.FormatBool(point.Decimal),
			strconv.Itoa(point.TypeCode),
			strings.Join(point.StateTexts, "|"),
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}

	return w.writeFile(path, b.String())
}

// historyText renders a reconciliation as audit lines, one mutation per line,
// in the order the catalog script applies them.
func historyText(result *models.ReconciliationResult) string {
	var b strings.Builder

	for i := range result.Additions {
		point := &result.Additions[i]
		fmt.Fprintf(&b, "added %s %q\n", point.SyntheticID, point.Name)
	}

	for _, change := range result.Changes {
		fmt.Fprintf(&b, "changed %s %s to %q (was %q)\n",
			change.SyntheticID, change.Column, change.NewValue, change.OldValue)
	}

	for _, id := range result.Removals {
		fmt.Fprintf(&b, "removed %s\n", id)
	}

	return b.String()
}
