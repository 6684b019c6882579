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

// Package scanner composes full scan passes: discovery and harvest through
// the sweep orchestrator, reconciliation against the catalog, artifact
// writing, and event publishing. Every stage after the sweep is isolated per
// device; one device's bad day never costs another device its run.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldwatch/pointscan/pkg/artifacts"
	"github.com/fieldwatch/pointscan/pkg/catalog"
	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/reconcile"
	"github.com/fieldwatch/pointscan/pkg/sweep"
)

// Runner executes one orchestrated scan pass. Implemented by
// sweep.Orchestrator.
type Runner interface {
	Run(ctx context.Context, session *models.ScanSession) (*sweep.RunResult, error)
}

// ArtifactSink persists run artifacts. Implemented by artifacts.Writer.
type ArtifactSink interface {
	WriteRun(run *artifacts.RunArtifacts) error
	MergeDay(day time.Time) error
}

// EventSink publishes run and device events. Implemented by
// events.Publisher.
type EventSink interface {
	PublishScanCompleted(ctx context.Context, summary *models.SweepSummary) error
	PublishDeviceReconciled(ctx context.Context, deviceIP string, result *models.ReconciliationResult) error
}

// Deps carries the pipeline's collaborators. Store and Events are optional:
// without a catalog a pass still snapshots every inventory, and without a
// broker nothing is published.
type Deps struct {
	Runner    Runner
	Store     catalog.Store
	Artifacts ArtifactSink
	Events    EventSink
	Logger    logger.Logger
}

// Pipeline owns one configured scan path end to end.
type Pipeline struct {
	cfg       *models.ScannerConfig
	runner    Runner
	store     catalog.Store
	artifacts ArtifactSink
	events    EventSink
	logger    logger.Logger
	now       func() time.Time
}

// NewPipeline builds a pipeline from validated configuration.
func NewPipeline(cfg *models.ScannerConfig, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	if deps.Runner == nil {
		return nil, ErrRunnerNil
	}

	if deps.Artifacts == nil {
		return nil, ErrArtifactsNil
	}

	return &Pipeline{
		cfg:       cfg,
		runner:    deps.Runner,
		store:     deps.Store,
		artifacts: deps.Artifacts,
		events:    deps.Events,
		logger:    deps.Logger,
		now:       time.Now,
	}, nil
}

// RunOnce executes one full pass over the configured targets. Per-device
// failures downstream of the sweep are logged and skipped; the pass fails
// only when the sweep itself cannot run.
func (p *Pipeline) RunOnce(ctx context.Context) (*models.SweepSummary, error) {
	session := &models.ScanSession{
		Networks:       p.cfg.Networks,
		Devices:        p.cfg.Devices,
		PerHostTimeout: p.cfg.PerHostTimeout,
		MaxParallelism: p.cfg.MaxParallelism,
	}

	result, err := p.runner.Run(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("scan pass failed: %w", err)
	}

	stamp := p.now()
	processed := make(map[string]struct{}, len(result.Harvests))

	for _, device := range result.Devices {
		key := device.Key(p.cfg.DeviceKeyPrefix)

		harvested, ok := result.Harvests[key]
		if !ok {
			// Harvest failed; the sweep already counted it.
			continue
		}

		if _, done := processed[key]; done {
			continue
		}

		processed[key] = struct{}{}

		if err := p.processDevice(ctx, device, key, harvested.Points, stamp); err != nil {
			p.logger.Error().Err(err).
				Str("deviceKey", key).
				Str("ip", device.IP).
				Msg("Failed to process device")
		}
	}

	if p.events != nil {
		if err := p.events.PublishScanCompleted(ctx, &result.Summary); err != nil {
			p.logger.Error().Err(err).Msg("Failed to publish scan completed event")
		}
	}

	return &result.Summary, nil
}

// processDevice reconciles one harvested inventory against the catalog and
// persists the outcome.
func (p *Pipeline) processDevice(
	ctx context.Context,
	device *models.DiscoveredDevice,
	key string,
	points []models.HarvestedPoint,
	stamp time.Time,
) error {
	run := &artifacts.RunArtifacts{
		DeviceKey: key,
		Stamp:     stamp,
		Points:    points,
	}

	if p.store != nil {
		rows, err := p.store.RowsForDevice(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to load catalog rows: %w", err)
		}

		result := reconcile.Reconcile(key, rows, points)
		ids := reconcile.InheritIdentifiers(rows, p.store.Defaults())

		run.Result = result
		run.Script = reconcile.Script(result, ids)

		if err := p.store.Apply(ctx, result, ids); err != nil {
			return fmt.Errorf("failed to apply catalog mutations: %w", err)
		}

		p.logger.Info().
			Str("deviceKey", key).
			Int("additions", len(result.Additions)).
			Int("changes", len(result.Changes)).
			Int("removals", len(result.Removals)).
			Int("unchanged", result.Unchanged).
			Msg("Reconciled device")
	}

	if err := p.artifacts.WriteRun(run); err != nil {
		return fmt.Errorf("failed to write run artifacts: %w", err)
	}

	if p.events != nil && run.Result != nil && !run.Result.Empty() {
		if err := p.events.PublishDeviceReconciled(ctx, device.IP, run.Result); err != nil {
			p.logger.Error().Err(err).
				Str("deviceKey", key).
				Msg("Failed to publish device reconciled event")
		}
	}

	return nil
}

// MergeDay folds the day's artifact files into per-kind summaries.
func (p *Pipeline) MergeDay(day time.Time) error {
	return p.artifacts.MergeDay(day)
}
