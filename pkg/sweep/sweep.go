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

// Package sweep orchestrates discovery and harvest fan-outs across target
// ranges. Parallelism is bounded by an admission gate and every per-host
// failure is contained to that host.
package sweep

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fieldwatch/pointscan/pkg/bacnet"
	"github.com/fieldwatch/pointscan/pkg/discovery"
	"github.com/fieldwatch/pointscan/pkg/harvest"
	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
)

// Discoverer is the discovery transport the orchestrator fans out over.
// Implemented by discovery.Transport.
type Discoverer interface {
	Discover(ctx context.Context, networks []string, timeout time.Duration) ([]*models.DiscoveredDevice, error)
	Resolve(ctx context.Context, ip string) (*models.DiscoveredDevice, error)
}

// Session is one device conversation: property reads plus close.
type Session interface {
	harvest.PropertyReader
	io.Closer
}

// Dialer opens property-read sessions with devices.
type Dialer interface {
	Dial(ctx context.Context, ip string) (Session, error)
}

// ClientDialer adapts *bacnet.Client to the Dialer interface.
type ClientDialer struct {
	Client *bacnet.Client
}

func (d ClientDialer) Dial(ctx context.Context, ip string) (Session, error) {
	return d.Client.Dial(ctx, ip)
}

// Harvester walks one device's point directory through an open session.
// Implemented by harvest.Enumerator.
type Harvester interface {
	Harvest(ctx context.Context, reader harvest.PropertyReader, device *models.DiscoveredDevice) (*harvest.Result, error)
}

// Orchestrator drives scan runs: resolve targets, harvest inventories,
// aggregate counters. Safe for use by one run at a time.
type Orchestrator struct {
	discoverer       Discoverer
	dialer           Dialer
	harvester        Harvester
	maxParallelism   int
	perHostTimeout   time.Duration
	discoveryTimeout time.Duration
	keyPrefix        string
	logger           logger.Logger
}

// RunResult carries everything one orchestrated pass produced.
type RunResult struct {
	Devices  []*models.DiscoveredDevice
	Harvests map[string]*harvest.Result
	Summary  models.SweepSummary
}

// NewOrchestrator builds an orchestrator from validated configuration and its
// collaborators.
func NewOrchestrator(
	cfg *models.ScannerConfig,
	disc Discoverer,
	dialer Dialer,
	harvester Harvester,
	log logger.Logger,
) (*Orchestrator, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	if disc == nil {
		return nil, ErrDiscovererNil
	}

	if dialer == nil {
		return nil, ErrDialerNil
	}

	if harvester == nil {
		return nil, ErrHarvesterNil
	}

	parallelism := cfg.MaxParallelism
	if parallelism <= 0 {
		parallelism = models.DefaultMaxParallelism
	} else if parallelism > models.MaxParallelismCeiling {
		parallelism = models.MaxParallelismCeiling
	}

	perHost := time.Duration(cfg.PerHostTimeout)
	if perHost <= 0 {
		perHost = 10 * time.Second
	}

	roundTimeout := time.Duration(cfg.DiscoveryTimeout)
	if roundTimeout <= 0 {
		roundTimeout = 5 * time.Second
	}

	return &Orchestrator{
		discoverer:       disc,
		dialer:           dialer,
		harvester:        harvester,
		maxParallelism:   parallelism,
		perHostTimeout:   perHost,
		discoveryTimeout: roundTimeout,
		keyPrefix:        cfg.DeviceKeyPrefix,
		logger:           log,
	}, nil
}

// Run executes one full pass for the session: broadcast discovery over its
// networks, targeted resolution of its explicit devices, then a harvest of
// everything found. The pass always completes; per-host failures only move
// counters.
func (o *Orchestrator) Run(ctx context.Context, session *models.ScanSession) (*RunResult, error) {
	if session == nil {
		return nil, ErrSessionNil
	}

	sessionID := session.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	started := time.Now()

	o.logger.Info().
		Str("sessionID", sessionID).
		Int("networks", len(session.Networks)).
		Int("devices", len(session.Devices)).
		Msg("Starting scan run")

	var devices []*models.DiscoveredDevice

	if len(session.Networks) > 0 {
		found, err := o.discoverer.Discover(ctx, session.Networks, o.discoveryTimeout)
		if err != nil {
			return nil, err
		}

		devices = found
	}

	if len(session.Devices) > 0 {
		resolved, err := o.ScanRange(ctx, session.Devices)
		if err != nil {
			return nil, err
		}

		devices = mergeDevices(devices, resolved)
	}

	harvests, stats := o.HarvestMany(ctx, devices)

	summary := models.SweepSummary{
		SessionID:        sessionID,
		Networks:         session.Networks,
		DevicesFound:     len(devices),
		DevicesHarvested: stats.Harvested,
		HarvestFailures:  stats.Failed,
		PointsHarvested:  stats.Points,
		PointsSkipped:    stats.Skipped,
		StartedAt:        started,
		CompletedAt:      time.Now(),
	}

	o.logger.Info().
		Str("sessionID", sessionID).
		Int("devicesFound", summary.DevicesFound).
		Int("devicesHarvested", summary.DevicesHarvested).
		Int("harvestFailures", summary.HarvestFailures).
		Int("pointsHarvested", summary.PointsHarvested).
		Int("pointsSkipped", summary.PointsSkipped).
		Dur("elapsed", summary.Duration()).
		Msg("Scan run completed")

	return &RunResult{Devices: devices, Harvests: harvests, Summary: summary}, nil
}

// ScanRange resolves every address in the expanded targets through the
// admission gate. Each host unit opens its own transport resources, so one
// hanging device never blocks the rest. Silent hosts are a normal outcome and
// produce no entry; the returned devices are deduplicated by device instance,
// first seen wins.
func (o *Orchestrator) ScanRange(ctx context.Context, targets []string) ([]*models.DiscoveredDevice, error) {
	hosts, err := discovery.ExpandTargets(targets)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		devices []*models.DiscoveredDevice
	)

	seen := make(map[uint32]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxParallelism)

	for _, host := range hosts {
		g.Go(func() error {
			hostCtx, cancel := context.WithTimeout(gctx, o.perHostTimeout)
			defer cancel()

			device, err := o.discoverer.Resolve(hostCtx, host)
			if err != nil {
				o.logger.Debug().Err(err).Str("host", host).Msg("No device at address")

				return nil
			}

			mu.Lock()
			defer mu.Unlock()

			if _, dup := seen[device.DeviceID]; dup {
				return nil
			}

			seen[device.DeviceID] = struct{}{}
			devices = append(devices, device)

			return nil
		})
	}

	// Workers never return errors; per-host failures stay per-host.
	_ = g.Wait()

	o.logger.Info().
		Int("addresses", len(hosts)).
		Int("devicesFound", len(devices)).
		Msg("Range scan completed")

	return devices, nil
}

// HarvestStats are the counters one HarvestMany pass accumulates.
type HarvestStats struct {
	Harvested int
	Failed    int
	Points    int
	Skipped   int
}

// HarvestMany reads the point inventory of every device through the gate.
// Failed devices are counted and left out of the result map, so a caller can
// never mistake a failed harvest for a device with zero points. Keys are
// derived with the configured device-key prefix; a duplicate key keeps the
// first harvest.
func (o *Orchestrator) HarvestMany(ctx context.Context, devices []*models.DiscoveredDevice) (map[string]*harvest.Result, HarvestStats) {
	var (
		mu    sync.Mutex
		stats HarvestStats
	)

	results := make(map[string]*harvest.Result, len(devices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxParallelism)

	for _, device := range devices {
		g.Go(func() error {
			result, err := o.harvestOne(gctx, device)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				stats.Failed++

				return nil
			}

			key := device.Key(o.keyPrefix)
			if _, dup := results[key]; dup {
				o.logger.Warn().Str("deviceKey", key).Msg("Duplicate device key, keeping first harvest")

				return nil
			}

			results[key] = result
			stats.Harvested++
			stats.Points += len(result.Points)
			stats.Skipped += result.Skipped

			return nil
		})
	}

	_ = g.Wait()

	return results, stats
}

func (o *Orchestrator) harvestOne(ctx context.Context, device *models.DiscoveredDevice) (*harvest.Result, error) {
	session, err := o.dialer.Dial(ctx, device.IP)
	if err != nil {
		o.logger.Warn().Err(err).
			Str("ip", device.IP).
			Uint32("deviceID", device.DeviceID).
			Msg("Failed to open device session")

		return nil, err
	}

	defer func() {
		if err := session.Close(); err != nil {
			o.logger.Debug().Err(err).Str("ip", device.IP).Msg("Error closing device session")
		}
	}()

	result, err := o.harvester.Harvest(ctx, session, device)
	if err != nil {
		o.logger.Warn().Err(err).
			Str("ip", device.IP).
			Uint32("deviceID", device.DeviceID).
			Msg("Device harvest failed")

		return nil, err
	}

	return result, nil
}

// mergeDevices appends resolved devices onto the discovered set, dropping
// instances the broadcast round already produced.
func mergeDevices(discovered, resolved []*models.DiscoveredDevice) []*models.DiscoveredDevice {
	seen := make(map[uint32]struct{}, len(discovered))
	for _, device := range discovered {
		seen[device.DeviceID] = struct{}{}
	}

	merged := discovered

	for _, device := range resolved {
		if _, dup := seen[device.DeviceID]; dup {
			continue
		}

		seen[device.DeviceID] = struct{}{}
		merged = append(merged, device)
	}

	return merged
}
