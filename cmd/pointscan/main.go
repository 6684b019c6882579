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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fieldwatch/pointscan/pkg/artifacts"
	"github.com/fieldwatch/pointscan/pkg/bacnet"
	"github.com/fieldwatch/pointscan/pkg/config"
	"github.com/fieldwatch/pointscan/pkg/discovery"
	"github.com/fieldwatch/pointscan/pkg/harvest"
	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/scanner"
	"github.com/fieldwatch/pointscan/pkg/sweep"
)

const (
	modeDiscover = "discover"
	modeScan     = "scan"
	modeMerge    = "merge"

	dayLayout = "20060102"
)

var (
	errFailedToLoadConfig    = fmt.Errorf("failed to load scanner configuration")
	errFailedToInitLogger    = fmt.Errorf("failed to initialize logger")
	errFailedToInitTransport = fmt.Errorf("failed to initialize discovery transport")
	errFailedToInitClient    = fmt.Errorf("failed to initialize device client")
	errFailedToInitScan      = fmt.Errorf("failed to initialize scan orchestrator")
	errFailedToInitWriter    = fmt.Errorf("failed to initialize artifact writer")
	errUnknownMode           = fmt.Errorf("unknown mode")
	errInvalidMergeDay       = fmt.Errorf("invalid merge day")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configFile := flag.String("config", "/etc/pointscan/pointscan.json", "Path to scanner config file")
	mode := flag.String("mode", modeScan, "Run mode: discover, scan, or merge")
	rangeFlag := flag.String("range", "", "Comma-separated CIDR ranges or device IPs overriding the configured targets")
	dayFlag := flag.String("day", "", "Day to merge as 20060102 (mode merge, default yesterday)")

	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig(nil)

	var cfg models.ScannerConfig

	if err := cfgLoader.Load(ctx, *configFile, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	// Target overrides land before validation so a minimal config file plus
	// an explicit -range is a valid invocation.
	if *rangeFlag != "" {
		cfg.Networks, cfg.Devices = splitTargets(*rangeFlag)
	}

	if err := config.ValidateConfig(&cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	lg, err := logger.NewComponentLogger("pointscan", cfg.Logging)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitLogger, err)
	}

	switch *mode {
	case modeDiscover:
		return runDiscover(ctx, &cfg, lg)
	case modeScan:
		return runScan(ctx, &cfg, lg)
	case modeMerge:
		return runMerge(&cfg, *dayFlag, lg)
	default:
		return fmt.Errorf("%w: %s (expected %s, %s, or %s)", errUnknownMode, *mode, modeDiscover, modeScan, modeMerge)
	}
}

// splitTargets partitions comma-separated entries into CIDR networks and
// single device addresses.
func splitTargets(raw string) (networks, devices []string) {
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			networks = append(networks, entry)
		} else {
			devices = append(devices, entry)
		}
	}

	return networks, devices
}

// runDiscover runs a discovery round without harvesting and logs every
// device that answered.
func runDiscover(ctx context.Context, cfg *models.ScannerConfig, lg logger.Logger) error {
	transport, err := discovery.New(cfg, lg)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitTransport, err)
	}

	client, err := bacnet.NewClient(cfg, lg)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitClient, err)
	}

	orch, err := sweep.NewOrchestrator(cfg, transport, sweep.ClientDialer{Client: client}, harvest.NewEnumerator(lg), lg)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitScan, err)
	}

	var devices []*models.DiscoveredDevice

	if len(cfg.Networks) > 0 {
		found, err := transport.Discover(ctx, cfg.Networks, time.Duration(cfg.DiscoveryTimeout))
		if err != nil {
			return fmt.Errorf("discovery round failed: %w", err)
		}

		devices = found
	}

	if len(cfg.Devices) > 0 {
		resolved, err := orch.ScanRange(ctx, cfg.Devices)
		if err != nil {
			return fmt.Errorf("range scan failed: %w", err)
		}

		devices = dedupeDevices(devices, resolved)
	}

	for _, device := range devices {
		lg.Info().
			Uint32("deviceID", device.DeviceID).
			Str("ip", device.IP).
			Uint16("vendorID", device.VendorID).
			Uint16("maxFrame", device.MaxFrameSize).
			Uint8("segmentation", device.Segmentation).
			Msg("Discovered device")
	}

	lg.Info().Int("devices", len(devices)).Msg("Discovery completed")

	return nil
}

// runScan executes one full discover→harvest→reconcile pass.
func runScan(ctx context.Context, cfg *models.ScannerConfig, lg logger.Logger) error {
	pipeline, cleanup, err := scanner.BuildPipeline(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := pipeline.RunOnce(ctx)
	if err != nil {
		return err
	}

	lg.Info().
		Str("sessionID", summary.SessionID).
		Int("devicesFound", summary.DevicesFound).
		Int("devicesHarvested", summary.DevicesHarvested).
		Int("harvestFailures", summary.HarvestFailures).
		Int("pointsHarvested", summary.PointsHarvested).
		Int("pointsSkipped", summary.PointsSkipped).
		Dur("elapsed", summary.Duration()).
		Msg("Scan summary")

	return nil
}

// runMerge folds one day's artifacts into per-kind summary files.
func runMerge(cfg *models.ScannerConfig, dayFlag string, lg logger.Logger) error {
	day := time.Now().AddDate(0, 0, -1)

	if dayFlag != "" {
		parsed, err := time.ParseInLocation(dayLayout, dayFlag, time.Local)
		if err != nil {
			return fmt.Errorf("%w: %s (expected %s)", errInvalidMergeDay, dayFlag, dayLayout)
		}

		day = parsed
	}

	writer, err := artifacts.NewWriter(cfg, lg)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitWriter, err)
	}

	if err := writer.MergeDay(day); err != nil {
		return fmt.Errorf("failed to merge artifacts for %s: %w", day.Format(dayLayout), err)
	}

	lg.Info().Str("day", day.Format(dayLayout)).Msg("Merged daily artifacts")

	return nil
}

// dedupeDevices appends resolved devices the broadcast round did not
// already produce, keyed by device instance.
func dedupeDevices(discovered, resolved []*models.DiscoveredDevice) []*models.DiscoveredDevice {
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
