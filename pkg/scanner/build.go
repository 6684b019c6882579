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

package scanner

import (
	"context"
	"fmt"

	"github.com/fieldwatch/pointscan/pkg/artifacts"
	"github.com/fieldwatch/pointscan/pkg/bacnet"
	"github.com/fieldwatch/pointscan/pkg/catalog"
	"github.com/fieldwatch/pointscan/pkg/discovery"
	"github.com/fieldwatch/pointscan/pkg/events"
	"github.com/fieldwatch/pointscan/pkg/harvest"
	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/sweep"
)

// BuildPipeline assembles the production pipeline from validated
// configuration: discovery transport, device client, orchestrator, artifact
// writer, and the optional catalog store and event publisher. The returned
// cleanup closes everything the build opened and is safe to call once the
// pipeline is done.
func BuildPipeline(ctx context.Context, cfg *models.ScannerConfig, log logger.Logger) (*Pipeline, func(), error) {
	if cfg == nil {
		return nil, nil, ErrConfigNil
	}

	transport, err := discovery.New(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize discovery transport: %w", err)
	}

	client, err := bacnet.NewClient(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize device client: %w", err)
	}

	orch, err := sweep.NewOrchestrator(cfg, transport, sweep.ClientDialer{Client: client}, harvest.NewEnumerator(log), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	writer, err := artifacts.NewWriter(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize artifact writer: %w", err)
	}

	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var store catalog.Store

	if cfg.Database != nil {
		pg, err := catalog.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to catalog: %w", err)
		}

		cleanups = append(cleanups, pg.Close)
		store = pg
	} else {
		log.Info().Msg("No catalog configured, runs will snapshot without reconciling")
	}

	var sink EventSink

	switch {
	case cfg.Events.Enabled && cfg.NATS != nil:
		pub, nc, err := events.Connect(ctx, cfg.NATS, cfg.Events, log)
		if err != nil {
			cleanup()

			return nil, nil, fmt.Errorf("failed to connect event publisher: %w", err)
		}

		cleanups = append(cleanups, nc.Close)
		sink = pub
	case cfg.Events.Enabled:
		log.Warn().Msg("Events enabled without NATS configuration, publishing disabled")
	}

	pipeline, err := NewPipeline(cfg, Deps{
		Runner:    orch,
		Store:     store,
		Artifacts: writer,
		Events:    sink,
		Logger:    log,
	})
	if err != nil {
		cleanup()

		return nil, nil, err
	}

	return pipeline, cleanup, nil
}
