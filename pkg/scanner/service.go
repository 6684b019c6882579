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
	"sync"
	"time"

	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
)

// DefaultInterval is the rescan interval when the config leaves it unset.
const DefaultInterval = time.Hour

const dayLayout = "20060102"

// Service runs the pipeline periodically for the daemon: an initial pass at
// startup, then one per interval. When a pass starts on a new calendar day
// the previous day's artifacts are merged first.
type Service struct {
	pipeline *Pipeline
	interval time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	lastRun time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewService wraps a pipeline in an interval loop.
func NewService(cfg *models.ScannerConfig, pipeline *Pipeline, log logger.Logger) (*Service, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	if pipeline == nil {
		return nil, ErrPipelineNil
	}

	interval := time.Duration(cfg.Interval)
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Service{
		pipeline: pipeline,
		interval: interval,
		logger:   log,
		done:     make(chan struct{}),
	}, nil
}

// Start blocks running scan passes until the context is canceled or Stop is
// called. Failed passes are logged and the loop keeps its schedule.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting point scan service")

	s.runPass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Context canceled, stopping scan service")

			return ctx.Err()
		case <-s.done:
			s.logger.Info().Msg("Received done signal, stopping scan service")

			return nil
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// Stop ends the interval loop. Safe to call more than once.
func (s *Service) Stop(_ context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })

	return nil
}

func (s *Service) runPass(ctx context.Context) {
	now := time.Now()

	s.mergeRolledDay(now)

	passCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if _, err := s.pipeline.RunOnce(passCtx); err != nil {
		s.logger.Error().Err(err).Msg("Scan pass failed")

		return
	}

	s.mu.Lock()
	s.lastRun = now
	s.mu.Unlock()
}

// mergeRolledDay merges the previous day's artifacts once the service crosses
// a calendar-day boundary between passes.
func (s *Service) mergeRolledDay(now time.Time) {
	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()

	if last.IsZero() || last.Format(dayLayout) == now.Format(dayLayout) {
		return
	}

	if err := s.pipeline.MergeDay(last); err != nil {
		s.logger.Error().Err(err).
			Str("day", last.Format(dayLayout)).
			Msg("Failed to merge daily artifacts")

		return
	}

	s.logger.Info().Str("day", last.Format(dayLayout)).Msg("Merged previous day's artifacts")
}
