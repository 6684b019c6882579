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

	"github.com/fieldwatch/pointscan/pkg/config"
	"github.com/fieldwatch/pointscan/pkg/lifecycle"
	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/scanner"
)

var (
	errFailedToLoadConfig  = fmt.Errorf("failed to load scanner configuration")
	errFailedToInitLogger  = fmt.Errorf("failed to initialize logger")
	errFailedToInitService = fmt.Errorf("failed to initialize scan service")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configFile := flag.String("config", "/etc/pointscan/pointscand.json", "Path to scanner config file")

	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig(nil)

	var cfg models.ScannerConfig

	if err := cfgLoader.LoadAndValidate(ctx, *configFile, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	lg, err := logger.NewComponentLogger("pointscand", cfg.Logging)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitLogger, err)
	}

	pipeline, cleanup, err := scanner.BuildPipeline(ctx, &cfg, lg)
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := scanner.NewService(&cfg, pipeline, lg)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitService, err)
	}

	return lifecycle.Run(ctx, svc, lg)
}
