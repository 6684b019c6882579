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

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldwatch/pointscan/pkg/logger"
)

// Duration wraps time.Duration so JSON configs can use "30s"-style strings.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

var (
	errInvalidDuration    = fmt.Errorf("invalid duration")
	errNoTargets          = fmt.Errorf("at least one network or device target is required")
	errArtifactDirMissing = fmt.Errorf("artifact directory is required")
	errDatabaseHost       = fmt.Errorf("database host is required")
	errDatabaseName       = fmt.Errorf("database name is required")
)

// Default tuning values applied when the config leaves them unset. Field
// switches and embedded device stacks drop packets under unbounded
// concurrency, so parallelism is clamped to a safe practical range.
const (
	DefaultProtocolPort     = 47808
	DefaultMaxParallelism   = 25
	MaxParallelismCeiling   = 50
	DefaultSweepBatchSize   = 25
	defaultDiscoveryTimeout = 5 * time.Second
	defaultResolveTimeout   = 1500 * time.Millisecond
	defaultReadTimeout      = 3 * time.Second
	defaultBatchDelay       = 100 * time.Millisecond
	defaultPerHostTimeout   = 10 * time.Second
)

// ScannerConfig is the top-level configuration for the scan service.
type ScannerConfig struct {
	Networks         []string        `json:"networks,omitempty"` // CIDR ranges to sweep
	Devices          []string        `json:"devices,omitempty"`  // explicit device IPs
	Port             int             `json:"port,omitempty"`     // protocol UDP port
	DiscoveryTimeout Duration        `json:"discovery_timeout,omitempty"`
	ResolveTimeout   Duration        `json:"resolve_timeout,omitempty"`
	ReadTimeout      Duration        `json:"read_timeout,omitempty"`
	PerHostTimeout   Duration        `json:"per_host_timeout,omitempty"`
	MaxParallelism   int             `json:"max_parallelism,omitempty"`
	SweepBatchSize   int             `json:"sweep_batch_size,omitempty"`
	SweepBatchDelay  Duration        `json:"sweep_batch_delay,omitempty"`
	Interval         Duration        `json:"interval,omitempty"` // rescan interval for the daemon
	DeviceKeyPrefix  string          `json:"device_key_prefix,omitempty"`
	ArtifactDir      string          `json:"artifact_dir"`
	Database         *DatabaseConfig `json:"database,omitempty"`
	NATS             *NATSConfig     `json:"nats,omitempty"`
	Events           EventsConfig    `json:"events,omitempty"`
	Logging          *logger.Config  `json:"logging,omitempty"`
}

// Validate applies defaults and checks required fields.
func (c *ScannerConfig) Validate() error {
	if len(c.Networks) == 0 && len(c.Devices) == 0 {
		return errNoTargets
	}

	if c.ArtifactDir == "" {
		return errArtifactDirMissing
	}

	if c.Port == 0 {
		c.Port = DefaultProtocolPort
	}

	if c.MaxParallelism <= 0 {
		c.MaxParallelism = DefaultMaxParallelism
	} else if c.MaxParallelism > MaxParallelismCeiling {
		c.MaxParallelism = MaxParallelismCeiling
	}

	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = DefaultSweepBatchSize
	}

	if c.DiscoveryTimeout == 0 {
		c.DiscoveryTimeout = Duration(defaultDiscoveryTimeout)
	}

	if c.ResolveTimeout == 0 || c.ResolveTimeout > Duration(defaultResolveTimeout) {
		c.ResolveTimeout = Duration(defaultResolveTimeout)
	}

	if c.ReadTimeout == 0 {
		c.ReadTimeout = Duration(defaultReadTimeout)
	}

	if c.SweepBatchDelay == 0 {
		c.SweepBatchDelay = Duration(defaultBatchDelay)
	}

	if c.PerHostTimeout == 0 {
		c.PerHostTimeout = Duration(defaultPerHostTimeout)
	}

	if c.Database != nil {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	}

	if err := c.Events.Validate(); err != nil {
		return err
	}

	return nil
}

// DatabaseConfig configures the Postgres catalog connection. The default
// identifiers seed inserted rows for devices the catalog has never seen.
type DatabaseConfig struct {
	Host               string      `json:"host"`
	Port               int         `json:"port,omitempty"`
	Database           string      `json:"database"`
	Username           string      `json:"username,omitempty"`
	Password           string      `json:"password,omitempty"`
	SSLMode            string      `json:"ssl_mode,omitempty"`
	ApplicationName    string      `json:"application_name,omitempty"`
	MaxConnections     int32       `json:"max_connections,omitempty"`
	MinConnections     int32       `json:"min_connections,omitempty"`
	MaxConnLifetime    Duration    `json:"max_conn_lifetime,omitempty"`
	HealthCheckPeriod  Duration    `json:"health_check_period,omitempty"`
	StatementTimeout   Duration    `json:"statement_timeout,omitempty"`
	DefaultIdentifiers Identifiers `json:"default_identifiers,omitempty"`
}

// Validate ensures the database configuration is usable.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return errDatabaseHost
	}

	if c.Database == "" {
		return errDatabaseName
	}

	return nil
}
