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
	"fmt"
	"time"
)

// NATSConfig configures NATS connectivity
type NATSConfig struct {
	URL    string `json:"url"`
	Domain string `json:"domain,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("nats url is required")
	}

	return nil
}

// EventsConfig configures the event publishing system
type EventsConfig struct {
	Enabled    bool     `json:"enabled"`
	StreamName string   `json:"stream_name,omitempty"`
	Subjects   []string `json:"subjects,omitempty"`
}

// Validate ensures the events configuration is valid
func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.StreamName == "" {
		c.StreamName = "pointscan-events" // Default stream name
	}

	if len(c.Subjects) == 0 {
		c.Subjects = []string{"points.scan.*"}
	}

	return nil
}

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// ScanCompletedEventData is the payload published when a full scan run
// finishes.
type ScanCompletedEventData struct {
	Summary   SweepSummary `json:"summary"`
	Timestamp time.Time    `json:"timestamp"`
}

// DeviceReconciledEventData is the payload published after one device's
// harvest has been reconciled against the catalog.
type DeviceReconciledEventData struct {
	DeviceKey string    `json:"device_key"`
	DeviceIP  string    `json:"device_ip"`
	Additions int       `json:"additions"`
	Changes   int       `json:"changes"`
	Removals  int       `json:"removals"`
	Unchanged int       `json:"unchanged"`
	Timestamp time.Time `json:"timestamp"`
}
