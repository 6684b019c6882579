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

import "time"

// SweepSummary provides aggregated results for one scan run. A run always
// completes and reports its counts, even when individual hosts or points
// failed along the way.
type SweepSummary struct {
	SessionID        string    `json:"session_id"`
	Networks         []string  `json:"networks,omitempty"`
	DevicesFound     int       `json:"devices_found"`
	DevicesHarvested int       `json:"devices_harvested"`
	HarvestFailures  int       `json:"harvest_failures"`
	PointsHarvested  int       `json:"points_harvested"`
	PointsSkipped    int       `json:"points_skipped"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Duration returns the wall-clock time the run took.
func (s *SweepSummary) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}

// DeviceHarvest pairs a discovered device with the points read off it.
type DeviceHarvest struct {
	Device DiscoveredDevice `json:"device"`
	Points []HarvestedPoint `json:"points"`
}
