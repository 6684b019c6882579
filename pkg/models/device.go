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

// Package models provides data models shared across the scan pipeline.
package models

import (
	"strconv"
	"time"
)

// DiscoveredDevice represents a field controller that answered a discovery
// request. Instances are immutable after creation and deduplicated by
// DeviceID within one scan session.
type DiscoveredDevice struct {
	DeviceID     uint32    `json:"device_id"` // device object instance, 22-bit
	IP           string    `json:"ip"`
	VendorID     uint16    `json:"vendor_id"`
	MaxFrameSize uint16    `json:"max_frame_size"`
	Segmentation uint8     `json:"segmentation"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Key derives the catalog device key for this device. Sites with overlapping
// device instance spaces disambiguate with a configured prefix.
func (d *DiscoveredDevice) Key(prefix string) string {
	return prefix + strconv.FormatUint(uint64(d.DeviceID), 10)
}

// ScanSession describes one orchestrated scan run. It lives for the duration
// of a single orchestration call and is never persisted.
type ScanSession struct {
	SessionID      string   `json:"session_id"`
	Networks       []string `json:"networks,omitempty"` // CIDR ranges to sweep
	Devices        []string `json:"devices,omitempty"`  // explicit target IPs
	PerHostTimeout Duration `json:"per_host_timeout"`
	MaxParallelism int      `json:"max_parallelism"`
}
