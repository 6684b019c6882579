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

// Package discovery runs Who-Is rounds over UDP and collects I-Am responses
// into deduplicated device lists. One round opens one ephemeral endpoint,
// probes via directed broadcast plus a paced unicast sweep, then drains
// responses until the round's time budget expires.
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/wire"
)

const (
	defaultRoundTimeout = 5 * time.Second
	defaultBatchSize    = 25
	defaultBatchDelay   = 100 * time.Millisecond

	// receivePollInterval bounds how long a single receive may block so the
	// drain loop notices cancellation promptly.
	receivePollInterval = 250 * time.Millisecond

	// resolvePollInterval is both the per-attempt read deadline and the
	// retry spacing for targeted resolves.
	resolvePollInterval = 250 * time.Millisecond

	// resolveBudgetCeiling caps a targeted resolve regardless of
	// configuration. Resolves sit on interactive paths.
	resolveBudgetCeiling = 1500 * time.Millisecond
)

// Transport issues discovery traffic for one scanner instance. It holds no
// socket state; every round and every resolve opens its own endpoint so
// concurrent callers never share a descriptor.
type Transport struct {
	port           int
	batchSize      int
	batchDelay     time.Duration
	resolveTimeout time.Duration
	logger         logger.Logger
}

// New creates a discovery transport from the scanner configuration.
func New(cfg *models.ScannerConfig, log logger.Logger) (*Transport, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	t := &Transport{
		port:           cfg.Port,
		batchSize:      cfg.SweepBatchSize,
		batchDelay:     time.Duration(cfg.SweepBatchDelay),
		resolveTimeout: time.Duration(cfg.ResolveTimeout),
		logger:         log,
	}

	if t.port == 0 {
		t.port = wire.Port
	}

	if t.batchSize <= 0 {
		t.batchSize = defaultBatchSize
	}

	if t.batchDelay <= 0 {
		t.batchDelay = defaultBatchDelay
	}

	if t.resolveTimeout <= 0 || t.resolveTimeout > resolveBudgetCeiling {
		t.resolveTimeout = resolveBudgetCeiling
	}

	return t, nil
}

// Discover runs one discovery round over the given networks and returns the
// devices that answered, deduplicated by device instance (first announcement
// wins). The timeout bounds the whole round including the send sweep; an
// exhausted budget is the normal end of a round, not an error.
func (t *Transport) Discover(ctx context.Context, networks []string, timeout time.Duration) ([]*models.DiscoveredDevice, error) {
	if timeout <= 0 {
		timeout = defaultRoundTimeout
	}

	hosts, err := ExpandTargets(networks)
	if err != nil {
		return nil, err
	}

	broadcasts, err := BroadcastTargets(networks)
	if err != nil {
		return nil, err
	}

	conn, err := t.listen(ctx)
	if err != nil {
		return nil, fmt.Errorf("open discovery endpoint: %w", err)
	}

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			t.logger.Error().Err(cerr).Msg("Failed to close discovery endpoint")
		}
	}()

	deadline := time.Now().Add(timeout)

	t.logger.Debug().
		Int("hosts", len(hosts)).
		Int("broadcasts", len(broadcasts)).
		Dur("timeout", timeout).
		Msg("Starting discovery round")

	frame := wire.EncodeWhoIs(wire.ScopeBroadcast)
	for _, target := range broadcasts {
		t.send(conn, frame, target)
	}

	t.sweep(ctx, conn, hosts)

	devices := t.drain(ctx, conn, deadline)

	t.logger.Info().
		Int("devices", len(devices)).
		Int("hosts", len(hosts)).
		Msg("Discovery round complete")

	return devices, nil
}

// sweep sends a unicast Who-Is to every host, pacing sends in batches so
// access switches and embedded device stacks are not flooded.
func (t *Transport) sweep(ctx context.Context, conn net.PacketConn, hosts []string) {
	frame := wire.EncodeWhoIs(wire.ScopeUnicast)
	limiter := rate.NewLimiter(rate.Every(t.batchDelay), 1)

	for start := 0; start < len(hosts); start += t.batchSize {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		for _, host := range hosts[start:min(start+t.batchSize, len(hosts))] {
			t.send(conn, frame, host)
		}
	}
}

// drain receives until the deadline passes, keeping the first announcement
// seen per device instance. Receive errors, including unreachable-host
// errors surfaced by the stack, never abort the round.
func (t *Transport) drain(ctx context.Context, conn net.PacketConn, deadline time.Time) []*models.DiscoveredDevice {
	var devices []*models.DiscoveredDevice

	seen := make(map[uint32]struct{})
	buf := make([]byte, wire.MaxDatagramSize)

	for ctx.Err() == nil {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		if remaining > receivePollInterval {
			remaining = receivePollInterval
		}

		_ = conn.SetReadDeadline(time.Now().Add(remaining))

		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			continue
		}

		sender := ""
		if udpAddr, ok := addr.(*net.UDPAddr); ok {
			sender = udpAddr.IP.String()
		}

		device := wire.DecodeIAm(buf[:n], sender)
		if device == nil {
			continue
		}

		if _, dup := seen[device.DeviceID]; dup {
			continue
		}

		seen[device.DeviceID] = struct{}{}
		device.DiscoveredAt = time.Now()
		devices = append(devices, device)

		t.logger.Debug().
			Uint32("deviceId", device.DeviceID).
			Str("ip", device.IP).
			Uint16("vendorId", device.VendorID).
			Msg("Device announced")
	}

	return devices
}

func (t *Transport) listen(ctx context.Context) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: broadcastControl}

	return lc.ListenPacket(ctx, "udp4", ":0")
}

func (t *Transport) send(conn net.PacketConn, frame []byte, host string) {
	addr := &net.UDPAddr{IP: net.ParseIP(host), Port: t.port}
	if addr.IP == nil {
		return
	}

	if _, err := conn.WriteTo(frame, addr); err != nil {
		t.logger.Debug().Err(err).Str("host", host).Msg("Discovery send failed")
	}
}
