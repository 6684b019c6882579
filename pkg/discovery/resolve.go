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

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/wire"
)

// Resolve probes a single address with unicast Who-Is until the device
// announces itself or the resolve budget runs out. Probes are repeated at
// fixed intervals; field devices drop requests while their stacks are busy,
// so one unanswered probe does not mean the host is empty. Returns
// ErrNoAnswer when the budget expires without an announcement.
func (t *Transport) Resolve(ctx context.Context, ip string) (*models.DiscoveredDevice, error) {
	raddr := &net.UDPAddr{IP: net.ParseIP(ip), Port: t.port}
	if raddr.IP == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, ip)
	}

	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("open resolve endpoint: %w", err)
	}

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			t.logger.Error().Err(cerr).Msg("Failed to close resolve endpoint")
		}
	}()

	deadline := time.Now().Add(t.resolveTimeout)
	frame := wire.EncodeWhoIs(wire.ScopeUnicast)
	buf := make([]byte, wire.MaxDatagramSize)

	probe := func() (*models.DiscoveredDevice, error) {
		// The socket is connected, so an ICMP unreachable from an empty
		// address surfaces here as a write or read error. Both are
		// retryable: the device may simply not be up yet.
		if _, werr := conn.Write(frame); werr != nil {
			return nil, werr
		}

		window := time.Now().Add(resolvePollInterval)
		if window.After(deadline) {
			window = deadline
		}

		_ = conn.SetReadDeadline(window)

		for {
			n, rerr := conn.Read(buf)
			if rerr != nil {
				return nil, rerr
			}

			if device := wire.DecodeIAm(buf[:n], ip); device != nil {
				device.DiscoveredAt = time.Now()

				return device, nil
			}
		}
	}

	bo := backoff.NewConstantBackOff(resolvePollInterval)

	device, err := backoff.Retry(ctx, probe,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(t.resolveTimeout))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %s", ErrNoAnswer, ip)
	}

	return device, nil
}
