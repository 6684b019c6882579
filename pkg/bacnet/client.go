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

// Package bacnet implements the property-read client used during point
// harvesting. A Client is cheap shared configuration; each device session is
// a Conn with its own connected socket, so parallel harvests never share a
// descriptor.
package bacnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/wire"
)

const defaultReadTimeout = 3 * time.Second

// Client builds property-read sessions from the scanner configuration.
type Client struct {
	port        int
	readTimeout time.Duration
	logger      logger.Logger
}

// NewClient creates a property-read client.
func NewClient(cfg *models.ScannerConfig, log logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	c := &Client{
		port:        cfg.Port,
		readTimeout: time.Duration(cfg.ReadTimeout),
		logger:      log,
	}

	if c.port == 0 {
		c.port = wire.Port
	}

	if c.readTimeout <= 0 {
		c.readTimeout = defaultReadTimeout
	}

	return c, nil
}

// Dial opens a property-read session with one device. The caller owns the
// session and must Close it.
func (c *Client) Dial(_ context.Context, ip string) (*Conn, error) {
	raddr := &net.UDPAddr{IP: net.ParseIP(ip), Port: c.port}
	if raddr.IP == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, ip)
	}

	sock, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial device %s: %w", ip, err)
	}

	return &Conn{
		sock:        sock,
		ip:          ip,
		readTimeout: c.readTimeout,
		buf:         make([]byte, wire.MaxDatagramSize),
		logger:      c.logger,
	}, nil
}

// Conn is one device's property-read session. It is owned by a single
// harvest worker and is not safe for concurrent use.
type Conn struct {
	sock        *net.UDPConn
	ip          string
	readTimeout time.Duration
	invoke      uint8
	buf         []byte
	logger      logger.Logger
}

// ReadProperty reads one property of one object, optionally at an array
// index (wire.ArrayIndexNone for the whole property). Replies to earlier
// requests that timed out are drained and discarded; the call fails with
// ErrReadTimeout when the device stays silent past the read deadline.
func (c *Conn) ReadProperty(ctx context.Context, obj wire.ObjectID, prop wire.PropertyID, arrayIndex int) (wire.Value, error) {
	c.invoke++
	invoke := c.invoke

	frame := wire.EncodeReadProperty(invoke, obj, prop, arrayIndex)
	if _, err := c.sock.Write(frame); err != nil {
		return wire.Value{}, fmt.Errorf("send read request to %s: %w", c.ip, err)
	}

	deadline := time.Now().Add(c.readTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	_ = c.sock.SetReadDeadline(deadline)

	for {
		if err := ctx.Err(); err != nil {
			return wire.Value{}, err
		}

		n, err := c.sock.Read(c.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return wire.Value{}, fmt.Errorf("%w: %s", ErrReadTimeout, c.ip)
			}

			return wire.Value{}, fmt.Errorf("read response from %s: %w", c.ip, err)
		}

		val, err := wire.DecodeReadPropertyACK(c.buf[:n], invoke)
		if errors.Is(err, wire.ErrInvokeMismatch) {
			c.logger.Debug().Str("ip", c.ip).Msg("Discarding stale property reply")

			continue
		}

		if err != nil {
			return wire.Value{}, err
		}

		return val, nil
	}
}

// Close releases the session socket.
func (c *Conn) Close() error {
	return c.sock.Close()
}
