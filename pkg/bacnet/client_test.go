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

package bacnet

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
	"github.com/fieldwatch/pointscan/pkg/wire"
)

// rpSim answers property-read requests on loopback. The answer callback sees
// the request's invoke id so replies can be matched or deliberately stale.
type rpSim struct {
	conn    *net.UDPConn
	done    chan struct{}
	mu      sync.Mutex
	invokes []uint8
}

func newRPSim(t *testing.T, answer func(invoke uint8) [][]byte) *rpSim {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)

	sim := &rpSim{conn: conn, done: make(chan struct{})}

	go sim.serve(answer)

	t.Cleanup(func() {
		_ = conn.Close()
		<-sim.done
	})

	return sim
}

func (s *rpSim) serve(answer func(invoke uint8) [][]byte) {
	defer close(s.done)

	buf := make([]byte, wire.MaxDatagramSize)

	for {
		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		if n < 10 {
			continue
		}

		invoke := buf[8]

		s.mu.Lock()
		s.invokes = append(s.invokes, invoke)
		s.mu.Unlock()

		for _, frame := range answer(invoke) {
			_, _ = s.conn.WriteToUDP(frame, raddr)
		}
	}
}

func (s *rpSim) port() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

func (s *rpSim) seenInvokes() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]uint8(nil), s.invokes...)
}

func simClient(t *testing.T, port int, readTimeout time.Duration) *Client {
	t.Helper()

	client, err := NewClient(&models.ScannerConfig{
		Port:        port,
		ReadTimeout: models.Duration(readTimeout),
	}, logger.NewTestLogger())
	require.NoError(t, err)

	return client
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(&models.ScannerConfig{}, logger.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, wire.Port, client.port)
	assert.Equal(t, defaultReadTimeout, client.readTimeout)
}

func TestNewClientNilConfig(t *testing.T) {
	_, err := NewClient(nil, logger.NewTestLogger())
	assert.ErrorIs(t, err, ErrConfigNil)
}

func TestDialInvalidAddress(t *testing.T) {
	client := simClient(t, wire.Port, time.Second)

	_, err := client.Dial(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestReadPropertyValue(t *testing.T) {
	obj := wire.ObjectID{Type: models.ObjectAnalogInput, Instance: 3}

	sim := newRPSim(t, func(invoke uint8) [][]byte {
		return [][]byte{wire.EncodeReadPropertyACK(invoke, obj, wire.PropObjectName,
			wire.ArrayIndexNone, wire.Value{Kind: wire.ValueText, Text: "Zone Temp 3"})}
	})

	conn, err := simClient(t, sim.port(), time.Second).Dial(context.Background(), "127.0.0.1")
	require.NoError(t, err)

	defer func() { require.NoError(t, conn.Close()) }()

	val, err := conn.ReadProperty(context.Background(), obj, wire.PropObjectName, wire.ArrayIndexNone)
	require.NoError(t, err)

	assert.Equal(t, wire.ValueText, val.Kind)
	assert.Equal(t, "Zone Temp 3", val.Text)
}

func TestReadPropertyArrayIndex(t *testing.T) {
	device := wire.ObjectID{Type: models.ObjectDevice, Instance: 4711}

	sim := newRPSim(t, func(invoke uint8) [][]byte {
		return [][]byte{wire.EncodeReadPropertyACK(invoke, device, wire.PropObjectList,
			0, wire.Value{Kind: wire.ValueNumber, Number: 42})}
	})

	conn, err := simClient(t, sim.port(), time.Second).Dial(context.Background(), "127.0.0.1")
	require.NoError(t, err)

	defer func() { require.NoError(t, conn.Close()) }()

	val, err := conn.ReadProperty(context.Background(), device, wire.PropObjectList, 0)
	require.NoError(t, err)

	count, ok := val.Uint()
	require.True(t, ok)
	assert.Equal(t, uint32(42), count)
}

func TestReadPropertyDeviceError(t *testing.T) {
	sim := newRPSim(t, func(invoke uint8) [][]byte {
		// class=property (2), code=unknown-property (32)
		return [][]byte{wire.EncodeReadPropertyError(invoke, 2, 32)}
	})

	conn, err := simClient(t, sim.port(), time.Second).Dial(context.Background(), "127.0.0.1")
	require.NoError(t, err)

	defer func() { require.NoError(t, conn.Close()) }()

	obj := wire.ObjectID{Type: models.ObjectBinaryValue, Instance: 9}

	_, err = conn.ReadProperty(context.Background(), obj, wire.PropDescription, wire.ArrayIndexNone)
	assert.ErrorIs(t, err, wire.ErrErrorResponse)
}

func TestReadPropertyTimeout(t *testing.T) {
	sim := newRPSim(t, func(uint8) [][]byte { return nil })

	conn, err := simClient(t, sim.port(), 200*time.Millisecond).Dial(context.Background(), "127.0.0.1")
	require.NoError(t, err)

	defer func() { require.NoError(t, conn.Close()) }()

	obj := wire.ObjectID{Type: models.ObjectAnalogValue, Instance: 1}

	start := time.Now()
	_, err = conn.ReadProperty(context.Background(), obj, wire.PropObjectName, wire.ArrayIndexNone)

	assert.ErrorIs(t, err, ErrReadTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestReadPropertyDiscardsStaleReply(t *testing.T) {
	obj := wire.ObjectID{Type: models.ObjectAnalogInput, Instance: 7}

	sim := newRPSim(t, func(invoke uint8) [][]byte {
		// A late reply to a previous request lands first.
		return [][]byte{
			wire.EncodeReadPropertyACK(invoke-1, obj, wire.PropObjectName,
				wire.ArrayIndexNone, wire.Value{Kind: wire.ValueText, Text: "stale"}),
			wire.EncodeReadPropertyACK(invoke, obj, wire.PropObjectName,
				wire.ArrayIndexNone, wire.Value{Kind: wire.ValueText, Text: "fresh"}),
		}
	})

	conn, err := simClient(t, sim.port(), time.Second).Dial(context.Background(), "127.0.0.1")
	require.NoError(t, err)

	defer func() { require.NoError(t, conn.Close()) }()

	val, err := conn.ReadProperty(context.Background(), obj, wire.PropObjectName, wire.ArrayIndexNone)
	require.NoError(t, err)
	assert.Equal(t, "fresh", val.Text)
}

func TestReadPropertyInvokeAdvances(t *testing.T) {
	obj := wire.ObjectID{Type: models.ObjectBinaryInput, Instance: 2}

	sim := newRPSim(t, func(invoke uint8) [][]byte {
		return [][]byte{wire.EncodeReadPropertyACK(invoke, obj, wire.PropObjectName,
			wire.ArrayIndexNone, wire.Value{Kind: wire.ValueText, Text: "ok"})}
	})

	conn, err := simClient(t, sim.port(), time.Second).Dial(context.Background(), "127.0.0.1")
	require.NoError(t, err)

	defer func() { require.NoError(t, conn.Close()) }()

	for i := 0; i < 2; i++ {
		_, err = conn.ReadProperty(context.Background(), obj, wire.PropObjectName, wire.ArrayIndexNone)
		require.NoError(t, err)
	}

	invokes := sim.seenInvokes()
	require.Len(t, invokes, 2)
	assert.Equal(t, invokes[0]+1, invokes[1])
}
