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

package lifecycle

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwatch/pointscan/pkg/logger"
)

// fakeService drives Run from a test-controlled Start result.
type fakeService struct {
	startErr chan error
	stopErr  error
	started  atomic.Bool
	stopped  atomic.Bool
}

func newFakeService() *fakeService {
	return &fakeService{startErr: make(chan error, 1)}
}

func (s *fakeService) Start(ctx context.Context) error {
	s.started.Store(true)

	select {
	case err := <-s.startErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeService) Stop(_ context.Context) error {
	s.stopped.Store(true)
	return s.stopErr
}

func TestRunReturnsWhenServiceExits(t *testing.T) {
	svc := newFakeService()
	svc.startErr <- nil

	err := Run(context.Background(), svc, logger.NewTestLogger())
	require.NoError(t, err)
	assert.True(t, svc.started.Load())
	assert.True(t, svc.stopped.Load())
}

func TestRunPropagatesStartError(t *testing.T) {
	svc := newFakeService()
	svc.startErr <- errors.New("listen failed")

	err := Run(context.Background(), svc, logger.NewTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen failed")
	assert.True(t, svc.stopped.Load())
}

func TestRunPropagatesStopError(t *testing.T) {
	svc := newFakeService()
	svc.startErr <- nil
	svc.stopErr = errors.New("flush failed")

	err := Run(context.Background(), svc, logger.NewTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stop service")
}

func TestRunTreatsCancellationAsCleanShutdown(t *testing.T) {
	svc := newFakeService()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, svc, logger.NewTestLogger())
	require.NoError(t, err)
	assert.True(t, svc.stopped.Load())
}

func TestRunStopsOnSignal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("self-signaling is not portable to windows")
	}

	svc := newFakeService()
	done := make(chan error, 1)

	go func() {
		done <- Run(context.Background(), svc, logger.NewTestLogger())
	}()

	// Let Run install its signal handler before signaling.
	require.Eventually(t, svc.started.Load, time.Second, 5*time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, svc.stopped.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not shut down after SIGTERM")
	}
}
