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

// Package events publishes scan lifecycle events to NATS JetStream as
// CloudEvents. Publishing is best-effort from the pipeline's point of view:
// callers log failures and keep going.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fieldwatch/pointscan/pkg/logger"
	"github.com/fieldwatch/pointscan/pkg/models"
)

const (
	sourceURI = "fieldwatch/pointscan"

	// TypeScanCompleted is emitted once per scan run.
	TypeScanCompleted = "com.fieldwatch.pointscan.scan.completed"
	// TypeDeviceReconciled is emitted per device whose catalog was reconciled.
	TypeDeviceReconciled = "com.fieldwatch.pointscan.scan.reconciled"

	SubjectScanCompleted    = "points.scan.completed"
	SubjectDeviceReconciled = "points.scan.reconciled"
)

// jetStreamPublisher is the slice of jetstream.JetStream the publisher needs.
type jetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher emits CloudEvents onto the scan event stream.
type Publisher struct {
	js     jetStreamPublisher
	stream string
	logger logger.Logger
}

// NewPublisher wraps an existing JetStream context.
func NewPublisher(js jetstream.JetStream, streamName string, log logger.Logger) *Publisher {
	return &Publisher{js: js, stream: streamName, logger: log}
}

// Connect dials NATS, ensures the event stream exists, and returns a ready
// publisher together with the connection whose lifetime the caller owns.
func Connect(ctx context.Context, natsCfg *models.NATSConfig, eventsCfg models.EventsConfig, log logger.Logger) (*Publisher, *nats.Conn, error) {
	if natsCfg == nil {
		return nil, nil, ErrNATSConfigNil
	}

	nc, err := nats.Connect(natsCfg.URL, nats.Name("pointscan"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var js jetstream.JetStream

	if natsCfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, natsCfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		nc.Close()

		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamName := eventsCfg.StreamName
	if streamName == "" {
		streamName = "pointscan-events"
	}

	if _, err = js.Stream(ctx, streamName); err != nil {
		subjects := eventsCfg.Subjects
		if len(subjects) == 0 {
			subjects = []string{"points.scan.*"}
		}

		streamConfig := jetstream.StreamConfig{
			Name:     streamName,
			Subjects: subjects,
		}

		if _, err = js.CreateOrUpdateStream(ctx, streamConfig); err != nil {
			nc.Close()

			return nil, nil, fmt.Errorf("failed to create or get stream %s: %w", streamName, err)
		}

		log.Info().Str("stream", streamName).Msg("Created event stream")
	}

	return NewPublisher(js, streamName, log), nc, nil
}

// PublishScanCompleted emits the per-run summary event.
func (p *Publisher) PublishScanCompleted(ctx context.Context, summary *models.SweepSummary) error {
	now := time.Now()

	data := models.ScanCompletedEventData{
		Summary:   *summary,
		Timestamp: now,
	}

	return p.publish(ctx, SubjectScanCompleted, TypeScanCompleted, data, &now)
}

// PublishDeviceReconciled emits one device's reconciliation outcome.
func (p *Publisher) PublishDeviceReconciled(ctx context.Context, deviceIP string, result *models.ReconciliationResult) error {
	now := time.Now()

	data := models.DeviceReconciledEventData{
		DeviceKey: result.DeviceKey,
		DeviceIP:  deviceIP,
		Additions: len(result.Additions),
		Changes:   len(result.Changes),
		Removals:  len(result.Removals),
		Unchanged: result.Unchanged,
		Timestamp: now,
	}

	return p.publish(ctx, SubjectDeviceReconciled, TypeDeviceReconciled, data, &now)
}

func (p *Publisher) publish(ctx context.Context, subject, eventType string, data interface{}, ts *time.Time) error {
	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          sourceURI,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            ts,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	ack, err := p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.logger.Debug().
		Str("eventID", event.ID).
		Str("subject", subject).
		Uint64("sequence", ack.Sequence).
		Msg("Published event")

	return nil
}
