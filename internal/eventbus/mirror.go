/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus forwards local bus events to an external broker so
// companion apps (remote controls, scrobble bridges) can follow along.
// The mirror is strictly outbound and best effort: broker loss never
// affects playback.
package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/plaidsound/tonearm/internal/events"
	"github.com/plaidsound/tonearm/internal/telemetry"
)

// mirroredTypes is the set of events worth broadcasting off-process.
var mirroredTypes = []events.EventType{
	events.EventNowPlaying,
	events.EventPlayerState,
	events.EventPlayerError,
	events.EventPlayRecorded,
	events.EventTrackCreated,
	events.EventTrackUpdated,
	events.EventTrackDeleted,
	events.EventPlaylistSaved,
	events.EventSmartRefresh,
	events.EventSyncProgress,
}

// Envelope is the wire format published to the broker.
type Envelope struct {
	InstanceID string         `json:"instance_id"`
	Type       string         `json:"type"`
	Payload    events.Payload `json:"payload"`
	Timestamp  time.Time      `json:"ts"`
}

// Mirror publishes envelopes to an external broker.
type Mirror interface {
	Publish(ctx context.Context, envelope Envelope) error
	Close() error
}

// Run pumps local bus events into the mirror until ctx is cancelled.
func Run(ctx context.Context, bus *events.Bus, mirror Mirror, instanceID string) {
	merged := make(chan Envelope, 64)
	for _, eventType := range mirroredTypes {
		sub := bus.Subscribe(eventType)
		go func(eventType events.EventType, sub events.Subscriber) {
			for payload := range sub {
				select {
				case merged <- Envelope{
					InstanceID: instanceID,
					Type:       string(eventType),
					Payload:    payload,
					Timestamp:  time.Now().UTC(),
				}:
				default:
				}
			}
		}(eventType, sub)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case envelope := <-merged:
			if err := mirror.Publish(ctx, envelope); err != nil {
				telemetry.EventMirrorErrorsTotal.Inc()
				continue
			}
			telemetry.EventsMirroredTotal.WithLabelValues(envelope.Type).Inc()
		}
	}
}

func marshal(envelope Envelope) ([]byte, error) {
	return json.Marshal(envelope)
}
