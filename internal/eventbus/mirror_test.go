/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/plaidsound/tonearm/internal/events"
)

// capturingMirror records published envelopes.
type capturingMirror struct {
	mu        sync.Mutex
	published []Envelope
	fail      bool
}

func (m *capturingMirror) Publish(ctx context.Context, envelope Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker down")
	}
	m.published = append(m.published, envelope)
	return nil
}

func (m *capturingMirror) Close() error { return nil }

func (m *capturingMirror) snapshot() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Envelope(nil), m.published...)
}

func waitForEnvelopes(t *testing.T, m *capturingMirror, n int) []Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := m.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("mirror received %d envelopes, want %d", len(m.snapshot()), n)
	return nil
}

func TestRunForwardsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	mirror := &capturingMirror{}
	go Run(ctx, bus, mirror, "instance-1")

	// Give the pump a moment to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)
	bus.Publish(events.EventNowPlaying, events.Payload{"track_id": "t1"})
	bus.Publish(events.EventSmartRefresh, events.Payload{"updated": float64(2)})

	got := waitForEnvelopes(t, mirror, 2)
	byType := make(map[string]Envelope, len(got))
	for _, envelope := range got {
		byType[envelope.Type] = envelope
	}

	nowPlaying, ok := byType[string(events.EventNowPlaying)]
	if !ok {
		t.Fatalf("now playing event not mirrored: %+v", got)
	}
	if nowPlaying.InstanceID != "instance-1" {
		t.Errorf("InstanceID = %q", nowPlaying.InstanceID)
	}
	if nowPlaying.Payload["track_id"] != "t1" {
		t.Errorf("payload = %v", nowPlaying.Payload)
	}
	if nowPlaying.Timestamp.IsZero() {
		t.Error("envelope should be timestamped")
	}
	if _, ok := byType[string(events.EventSmartRefresh)]; !ok {
		t.Errorf("smart refresh event not mirrored: %+v", got)
	}
}

func TestRunSurvivesBrokerFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	mirror := &capturingMirror{fail: true}
	go Run(ctx, bus, mirror, "instance-1")

	time.Sleep(20 * time.Millisecond)
	bus.Publish(events.EventTrackCreated, events.Payload{"track_id": "t1"})
	time.Sleep(50 * time.Millisecond)

	mirror.mu.Lock()
	mirror.fail = false
	mirror.mu.Unlock()

	bus.Publish(events.EventTrackCreated, events.Payload{"track_id": "t2"})
	got := waitForEnvelopes(t, mirror, 1)
	if got[0].Payload["track_id"] != "t2" {
		t.Errorf("expected the post-recovery event, got %v", got[0].Payload)
	}
}

func TestEnvelopeWireFormat(t *testing.T) {
	envelope := Envelope{
		InstanceID: "instance-1",
		Type:       string(events.EventPlayRecorded),
		Payload:    events.Payload{"track_id": "t1", "counted": true},
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := marshal(envelope)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	for _, key := range []string{"instance_id", "type", "payload", "ts"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("wire format missing %q", key)
		}
	}
}
