/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package smartlist

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/plaidsound/tonearm/internal/events"
)

// Watcher triggers maintenance passes when the library changes. Change
// events only mark a dirty flag; the actual pass runs on the next tick,
// so a burst of edits (bulk import, multi-select favorite) coalesces
// into a single refresh.
type Watcher struct {
	materializer *Materializer
	bus          *events.Bus
	interval     time.Duration
	logger       zerolog.Logger
	dirty        atomic.Bool
}

// NewWatcher creates a watcher with the given debounce interval.
func NewWatcher(m *Materializer, bus *events.Bus, interval time.Duration, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		materializer: m,
		bus:          bus,
		interval:     interval,
		logger:       logger.With().Str("component", "smartlist_watcher").Logger(),
	}
}

// Run consumes library events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	types := []events.EventType{
		events.EventTrackCreated,
		events.EventTrackUpdated,
		events.EventTrackDeleted,
		events.EventPlaylistSaved,
		events.EventPlayRecorded,
	}
	subs := make([]events.Subscriber, len(types))
	for i, eventType := range types {
		subs[i] = w.bus.Subscribe(eventType)
	}
	// Unsubscribing closes each channel, which releases the forwarding
	// goroutines below.
	defer func() {
		for i, eventType := range types {
			w.bus.Unsubscribe(eventType, subs[i])
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	merged := make(chan events.Payload, 32)
	for _, sub := range subs {
		go func(sub events.Subscriber) {
			for payload := range sub {
				select {
				case merged <- payload:
				default:
				}
			}
		}(sub)
	}

	w.logger.Info().Dur("interval", w.interval).Msg("smart playlist watcher started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-merged:
			w.dirty.Store(true)
		case <-ticker.C:
			if !w.dirty.Swap(false) {
				continue
			}
			if _, err := w.materializer.Refresh(ctx); err != nil {
				w.logger.Error().Err(err).Msg("smart playlist refresh failed")
				// Keep the work queued; the next tick retries.
				w.dirty.Store(true)
			}
		}
	}
}
