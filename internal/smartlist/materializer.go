/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package smartlist keeps smart playlist membership in sync with the
// library: the materializer runs one maintenance pass, the watcher
// schedules passes off library change events.
package smartlist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/plaidsound/tonearm/internal/events"
	"github.com/plaidsound/tonearm/internal/store"
	"github.com/plaidsound/tonearm/internal/telemetry"
)

// Summary reports the outcome of one maintenance pass.
type Summary struct {
	UpdatedCount int    `json:"updated_count"`
	Message      string `json:"message"`
}

// Materializer recomputes smart playlist membership from their criteria.
type Materializer struct {
	store  store.Store
	bus    *events.Bus
	logger zerolog.Logger
}

// NewMaterializer creates a materializer. bus may be nil (maintenance CLI).
func NewMaterializer(st store.Store, bus *events.Bus, logger zerolog.Logger) *Materializer {
	return &Materializer{store: st, bus: bus, logger: logger.With().Str("component", "smartlist").Logger()}
}

// Refresh runs one maintenance pass over every smart playlist.
//
// Tracks are fetched once and reused for every playlist, so each pass
// sees a single consistent library snapshot. A playlist is rewritten
// only when its materialized membership differs from the stored cache;
// untouched playlists keep their timestamps. A failing playlist is
// logged and skipped, it never aborts the pass. Membership order is
// library order (created_date ascending), which makes the pass
// deterministic and idempotent.
func (m *Materializer) Refresh(ctx context.Context) (Summary, error) {
	start := time.Now()
	telemetry.SmartRefreshRuns.Inc()

	playlists, err := m.store.SmartPlaylists(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load smart playlists: %w", err)
	}
	if len(playlists) == 0 {
		return Summary{Message: "No smart playlists found"}, nil
	}

	tracks, err := m.store.ListTracks(ctx, store.ListOptions{Sort: "created_date"})
	if err != nil {
		// Without a track snapshot nothing can be evaluated safely, so
		// the whole pass fails rather than emptying every playlist.
		return Summary{}, fmt.Errorf("load tracks: %w", err)
	}

	updated := 0
	for _, playlist := range playlists {
		matched := make([]string, 0)
		if !playlist.SmartCriteria.Empty() {
			for _, track := range tracks {
				if playlist.SmartCriteria.Matches(track) {
					matched = append(matched, track.ID)
				}
			}
		}

		if sameIDs(playlist.TrackIDs, matched) {
			continue
		}

		if _, err := m.store.UpdatePlaylist(ctx, playlist.ID, store.PlaylistPatch{TrackIDs: &matched}); err != nil {
			m.logger.Error().Err(err).
				Str("playlist_id", playlist.ID).
				Str("playlist_name", playlist.Name).
				Msg("failed to update smart playlist")
			continue
		}

		m.logger.Debug().
			Str("playlist_name", playlist.Name).
			Int("track_count", len(matched)).
			Msg("smart playlist updated")
		updated++
	}

	telemetry.SmartRefreshUpdated.Add(float64(updated))
	telemetry.SmartRefreshDuration.Observe(time.Since(start).Seconds())

	if m.bus != nil && updated > 0 {
		m.bus.Publish(events.EventSmartRefresh, events.Payload{"updated_count": updated})
	}

	return Summary{
		UpdatedCount: updated,
		Message:      fmt.Sprintf("Updated %d smart playlists", updated),
	}, nil
}

// sameIDs compares membership including order; smart playlists are
// ordered by library position, so order changes are real changes.
func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
