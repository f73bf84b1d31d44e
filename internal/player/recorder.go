/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/plaidsound/tonearm/internal/events"
	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
	"github.com/plaidsound/tonearm/internal/telemetry"
)

const (
	// minRecordSeconds is the floor below which a listen is noise, not
	// history: accidental clicks and instant skips are never written.
	minRecordSeconds = 5.0
	// fullPlaySeconds is the threshold past which an unskipped listen
	// counts as a real play and bumps the track's play count.
	fullPlaySeconds = 30.0
)

// Recorder writes play history and maintains per-track play statistics.
// Recording is best effort: a storage failure is logged and playback
// carries on.
type Recorder struct {
	store  store.Store
	bus    *events.Bus
	logger zerolog.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder. bus may be nil.
func NewRecorder(st store.Store, bus *events.Bus, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  st,
		bus:    bus,
		logger: logger.With().Str("component", "history").Logger(),
		now:    time.Now,
	}
}

// Record writes one listen to play history. Listens of
// minRecordSeconds or less are dropped. Unskipped listens longer than
// fullPlaySeconds also increment the track's play count and stamp
// last_played.
func (r *Recorder) Record(ctx context.Context, track models.Track, durationPlayed float64, wasSkipped bool) {
	if durationPlayed <= minRecordSeconds {
		return
	}

	entry := models.PlayHistoryEntry{
		TrackID:        track.ID,
		DurationPlayed: durationPlayed,
		WasSkipped:     wasSkipped,
		CreatedAt:      r.now(),
	}
	if _, err := r.store.CreatePlayHistory(ctx, entry); err != nil {
		r.logger.Error().Err(err).Str("track_id", track.ID).Msg("failed to write play history")
	}

	counted := durationPlayed > fullPlaySeconds && !wasSkipped
	if counted {
		// Re-read the counter; the session's snapshot goes stale after
		// the first full play of a queue.
		playCount := track.PlayCount + 1
		if fresh, err := r.store.GetTrack(ctx, track.ID); err == nil {
			playCount = fresh.PlayCount + 1
		}
		lastPlayed := r.now()
		_, err := r.store.UpdateTrack(ctx, track.ID, store.TrackPatch{
			PlayCount:  &playCount,
			LastPlayed: &lastPlayed,
		})
		if err != nil {
			r.logger.Error().Err(err).Str("track_id", track.ID).Msg("failed to bump play count")
		}
	}

	telemetry.PlaysRecordedTotal.WithLabelValues(boolLabel(counted)).Inc()
	if r.bus != nil {
		r.bus.Publish(events.EventPlayRecorded, events.Payload{
			"track_id":        track.ID,
			"duration_played": durationPlayed,
			"was_skipped":     wasSkipped,
			"counted":         counted,
		})
	}

	r.logger.Debug().
		Str("track_id", track.ID).
		Float64("duration_played", durationPlayed).
		Bool("was_skipped", wasSkipped).
		Bool("counted", counted).
		Msg("play recorded")
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
