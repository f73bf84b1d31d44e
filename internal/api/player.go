/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/player"
	"github.com/plaidsound/tonearm/internal/store"
)

type playRequest struct {
	TrackID string `json:"track_id"`
	// Exactly one of QueueIDs or PlaylistID may supply the play order.
	QueueIDs   []string `json:"queue_ids"`
	PlaylistID string   `json:"playlist_id"`
}

func (a *API) handlePlayerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.session.Queue())
}

func (a *API) handlePlayerPlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.TrackID == "" {
		writeError(w, http.StatusBadRequest, "track_id_required")
		return
	}

	track, err := a.library.GetTrack(r.Context(), req.TrackID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	queue, err := a.resolveQueue(r, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_queue")
		return
	}

	if err := a.session.Play(r.Context(), track, queue); err != nil {
		a.logger.Error().Err(err).Str("track_id", track.ID).Msg("play failed")
		writeError(w, http.StatusInternalServerError, "playback_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) resolveQueue(r *http.Request, req playRequest) ([]models.Track, error) {
	if req.PlaylistID != "" {
		return a.library.PlaylistTracks(r.Context(), req.PlaylistID)
	}
	queue := make([]models.Track, 0, len(req.QueueIDs))
	for _, id := range req.QueueIDs {
		track, err := a.library.GetTrack(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		queue = append(queue, track)
	}
	return queue, nil
}

func (a *API) handlePlayerToggle(w http.ResponseWriter, r *http.Request) {
	if err := a.session.TogglePlayPause(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "playback_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerNext(w http.ResponseWriter, r *http.Request) {
	if err := a.session.Next(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "playback_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerPrevious(w http.ResponseWriter, r *http.Request) {
	if err := a.session.Previous(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "playback_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.session.Seek(req.Position)
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level float64 `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.session.SetVolume(req.Level)
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerMute(w http.ResponseWriter, r *http.Request) {
	a.session.ToggleMute()
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerShuffle(w http.ResponseWriter, r *http.Request) {
	a.session.ToggleShuffle()
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerRepeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Mode == "" {
		a.session.CycleRepeat()
	} else if err := a.session.SetRepeat(player.RepeatMode(req.Mode)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_repeat_mode")
		return
	}
	writeJSON(w, http.StatusOK, a.session.Status())
}
