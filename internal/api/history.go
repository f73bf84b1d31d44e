/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/plaidsound/tonearm/internal/store"
)

// handleHistoryList returns play history, newest first by default.
func (a *API) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{Sort: "-created_date"}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}

	entries, err := a.library.Store().ListPlayHistory(r.Context(), opts)
	if err != nil {
		a.logger.Error().Err(err).Msg("list play history failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHistoryCreate logs a play reported by an external frontend
// driving its own audio element. Threshold rules are the recorder's.
func (a *API) handleHistoryCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID        string  `json:"track_id"`
		DurationPlayed float64 `json:"duration_played"`
		WasSkipped     bool    `json:"was_skipped"`
	}
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

	a.recorder.Record(r.Context(), track, req.DurationPlayed, req.WasSkipped)
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.library.Stats(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("stats failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleLibraryExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="library.json"`)
	if err := a.library.ExportJSON(r.Context(), w); err != nil {
		a.logger.Error().Err(err).Msg("library export failed")
	}
}
