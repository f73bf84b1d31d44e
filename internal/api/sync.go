/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/plaidsound/tonearm/internal/devicesync"
	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
)

func (a *API) handleSyncDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sync.Devices())
}

func (a *API) handleSyncProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sync.Progress())
}

func (a *API) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string   `json:"device_id"`
		TrackIDs []string `json:"track_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	// The transfer outlives the request; detach it from the request
	// context so closing the HTTP connection does not cancel the sync.
	err := a.sync.StartSync(context.WithoutCancel(r.Context()), req.DeviceID, req.TrackIDs)
	switch {
	case errors.Is(err, devicesync.ErrSyncBusy):
		writeError(w, http.StatusConflict, "sync_busy")
	case errors.Is(err, devicesync.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, "device_not_found")
	case errors.Is(err, devicesync.ErrInsufficientSpace):
		writeError(w, http.StatusBadRequest, "insufficient_space")
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, a.sync.Progress())
	}
}

// handleSyncResolve reconciles play stats a device reports back after
// an offline listening session. The winning copies are written to the
// library so the next maintenance pass sees them.
func (a *API) handleSyncResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy     devicesync.Strategy `json:"strategy"`
		DeviceTracks []models.Track      `json:"device_tracks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Strategy == "" {
		req.Strategy = devicesync.StrategyMergeStats
	}

	library, err := a.library.ListTracks(r.Context(), store.ListOptions{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	conflicts, resolution, err := devicesync.ResolveConflicts(library, req.DeviceTracks, req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for i, winner := range resolution {
		local := conflicts[i].Desktop
		if _, err := a.library.UpdateTrack(r.Context(), local.ID, store.TrackPatch{
			PlayCount:  &winner.PlayCount,
			IsFavorite: &winner.IsFavorite,
			LastPlayed: winner.LastPlayed,
		}); err != nil {
			a.logger.Error().Err(err).Str("track_id", local.ID).Msg("apply conflict resolution failed")
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conflicts": len(conflicts),
		"applied":   len(resolution),
	})
}
