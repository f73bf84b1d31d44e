/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plaidsound/tonearm/internal/library"
	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/rules"
	"github.com/plaidsound/tonearm/internal/store"
)

type playlistCreateRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	TrackIDs      []string       `json:"track_ids"`
	IsSmart       bool           `json:"is_smart"`
	SmartCriteria *rules.RuleSet `json:"smart_criteria"`
}

type playlistUpdateRequest struct {
	Name          *string        `json:"name"`
	Description   *string        `json:"description"`
	TrackIDs      *[]string      `json:"track_ids"`
	IsSmart       *bool          `json:"is_smart"`
	SmartCriteria *rules.RuleSet `json:"smart_criteria"`
}

func (a *API) handlePlaylistsList(w http.ResponseWriter, r *http.Request) {
	playlists, err := a.library.ListPlaylists(r.Context(), store.ListOptions{Sort: r.URL.Query().Get("sort")})
	if err != nil {
		a.logger.Error().Err(err).Msg("list playlists failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (a *API) handlePlaylistsGet(w http.ResponseWriter, r *http.Request) {
	playlist, err := a.library.GetPlaylist(r.Context(), chi.URLParam(r, "playlistID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (a *API) handlePlaylistsCreate(w http.ResponseWriter, r *http.Request) {
	var req playlistCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	playlist, err := a.library.CreatePlaylist(r.Context(), models.Playlist{
		Name:          req.Name,
		Description:   req.Description,
		TrackIDs:      req.TrackIDs,
		IsSmart:       req.IsSmart,
		SmartCriteria: req.SmartCriteria,
	})
	if errors.Is(err, library.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("create playlist failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (a *API) handlePlaylistsUpdate(w http.ResponseWriter, r *http.Request) {
	var req playlistUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	playlist, err := a.library.UpdatePlaylist(r.Context(), chi.URLParam(r, "playlistID"), store.PlaylistPatch{
		Name:          req.Name,
		Description:   req.Description,
		TrackIDs:      req.TrackIDs,
		IsSmart:       req.IsSmart,
		SmartCriteria: req.SmartCriteria,
	})
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if errors.Is(err, library.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("update playlist failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (a *API) handlePlaylistsDelete(w http.ResponseWriter, r *http.Request) {
	err := a.library.DeletePlaylist(r.Context(), chi.URLParam(r, "playlistID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("delete playlist failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := a.library.PlaylistTracks(r.Context(), chi.URLParam(r, "playlistID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("resolve playlist tracks failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// handlePlaylistsRefresh runs a smart playlist maintenance pass on
// demand and reports what changed.
func (a *API) handlePlaylistsRefresh(w http.ResponseWriter, r *http.Request) {
	summary, err := a.materializer.Refresh(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("smart playlist refresh failed")
		writeError(w, http.StatusInternalServerError, "refresh_failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handlePlaylistExportM3U(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", playlistID+".m3u"))
	if err := a.library.ExportM3U(r.Context(), w, playlistID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		a.logger.Error().Err(err).Msg("m3u export failed")
	}
}
