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
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plaidsound/tonearm/internal/library"
	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
)

type trackCreateRequest struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	Genre       string  `json:"genre"`
	Year        *int    `json:"year"`
	TrackNumber *int    `json:"track_number"`
	Duration    float64 `json:"duration"`
	FileFormat  string  `json:"file_format"`
	FileSize    *int64  `json:"file_size"`
	FilePath    string  `json:"file_path"`
	AlbumArtURL string  `json:"album_art_url"`
	IsFavorite  bool    `json:"is_favorite"`
}

type trackUpdateRequest struct {
	Title       *string    `json:"title"`
	Artist      *string    `json:"artist"`
	Album       *string    `json:"album"`
	Genre       *string    `json:"genre"`
	Year        *int       `json:"year"`
	TrackNumber *int       `json:"track_number"`
	Duration    *float64   `json:"duration"`
	FileFormat  *string    `json:"file_format"`
	FileSize    *int64     `json:"file_size"`
	FilePath    *string    `json:"file_path"`
	AlbumArtURL *string    `json:"album_art_url"`
	IsFavorite  *bool      `json:"is_favorite"`
	PlayCount   *int       `json:"play_count"`
	LastPlayed  *time.Time `json:"last_played"`
}

func (a *API) handleTracksList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("artist") != "" || q.Get("album") != "" || q.Get("genre") != "" ||
		q.Get("file_format") != "" || q.Get("is_favorite") != "" {
		filter := store.TrackFilter{
			Artist:     q.Get("artist"),
			Album:      q.Get("album"),
			Genre:      q.Get("genre"),
			FileFormat: q.Get("file_format"),
		}
		if raw := q.Get("is_favorite"); raw != "" {
			fav := raw == "true" || raw == "1"
			filter.IsFavorite = &fav
		}
		tracks, err := a.library.FilterTracks(r.Context(), filter)
		if err != nil {
			a.logger.Error().Err(err).Msg("filter tracks failed")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, tracks)
		return
	}

	opts := store.ListOptions{Sort: q.Get("sort")}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}

	tracks, err := a.library.ListTracks(r.Context(), opts)
	if err != nil {
		a.logger.Error().Err(err).Msg("list tracks failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (a *API) handleTracksGet(w http.ResponseWriter, r *http.Request) {
	track, err := a.library.GetTrack(r.Context(), chi.URLParam(r, "trackID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (a *API) handleTracksCreate(w http.ResponseWriter, r *http.Request) {
	var req trackCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	track, err := a.library.CreateTrack(r.Context(), models.Track{
		Title:       req.Title,
		Artist:      req.Artist,
		Album:       req.Album,
		Genre:       req.Genre,
		Year:        req.Year,
		TrackNumber: req.TrackNumber,
		Duration:    req.Duration,
		FileFormat:  req.FileFormat,
		FileSize:    req.FileSize,
		FilePath:    req.FilePath,
		AlbumArtURL: req.AlbumArtURL,
		IsFavorite:  req.IsFavorite,
	})
	if errors.Is(err, library.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("create track failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func (a *API) handleTracksUpdate(w http.ResponseWriter, r *http.Request) {
	var req trackUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	track, err := a.library.UpdateTrack(r.Context(), chi.URLParam(r, "trackID"), store.TrackPatch{
		Title:       req.Title,
		Artist:      req.Artist,
		Album:       req.Album,
		Genre:       req.Genre,
		Year:        req.Year,
		TrackNumber: req.TrackNumber,
		Duration:    req.Duration,
		FileFormat:  req.FileFormat,
		FileSize:    req.FileSize,
		FilePath:    req.FilePath,
		AlbumArtURL: req.AlbumArtURL,
		IsFavorite:  req.IsFavorite,
		PlayCount:   req.PlayCount,
		LastPlayed:  req.LastPlayed,
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
		a.logger.Error().Err(err).Msg("update track failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (a *API) handleTracksDelete(w http.ResponseWriter, r *http.Request) {
	err := a.library.DeleteTrack(r.Context(), chi.URLParam(r, "trackID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("delete track failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
