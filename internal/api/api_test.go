/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/plaidsound/tonearm/internal/devicesync"
	"github.com/plaidsound/tonearm/internal/events"
	"github.com/plaidsound/tonearm/internal/library"
	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/player"
	"github.com/plaidsound/tonearm/internal/smartlist"
	"github.com/plaidsound/tonearm/internal/store"
)

func newTestRouter(t *testing.T) (*chi.Mux, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	bus := events.NewBus()
	logger := zerolog.Nop()

	lib := library.NewService(st, bus, logger)
	media := player.NewSimulatedMedia()
	t.Cleanup(media.Close)
	recorder := player.NewRecorder(st, bus, logger)
	session := player.NewSession(media, recorder, bus, logger)
	materializer := smartlist.NewMaterializer(st, bus, logger)
	sim := devicesync.NewSimulator(st, bus, logger)

	a := New(lib, session, recorder, materializer, sim, bus, nil, logger)
	r := chi.NewRouter()
	a.Routes(r)
	return r, st
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	rr := doJSON(t, r, http.MethodGet, "/api/v1/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestTrackLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := doJSON(t, r, http.MethodPost, "/api/v1/tracks/", map[string]any{
		"title":       "Idioteque",
		"artist":      "Radiohead",
		"duration":    309.0,
		"file_format": "FLAC",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created models.Track
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created track: %v", err)
	}
	if created.FileFormat != "flac" {
		t.Errorf("FileFormat = %q, want lowercase", created.FileFormat)
	}

	rr = doJSON(t, r, http.MethodGet, "/api/v1/tracks/"+created.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}

	favorite := true
	rr = doJSON(t, r, http.MethodPatch, "/api/v1/tracks/"+created.ID, map[string]any{
		"is_favorite": favorite,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var updated models.Track
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated track: %v", err)
	}
	if !updated.IsFavorite {
		t.Error("patch did not apply")
	}

	rr = doJSON(t, r, http.MethodDelete, "/api/v1/tracks/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rr.Code)
	}
	rr = doJSON(t, r, http.MethodGet, "/api/v1/tracks/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rr.Code)
	}
}

func TestTrackCreateValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := doJSON(t, r, http.MethodPost, "/api/v1/tracks/", map[string]any{"artist": "No Title"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracks/", strings.NewReader("{broken"))
	rr2 := httptest.NewRecorder()
	r.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON: expected 400, got %d", rr2.Code)
	}
}

func TestTracksFilterQuery(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	for _, track := range []models.Track{
		{ID: "t1", Title: "One", Artist: "Alpha", IsFavorite: true},
		{ID: "t2", Title: "Two", Artist: "Beta"},
	} {
		if _, err := st.CreateTrack(ctx, track); err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}
	}

	rr := doJSON(t, r, http.MethodGet, "/api/v1/tracks/?artist=alpha", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var tracks []models.Track
	if err := json.Unmarshal(rr.Body.Bytes(), &tracks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != "t1" {
		t.Errorf("filter result = %+v, want only t1", tracks)
	}

	rr = doJSON(t, r, http.MethodGet, "/api/v1/tracks/?is_favorite=true", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &tracks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != "t1" {
		t.Errorf("favorite filter = %+v, want only t1", tracks)
	}
}

func TestPlaylistRefreshEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	if _, err := st.CreateTrack(ctx, models.Track{ID: "t1", Title: "One", Genre: "rock"}); err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	rr := doJSON(t, r, http.MethodPost, "/api/v1/playlists/", map[string]any{
		"name":     "Rock",
		"is_smart": true,
		"smart_criteria": map[string]any{
			"match_all": true,
			"rules": []map[string]any{
				{"field": "genre", "operator": "is", "value": "rock"},
			},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create playlist: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, r, http.MethodPost, "/api/v1/playlists/refresh", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var summary smartlist.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.UpdatedCount != 1 {
		t.Errorf("UpdatedCount = %d, want 1", summary.UpdatedCount)
	}
	if summary.Message != "Updated 1 smart playlists" {
		t.Errorf("Message = %q", summary.Message)
	}
}

func TestPlayerStatusEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := doJSON(t, r, http.MethodGet, "/api/v1/player/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var status player.Status
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.IsPlaying || status.Volume != 1 || status.Repeat != player.RepeatOff {
		t.Errorf("fresh session status = %+v", status)
	}
}

func TestHistoryCreateEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	if _, err := st.CreateTrack(ctx, models.Track{ID: "t1", Title: "One"}); err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	rr := doJSON(t, r, http.MethodPost, "/api/v1/history/", map[string]any{
		"track_id":        "t1",
		"duration_played": 45.0,
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rr.Code, rr.Body.String())
	}

	track, _ := st.GetTrack(ctx, "t1")
	if track.PlayCount != 1 {
		t.Errorf("PlayCount = %d, want 1", track.PlayCount)
	}

	rr = doJSON(t, r, http.MethodPost, "/api/v1/history/", map[string]any{
		"track_id": "ghost",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown track: expected 404, got %d", rr.Code)
	}

	rr = doJSON(t, r, http.MethodPost, "/api/v1/history/", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing track_id: expected 400, got %d", rr.Code)
	}
}

func TestSyncEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := doJSON(t, r, http.MethodGet, "/api/v1/sync/devices", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("devices: expected 200, got %d", rr.Code)
	}
	var devices []devicesync.Device
	if err := json.Unmarshal(rr.Body.Bytes(), &devices); err != nil {
		t.Fatalf("decode devices: %v", err)
	}
	if len(devices) == 0 {
		t.Error("expected seeded demo devices")
	}

	rr = doJSON(t, r, http.MethodPost, "/api/v1/sync/start", map[string]any{
		"device_id": "ghost",
		"track_ids": []string{"t1"},
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown device: expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSyncResolveEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	if _, err := st.CreateTrack(ctx, models.Track{
		ID: "t1", Title: "One", Artist: "Alpha", PlayCount: 2,
	}); err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	rr := doJSON(t, r, http.MethodPost, "/api/v1/sync/resolve", map[string]any{
		"strategy": "merge_stats",
		"device_tracks": []map[string]any{
			{"title": "One", "artist": "Alpha", "play_count": 9, "is_favorite": true},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("resolve: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	track, err := st.GetTrack(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTrack: %v", err)
	}
	if track.PlayCount != 9 || !track.IsFavorite {
		t.Errorf("merged track = %+v, want device stats applied", track)
	}

	rr = doJSON(t, r, http.MethodPost, "/api/v1/sync/resolve", map[string]any{
		"strategy": "coin_flip",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad strategy: expected 400, got %d", rr.Code)
	}
}

func TestPlaylistExportM3UEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	if _, err := st.CreateTrack(ctx, models.Track{
		ID: "t1", Title: "One", Artist: "Alpha", Duration: 200, FilePath: "/music/one.flac",
	}); err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}
	if _, err := st.CreatePlaylist(ctx, models.Playlist{
		ID: "p1", Name: "Mix", TrackIDs: []string{"t1"},
	}); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	rr := doJSON(t, r, http.MethodGet, "/api/v1/playlists/p1/export.m3u", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "audio/x-mpegurl" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rr.Body.String(), "#EXTM3U\n#PLAYLIST:Mix\n") {
		t.Errorf("unexpected M3U body:\n%s", rr.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	for _, track := range []models.Track{
		{ID: "t1", Title: "Karma Police", Artist: "Radiohead"},
		{ID: "t2", Title: "So What", Artist: "Miles Davis"},
	} {
		if _, err := st.CreateTrack(ctx, track); err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}
	}

	rr := doJSON(t, r, http.MethodGet, "/api/v1/search?q=karma", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var results []struct {
		Track models.Track `json:"track"`
		Score float64      `json:"score"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 || results[0].Track.ID != "t1" {
		t.Errorf("results = %+v, want just t1", results)
	}

	// A too-short query is valid but matches nothing.
	rr = doJSON(t, r, http.MethodGet, "/api/v1/search?q=k", nil)
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("short query: code %d body %q", rr.Code, rr.Body.String())
	}
}

func TestDuplicatesEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	for _, track := range []models.Track{
		{ID: "t1", Title: "Kid A", Artist: "Radiohead", Duration: 284},
		{ID: "t2", Title: "Kid A", Artist: "Radiohead", Duration: 285},
	} {
		if _, err := st.CreateTrack(ctx, track); err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}
	}

	rr := doJSON(t, r, http.MethodGet, "/api/v1/duplicates", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var groups []struct {
		Tracks []models.Track `json:"tracks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &groups); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Tracks) != 2 {
		t.Errorf("groups = %+v, want one pair", groups)
	}
}

func TestRecommendationsEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	for _, track := range []models.Track{
		{ID: "seed", Title: "One", Artist: "Radiohead", Genre: "rock"},
		{ID: "kin", Title: "Two", Artist: "Radiohead", Genre: "rock"},
		{ID: "far", Title: "Three", Artist: "Miles Davis", Genre: "jazz"},
	} {
		if _, err := st.CreateTrack(ctx, track); err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}
	}

	rr := doJSON(t, r, http.MethodGet, "/api/v1/recommendations?based_on=seed", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var recs []struct {
		Track models.Track `json:"track"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].Track.ID != "kin" {
		t.Errorf("recs = %+v, want just kin", recs)
	}

	rr = doJSON(t, r, http.MethodGet, "/api/v1/recommendations?based_on=missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown seed: expected 404, got %d", rr.Code)
	}
}
