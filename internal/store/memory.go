/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plaidsound/tonearm/internal/models"
)

// Memory is a mutex-guarded in-memory Store. It backs the "memory"
// database backend (a throwaway library for demos) and the test suite.
type Memory struct {
	mu        sync.RWMutex
	tracks    map[string]models.Track
	playlists map[string]models.Playlist
	history   []models.PlayHistoryEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tracks:    make(map[string]models.Track),
		playlists: make(map[string]models.Playlist),
	}
}

var _ Store = (*Memory)(nil)

// ListTracks returns all tracks, creation-ordered unless opts.Sort says
// otherwise.
func (m *Memory) ListTracks(_ context.Context, opts ListOptions) ([]models.Track, error) {
	m.mu.RLock()
	out := make([]models.Track, 0, len(m.tracks))
	for _, t := range m.tracks {
		out = append(out, t)
	}
	m.mu.RUnlock()

	sortTracks(out, opts.Sort)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *Memory) GetTrack(_ context.Context, id string) (models.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tracks[id]
	if !ok {
		return models.Track{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) CreateTrack(_ context.Context, track models.Track) (models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now()
	}
	track.UpdatedAt = track.CreatedAt
	m.tracks[track.ID] = track
	return track, nil
}

func (m *Memory) UpdateTrack(_ context.Context, id string, patch TrackPatch) (models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[id]
	if !ok {
		return models.Track{}, ErrNotFound
	}
	applyTrackPatch(&t, patch)
	t.UpdatedAt = time.Now()
	m.tracks[id] = t
	return t, nil
}

func (m *Memory) DeleteTrack(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tracks, id)
	return nil
}

func (m *Memory) FilterTracks(ctx context.Context, filter TrackFilter) ([]models.Track, error) {
	all, err := m.ListTracks(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if matchesFilter(t, filter) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) ListPlaylists(_ context.Context, opts ListOptions) ([]models.Playlist, error) {
	m.mu.RLock()
	out := make([]models.Playlist, 0, len(m.playlists))
	for _, p := range m.playlists {
		out = append(out, p)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *Memory) GetPlaylist(_ context.Context, id string) (models.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) CreatePlaylist(_ context.Context, playlist models.Playlist) (models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if playlist.ID == "" {
		playlist.ID = uuid.NewString()
	}
	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = time.Now()
	}
	playlist.UpdatedAt = playlist.CreatedAt
	playlist.TrackIDs = dedupe(playlist.TrackIDs)
	m.playlists[playlist.ID] = playlist
	return playlist, nil
}

func (m *Memory) UpdatePlaylist(_ context.Context, id string, patch PlaylistPatch) (models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	applyPlaylistPatch(&p, patch)
	p.UpdatedAt = time.Now()
	m.playlists[id] = p
	return p, nil
}

func (m *Memory) DeletePlaylist(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[id]; !ok {
		return ErrNotFound
	}
	delete(m.playlists, id)
	return nil
}

func (m *Memory) SmartPlaylists(ctx context.Context) ([]models.Playlist, error) {
	all, err := m.ListPlaylists(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.IsSmart {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) CreatePlayHistory(_ context.Context, entry models.PlayHistoryEntry) (models.PlayHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.history = append(m.history, entry)
	return entry, nil
}

func (m *Memory) ListPlayHistory(_ context.Context, opts ListOptions) ([]models.PlayHistoryEntry, error) {
	m.mu.RLock()
	out := make([]models.PlayHistoryEntry, len(m.history))
	copy(out, m.history)
	m.mu.RUnlock()

	if strings.HasPrefix(opts.Sort, "-") {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func matchesFilter(t models.Track, f TrackFilter) bool {
	if f.Artist != "" && !strings.EqualFold(t.Artist, f.Artist) {
		return false
	}
	if f.Album != "" && !strings.EqualFold(t.Album, f.Album) {
		return false
	}
	if f.Genre != "" && !strings.EqualFold(t.Genre, f.Genre) {
		return false
	}
	if f.FileFormat != "" && !strings.EqualFold(t.FileFormat, f.FileFormat) {
		return false
	}
	if f.IsFavorite != nil && t.IsFavorite != *f.IsFavorite {
		return false
	}
	return true
}

func applyTrackPatch(t *models.Track, p TrackPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Artist != nil {
		t.Artist = *p.Artist
	}
	if p.Album != nil {
		t.Album = *p.Album
	}
	if p.Genre != nil {
		t.Genre = *p.Genre
	}
	if p.Year != nil {
		t.Year = p.Year
	}
	if p.TrackNumber != nil {
		t.TrackNumber = p.TrackNumber
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.FileFormat != nil {
		t.FileFormat = *p.FileFormat
	}
	if p.FileSize != nil {
		t.FileSize = p.FileSize
	}
	if p.FilePath != nil {
		t.FilePath = *p.FilePath
	}
	if p.AlbumArtURL != nil {
		t.AlbumArtURL = *p.AlbumArtURL
	}
	if p.IsFavorite != nil {
		t.IsFavorite = *p.IsFavorite
	}
	if p.PlayCount != nil {
		t.PlayCount = *p.PlayCount
	}
	if p.LastPlayed != nil {
		t.LastPlayed = p.LastPlayed
	}
}

func applyPlaylistPatch(p *models.Playlist, patch PlaylistPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.TrackIDs != nil {
		p.TrackIDs = dedupe(*patch.TrackIDs)
	}
	if patch.IsSmart != nil {
		p.IsSmart = *patch.IsSmart
	}
	if patch.SmartCriteria != nil {
		p.SmartCriteria = patch.SmartCriteria
	}
}

// dedupe drops repeated ids, keeping first-seen (insertion) order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sortTracks(tracks []models.Track, key string) {
	desc := strings.HasPrefix(key, "-")
	key = strings.TrimPrefix(key, "-")

	// Ties fall back to id so the order is stable across the backing
	// map's random iteration.
	less := func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		switch key {
		case "title":
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				return at < bt
			}
		case "artist":
			aa, ba := strings.ToLower(a.Artist), strings.ToLower(b.Artist)
			if aa != ba {
				return aa < ba
			}
		case "play_count":
			if a.PlayCount != b.PlayCount {
				return a.PlayCount < b.PlayCount
			}
		case "last_played":
			at, bt := timeOrZero(a.LastPlayed), timeOrZero(b.LastPlayed)
			if !at.Equal(bt) {
				return at.Before(bt)
			}
		default: // created_date
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	}
	if desc {
		sort.SliceStable(tracks, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(tracks, less)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
