/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store is the persistence boundary of the library: typed CRUD
// plus filtering over tracks, playlists, and play history. Two
// implementations exist, GORM (sqlite/mysql/postgres) and in-memory
// (the mocked desktop backend, also used by tests).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/rules"
)

// ErrNotFound indicates the requested record id does not exist.
var ErrNotFound = errors.New("record not found")

// ListOptions controls ordering and limits for list operations.
// Sort is a record field name (created_date, title, artist, play_count,
// last_played), optionally prefixed with '-' for descending order.
type ListOptions struct {
	Sort  string
	Limit int
}

// TrackFilter selects tracks by exact attribute match. Zero-valued
// fields are ignored.
type TrackFilter struct {
	Artist     string
	Album      string
	Genre      string
	FileFormat string
	IsFavorite *bool
}

// TrackPatch is a partial track update; nil fields are left unchanged.
type TrackPatch struct {
	Title       *string
	Artist      *string
	Album       *string
	Genre       *string
	Year        *int
	TrackNumber *int
	Duration    *float64
	FileFormat  *string
	FileSize    *int64
	FilePath    *string
	AlbumArtURL *string
	IsFavorite  *bool
	PlayCount   *int
	LastPlayed  *time.Time
}

// PlaylistPatch is a partial playlist update; nil fields are left
// unchanged.
type PlaylistPatch struct {
	Name          *string
	Description   *string
	TrackIDs      *[]string
	IsSmart       *bool
	SmartCriteria *rules.RuleSet
}

// Store is the full persistence surface.
type Store interface {
	ListTracks(ctx context.Context, opts ListOptions) ([]models.Track, error)
	GetTrack(ctx context.Context, id string) (models.Track, error)
	CreateTrack(ctx context.Context, track models.Track) (models.Track, error)
	UpdateTrack(ctx context.Context, id string, patch TrackPatch) (models.Track, error)
	DeleteTrack(ctx context.Context, id string) error
	FilterTracks(ctx context.Context, filter TrackFilter) ([]models.Track, error)

	ListPlaylists(ctx context.Context, opts ListOptions) ([]models.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (models.Playlist, error)
	CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	UpdatePlaylist(ctx context.Context, id string, patch PlaylistPatch) (models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	SmartPlaylists(ctx context.Context) ([]models.Playlist, error)

	CreatePlayHistory(ctx context.Context, entry models.PlayHistoryEntry) (models.PlayHistoryEntry, error)
	ListPlayHistory(ctx context.Context, opts ListOptions) ([]models.PlayHistoryEntry, error)
}
