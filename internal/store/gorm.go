/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plaidsound/tonearm/internal/models"
)

// Gorm is the database-backed Store.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an open gorm handle.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

var _ Store = (*Gorm)(nil)

// sortColumns whitelists sortable fields, mapping API names to columns.
var sortColumns = map[string]string{
	"created_date": "created_at",
	"title":        "title",
	"artist":       "artist",
	"album":        "album",
	"play_count":   "play_count",
	"last_played":  "last_played",
	"name":         "name",
}

func orderClause(sort, fallback string) string {
	desc := strings.HasPrefix(sort, "-")
	col, ok := sortColumns[strings.TrimPrefix(sort, "-")]
	if !ok {
		return fallback
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

func (g *Gorm) ListTracks(ctx context.Context, opts ListOptions) ([]models.Track, error) {
	var tracks []models.Track
	q := g.db.WithContext(ctx).Order(orderClause(opts.Sort, "created_at ASC"))
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

func (g *Gorm) GetTrack(ctx context.Context, id string) (models.Track, error) {
	var track models.Track
	err := g.db.WithContext(ctx).First(&track, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Track{}, ErrNotFound
	}
	if err != nil {
		return models.Track{}, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

func (g *Gorm) CreateTrack(ctx context.Context, track models.Track) (models.Track, error) {
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	if err := g.db.WithContext(ctx).Create(&track).Error; err != nil {
		return models.Track{}, fmt.Errorf("create track: %w", err)
	}
	return track, nil
}

func (g *Gorm) UpdateTrack(ctx context.Context, id string, patch TrackPatch) (models.Track, error) {
	updates := trackUpdates(patch)
	if len(updates) > 0 {
		res := g.db.WithContext(ctx).Model(&models.Track{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return models.Track{}, fmt.Errorf("update track: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.Track{}, ErrNotFound
		}
	}
	return g.GetTrack(ctx, id)
}

func (g *Gorm) DeleteTrack(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Delete(&models.Track{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete track: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) FilterTracks(ctx context.Context, filter TrackFilter) ([]models.Track, error) {
	q := g.db.WithContext(ctx).Order("created_at ASC")
	if filter.Artist != "" {
		q = q.Where("LOWER(artist) = LOWER(?)", filter.Artist)
	}
	if filter.Album != "" {
		q = q.Where("LOWER(album) = LOWER(?)", filter.Album)
	}
	if filter.Genre != "" {
		q = q.Where("LOWER(genre) = LOWER(?)", filter.Genre)
	}
	if filter.FileFormat != "" {
		q = q.Where("LOWER(file_format) = LOWER(?)", filter.FileFormat)
	}
	if filter.IsFavorite != nil {
		q = q.Where("is_favorite = ?", *filter.IsFavorite)
	}
	var tracks []models.Track
	if err := q.Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("filter tracks: %w", err)
	}
	return tracks, nil
}

func (g *Gorm) ListPlaylists(ctx context.Context, opts ListOptions) ([]models.Playlist, error) {
	var playlists []models.Playlist
	q := g.db.WithContext(ctx).Order(orderClause(opts.Sort, "created_at ASC"))
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return playlists, nil
}

func (g *Gorm) GetPlaylist(ctx context.Context, id string) (models.Playlist, error) {
	var playlist models.Playlist
	err := g.db.WithContext(ctx).First(&playlist, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Playlist{}, ErrNotFound
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("get playlist: %w", err)
	}
	return playlist, nil
}

func (g *Gorm) CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	if playlist.ID == "" {
		playlist.ID = uuid.NewString()
	}
	playlist.TrackIDs = dedupe(playlist.TrackIDs)
	if err := g.db.WithContext(ctx).Create(&playlist).Error; err != nil {
		return models.Playlist{}, fmt.Errorf("create playlist: %w", err)
	}
	return playlist, nil
}

func (g *Gorm) UpdatePlaylist(ctx context.Context, id string, patch PlaylistPatch) (models.Playlist, error) {
	// Serialized columns do not fit a map update, so run read-modify-write
	// in one transaction.
	var out models.Playlist
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var playlist models.Playlist
		err := tx.First(&playlist, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		applyPlaylistPatch(&playlist, patch)
		if err := tx.Save(&playlist).Error; err != nil {
			return err
		}
		out = playlist
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return models.Playlist{}, ErrNotFound
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	return out, nil
}

func (g *Gorm) DeletePlaylist(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Delete(&models.Playlist{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete playlist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) SmartPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := g.db.WithContext(ctx).Where("is_smart = ?", true).Order("created_at ASC").Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("list smart playlists: %w", err)
	}
	return playlists, nil
}

func (g *Gorm) CreatePlayHistory(ctx context.Context, entry models.PlayHistoryEntry) (models.PlayHistoryEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := g.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return models.PlayHistoryEntry{}, fmt.Errorf("create play history: %w", err)
	}
	return entry, nil
}

func (g *Gorm) ListPlayHistory(ctx context.Context, opts ListOptions) ([]models.PlayHistoryEntry, error) {
	order := "created_at ASC"
	if strings.HasPrefix(opts.Sort, "-") {
		order = "created_at DESC"
	}
	var entries []models.PlayHistoryEntry
	q := g.db.WithContext(ctx).Order(order)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list play history: %w", err)
	}
	return entries, nil
}

func trackUpdates(p TrackPatch) map[string]any {
	updates := make(map[string]any)
	if p.Title != nil {
		updates["title"] = *p.Title
	}
	if p.Artist != nil {
		updates["artist"] = *p.Artist
	}
	if p.Album != nil {
		updates["album"] = *p.Album
	}
	if p.Genre != nil {
		updates["genre"] = *p.Genre
	}
	if p.Year != nil {
		updates["year"] = *p.Year
	}
	if p.TrackNumber != nil {
		updates["track_number"] = *p.TrackNumber
	}
	if p.Duration != nil {
		updates["duration"] = *p.Duration
	}
	if p.FileFormat != nil {
		updates["file_format"] = *p.FileFormat
	}
	if p.FileSize != nil {
		updates["file_size"] = *p.FileSize
	}
	if p.FilePath != nil {
		updates["file_path"] = *p.FilePath
	}
	if p.AlbumArtURL != nil {
		updates["album_art_url"] = *p.AlbumArtURL
	}
	if p.IsFavorite != nil {
		updates["is_favorite"] = *p.IsFavorite
	}
	if p.PlayCount != nil {
		updates["play_count"] = *p.PlayCount
	}
	if p.LastPlayed != nil {
		updates["last_played"] = *p.LastPlayed
	}
	return updates
}
