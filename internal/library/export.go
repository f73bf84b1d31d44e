/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
)

// librarySnapshot is the JSON export envelope.
type librarySnapshot struct {
	ExportedAt time.Time         `json:"exported_at"`
	Tracks     []models.Track    `json:"tracks"`
	Playlists  []models.Playlist `json:"playlists"`
}

// ExportJSON writes the whole library as one JSON document.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer) error {
	tracks, err := s.store.ListTracks(ctx, store.ListOptions{Sort: "created_date"})
	if err != nil {
		return fmt.Errorf("load tracks: %w", err)
	}
	playlists, err := s.store.ListPlaylists(ctx, store.ListOptions{})
	if err != nil {
		return fmt.Errorf("load playlists: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(librarySnapshot{
		ExportedAt: time.Now().UTC(),
		Tracks:     tracks,
		Playlists:  playlists,
	})
}

// ExportM3U writes one playlist in extended M3U format, the lingua
// franca of portable players.
func (s *Service) ExportM3U(ctx context.Context, w io.Writer, playlistID string) error {
	playlist, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	tracks, err := s.PlaylistTracks(ctx, playlist.ID)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "#EXTM3U\n#PLAYLIST:%s\n", playlist.Name); err != nil {
		return err
	}
	for _, track := range tracks {
		if _, err := fmt.Fprintf(w, "#EXTINF:%d,%s - %s\n%s\n",
			int(track.Duration), track.Artist, track.Title, track.FilePath); err != nil {
			return err
		}
	}
	return nil
}
