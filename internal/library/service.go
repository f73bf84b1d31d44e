/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library is the application service over tracks and
// playlists: validation, change events, import/export, statistics.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/plaidsound/tonearm/internal/events"
	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
)

// ErrValidation marks user-correctable input problems.
var ErrValidation = errors.New("validation failed")

// Service wraps the store with validation and change notification.
type Service struct {
	store  store.Store
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a library service. bus may be nil.
func NewService(st store.Store, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{store: st, bus: bus, logger: logger.With().Str("component", "library").Logger()}
}

// Store exposes the underlying store for read paths that need no
// service logic (stats, export).
func (s *Service) Store() store.Store { return s.store }

// ListTracks lists tracks with optional sort and limit.
func (s *Service) ListTracks(ctx context.Context, opts store.ListOptions) ([]models.Track, error) {
	return s.store.ListTracks(ctx, opts)
}

// GetTrack fetches one track.
func (s *Service) GetTrack(ctx context.Context, id string) (models.Track, error) {
	return s.store.GetTrack(ctx, id)
}

// CreateTrack validates and stores a new track.
func (s *Service) CreateTrack(ctx context.Context, track models.Track) (models.Track, error) {
	if err := validateTrack(track); err != nil {
		return models.Track{}, err
	}
	track.FileFormat = strings.ToLower(track.FileFormat)

	created, err := s.store.CreateTrack(ctx, track)
	if err != nil {
		return models.Track{}, err
	}
	s.publish(events.EventTrackCreated, events.Payload{"track_id": created.ID})
	return created, nil
}

// UpdateTrack applies a partial update.
func (s *Service) UpdateTrack(ctx context.Context, id string, patch store.TrackPatch) (models.Track, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return models.Track{}, fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if patch.FileFormat != nil {
		lowered := strings.ToLower(*patch.FileFormat)
		patch.FileFormat = &lowered
	}

	updated, err := s.store.UpdateTrack(ctx, id, patch)
	if err != nil {
		return models.Track{}, err
	}
	s.publish(events.EventTrackUpdated, events.Payload{"track_id": id})
	return updated, nil
}

// DeleteTrack removes a track and scrubs it from manual playlists.
// Smart playlists clean themselves up on the next maintenance pass.
func (s *Service) DeleteTrack(ctx context.Context, id string) error {
	if err := s.store.DeleteTrack(ctx, id); err != nil {
		return err
	}

	playlists, err := s.store.ListPlaylists(ctx, store.ListOptions{})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to scrub deleted track from playlists")
	} else {
		for _, playlist := range playlists {
			if playlist.IsSmart {
				continue
			}
			remaining := removeID(playlist.TrackIDs, id)
			if len(remaining) == len(playlist.TrackIDs) {
				continue
			}
			if _, err := s.store.UpdatePlaylist(ctx, playlist.ID, store.PlaylistPatch{TrackIDs: &remaining}); err != nil {
				s.logger.Error().Err(err).Str("playlist_id", playlist.ID).Msg("failed to scrub playlist")
			}
		}
	}

	s.publish(events.EventTrackDeleted, events.Payload{"track_id": id})
	return nil
}

// FilterTracks selects tracks by attribute.
func (s *Service) FilterTracks(ctx context.Context, filter store.TrackFilter) ([]models.Track, error) {
	return s.store.FilterTracks(ctx, filter)
}

// ListPlaylists lists playlists.
func (s *Service) ListPlaylists(ctx context.Context, opts store.ListOptions) ([]models.Playlist, error) {
	return s.store.ListPlaylists(ctx, opts)
}

// GetPlaylist fetches one playlist.
func (s *Service) GetPlaylist(ctx context.Context, id string) (models.Playlist, error) {
	return s.store.GetPlaylist(ctx, id)
}

// CreatePlaylist validates and stores a playlist. Smart playlists get
// their membership filled in by the next maintenance pass, so criteria
// are validated here rather than silently matching nothing.
func (s *Service) CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	if err := validatePlaylist(playlist); err != nil {
		return models.Playlist{}, err
	}
	if playlist.IsSmart {
		// Membership is derived; whatever the caller sent is stale.
		playlist.TrackIDs = nil
	}

	created, err := s.store.CreatePlaylist(ctx, playlist)
	if err != nil {
		return models.Playlist{}, err
	}
	s.publish(events.EventPlaylistSaved, events.Payload{"playlist_id": created.ID})
	return created, nil
}

// UpdatePlaylist applies a partial update. Manual membership edits on
// a smart playlist are rejected; the rule engine owns that list.
func (s *Service) UpdatePlaylist(ctx context.Context, id string, patch store.PlaylistPatch) (models.Playlist, error) {
	current, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return models.Playlist{}, err
	}

	smartAfter := current.IsSmart
	if patch.IsSmart != nil {
		smartAfter = *patch.IsSmart
	}
	if smartAfter && patch.TrackIDs != nil {
		return models.Playlist{}, fmt.Errorf("%w: smart playlist membership is derived from its criteria", ErrValidation)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist name cannot be empty", ErrValidation)
	}
	if patch.SmartCriteria != nil {
		if err := patch.SmartCriteria.Validate(); err != nil {
			return models.Playlist{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	updated, err := s.store.UpdatePlaylist(ctx, id, patch)
	if err != nil {
		return models.Playlist{}, err
	}
	s.publish(events.EventPlaylistSaved, events.Payload{"playlist_id": id})
	return updated, nil
}

// DeletePlaylist removes a playlist.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	if err := s.store.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	s.publish(events.EventPlaylistSaved, events.Payload{"playlist_id": id, "deleted": true})
	return nil
}

// PlaylistTracks resolves a playlist's membership to track records,
// preserving playlist order and dropping ids whose tracks are gone.
func (s *Service) PlaylistTracks(ctx context.Context, id string) ([]models.Track, error) {
	playlist, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(playlist.TrackIDs))
	for _, trackID := range playlist.TrackIDs {
		track, err := s.store.GetTrack(ctx, trackID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func validateTrack(track models.Track) error {
	if strings.TrimSpace(track.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if track.Duration < 0 {
		return fmt.Errorf("%w: duration cannot be negative", ErrValidation)
	}
	return nil
}

func validatePlaylist(playlist models.Playlist) error {
	if strings.TrimSpace(playlist.Name) == "" {
		return fmt.Errorf("%w: playlist name is required", ErrValidation)
	}
	if playlist.IsSmart {
		if playlist.SmartCriteria == nil {
			return fmt.Errorf("%w: smart playlist requires criteria", ErrValidation)
		}
		if err := playlist.SmartCriteria.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func (s *Service) publish(eventType events.EventType, payload events.Payload) {
	if s.bus != nil {
		s.bus.Publish(eventType, payload)
	}
}
