/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/rules"
	"github.com/plaidsound/tonearm/internal/store"
)

// Manifest is the YAML bulk-import format: a library snapshot produced
// by a scanner or exported from another install.
type Manifest struct {
	Tracks    []ManifestTrack    `yaml:"tracks"`
	Playlists []ManifestPlaylist `yaml:"playlists"`
}

// ManifestTrack is one track entry in an import manifest.
type ManifestTrack struct {
	Title       string  `yaml:"title"`
	Artist      string  `yaml:"artist"`
	Album       string  `yaml:"album"`
	Genre       string  `yaml:"genre"`
	Year        *int    `yaml:"year"`
	TrackNumber *int    `yaml:"track_number"`
	Duration    float64 `yaml:"duration"`
	FileFormat  string  `yaml:"file_format"`
	FileSize    *int64  `yaml:"file_size"`
	FilePath    string  `yaml:"file_path"`
	AlbumArtURL string  `yaml:"album_art_url"`
	IsFavorite  bool    `yaml:"is_favorite"`
}

// ManifestPlaylist is one playlist entry. Manual playlists reference
// tracks by file path, which survives round-trips between installs
// better than ids do.
type ManifestPlaylist struct {
	Name          string        `yaml:"name"`
	Description   string        `yaml:"description"`
	TrackPaths    []string      `yaml:"track_paths"`
	IsSmart       bool          `yaml:"is_smart"`
	SmartCriteria *criteriaYAML `yaml:"smart_criteria"`
}

type criteriaYAML struct {
	MatchAll bool       `yaml:"match_all"`
	Rules    []ruleYAML `yaml:"rules"`
}

type ruleYAML struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
}

// ImportSummary reports what a manifest import did.
type ImportSummary struct {
	TracksCreated    int `json:"tracks_created"`
	TracksSkipped    int `json:"tracks_skipped"`
	PlaylistsCreated int `json:"playlists_created"`
}

// ParseManifest decodes manifest YAML.
func ParseManifest(data []byte) (Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return manifest, nil
}

// ImportManifest loads a manifest into the library. Tracks already
// present (same file path) are skipped, so re-importing a manifest is
// idempotent.
func (s *Service) ImportManifest(ctx context.Context, manifest Manifest) (ImportSummary, error) {
	existing, err := s.store.ListTracks(ctx, store.ListOptions{})
	if err != nil {
		return ImportSummary{}, fmt.Errorf("load existing tracks: %w", err)
	}
	byPath := make(map[string]string, len(existing))
	for _, track := range existing {
		byPath[track.FilePath] = track.ID
	}

	var summary ImportSummary
	for _, entry := range manifest.Tracks {
		if entry.FilePath != "" {
			if _, ok := byPath[entry.FilePath]; ok {
				summary.TracksSkipped++
				continue
			}
		}
		created, err := s.CreateTrack(ctx, models.Track{
			Title:       entry.Title,
			Artist:      entry.Artist,
			Album:       entry.Album,
			Genre:       entry.Genre,
			Year:        entry.Year,
			TrackNumber: entry.TrackNumber,
			Duration:    entry.Duration,
			FileFormat:  entry.FileFormat,
			FileSize:    entry.FileSize,
			FilePath:    entry.FilePath,
			AlbumArtURL: entry.AlbumArtURL,
			IsFavorite:  entry.IsFavorite,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("title", entry.Title).Msg("skipping invalid manifest track")
			summary.TracksSkipped++
			continue
		}
		byPath[created.FilePath] = created.ID
		summary.TracksCreated++
	}

	for _, entry := range manifest.Playlists {
		playlist := models.Playlist{
			Name:        entry.Name,
			Description: entry.Description,
			IsSmart:     entry.IsSmart,
		}
		if entry.IsSmart {
			criteria, err := convertCriteria(entry.SmartCriteria)
			if err != nil {
				s.logger.Warn().Err(err).Str("name", entry.Name).Msg("skipping invalid manifest playlist")
				continue
			}
			playlist.SmartCriteria = criteria
		} else {
			for _, path := range entry.TrackPaths {
				if id, ok := byPath[path]; ok {
					playlist.TrackIDs = append(playlist.TrackIDs, id)
				}
			}
		}
		if _, err := s.CreatePlaylist(ctx, playlist); err != nil {
			s.logger.Warn().Err(err).Str("name", entry.Name).Msg("skipping invalid manifest playlist")
			continue
		}
		summary.PlaylistsCreated++
	}

	return summary, nil
}

func convertCriteria(in *criteriaYAML) (*rules.RuleSet, error) {
	if in == nil {
		return nil, fmt.Errorf("smart playlist without criteria")
	}
	out := &rules.RuleSet{MatchAll: in.MatchAll}
	for _, r := range in.Rules {
		value, err := convertValue(r.Value)
		if err != nil {
			return nil, err
		}
		out.Rules = append(out.Rules, rules.Rule{
			Field:    rules.Field(r.Field),
			Operator: rules.Operator(r.Operator),
			Value:    value,
		})
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func convertValue(raw any) (rules.Value, error) {
	switch v := raw.(type) {
	case string:
		return rules.TextValue(v), nil
	case int:
		return rules.NumberValue(float64(v)), nil
	case float64:
		return rules.NumberValue(v), nil
	case bool:
		return rules.BoolValue(v), nil
	case nil:
		return rules.TextValue(""), nil
	default:
		return rules.Value{}, fmt.Errorf("rule value must be a scalar, got %T", raw)
	}
}
