/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
)

const topTrackLimit = 10

// TrackPlays pairs a track with a play count for a given window.
type TrackPlays struct {
	Track     models.Track `json:"track"`
	PlayCount int          `json:"play_count"`
}

// Stats is the listening dashboard payload.
type Stats struct {
	TotalTracks           int     `json:"total_tracks"`
	TotalPlaylists        int     `json:"total_playlists"`
	TotalPlays            int     `json:"total_plays"`
	TotalListeningSeconds float64 `json:"total_listening_seconds"`
	TotalListeningTime    string  `json:"total_listening_time"`
	LibrarySizeBytes      int64   `json:"library_size_bytes"`
	LibrarySize           string  `json:"library_size"`
	FavoriteCount         int     `json:"favorite_count"`

	TopTracksAllTime []TrackPlays `json:"top_tracks_all_time"`
	TopTracksWeekly  []TrackPlays `json:"top_tracks_weekly"`
}

// Stats computes library and listening statistics. All-time ranking
// comes from the per-track play counter; the weekly ranking is rebuilt
// from history entries inside the window.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	tracks, err := s.store.ListTracks(ctx, store.ListOptions{})
	if err != nil {
		return Stats{}, fmt.Errorf("load tracks: %w", err)
	}
	playlists, err := s.store.ListPlaylists(ctx, store.ListOptions{})
	if err != nil {
		return Stats{}, fmt.Errorf("load playlists: %w", err)
	}
	history, err := s.store.ListPlayHistory(ctx, store.ListOptions{Sort: "-created_date"})
	if err != nil {
		return Stats{}, fmt.Errorf("load play history: %w", err)
	}

	stats := Stats{
		TotalTracks:    len(tracks),
		TotalPlaylists: len(playlists),
		TotalPlays:     len(history),
	}

	byID := make(map[string]models.Track, len(tracks))
	for _, track := range tracks {
		byID[track.ID] = track
		if track.FileSize != nil {
			stats.LibrarySizeBytes += *track.FileSize
		}
		if track.IsFavorite {
			stats.FavoriteCount++
		}
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	weekly := make(map[string]int)
	for _, entry := range history {
		stats.TotalListeningSeconds += entry.DurationPlayed
		if entry.CreatedAt.After(weekAgo) && !entry.WasSkipped {
			weekly[entry.TrackID]++
		}
	}

	stats.TopTracksAllTime = topByPlayCount(tracks)
	stats.TopTracksWeekly = topByWindow(weekly, byID)
	stats.TotalListeningTime = FormatDuration(stats.TotalListeningSeconds)
	stats.LibrarySize = FormatBytes(stats.LibrarySizeBytes)
	return stats, nil
}

func topByPlayCount(tracks []models.Track) []TrackPlays {
	ranked := make([]TrackPlays, 0, len(tracks))
	for _, track := range tracks {
		if track.PlayCount > 0 {
			ranked = append(ranked, TrackPlays{Track: track, PlayCount: track.PlayCount})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].PlayCount > ranked[j].PlayCount })
	if len(ranked) > topTrackLimit {
		ranked = ranked[:topTrackLimit]
	}
	return ranked
}

func topByWindow(counts map[string]int, byID map[string]models.Track) []TrackPlays {
	ranked := make([]TrackPlays, 0, len(counts))
	for trackID, count := range counts {
		track, ok := byID[trackID]
		if !ok {
			// History outlives deleted tracks.
			continue
		}
		ranked = append(ranked, TrackPlays{Track: track, PlayCount: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PlayCount == ranked[j].PlayCount {
			return ranked[i].Track.ID < ranked[j].Track.ID
		}
		return ranked[i].PlayCount > ranked[j].PlayCount
	})
	if len(ranked) > topTrackLimit {
		ranked = ranked[:topTrackLimit]
	}
	return ranked
}

// FormatBytes renders a byte count with binary units, two decimals.
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	formatted := strconvTrim(value)
	return formatted + " " + sizes[i]
}

// FormatDuration renders seconds as "2h 15m", "3m 12s", or "45s".
func FormatDuration(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// strconvTrim formats with two decimals, dropping trailing zeros the
// way the UI always displayed sizes ("1.5 MB", not "1.50 MB").
func strconvTrim(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
