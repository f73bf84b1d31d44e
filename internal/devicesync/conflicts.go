/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package devicesync

import (
	"fmt"
	"time"

	"github.com/plaidsound/tonearm/internal/models"
)

// Strategy decides which side wins when the same track diverges
// between the library and a device.
type Strategy string

const (
	StrategyDesktopWins Strategy = "desktop_wins"
	StrategyDeviceWins  Strategy = "device_wins"
	StrategyMergeStats  Strategy = "merge_stats"
)

// Conflict pairs the two divergent copies of one track.
type Conflict struct {
	Desktop models.Track `json:"desktop"`
	Device  models.Track `json:"device"`
}

// ResolveConflicts compares library tracks against the copies reported
// by a device. Tracks are matched by title and artist; a pair conflicts
// when play count, favorite flag, or last-played time differ. The
// returned resolution holds the winning copy for each conflict,
// according to the strategy:
//
//   - desktop_wins: keep the library copy
//   - device_wins: keep the device copy
//   - merge_stats: max play count, favorite if either side is,
//     latest last-played time, everything else from the library copy
func ResolveConflicts(desktop, device []models.Track, strategy Strategy) ([]Conflict, []models.Track, error) {
	switch strategy {
	case StrategyDesktopWins, StrategyDeviceWins, StrategyMergeStats:
	default:
		return nil, nil, fmt.Errorf("unknown conflict strategy %q", strategy)
	}

	type key struct{ title, artist string }
	byKey := make(map[key]models.Track, len(device))
	for _, t := range device {
		byKey[key{t.Title, t.Artist}] = t
	}

	var conflicts []Conflict
	var resolution []models.Track
	for _, local := range desktop {
		remote, ok := byKey[key{local.Title, local.Artist}]
		if !ok {
			continue
		}
		if local.PlayCount == remote.PlayCount &&
			local.IsFavorite == remote.IsFavorite &&
			sameTime(local.LastPlayed, remote.LastPlayed) {
			continue
		}

		conflicts = append(conflicts, Conflict{Desktop: local, Device: remote})
		switch strategy {
		case StrategyDesktopWins:
			resolution = append(resolution, local)
		case StrategyDeviceWins:
			resolution = append(resolution, remote)
		case StrategyMergeStats:
			resolution = append(resolution, mergeStats(local, remote))
		}
	}
	return conflicts, resolution, nil
}

func mergeStats(local, remote models.Track) models.Track {
	merged := local
	if remote.PlayCount > merged.PlayCount {
		merged.PlayCount = remote.PlayCount
	}
	merged.IsFavorite = local.IsFavorite || remote.IsFavorite
	merged.LastPlayed = laterTime(local.LastPlayed, remote.LastPlayed)
	return merged
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func laterTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}
