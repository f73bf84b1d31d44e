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
	"strings"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
)

// durationToleranceSeconds: two copies of the same song rarely differ
// by more than a few seconds of silence padding.
const durationToleranceSeconds = 3.0

// DuplicateGroup is a set of tracks that look like copies of one
// recording.
type DuplicateGroup struct {
	Tracks []models.Track `json:"tracks"`
}

// FindDuplicates scans the library for likely duplicate recordings.
// Candidates are grouped by normalized artist and title (case and
// punctuation stripped), then confirmed by duration within a small
// tolerance, so a studio track and its much longer live version stay
// apart.
func (s *Service) FindDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	tracks, err := s.store.ListTracks(ctx, store.ListOptions{Sort: "created_date"})
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}

	candidates := make(map[string][]models.Track)
	keys := make([]string, 0)
	for _, track := range tracks {
		key := normalizeKey(track.Artist) + "-" + normalizeKey(track.Title)
		if _, seen := candidates[key]; !seen {
			keys = append(keys, key)
		}
		candidates[key] = append(candidates[key], track)
	}
	sort.Strings(keys)

	groups := make([]DuplicateGroup, 0)
	for _, key := range keys {
		group := candidates[key]
		if len(group) < 2 {
			continue
		}

		confirmed := make(map[string]bool, len(group))
		for i := range group {
			if confirmed[group[i].ID] {
				continue
			}
			set := []models.Track{group[i]}
			for j := i + 1; j < len(group); j++ {
				if confirmed[group[j].ID] {
					continue
				}
				if math.Abs(group[i].Duration-group[j].Duration) <= durationToleranceSeconds {
					set = append(set, group[j])
					confirmed[group[j].ID] = true
				}
			}
			if len(set) > 1 {
				confirmed[group[i].ID] = true
				groups = append(groups, DuplicateGroup{Tracks: set})
			}
		}
	}
	return groups, nil
}

// normalizeKey lowercases and strips everything but letters and
// digits, so "Kid A" and "kid-a" collide.
func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
