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

const (
	defaultRecommendLimit = 20
	recommendHistoryDepth = 1000

	// similarityFloor and preferenceFloor cut off tracks that only
	// barely resemble the seed or the listener's taste.
	similarityFloor = 0.2
	preferenceFloor = 0.1
)

// RecommendOptions tunes a recommendation query. With BasedOnTrackID
// set, results are tracks similar to that seed; otherwise they are
// ranked against the listener's play history.
type RecommendOptions struct {
	BasedOnTrackID string
	Limit          int
	IncludePlayed  bool
}

// Recommendation is one suggested track with its ranking score.
type Recommendation struct {
	Track models.Track `json:"track"`
	Score float64      `json:"score"`
}

// Recommendations suggests tracks to listen to next.
func (s *Service) Recommendations(ctx context.Context, opts RecommendOptions) ([]Recommendation, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultRecommendLimit
	}

	tracks, err := s.store.ListTracks(ctx, store.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}

	var out []Recommendation
	if opts.BasedOnTrackID != "" {
		seed, err := s.store.GetTrack(ctx, opts.BasedOnTrackID)
		if err != nil {
			return nil, err
		}
		out = make([]Recommendation, 0)
		for _, track := range tracks {
			if track.ID == seed.ID {
				continue
			}
			if score := trackSimilarity(seed, track); score > similarityFloor {
				out = append(out, Recommendation{Track: track, Score: score})
			}
		}
	} else {
		history, err := s.store.ListPlayHistory(ctx, store.ListOptions{Sort: "-created_date", Limit: recommendHistoryDepth})
		if err != nil {
			return nil, fmt.Errorf("load play history: %w", err)
		}
		prefs := analyzePreferences(history, tracks)
		played := make(map[string]bool, len(history))
		for _, entry := range history {
			played[entry.TrackID] = true
		}

		out = make([]Recommendation, 0)
		for _, track := range tracks {
			if !opts.IncludePlayed && played[track.ID] {
				continue
			}
			if score := prefs.score(track); score > preferenceFloor {
				out = append(out, Recommendation{Track: track, Score: score})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Track.ID < out[j].Track.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// trackSimilarity scores how alike two tracks are: same artist counts
// most, then genre, then release years within five of each other, then
// running time within half a minute. The score is normalized by the
// weights of the factors both tracks actually carry.
func trackSimilarity(a, b models.Track) float64 {
	var score, factors float64

	if a.Artist != "" && b.Artist != "" {
		if strings.EqualFold(a.Artist, b.Artist) {
			score += 0.4
		}
		factors += 0.4
	}
	if a.Genre != "" && b.Genre != "" {
		if strings.EqualFold(a.Genre, b.Genre) {
			score += 0.3
		}
		factors += 0.3
	}
	if a.Year != nil && b.Year != nil {
		diff := math.Abs(float64(*a.Year - *b.Year))
		if diff <= 5 {
			score += 0.2 * (1 - diff/10)
		}
		factors += 0.2
	}
	if a.Duration > 0 && b.Duration > 0 {
		diff := math.Abs(a.Duration - b.Duration)
		if diff <= 30 {
			score += 0.1 * (1 - diff/60)
		}
		factors += 0.1
	}

	if factors == 0 {
		return 0
	}
	return score / factors
}

// preferences is the listener's taste profile distilled from history.
type preferences struct {
	genres      map[string]int
	artists     map[string]int
	years       map[int]int
	avgDuration float64
}

func analyzePreferences(history []models.PlayHistoryEntry, tracks []models.Track) preferences {
	byID := make(map[string]models.Track, len(tracks))
	for _, track := range tracks {
		byID[track.ID] = track
	}

	p := preferences{
		genres:  make(map[string]int),
		artists: make(map[string]int),
		years:   make(map[int]int),
	}
	var totalDuration float64
	var count int
	for _, entry := range history {
		track, ok := byID[entry.TrackID]
		if !ok {
			continue
		}
		count++
		if track.Genre != "" {
			p.genres[track.Genre]++
		}
		if track.Artist != "" {
			p.artists[track.Artist]++
		}
		if track.Year != nil {
			p.years[*track.Year]++
		}
		totalDuration += track.Duration
	}
	if count > 0 {
		p.avgDuration = totalDuration / float64(count)
	}
	return p
}

func (p preferences) score(track models.Track) float64 {
	var score, factors float64

	if track.Genre != "" && p.genres[track.Genre] > 0 {
		score += 0.4 * float64(p.genres[track.Genre]) / float64(maxCount(p.genres))
		factors += 0.4
	}
	if track.Artist != "" && p.artists[track.Artist] > 0 {
		score += 0.3 * float64(p.artists[track.Artist]) / float64(maxCount(p.artists))
		factors += 0.3
	}
	if track.Year != nil && len(p.years) > 0 {
		if most := maxCount(p.years); most > 0 {
			score += 0.2 * float64(p.years[*track.Year]) / float64(most)
		}
		factors += 0.2
	}
	if track.Duration > 0 && p.avgDuration > 0 {
		diff := math.Abs(track.Duration - p.avgDuration)
		score += 0.1 * math.Max(0, 1-diff/p.avgDuration)
		factors += 0.1
	}

	if factors == 0 {
		return 0
	}
	return score / factors
}

func maxCount[K comparable](m map[K]int) int {
	most := 0
	for _, n := range m {
		if n > most {
			most = n
		}
	}
	return most
}
