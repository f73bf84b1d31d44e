/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
)

const (
	defaultSearchLimit    = 50
	defaultSearchMinScore = 0.1
	fuzzyFloor            = 0.6
)

// searchWeights ranks which fields matter most when a query matches
// several of them.
var searchWeights = map[string]float64{
	"title":  3,
	"artist": 2,
	"album":  2,
	"genre":  1,
}

// SearchOptions tunes a library search.
type SearchOptions struct {
	Query    string
	Fields   []string
	Limit    int
	MinScore float64
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Track models.Track `json:"track"`
	Score float64      `json:"score"`
}

// Search ranks the library against a free-text query. Exact, prefix,
// and substring matches score highest in that order; anything else
// falls through to a fuzzy edit-distance comparison so typos still
// find their track. Queries shorter than two characters return
// nothing.
func (s *Service) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	query := strings.ToLower(strings.TrimSpace(opts.Query))
	if len(query) < 2 {
		return []SearchResult{}, nil
	}
	fields := opts.Fields
	if len(fields) == 0 {
		fields = []string{"title", "artist", "album", "genre"}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = defaultSearchMinScore
	}

	tracks, err := s.store.ListTracks(ctx, store.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}

	results := make([]SearchResult, 0)
	for _, track := range tracks {
		score := searchScore(track, query, fields)
		if score >= minScore {
			results = append(results, SearchResult{Track: track, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Track.ID < results[j].Track.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func searchScore(track models.Track, query string, fields []string) float64 {
	var total, weightSum float64
	for _, field := range fields {
		value := searchField(track, field)
		if value == "" {
			continue
		}
		value = strings.ToLower(value)

		var fieldScore float64
		switch {
		case value == query:
			fieldScore = 1.0
		case strings.HasPrefix(value, query):
			fieldScore = 0.9
		case strings.Contains(value, query):
			fieldScore = 0.7
		default:
			if sim := similarity(value, query); sim > fuzzyFloor {
				fieldScore = sim * 0.5
			}
		}

		weight := searchWeights[field]
		if weight == 0 {
			weight = 1
		}
		total += fieldScore * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}

func searchField(track models.Track, field string) string {
	switch field {
	case "title":
		return track.Title
	case "artist":
		return track.Artist
	case "album":
		return track.Album
	case "genre":
		return track.Genre
	}
	return ""
}

// similarity maps edit distance onto [0,1], 1 meaning identical.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b string) int {
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(b); i++ {
		curr[0] = i
		for j := 1; j <= len(a); j++ {
			cost := 1
			if b[i-1] == a[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j-1]+cost, curr[j-1]+1, prev[j]+1)
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
