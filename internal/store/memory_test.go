/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/rules"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	lastWeek := base.Add(-7 * 24 * time.Hour)
	tracks := []models.Track{
		{ID: "t1", Title: "Alpha", Artist: "Zed", Genre: "rock", FileFormat: "flac", PlayCount: 3, CreatedAt: base},
		{ID: "t2", Title: "bravo", Artist: "Ann", Genre: "jazz", FileFormat: "mp3", PlayCount: 9, LastPlayed: &lastWeek, CreatedAt: base.Add(time.Minute)},
		{ID: "t3", Title: "Charlie", Artist: "Zed", Genre: "rock", FileFormat: "flac", IsFavorite: true, PlayCount: 1, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, track := range tracks {
		if _, err := m.CreateTrack(context.Background(), track); err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}
	}
	return m
}

func trackIDs(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func assertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
}

func TestListTracksSorting(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"default is creation order", ListOptions{}, []string{"t1", "t2", "t3"}},
		{"title is case-insensitive", ListOptions{Sort: "title"}, []string{"t1", "t2", "t3"}},
		{"descending title", ListOptions{Sort: "-title"}, []string{"t3", "t2", "t1"}},
		{"play count ascending", ListOptions{Sort: "play_count"}, []string{"t3", "t1", "t2"}},
		{"play count descending", ListOptions{Sort: "-play_count"}, []string{"t2", "t1", "t3"}},
		{"never played sorts first on last_played", ListOptions{Sort: "last_played"}, []string{"t1", "t3", "t2"}},
		{"limit truncates", ListOptions{Sort: "-play_count", Limit: 2}, []string{"t2", "t1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.ListTracks(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListTracks: %v", err)
			}
			assertIDs(t, trackIDs(got), tt.want)
		})
	}
}

func TestTrackCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.CreateTrack(ctx, models.Track{Title: "Untitled"})
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreateTrack should assign an id")
	}
	if created.CreatedAt.IsZero() || !created.UpdatedAt.Equal(created.CreatedAt) {
		t.Error("timestamps should be stamped on create")
	}

	title := "Named"
	favorite := true
	updated, err := m.UpdateTrack(ctx, created.ID, TrackPatch{Title: &title, IsFavorite: &favorite})
	if err != nil {
		t.Fatalf("UpdateTrack: %v", err)
	}
	if updated.Title != "Named" || !updated.IsFavorite {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Artist != created.Artist {
		t.Error("unpatched fields must be preserved")
	}

	if _, err := m.UpdateTrack(ctx, "missing", TrackPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTrack on missing id = %v, want ErrNotFound", err)
	}
	if _, err := m.GetTrack(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTrack on missing id = %v, want ErrNotFound", err)
	}

	if err := m.DeleteTrack(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTrack: %v", err)
	}
	if err := m.DeleteTrack(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestFilterTracks(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	byArtist, err := m.FilterTracks(ctx, TrackFilter{Artist: "zed"})
	if err != nil {
		t.Fatalf("FilterTracks: %v", err)
	}
	assertIDs(t, trackIDs(byArtist), []string{"t1", "t3"})

	favorite := true
	byFavorite, err := m.FilterTracks(ctx, TrackFilter{IsFavorite: &favorite})
	if err != nil {
		t.Fatalf("FilterTracks: %v", err)
	}
	assertIDs(t, trackIDs(byFavorite), []string{"t3"})

	combined, err := m.FilterTracks(ctx, TrackFilter{Genre: "ROCK", FileFormat: "flac", IsFavorite: &favorite})
	if err != nil {
		t.Fatalf("FilterTracks: %v", err)
	}
	assertIDs(t, trackIDs(combined), []string{"t3"})
}

func TestPlaylistCRUDAndDedupe(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	created, err := m.CreatePlaylist(ctx, models.Playlist{
		Name:     "Mix",
		TrackIDs: []string{"t1", "t2", "t1", "t3", "t2"},
	})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	assertIDs(t, created.TrackIDs, []string{"t1", "t2", "t3"})

	ids := []string{"t3", "t3", "t1"}
	updated, err := m.UpdatePlaylist(ctx, created.ID, PlaylistPatch{TrackIDs: &ids})
	if err != nil {
		t.Fatalf("UpdatePlaylist: %v", err)
	}
	assertIDs(t, updated.TrackIDs, []string{"t3", "t1"})

	smart := true
	criteria := &rules.RuleSet{MatchAll: true, Rules: []rules.Rule{
		{Field: rules.FieldGenre, Operator: rules.OpIs, Value: rules.TextValue("rock")},
	}}
	updated, err = m.UpdatePlaylist(ctx, created.ID, PlaylistPatch{IsSmart: &smart, SmartCriteria: criteria})
	if err != nil {
		t.Fatalf("UpdatePlaylist: %v", err)
	}
	if !updated.IsSmart || updated.SmartCriteria == nil {
		t.Errorf("smart fields not applied: %+v", updated)
	}

	if err := m.DeletePlaylist(ctx, created.ID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if _, err := m.GetPlaylist(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPlaylist after delete = %v, want ErrNotFound", err)
	}
}

func TestSmartPlaylistsSelection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	for _, p := range []models.Playlist{
		{ID: "manual", Name: "Mix", CreatedAt: base},
		{ID: "smart1", Name: "Rock", IsSmart: true, CreatedAt: base.Add(time.Minute)},
		{ID: "smart2", Name: "Fresh", IsSmart: true, CreatedAt: base.Add(2 * time.Minute)},
	} {
		if _, err := m.CreatePlaylist(ctx, p); err != nil {
			t.Fatalf("CreatePlaylist: %v", err)
		}
	}

	smart, err := m.SmartPlaylists(ctx)
	if err != nil {
		t.Fatalf("SmartPlaylists: %v", err)
	}
	if len(smart) != 2 || smart[0].ID != "smart1" || smart[1].ID != "smart2" {
		t.Errorf("unexpected smart playlists: %+v", smart)
	}
}

func TestPlayHistoryOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i, id := range []string{"h1", "h2", "h3"} {
		entry := models.PlayHistoryEntry{
			ID:             id,
			TrackID:        "t1",
			DurationPlayed: float64(10 * (i + 1)),
			CreatedAt:      time.Date(2026, 1, 10, 9, i, 0, 0, time.UTC),
		}
		if _, err := m.CreatePlayHistory(ctx, entry); err != nil {
			t.Fatalf("CreatePlayHistory: %v", err)
		}
	}

	newestFirst, err := m.ListPlayHistory(ctx, ListOptions{Sort: "-created_date", Limit: 2})
	if err != nil {
		t.Fatalf("ListPlayHistory: %v", err)
	}
	if len(newestFirst) != 2 || newestFirst[0].ID != "h3" || newestFirst[1].ID != "h2" {
		t.Errorf("unexpected history order: %+v", newestFirst)
	}

	oldest, err := m.ListPlayHistory(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("ListPlayHistory: %v", err)
	}
	if len(oldest) != 3 || oldest[0].ID != "h1" {
		t.Errorf("default order should be oldest first: %+v", oldest)
	}
}
