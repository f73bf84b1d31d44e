/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package smartlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/rules"
	"github.com/plaidsound/tonearm/internal/store"
)

// flakyStore wraps the in-memory store with injectable failures.
type flakyStore struct {
	store.Store
	failListTracks bool
	failUpdateOf   string
}

func (f *flakyStore) ListTracks(ctx context.Context, opts store.ListOptions) ([]models.Track, error) {
	if f.failListTracks {
		return nil, errors.New("disk error")
	}
	return f.Store.ListTracks(ctx, opts)
}

func (f *flakyStore) UpdatePlaylist(ctx context.Context, id string, patch store.PlaylistPatch) (models.Playlist, error) {
	if f.failUpdateOf == id {
		return models.Playlist{}, errors.New("write error")
	}
	return f.Store.UpdatePlaylist(ctx, id, patch)
}

func seedTracks(t *testing.T, st store.Store) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracks := []models.Track{
		{ID: "t1", Title: "One", Artist: "Alpha", Genre: "rock", PlayCount: 5, CreatedAt: base},
		{ID: "t2", Title: "Two", Artist: "Beta", Genre: "jazz", PlayCount: 0, CreatedAt: base.Add(time.Minute)},
		{ID: "t3", Title: "Three", Artist: "Alpha", Genre: "rock", PlayCount: 9, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, track := range tracks {
		if _, err := st.CreateTrack(context.Background(), track); err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}
	}
}

func rockCriteria() *rules.RuleSet {
	return &rules.RuleSet{MatchAll: true, Rules: []rules.Rule{
		{Field: rules.FieldGenre, Operator: rules.OpIs, Value: rules.TextValue("rock")},
	}}
}

func TestRefreshMaterializesInLibraryOrder(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedTracks(t, st)

	playlist, err := st.CreatePlaylist(ctx, models.Playlist{
		ID: "p1", Name: "Rock", IsSmart: true, SmartCriteria: rockCriteria(),
	})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	m := NewMaterializer(st, nil, zerolog.Nop())
	summary, err := m.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if summary.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", summary.UpdatedCount)
	}

	got, err := st.GetPlaylist(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("GetPlaylist: %v", err)
	}
	want := []string{"t1", "t3"}
	if len(got.TrackIDs) != len(want) {
		t.Fatalf("TrackIDs = %v, want %v", got.TrackIDs, want)
	}
	for i := range want {
		if got.TrackIDs[i] != want[i] {
			t.Fatalf("TrackIDs = %v, want %v", got.TrackIDs, want)
		}
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedTracks(t, st)
	if _, err := st.CreatePlaylist(ctx, models.Playlist{
		ID: "p1", Name: "Rock", IsSmart: true, SmartCriteria: rockCriteria(),
	}); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	m := NewMaterializer(st, nil, zerolog.Nop())
	if _, err := m.Refresh(ctx); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}

	before, _ := st.GetPlaylist(ctx, "p1")
	summary, err := m.Refresh(ctx)
	if err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if summary.UpdatedCount != 0 {
		t.Errorf("second pass UpdatedCount = %d, want 0", summary.UpdatedCount)
	}
	after, _ := st.GetPlaylist(ctx, "p1")
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("unchanged playlist should keep its timestamp")
	}
}

func TestRefreshEmptyCriteriaClearsStaleMembers(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedTracks(t, st)
	if _, err := st.CreatePlaylist(ctx, models.Playlist{
		ID: "p1", Name: "Fresh", IsSmart: true,
		SmartCriteria: &rules.RuleSet{MatchAll: true},
		TrackIDs:      []string{"t1", "t2"},
	}); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	m := NewMaterializer(st, nil, zerolog.Nop())
	summary, err := m.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if summary.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", summary.UpdatedCount)
	}
	got, _ := st.GetPlaylist(ctx, "p1")
	if len(got.TrackIDs) != 0 {
		t.Errorf("empty criteria should clear membership, got %v", got.TrackIDs)
	}
}

func TestRefreshTrackFetchFailureAbortsPass(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedTracks(t, mem)
	if _, err := mem.CreatePlaylist(ctx, models.Playlist{
		ID: "p1", Name: "Rock", IsSmart: true, SmartCriteria: rockCriteria(),
		TrackIDs: []string{"t1", "t3"},
	}); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	st := &flakyStore{Store: mem, failListTracks: true}
	m := NewMaterializer(st, nil, zerolog.Nop())
	if _, err := m.Refresh(ctx); err == nil {
		t.Fatal("expected error when the track snapshot cannot be loaded")
	}

	got, _ := mem.GetPlaylist(ctx, "p1")
	if len(got.TrackIDs) != 2 {
		t.Errorf("failed pass must not touch playlists, got %v", got.TrackIDs)
	}
}

func TestRefreshSkipsFailingPlaylist(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedTracks(t, mem)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, p := range []models.Playlist{
		{ID: "broken", Name: "Broken", IsSmart: true, SmartCriteria: rockCriteria(), CreatedAt: base},
		{ID: "healthy", Name: "Healthy", IsSmart: true, SmartCriteria: rockCriteria(), CreatedAt: base.Add(time.Minute)},
	} {
		if _, err := mem.CreatePlaylist(ctx, p); err != nil {
			t.Fatalf("CreatePlaylist: %v", err)
		}
	}

	st := &flakyStore{Store: mem, failUpdateOf: "broken"}
	m := NewMaterializer(st, nil, zerolog.Nop())
	summary, err := m.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if summary.UpdatedCount != 1 {
		t.Errorf("UpdatedCount = %d, want 1 (broken playlist skipped)", summary.UpdatedCount)
	}

	healthy, _ := mem.GetPlaylist(ctx, "healthy")
	if len(healthy.TrackIDs) != 2 {
		t.Errorf("healthy playlist should still be materialized, got %v", healthy.TrackIDs)
	}
}

func TestRefreshIgnoresManualPlaylists(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedTracks(t, st)
	if _, err := st.CreatePlaylist(ctx, models.Playlist{
		ID: "manual", Name: "Mix", TrackIDs: []string{"t2"},
	}); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	m := NewMaterializer(st, nil, zerolog.Nop())
	summary, err := m.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if summary.UpdatedCount != 0 {
		t.Errorf("UpdatedCount = %d, want 0", summary.UpdatedCount)
	}
	got, _ := st.GetPlaylist(ctx, "manual")
	if len(got.TrackIDs) != 1 || got.TrackIDs[0] != "t2" {
		t.Errorf("manual playlist must be untouched, got %v", got.TrackIDs)
	}
}
