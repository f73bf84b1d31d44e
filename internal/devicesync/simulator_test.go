/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package devicesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
)

func newSimFixture(t *testing.T, trackCount int) (*Simulator, []string) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	size := int64(4 * 1024 * 1024)
	ids := make([]string, 0, trackCount)
	for i := 0; i < trackCount; i++ {
		track, err := st.CreateTrack(ctx, models.Track{
			Title:    "Track",
			FileSize: &size,
		})
		if err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}
		ids = append(ids, track.ID)
	}
	return NewSimulator(st, nil, zerolog.Nop()), ids
}

func connectedDevice(t *testing.T, s *Simulator) Device {
	t.Helper()
	for _, d := range s.Devices() {
		if d.IsConnected {
			return d
		}
	}
	t.Fatal("no connected demo device")
	return Device{}
}

func disconnectedDevice(t *testing.T, s *Simulator) Device {
	t.Helper()
	for _, d := range s.Devices() {
		if !d.IsConnected {
			return d
		}
	}
	t.Fatal("no disconnected demo device")
	return Device{}
}

func waitForIdle(t *testing.T, s *Simulator) Progress {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p := s.Progress(); !p.Active {
			return p
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sync did not finish in time")
	return Progress{}
}

func TestStartSyncCompletes(t *testing.T) {
	s, ids := newSimFixture(t, 3)
	device := connectedDevice(t, s)

	if err := s.StartSync(context.Background(), device.ID, ids); err != nil {
		t.Fatalf("StartSync: %v", err)
	}
	final := waitForIdle(t, s)

	if final.Completed != 3 || final.Total != 3 {
		t.Errorf("progress = %d/%d, want 3/3", final.Completed, final.Total)
	}

	for _, d := range s.Devices() {
		if d.ID != device.ID {
			continue
		}
		if len(d.SyncedTrackIDs) != 3 {
			t.Errorf("synced %d tracks, want 3", len(d.SyncedTrackIDs))
		}
		if d.StorageUsed <= device.StorageUsed {
			t.Error("transfer should consume device storage")
		}
	}
}

func TestStartSyncRejectsConcurrent(t *testing.T) {
	s, ids := newSimFixture(t, 5)
	device := connectedDevice(t, s)

	if err := s.StartSync(context.Background(), device.ID, ids); err != nil {
		t.Fatalf("StartSync: %v", err)
	}
	if err := s.StartSync(context.Background(), device.ID, ids); !errors.Is(err, ErrSyncBusy) {
		t.Errorf("second sync = %v, want ErrSyncBusy", err)
	}
	waitForIdle(t, s)
}

func TestStartSyncUnknownDevice(t *testing.T) {
	s, ids := newSimFixture(t, 1)
	if err := s.StartSync(context.Background(), "nope", ids); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("unknown device = %v, want ErrDeviceNotFound", err)
	}
}

func TestStartSyncDisconnectedDevice(t *testing.T) {
	s, ids := newSimFixture(t, 1)
	device := disconnectedDevice(t, s)
	if err := s.StartSync(context.Background(), device.ID, ids); err == nil {
		t.Error("syncing to a disconnected device should fail")
	}
}

func TestStartSyncSkipsAlreadySynced(t *testing.T) {
	s, ids := newSimFixture(t, 3)
	device := connectedDevice(t, s)

	s.mu.Lock()
	s.devices[device.ID].SyncedTrackIDs = []string{ids[0], ids[1]}
	s.mu.Unlock()

	if err := s.StartSync(context.Background(), device.ID, ids); err != nil {
		t.Fatalf("StartSync: %v", err)
	}
	final := waitForIdle(t, s)

	if final.Total != 1 {
		t.Errorf("Total = %d, want only the one unsynced track", final.Total)
	}
}

func TestTransferSize(t *testing.T) {
	size := int64(10_000_000)
	tests := []struct {
		name        string
		track       models.Track
		autoConvert bool
		want        int64
	}{
		{"plain", models.Track{FileSize: &size, FileFormat: "mp3"}, false, 10_000_000},
		{"no size recorded", models.Track{}, false, defaultFileSize},
		{"flac without conversion", models.Track{FileSize: &size, FileFormat: "flac"}, false, 10_000_000},
		{"flac converted", models.Track{FileSize: &size, FileFormat: "flac"}, true, 3_000_000},
		{"mp3 unaffected by conversion", models.Track{FileSize: &size, FileFormat: "mp3"}, true, 10_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transferSize(tt.track, tt.autoConvert); got != tt.want {
				t.Errorf("transferSize = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStartSyncRejectsWhenFull(t *testing.T) {
	s, ids := newSimFixture(t, 2)
	device := connectedDevice(t, s)

	s.mu.Lock()
	s.devices[device.ID].StorageUsed = s.devices[device.ID].StorageTotal - 1
	s.mu.Unlock()

	err := s.StartSync(context.Background(), device.ID, ids)
	if !errors.Is(err, ErrInsufficientSpace) {
		t.Errorf("full device = %v, want ErrInsufficientSpace", err)
	}
}

func TestStartSyncIgnoresMissingTracks(t *testing.T) {
	s, ids := newSimFixture(t, 2)
	device := connectedDevice(t, s)

	if err := s.StartSync(context.Background(), device.ID, append(ids, "ghost")); err != nil {
		t.Fatalf("StartSync: %v", err)
	}
	final := waitForIdle(t, s)
	if final.Total != 2 {
		t.Errorf("Total = %d, want missing ids dropped", final.Total)
	}
}
