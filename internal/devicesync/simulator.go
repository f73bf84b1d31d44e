/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package devicesync simulates syncing library tracks to portable
// devices. No real MTP/USB transport exists here; the simulator gives
// the UI and API a faithful progress surface to build against.
package devicesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plaidsound/tonearm/internal/events"
	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/store"
)

// ErrSyncBusy is returned when a sync is already running.
var ErrSyncBusy = errors.New("a sync is already in progress")

// ErrDeviceNotFound is returned for unknown device ids.
var ErrDeviceNotFound = errors.New("device not found")

// ErrInsufficientSpace is returned when the pending transfer would not
// fit on the device.
var ErrInsufficientSpace = errors.New("insufficient space on device")

// Device is a simulated sync target.
type Device struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	IsConnected  bool   `json:"is_connected"`
	StorageTotal int64  `json:"storage_total"`
	StorageUsed  int64  `json:"storage_used"`
	// AutoConvert transcodes FLAC to MP3 on transfer, shrinking the
	// on-device copy.
	AutoConvert    bool     `json:"auto_convert"`
	SyncedTrackIDs []string `json:"synced_track_ids"`
}

// Progress is a snapshot of the running (or last finished) sync.
type Progress struct {
	Active          bool    `json:"active"`
	DeviceID        string  `json:"device_id,omitempty"`
	Completed       int     `json:"completed"`
	Total           int     `json:"total"`
	CurrentTrack    string  `json:"current_track,omitempty"`
	TransferredSize int64   `json:"transferred_size"`
	TotalSize       int64   `json:"total_size"`
	SecondsLeft     float64 `json:"seconds_left"`
}

// perTrackDelay is the simulated transfer time per track.
const perTrackDelay = 120 * time.Millisecond

// defaultFileSize stands in for tracks imported without a size.
const defaultFileSize = 4 * 1024 * 1024

// flacConvertRatio is the size of an MP3 transcode relative to the
// FLAC source.
const flacConvertRatio = 0.3

// transferSize is the number of bytes a track occupies on the device.
func transferSize(track models.Track, autoConvert bool) int64 {
	size := int64(defaultFileSize)
	if track.FileSize != nil {
		size = *track.FileSize
	}
	if autoConvert && track.FileFormat == "flac" {
		size = int64(float64(size) * flacConvertRatio)
	}
	return size
}

// Simulator manages fake devices and at most one running sync.
type Simulator struct {
	mu       sync.Mutex
	devices  map[string]*Device
	progress Progress
	running  bool

	store  store.Store
	bus    *events.Bus
	logger zerolog.Logger
}

// NewSimulator seeds a simulator with demo devices.
func NewSimulator(st store.Store, bus *events.Bus, logger zerolog.Logger) *Simulator {
	s := &Simulator{
		devices: make(map[string]*Device),
		store:   st,
		bus:     bus,
		logger:  logger.With().Str("component", "devicesync").Logger(),
	}
	for _, d := range []*Device{
		{Name: "Samsung Galaxy S21", Model: "SM-G991B", IsConnected: true, AutoConvert: true, StorageTotal: 128e9, StorageUsed: 45e9},
		{Name: "Pixel 7 Pro", Model: "GP4BC", StorageTotal: 256e9, StorageUsed: 89e9},
		{Name: "OnePlus 11", Model: "CPH2449", StorageTotal: 512e9, StorageUsed: 156e9},
	} {
		d.ID = uuid.NewString()
		s.devices[d.ID] = d
	}
	return s
}

// Devices lists known devices.
func (s *Simulator) Devices() []Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, *d)
	}
	return out
}

// Progress returns the current sync snapshot.
func (s *Simulator) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// StartSync begins copying the given tracks to a device. Only one sync
// may run at a time; tracks already on the device are skipped.
func (s *Simulator) StartSync(ctx context.Context, deviceID string, trackIDs []string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSyncBusy
	}
	device, ok := s.devices[deviceID]
	if !ok {
		s.mu.Unlock()
		return ErrDeviceNotFound
	}
	if !device.IsConnected {
		s.mu.Unlock()
		return fmt.Errorf("device %s is not connected", device.Name)
	}

	synced := make(map[string]struct{}, len(device.SyncedTrackIDs))
	for _, id := range device.SyncedTrackIDs {
		synced[id] = struct{}{}
	}
	pending := make([]string, 0, len(trackIDs))
	for _, id := range trackIDs {
		if _, ok := synced[id]; !ok {
			pending = append(pending, id)
		}
	}

	tracks := make([]models.Track, 0, len(pending))
	var totalSize int64
	for _, id := range pending {
		track, err := s.store.GetTrack(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("load track %s: %w", id, err)
		}
		tracks = append(tracks, track)
		totalSize += transferSize(track, device.AutoConvert)
	}

	if totalSize > device.StorageTotal-device.StorageUsed {
		s.mu.Unlock()
		return fmt.Errorf("%w: need %d bytes, have %d", ErrInsufficientSpace, totalSize, device.StorageTotal-device.StorageUsed)
	}

	s.running = true
	s.progress = Progress{
		Active:    true,
		DeviceID:  deviceID,
		Total:     len(tracks),
		TotalSize: totalSize,
	}
	s.mu.Unlock()

	go s.run(ctx, device.ID, tracks)
	return nil
}

func (s *Simulator) run(ctx context.Context, deviceID string, tracks []models.Track) {
	for i, track := range tracks {
		select {
		case <-ctx.Done():
			s.finish(deviceID)
			return
		case <-time.After(perTrackDelay):
		}

		s.mu.Lock()
		device := s.devices[deviceID]
		device.SyncedTrackIDs = append(device.SyncedTrackIDs, track.ID)
		size := transferSize(track, device.AutoConvert)
		device.StorageUsed += size
		s.progress.TransferredSize += size
		s.progress.Completed = i + 1
		s.progress.CurrentTrack = track.Title
		s.progress.SecondsLeft = float64(len(tracks)-i-1) * perTrackDelay.Seconds()
		snapshot := s.progress
		s.mu.Unlock()

		if s.bus != nil {
			s.bus.Publish(events.EventSyncProgress, events.Payload{
				"device_id": deviceID,
				"completed": snapshot.Completed,
				"total":     snapshot.Total,
			})
		}
	}

	s.finish(deviceID)
	s.logger.Info().Str("device_id", deviceID).Int("tracks", len(tracks)).Msg("sync finished")
}

func (s *Simulator) finish(deviceID string) {
	s.mu.Lock()
	s.running = false
	s.progress.Active = false
	s.progress.CurrentTrack = ""
	s.progress.SecondsLeft = 0
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.EventSyncProgress, events.Payload{"device_id": deviceID, "done": true})
	}
}
