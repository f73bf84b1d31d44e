/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"sync"
	"time"
)

const (
	simStartupDelay = 15 * time.Millisecond
	simTickInterval = 250 * time.Millisecond
)

// SimulatedMedia is a clock-driven MediaResource that "plays" a source
// by advancing a playhead in real time. It stands in for a platform
// audio backend on headless installs and in integration smoke tests.
type SimulatedMedia struct {
	mu       sync.Mutex
	source   string
	duration float64
	position float64
	playing  bool
	volume   float64
	abort    chan struct{}
	events   chan Event
	ended    bool

	tickerOnce sync.Once
	done       chan struct{}
}

// NewSimulatedMedia creates a stopped simulated resource.
func NewSimulatedMedia() *SimulatedMedia {
	return &SimulatedMedia{
		volume: 1.0,
		abort:  make(chan struct{}),
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

var _ MediaResource = (*SimulatedMedia)(nil)

// Load replaces the source. Any Play pending against the previous
// source resolves with ErrAborted.
func (s *SimulatedMedia) Load(sourceRef string, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.abort)
	s.abort = make(chan struct{})
	s.source = sourceRef
	s.duration = duration
	s.position = 0
	s.playing = false
	s.ended = false
}

// Play starts playback after a short simulated decoder spin-up.
func (s *SimulatedMedia) Play(ctx context.Context) error {
	s.mu.Lock()
	abort := s.abort
	s.mu.Unlock()

	select {
	case <-time.After(simStartupDelay):
	case <-abort:
		return ErrAborted
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()

	s.tickerOnce.Do(func() { go s.run() })
	return nil
}

func (s *SimulatedMedia) Pause() {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
}

func (s *SimulatedMedia) Seek(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < 0 {
		position = 0
	}
	if s.duration > 0 && position > s.duration {
		position = s.duration
	}
	s.position = position
	s.ended = false
}

func (s *SimulatedMedia) SetVolume(level float64) {
	s.mu.Lock()
	s.volume = level
	s.mu.Unlock()
}

func (s *SimulatedMedia) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *SimulatedMedia) Events() <-chan Event {
	return s.events
}

// Close stops the playhead goroutine.
func (s *SimulatedMedia) Close() {
	close(s.done)
}

func (s *SimulatedMedia) run() {
	ticker := time.NewTicker(simTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if !s.playing {
			s.mu.Unlock()
			continue
		}
		s.position += simTickInterval.Seconds()
		var ev *Event
		if s.duration > 0 && s.position >= s.duration && !s.ended {
			s.position = s.duration
			s.playing = false
			s.ended = true
			ev = &Event{Kind: EventEnded, Position: s.position}
		} else {
			ev = &Event{Kind: EventProgress, Position: s.position}
		}
		s.mu.Unlock()

		select {
		case s.events <- *ev:
		default:
		}
	}
}
