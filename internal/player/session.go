/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/plaidsound/tonearm/internal/events"
	"github.com/plaidsound/tonearm/internal/models"
	"github.com/plaidsound/tonearm/internal/telemetry"
)

// RepeatMode controls what happens when the queue runs out.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// ValidRepeatMode reports whether mode is part of the vocabulary.
func ValidRepeatMode(mode RepeatMode) bool {
	switch mode {
	case RepeatOff, RepeatAll, RepeatOne:
		return true
	}
	return false
}

// Status is a snapshot of session state for the API and UI.
type Status struct {
	CurrentTrack *models.Track `json:"current_track,omitempty"`
	IsPlaying    bool          `json:"is_playing"`
	Position     float64       `json:"position"`
	QueueLength  int           `json:"queue_length"`
	QueueIndex   int           `json:"queue_index"`
	Shuffle      bool          `json:"shuffle"`
	Repeat       RepeatMode    `json:"repeat"`
	Volume       float64       `json:"volume"`
	Muted        bool          `json:"muted"`
}

// Session is the playback state machine: one media resource, one
// queue, one listener. All transport methods are safe for concurrent
// use; media events are consumed by Run.
//
// Start requests are guarded by a single in-flight slot: before a new
// start is issued, the previous one is settled and its abort (caused
// by the newer load) is swallowed. Real start failures are logged,
// counted, and drop the session to a paused state.
type Session struct {
	mu       sync.Mutex
	media    MediaResource
	recorder *Recorder
	bus      *events.Bus
	logger   zerolog.Logger

	queue   []models.Track
	index   int
	current *models.Track

	isPlaying bool
	shuffle   bool
	repeat    RepeatMode
	volume    float64
	muted     bool

	// listenStart is armed when a track starts or resumes and cleared
	// by every history write, by pause, and by any observed start
	// failure, so a start that never produced audio cannot reach the
	// recorder.
	listenStart *time.Time

	inflight chan error

	now func() time.Time
	rng *rand.Rand
}

// NewSession creates a session around a media resource.
func NewSession(media MediaResource, recorder *Recorder, bus *events.Bus, logger zerolog.Logger) *Session {
	return &Session{
		media:    media,
		recorder: recorder,
		bus:      bus,
		logger:   logger.With().Str("component", "player").Logger(),
		repeat:   RepeatOff,
		volume:   1.0,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run consumes media events until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.media.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case EventEnded:
				s.handleEnded(ctx)
			case EventFailed:
				s.handleFailed(ev.Err)
			case EventProgress:
				s.publish(events.EventPlayerState, events.Payload{"position": ev.Position})
			}
		}
	}
}

// Play starts the given track. If the track is a member of queue, the
// session adopts queue as its play order; otherwise the existing queue
// stands, so Next still continues the prior play order after a one-off
// track.
func (s *Session) Play(ctx context.Context, track models.Track, queue []models.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Switching away from a playing track is a skip; replaying the
	// track that is already current is not a listen boundary.
	if s.isPlaying && (s.current == nil || s.current.ID != track.ID) {
		s.recordStopLocked(ctx, true)
	}

	if idx := indexOf(queue, track.ID); idx >= 0 {
		s.queue = append([]models.Track(nil), queue...)
		s.index = idx
	} else if idx := indexOf(s.queue, track.ID); idx >= 0 {
		s.index = idx
	}
	return s.startLocked(ctx, track)
}

// TogglePlayPause pauses a playing session or resumes a paused one.
// With nothing loaded it starts the queue from the current index.
func (s *Session) TogglePlayPause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		if len(s.queue) == 0 {
			return nil
		}
		return s.startLocked(ctx, s.queue[s.index])
	}

	if s.isPlaying {
		// Pausing closes the listen: anything over the threshold is
		// written as skipped, and the timestamp is cleared so resuming
		// opens a fresh one.
		s.recordStopLocked(ctx, true)
		s.media.Pause()
		s.isPlaying = false
		s.publish(events.EventPlayerState, events.Payload{"is_playing": false})
		return nil
	}

	if err := s.settleAndStartLocked(ctx); err != nil {
		return err
	}
	s.isPlaying = true
	if s.listenStart == nil {
		t := s.now()
		s.listenStart = &t
	}
	s.publish(events.EventPlayerState, events.Payload{"is_playing": true})
	return nil
}

// Next records the current listen as skipped and advances the queue.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The listen is over the moment the listener reaches for next,
	// even if the queue turns out to be exhausted.
	s.recordStopLocked(ctx, true)
	return s.advanceLocked(ctx)
}

// Previous steps back through the queue, wrapping from the first
// position to the last.
func (s *Session) Previous(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil
	}
	s.recordStopLocked(ctx, true)

	prev := s.index - 1
	if prev < 0 {
		prev = len(s.queue) - 1
	}
	s.index = prev
	return s.startLocked(ctx, s.queue[prev])
}

// Seek moves the playhead within the current track.
func (s *Session) Seek(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	s.media.Seek(position)
}

// SetVolume sets the output level, clamped to [0,1], and clears mute.
func (s *Session) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = math.Min(1, math.Max(0, level))
	s.muted = false
	s.media.SetVolume(s.effectiveVolumeLocked())
}

// ToggleMute flips mute without losing the stored volume.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	s.media.SetVolume(s.effectiveVolumeLocked())
	return s.muted
}

// ToggleShuffle flips shuffle and reports the new setting.
func (s *Session) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = !s.shuffle
	return s.shuffle
}

// SetRepeat sets the repeat mode.
func (s *Session) SetRepeat(mode RepeatMode) error {
	if !ValidRepeatMode(mode) {
		return fmt.Errorf("unknown repeat mode: %s", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = mode
	return nil
}

// CycleRepeat steps off -> all -> one -> off and returns the new mode.
func (s *Session) CycleRepeat() RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.repeat {
	case RepeatOff:
		s.repeat = RepeatAll
	case RepeatAll:
		s.repeat = RepeatOne
	default:
		s.repeat = RepeatOff
	}
	return s.repeat
}

// Status returns a state snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		IsPlaying:   s.isPlaying,
		Position:    s.media.Position(),
		QueueLength: len(s.queue),
		QueueIndex:  s.index,
		Shuffle:     s.shuffle,
		Repeat:      s.repeat,
		Volume:      s.volume,
		Muted:       s.muted,
	}
	if s.current != nil {
		track := *s.current
		st.CurrentTrack = &track
	}
	return st
}

// Queue returns a copy of the play order.
func (s *Session) Queue() []models.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Track(nil), s.queue...)
}

// Close records any open listen (not skipped; the app is going away,
// not the listener's interest) and settles the in-flight slot.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordStopLocked(ctx, false)
	if s.inflight != nil {
		<-s.inflight
		s.inflight = nil
	}
}

// startLocked loads and starts a track, adopting it as current.
func (s *Session) startLocked(ctx context.Context, track models.Track) error {
	s.current = &track
	s.media.Load(track.FilePath, track.Duration)
	s.media.SetVolume(s.effectiveVolumeLocked())

	if err := s.settleAndStartLocked(ctx); err != nil {
		return err
	}

	s.isPlaying = true
	if s.listenStart == nil {
		t := s.now()
		s.listenStart = &t
	}

	s.publish(events.EventNowPlaying, events.Payload{
		"track_id": track.ID,
		"title":    track.Title,
		"artist":   track.Artist,
	})
	return nil
}

// settleAndStartLocked settles the previous start request and issues a
// new one. The previous request's abort is expected (the load that got
// us here caused it) and swallowed; a real failure from it is logged
// and counted but does not block the new start. The new request runs
// in the in-flight slot; its outcome is observed at the next settle or
// through a media failure event.
func (s *Session) settleAndStartLocked(ctx context.Context) error {
	if err := s.settleLocked(); err != nil {
		s.logger.Error().Err(err).Msg("previous playback start failed")
		telemetry.PlaybackErrorsTotal.Inc()
		s.publish(events.EventPlayerError, events.Payload{"error": err.Error()})
		// The failed start never produced audio; its listen window is
		// void.
		s.listenStart = nil
	}

	ch := make(chan error, 1)
	media := s.media
	go func() { ch <- media.Play(ctx) }()
	s.inflight = ch
	return nil
}

// settleLocked drains the in-flight slot. Aborts and context
// cancellations come back as nil; only real failures are returned.
func (s *Session) settleLocked() error {
	if s.inflight == nil {
		return nil
	}
	err := <-s.inflight
	s.inflight = nil
	if err == nil || errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// advanceLocked moves to the next queue position. The caller has
// already recorded the outgoing listen.
func (s *Session) advanceLocked(ctx context.Context) error {
	if len(s.queue) == 0 {
		return nil
	}

	var next int
	if s.shuffle {
		next = s.rng.Intn(len(s.queue))
	} else {
		next = s.index + 1
	}

	if next >= len(s.queue) {
		if s.repeat != RepeatAll {
			s.haltLocked()
			return nil
		}
		next = 0
	}

	s.index = next
	return s.startLocked(ctx, s.queue[next])
}

// handleEnded reacts to a track playing out.
func (s *Session) handleEnded(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Playing to the end is the opposite of skipping.
	s.recordStopLocked(ctx, false)

	if s.repeat == RepeatOne {
		s.media.Seek(0)
		if err := s.settleAndStartLocked(ctx); err != nil {
			return
		}
		s.isPlaying = true
		t := s.now()
		s.listenStart = &t
		return
	}

	// A natural end advances only while the queue can continue:
	// repeat-all always can, otherwise only before the last position.
	// A shuffled pick would always land in range, so the gate has to
	// live here rather than in the advance itself.
	if s.repeat != RepeatAll && s.index >= len(s.queue)-1 {
		s.haltLocked()
		return
	}

	if err := s.advanceLocked(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to advance after track end")
	}
}

// handleFailed reacts to a failure reported by the media resource.
func (s *Session) handleFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isPlaying = false
	s.listenStart = nil
	telemetry.PlaybackErrorsTotal.Inc()
	s.logger.Error().Err(err).Msg("media playback failed")
	s.publish(events.EventPlayerError, events.Payload{"error": errString(err)})
}

// recordStopLocked closes the open listen, if any, and hands it to the
// recorder. Duration is wall clock from listen start, rounded to whole
// seconds. Clearing listenStart here is what makes double stops (skip
// after ended, stop of an empty session) harmless no-ops.
func (s *Session) recordStopLocked(ctx context.Context, skipped bool) {
	s.reapFailedStartLocked()
	if s.current == nil || s.listenStart == nil {
		s.listenStart = nil
		return
	}
	played := math.Round(s.now().Sub(*s.listenStart).Seconds())
	s.listenStart = nil
	s.recorder.Record(ctx, *s.current, played, skipped)
}

// reapFailedStartLocked peeks at the in-flight slot without blocking.
// A start that already failed never produced audio, so its listen
// window is voided before it can reach the recorder; the slot stays
// occupied while the outcome is still pending.
func (s *Session) reapFailedStartLocked() {
	if s.inflight == nil {
		return
	}
	select {
	case err := <-s.inflight:
		s.inflight = nil
		if err != nil && !errors.Is(err, ErrAborted) && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("playback start failed")
			telemetry.PlaybackErrorsTotal.Inc()
			s.publish(events.EventPlayerError, events.Payload{"error": err.Error()})
			s.listenStart = nil
		}
	default:
	}
}

// haltLocked stops playback at the end of the queue, keeping the last
// track loaded so the UI still shows it.
func (s *Session) haltLocked() {
	s.media.Pause()
	s.isPlaying = false
	s.publish(events.EventPlayerState, events.Payload{"is_playing": false, "queue_ended": true})
}

func (s *Session) effectiveVolumeLocked() float64 {
	if s.muted {
		return 0
	}
	return s.volume
}

func (s *Session) publish(eventType events.EventType, payload events.Payload) {
	if s.bus != nil {
		s.bus.Publish(eventType, payload)
	}
}

func indexOf(queue []models.Track, id string) int {
	for i, t := range queue {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func errString(err error) string {
	if err == nil {
		return "unknown playback error"
	}
	return err.Error()
}
