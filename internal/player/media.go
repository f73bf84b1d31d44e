/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player implements the playback session: queue, shuffle and
// repeat state, the audio transport, and play-history recording.
package player

import (
	"context"
	"errors"
)

// ErrAborted is returned from a pending Play when a new source is
// loaded underneath it. Sessions treat it as routine, not a failure.
var ErrAborted = errors.New("playback aborted by new load")

// EventKind tags media resource events.
type EventKind int

const (
	// EventProgress reports the current playhead position.
	EventProgress EventKind = iota
	// EventEnded fires once when the source plays to completion.
	EventEnded
	// EventFailed fires when decoding fails mid-stream.
	EventFailed
)

// Event is an asynchronous notification from the media resource.
type Event struct {
	Kind     EventKind
	Position float64
	Err      error
}

// MediaResource is the audio output abstraction. Load replaces the
// current source and aborts any Play still pending on the old one.
// Play blocks until playback actually starts (or fails), mirroring how
// a decoder acknowledges a start request; at most one Play should be
// in flight at a time, which the session enforces.
type MediaResource interface {
	Load(sourceRef string, duration float64)
	Play(ctx context.Context) error
	Pause()
	Seek(position float64)
	SetVolume(level float64)
	Position() float64
	Events() <-chan Event
}
