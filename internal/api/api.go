/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the local HTTP surface consumed by the desktop
// shell and paired remote-control clients.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/plaidsound/tonearm/internal/auth"
	"github.com/plaidsound/tonearm/internal/devicesync"
	"github.com/plaidsound/tonearm/internal/events"
	"github.com/plaidsound/tonearm/internal/library"
	"github.com/plaidsound/tonearm/internal/player"
	"github.com/plaidsound/tonearm/internal/smartlist"
	"github.com/plaidsound/tonearm/internal/telemetry"
)

// API exposes HTTP handlers.
type API struct {
	library      *library.Service
	session      *player.Session
	recorder     *player.Recorder
	materializer *smartlist.Materializer
	sync         *devicesync.Simulator
	bus          *events.Bus
	jwtSecret    []byte
	logger       zerolog.Logger
}

// New creates the API router wrapper.
func New(lib *library.Service, session *player.Session, recorder *player.Recorder, materializer *smartlist.Materializer, sync *devicesync.Simulator, bus *events.Bus, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		library:      lib,
		session:      session,
		recorder:     recorder,
		materializer: materializer,
		sync:         sync,
		bus:          bus,
		jwtSecret:    jwtSecret,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Route("/tracks", func(r chi.Router) {
				r.Get("/", a.handleTracksList)
				r.Post("/", a.handleTracksCreate)
				r.Route("/{trackID}", func(r chi.Router) {
					r.Get("/", a.handleTracksGet)
					r.Patch("/", a.handleTracksUpdate)
					r.Delete("/", a.handleTracksDelete)
				})
			})

			pr.Route("/playlists", func(r chi.Router) {
				r.Get("/", a.handlePlaylistsList)
				r.Post("/", a.handlePlaylistsCreate)
				r.Post("/refresh", a.handlePlaylistsRefresh)
				r.Route("/{playlistID}", func(r chi.Router) {
					r.Get("/", a.handlePlaylistsGet)
					r.Patch("/", a.handlePlaylistsUpdate)
					r.Delete("/", a.handlePlaylistsDelete)
					r.Get("/tracks", a.handlePlaylistTracks)
					r.Get("/export.m3u", a.handlePlaylistExportM3U)
				})
			})

			pr.Route("/player", func(r chi.Router) {
				r.Get("/", a.handlePlayerStatus)
				r.Get("/queue", a.handlePlayerQueue)
				r.Post("/play", a.handlePlayerPlay)
				r.Post("/toggle", a.handlePlayerToggle)
				r.Post("/next", a.handlePlayerNext)
				r.Post("/previous", a.handlePlayerPrevious)
				r.Post("/seek", a.handlePlayerSeek)
				r.Post("/volume", a.handlePlayerVolume)
				r.Post("/mute", a.handlePlayerMute)
				r.Post("/shuffle", a.handlePlayerShuffle)
				r.Post("/repeat", a.handlePlayerRepeat)
			})

			pr.Route("/history", func(r chi.Router) {
				r.Get("/", a.handleHistoryList)
				r.Post("/", a.handleHistoryCreate)
			})

			pr.Get("/search", a.handleSearch)
			pr.Get("/duplicates", a.handleDuplicates)
			pr.Get("/recommendations", a.handleRecommendations)

			pr.Get("/stats", a.handleStats)
			pr.Get("/export/library.json", a.handleLibraryExport)

			pr.Route("/sync", func(r chi.Router) {
				r.Get("/devices", a.handleSyncDevices)
				r.Get("/progress", a.handleSyncProgress)
				r.Post("/start", a.handleSyncStart)
				r.Post("/resolve", a.handleSyncResolve)
			})

			pr.Get("/events", a.handleEvents)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvents streams bus events over a websocket. Clients choose
// event types with ?types=player.now_playing,history.play_recorded.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.WebSocketConnections.Inc()
	defer telemetry.WebSocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = []events.EventType{events.EventNowPlaying, events.EventPlayerState}
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload := <-sub:
					if err := writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, data)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, events.EventType(part))
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
