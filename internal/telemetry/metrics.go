/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry holds Prometheus metrics and OpenTelemetry tracing
// setup for the process.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonearm_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tonearm_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tonearm_websocket_connections",
		Help: "Open event stream connections.",
	})

	// Database

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tonearm_db_query_duration_seconds",
		Help:    "Database operation latency by operation and table.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonearm_db_errors_total",
		Help: "Database errors by operation and kind.",
	}, []string{"operation", "kind"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tonearm_db_connections_active",
		Help: "Open database connections.",
	})

	// Player and history

	PlaysRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonearm_plays_recorded_total",
		Help: "Play history entries written, labelled by whether the play counted as full.",
	}, []string{"counted"})

	PlaybackErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonearm_playback_errors_total",
		Help: "Media playback failures surfaced to the session.",
	})

	// Smart playlists

	SmartRefreshRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonearm_smart_refresh_runs_total",
		Help: "Smart playlist maintenance passes.",
	})

	SmartRefreshUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonearm_smart_refresh_updated_total",
		Help: "Smart playlists whose membership changed during maintenance.",
	})

	SmartRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tonearm_smart_refresh_duration_seconds",
		Help:    "Smart playlist maintenance pass latency.",
		Buckets: prometheus.DefBuckets,
	})

	// Event mirror

	EventsMirroredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonearm_events_mirrored_total",
		Help: "Events forwarded to the external mirror by type.",
	}, []string{"type"})

	EventMirrorErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonearm_event_mirror_errors_total",
		Help: "Failures publishing to the external event mirror.",
	})
)
