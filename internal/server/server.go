/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, storage, the player, smart
// playlist maintenance, and the HTTP API into one process.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/plaidsound/tonearm/internal/api"
	"github.com/plaidsound/tonearm/internal/config"
	"github.com/plaidsound/tonearm/internal/db"
	"github.com/plaidsound/tonearm/internal/devicesync"
	"github.com/plaidsound/tonearm/internal/eventbus"
	"github.com/plaidsound/tonearm/internal/events"
	"github.com/plaidsound/tonearm/internal/library"
	"github.com/plaidsound/tonearm/internal/player"
	"github.com/plaidsound/tonearm/internal/smartlist"
	"github.com/plaidsound/tonearm/internal/store"
	"github.com/plaidsound/tonearm/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	router chi.Router

	database *gorm.DB
	store    store.Store
	bus      *events.Bus

	library      *library.Service
	media        *player.SimulatedMedia
	session      *player.Session
	recorder     *player.Recorder
	materializer *smartlist.Materializer
	watcher      *smartlist.Watcher
	sync         *devicesync.Simulator
	mirror       eventbus.Mirror

	httpServer    *http.Server
	metricsServer *http.Server

	cancelWorkers context.CancelFunc
	wg            sync.WaitGroup
}

// New builds a fully wired server.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("tonearm-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Timeout everything except the events WebSocket, which is
	// long-lived on purpose.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           telemetry.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	if s.cfg.DBBackend == config.DatabaseMemory {
		s.store = store.NewMemory()
	} else {
		database, err := db.Connect(s.cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := db.RegisterCallbacks(database); err != nil {
			return fmt.Errorf("register db callbacks: %w", err)
		}
		if err := db.Migrate(database); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		s.database = database
		s.store = store.NewGorm(database)
	}

	s.library = library.NewService(s.store, s.bus, s.logger)
	s.recorder = player.NewRecorder(s.store, s.bus, s.logger)
	s.media = player.NewSimulatedMedia()
	s.session = player.NewSession(s.media, s.recorder, s.bus, s.logger)
	s.materializer = smartlist.NewMaterializer(s.store, s.bus, s.logger)
	s.watcher = smartlist.NewWatcher(s.materializer, s.bus, s.cfg.RefreshInterval, s.logger)
	s.sync = devicesync.NewSimulator(s.store, s.bus, s.logger)

	switch s.cfg.Mirror {
	case config.MirrorRedis:
		mirror, err := eventbus.NewRedisMirror(context.Background(), eventbus.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		}, s.logger)
		if err != nil {
			// The mirror is an optional convenience; never fail startup
			// over a broker.
			s.logger.Warn().Err(err).Msg("redis mirror unavailable, events stay local")
		} else {
			s.mirror = mirror
		}
	case config.MirrorNATS:
		mirror, err := eventbus.NewNATSMirror(s.cfg.NATSURL, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("nats mirror unavailable, events stay local")
		} else {
			s.mirror = mirror
		}
	}

	return nil
}

func (s *Server) configureRoutes() {
	var jwtSecret []byte
	if s.cfg.JWTSigningKey != "" {
		jwtSecret = []byte(s.cfg.JWTSigningKey)
	}
	apiHandler := api.New(s.library, s.session, s.recorder, s.materializer, s.sync, s.bus, jwtSecret, s.logger)
	apiHandler.Routes(s.router)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelWorkers = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.session.Run(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watcher.Run(ctx)
	}()

	if s.mirror != nil {
		instanceID := s.cfg.InstanceID
		if instanceID == "" {
			instanceID = uuid.NewString()
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			eventbus.Run(ctx, s.bus, s.mirror, instanceID)
		}()
	}

	if s.database != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.database)
				}
			}
		}()
	}
}

// HTTPServer returns the main API server.
func (s *Server) HTTPServer() *http.Server { return s.httpServer }

// MetricsServer returns the Prometheus scrape server.
func (s *Server) MetricsServer() *http.Server { return s.metricsServer }

// Bus returns the in-process event bus.
func (s *Server) Bus() *events.Bus { return s.bus }

// Close stops workers and releases resources.
func (s *Server) Close() error {
	if s.cancelWorkers != nil {
		s.cancelWorkers()
	}
	s.wg.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.session.Close(closeCtx)
	s.media.Close()

	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			s.logger.Error().Err(err).Msg("event mirror close failed")
		}
	}
	if s.database != nil {
		return db.Close(s.database)
	}
	return nil
}
