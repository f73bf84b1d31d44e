/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabaseSQLite DatabaseBackend = "sqlite"
	DatabaseMySQL  DatabaseBackend = "mysql"
	DatabasePG     DatabaseBackend = "postgres"
	DatabaseMemory DatabaseBackend = "memory"
)

// EventMirror selects the optional external event bus backend.
type EventMirror string

const (
	MirrorOff   EventMirror = "off"
	MirrorRedis EventMirror = "redis"
	MirrorNATS  EventMirror = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	DBBackend DatabaseBackend
	DBDSN     string
	MediaRoot string

	// Empty signing key leaves the local API unauthenticated, which is
	// the default for a single-user desktop install.
	JWTSigningKey string

	// Smart playlist watcher debounce between a library change and the
	// maintenance pass it triggers.
	RefreshInterval time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Event mirror configuration
	Mirror        EventMirror
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string
	InstanceID    string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("TONEARM_ENV", "development"),
		HTTPBind:    getEnv("TONEARM_HTTP_BIND", "127.0.0.1"),
		HTTPPort:    getEnvInt("TONEARM_HTTP_PORT", 4533),
		MetricsBind: getEnv("TONEARM_METRICS_BIND", "127.0.0.1:9465"),

		DBBackend: DatabaseBackend(getEnv("TONEARM_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("TONEARM_DB_DSN", "tonearm.db"),
		MediaRoot: getEnv("TONEARM_MEDIA_ROOT", "./media"),

		JWTSigningKey: getEnv("TONEARM_JWT_SIGNING_KEY", ""),

		RefreshInterval: time.Duration(getEnvInt("TONEARM_REFRESH_INTERVAL_SECONDS", 2)) * time.Second,

		TracingEnabled:    getEnvBool("TONEARM_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("TONEARM_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("TONEARM_TRACING_SAMPLE_RATE", 1.0),

		Mirror:        EventMirror(getEnv("TONEARM_EVENT_MIRROR", string(MirrorOff))),
		RedisAddr:     getEnv("TONEARM_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("TONEARM_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("TONEARM_REDIS_DB", 0),
		NATSURL:       getEnv("TONEARM_NATS_URL", "nats://localhost:4222"),
		InstanceID:    getEnv("TONEARM_INSTANCE_ID", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBBackend {
	case DatabaseSQLite, DatabaseMySQL, DatabasePG, DatabaseMemory:
	default:
		return fmt.Errorf("unknown database backend: %s", c.DBBackend)
	}
	if c.DBBackend != DatabaseMemory && c.DBDSN == "" {
		return fmt.Errorf("database DSN is required for backend %s", c.DBBackend)
	}
	switch c.Mirror {
	case MirrorOff, MirrorRedis, MirrorNATS:
	default:
		return fmt.Errorf("unknown event mirror: %s", c.Mirror)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be within [0,1]: %f", c.TracingSampleRate)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}
