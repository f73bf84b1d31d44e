/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisChannelPrefix = "tonearm.events."

// RedisMirror publishes envelopes to Redis pub/sub channels, one
// channel per event type.
type RedisMirror struct {
	client *redis.Client
	logger zerolog.Logger
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisMirror connects to Redis and verifies the connection.
func NewRedisMirror(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisMirror{
		client: client,
		logger: logger.With().Str("component", "redis_mirror").Logger(),
	}, nil
}

// Publish sends one envelope.
func (m *RedisMirror) Publish(ctx context.Context, envelope Envelope) error {
	data, err := marshal(envelope)
	if err != nil {
		return err
	}
	if err := m.client.Publish(ctx, redisChannelPrefix+envelope.Type, data).Err(); err != nil {
		m.logger.Warn().Err(err).Str("type", envelope.Type).Msg("redis publish failed")
		return err
	}
	return nil
}

// Close releases the client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
