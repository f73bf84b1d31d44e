/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const natsSubjectPrefix = "tonearm.events."

// NATSMirror publishes envelopes to NATS subjects, one subject per
// event type.
type NATSMirror struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSMirror connects to a NATS server.
func NewNATSMirror(url string, logger zerolog.Logger) (*NATSMirror, error) {
	conn, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NATSMirror{
		conn:   conn,
		logger: logger.With().Str("component", "nats_mirror").Logger(),
	}, nil
}

// Publish sends one envelope.
func (m *NATSMirror) Publish(_ context.Context, envelope Envelope) error {
	data, err := marshal(envelope)
	if err != nil {
		return err
	}
	if err := m.conn.Publish(natsSubjectPrefix+envelope.Type, data); err != nil {
		m.logger.Warn().Err(err).Str("type", envelope.Type).Msg("nats publish failed")
		return err
	}
	return nil
}

// Close drains and closes the connection.
func (m *NATSMirror) Close() error {
	if err := m.conn.Drain(); err != nil {
		m.conn.Close()
		return err
	}
	return nil
}
