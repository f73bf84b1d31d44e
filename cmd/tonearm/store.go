/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/plaidsound/tonearm/internal/config"
	"github.com/plaidsound/tonearm/internal/db"
	"github.com/plaidsound/tonearm/internal/store"
)

// openStore opens the configured store for one-shot commands that do
// not need the full server.
func openStore() (store.Store, func() error, error) {
	if cfg.DBBackend == config.DatabaseMemory {
		return store.NewMemory(), func() error { return nil }, nil
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		_ = db.Close(database)
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return store.NewGorm(database), func() error { return db.Close(database) }, nil
}
