/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/plaidsound/tonearm/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Track{},
		&models.Playlist{},
		&models.PlayHistoryEntry{},
	); err != nil {
		return err
	}

	if err := backfillFileFormats(database); err != nil {
		return err
	}

	return nil
}

// backfillFileFormats normalizes legacy upper-case format labels written
// by early importers ("MP3", "FLAC") to the lower-case vocabulary the
// rule engine matches against.
func backfillFileFormats(database *gorm.DB) error {
	if err := database.Exec(
		"UPDATE tracks SET file_format = LOWER(file_format) WHERE file_format != LOWER(file_format)",
	).Error; err != nil {
		return fmt.Errorf("normalize file formats: %w", err)
	}
	return nil
}
