/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plaidsound/tonearm/internal/library"
)

var importCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Import tracks and playlists from a YAML manifest",
	Long:  "Load a library manifest produced by a scanner or exported from another install. Tracks already present (same file path) are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	manifest, err := library.ParseManifest(data)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	svc := library.NewService(st, nil, logger)
	summary, err := svc.ImportManifest(cmd.Context(), manifest)
	if err != nil {
		return err
	}

	logger.Info().
		Int("tracks_created", summary.TracksCreated).
		Int("tracks_skipped", summary.TracksSkipped).
		Int("playlists_created", summary.PlaylistsCreated).
		Msg("import finished")
	return nil
}
