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

var exportCmd = &cobra.Command{
	Use:   "export [playlist-id]",
	Short: "Export the library as JSON, or one playlist as M3U",
	Long:  "Without arguments, write the whole library as JSON to stdout. With a playlist id, write that playlist in extended M3U format.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	svc := library.NewService(st, nil, logger)
	if len(args) == 1 {
		if err := svc.ExportM3U(cmd.Context(), os.Stdout, args[0]); err != nil {
			return fmt.Errorf("export playlist: %w", err)
		}
		return nil
	}
	if err := svc.ExportJSON(cmd.Context(), os.Stdout); err != nil {
		return fmt.Errorf("export library: %w", err)
	}
	return nil
}
