/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"github.com/spf13/cobra"

	"github.com/plaidsound/tonearm/internal/smartlist"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run one smart playlist maintenance pass",
	Long:  "Recompute membership of every smart playlist against the current library, then exit.",
	RunE:  runMaintain,
}

func init() {
	rootCmd.AddCommand(maintainCmd)
}

func runMaintain(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	materializer := smartlist.NewMaterializer(st, nil, logger)
	summary, err := materializer.Refresh(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info().Int("updated_count", summary.UpdatedCount).Msg(summary.Message)
	return nil
}
