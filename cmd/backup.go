/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/pandapunten/apiserver/config"
	"github.com/pandapunten/apiserver/internal/logging"
	"github.com/pandapunten/apiserver/internal/server"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write one snapshot of the user collection to BACKUP_BACKEND",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log.Level, cfg.Log.Format)

		collection, closeCollection, err := server.OpenCollection(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeCollection()

		job, closeJob, err := server.OpenBackupJob(cmd.Context(), cfg, collection, logger)
		if err != nil {
			return err
		}
		defer closeJob()

		key, err := job.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
