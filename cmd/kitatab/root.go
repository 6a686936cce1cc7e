package main

import (
	"github.com/spf13/cobra"

	"github.com/m-ad/kita-nextcloud-automation/internal/config"
	"github.com/m-ad/kita-nextcloud-automation/internal/logging"
)

// cfg is the process configuration, loaded once before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "kitatab",
	Short: "Automation for the Kita's Nextcloud Tables",
	Long: `kitatab automates recurring chores against the Kita's Nextcloud
Tables instance: periodic CSV backups of every accessible table with
retention-based rotation, and the family-hours pipeline that joins the
work-hours table with the address table into the family-hours overview.

All settings come from environment variables; see the repository README
for the full list.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		cfg = config.Load()
		logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(tablesCmd)
}
