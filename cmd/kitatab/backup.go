// Backup command: snapshot every accessible table and rotate old snapshots.
package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/m-ad/kita-nextcloud-automation/internal/backup"
	"github.com/m-ad/kita-nextcloud-automation/internal/config"
	"github.com/m-ad/kita-nextcloud-automation/internal/nextcloud"
)

var backupCmd = &cobra.Command{
	Use:   "backup [path] [keep]",
	Short: "Back up every accessible table to CSV snapshots",
	Long: `Backup exports every table the configured user can access to a
timestamped CSV snapshot under a per-table directory, then deletes the
oldest snapshots beyond the retention count.

The destination path and retention count default to the BACKUP_PATH and
KEEP_N_BACKUPS environment variables; positional arguments override them.
A retention count of 0 keeps every snapshot.

Example:
  kitatab backup
  kitatab backup /var/backups/tables 7`,
	Args: cobra.MaximumNArgs(2),
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	if len(args) >= 1 {
		cfg.BackupPath = args[0]
	}
	if len(args) == 2 {
		keep, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: keep count %q is not a number", config.ErrInvalidConfig, args[1])
		}
		cfg.KeepBackups = keep
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := nextcloud.New(cfg)
	runner := backup.New(client, cfg.BackupPath, cfg.KeepBackups)

	result, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Backed up %d tables to %s\n", len(result.Tables), cfg.BackupPath)
	return nil
}
