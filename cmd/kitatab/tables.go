// Tables command: list the tables the configured user can access.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m-ad/kita-nextcloud-automation/internal/nextcloud"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List accessible tables",
	Long: `Tables lists every table the configured user can access, with its
ID and row count. Useful for finding the IDs to put into HOURS_TABLE_ID,
NAMES_TABLE_ID, and FAMILY_HOURS_TABLE_ID.`,
	Args: cobra.NoArgs,
	RunE: runTables,
}

func runTables(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := nextcloud.New(cfg)
	tables, err := client.ListTables(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Found %d tables:\n", len(tables))
	for _, table := range tables {
		fmt.Printf("  %d: %s (%d rows)\n", table.ID, table.Title, table.RowsCount)
	}
	return nil
}
