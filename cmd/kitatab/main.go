// Package main provides the kitatab CLI: batch automation for the Kita's
// Nextcloud Tables instance (table backups and the family-hours pipeline).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/m-ad/kita-nextcloud-automation/internal/config"
)

// Exit codes. Invocation and configuration problems are distinguished from
// job failures so the scheduler can alert differently.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitJobError  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode classifies an error into an exit code.
func exitCode(err error) int {
	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, config.ErrMissingTableID) {
		return exitUserError
	}
	return exitJobError
}
