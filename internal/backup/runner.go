// Package backup implements the table backup job: every accessible remote
// table is exported to a timestamped CSV snapshot under a per-table
// directory, then old snapshots beyond the retention count are pruned.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-ad/kita-nextcloud-automation/internal/logging"
	"github.com/m-ad/kita-nextcloud-automation/internal/nextcloud"
	"github.com/m-ad/kita-nextcloud-automation/pkg/types"
)

// Client is the part of the remote table client the backup job uses.
type Client interface {
	ListTables(ctx context.Context) ([]types.Table, error)
	FetchTableData(ctx context.Context, tableID int64, explode bool) (types.TableData, error)
}

// Runner executes one backup run. Tables are processed strictly one after
// another; a failure on one table is recorded and the run moves on.
type Runner struct {
	client Client
	fs     Filesystem
	now    func() time.Time

	dir  string
	keep int
}

// New builds a runner writing snapshots under dir with the given retention
// count (keep <= 0 keeps everything).
func New(client Client, dir string, keep int) *Runner {
	return &Runner{
		client: client,
		fs:     OSFilesystem{},
		now:    time.Now,
		dir:    dir,
		keep:   keep,
	}
}

// WithFilesystem replaces the filesystem, for tests.
func (r *Runner) WithFilesystem(fs Filesystem) *Runner {
	r.fs = fs
	return r
}

// WithClock replaces the clock, for tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// TableResult records the outcome of backing up one table.
type TableResult struct {
	Table    types.Table
	Snapshot string // path of the written snapshot
	Rows     int
	Pruned   int
	Err      error
}

// Result summarizes one backup run.
type Result struct {
	RunID  string
	Tables []TableResult
}

// Failed returns how many tables could not be backed up.
func (r Result) Failed() int {
	n := 0
	for _, t := range r.Tables {
		if t.Err != nil {
			n++
		}
	}
	return n
}

// Run backs up every accessible table. Credential failures abort the run
// immediately; any other per-table failure is isolated. The returned error
// is non-nil when the table listing failed or at least one table failed.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: logging.NewRunID()}
	log := logging.Logger().With().Str("run", result.RunID).Str("job", "backup").Logger()

	tables, err := r.client.ListTables(ctx)
	if err != nil {
		return result, fmt.Errorf("list tables: %w", err)
	}
	log.Info().Int("tables", len(tables)).Str("dir", r.dir).Int("keep", r.keep).
		Msg("starting backup run")

	// One timestamp per run: all snapshots of a run sort together.
	ts := r.now()

	var failures []error
	for _, table := range tables {
		tr := r.backupTable(ctx, table, ts)
		result.Tables = append(result.Tables, tr)

		if tr.Err != nil {
			if errors.Is(tr.Err, nextcloud.ErrAuthentication) {
				return result, fmt.Errorf("table %d: %w", table.ID, tr.Err)
			}
			log.Error().Err(tr.Err).Int64("table", table.ID).Str("title", table.Title).
				Msg("table backup failed")
			failures = append(failures, fmt.Errorf("table %d (%s): %w", table.ID, table.Title, tr.Err))
			continue
		}
		log.Info().Int64("table", table.ID).Str("title", table.Title).
			Int("rows", tr.Rows).Int("pruned", tr.Pruned).Str("snapshot", tr.Snapshot).
			Msg("table backed up")
	}

	if len(failures) > 0 {
		return result, fmt.Errorf("%d of %d tables failed: %w",
			len(failures), len(tables), errors.Join(failures...))
	}
	log.Info().Int("tables", len(tables)).Msg("backup run complete")
	return result, nil
}

// backupTable exports one table and prunes its old snapshots. Pruning only
// runs after a successful write, so a failed export never costs existing
// snapshots.
func (r *Runner) backupTable(ctx context.Context, table types.Table, ts time.Time) TableResult {
	tr := TableResult{Table: table}

	data, err := r.client.FetchTableData(ctx, table.ID, false)
	if err != nil {
		tr.Err = fmt.Errorf("fetch: %w", err)
		return tr
	}
	tr.Rows = len(data.Rows)

	encoded, err := EncodeCSV(data)
	if err != nil {
		tr.Err = fmt.Errorf("encode: %w", err)
		return tr
	}

	tableDir := filepath.Join(r.dir, SnapshotDir(table.ID, table.Title))
	if err := r.fs.MkdirAll(tableDir, 0o755); err != nil {
		tr.Err = fmt.Errorf("create snapshot dir: %w", err)
		return tr
	}

	snapshot := filepath.Join(tableDir, SnapshotName(ts, table.ID, table.Title))
	if err := r.fs.WriteFile(snapshot, encoded, 0o644); err != nil {
		tr.Err = fmt.Errorf("write snapshot: %w", err)
		return tr
	}
	tr.Snapshot = snapshot

	pruned, err := r.prune(tableDir)
	tr.Pruned = pruned
	if err != nil {
		tr.Err = fmt.Errorf("prune: %w", err)
	}
	return tr
}

// prune removes the oldest snapshots in tableDir beyond the retention
// count and returns how many were deleted. Individual delete failures are
// collected but do not stop the remaining deletes.
func (r *Runner) prune(tableDir string) (int, error) {
	names, err := r.fs.ListFiles(tableDir)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}

	var snapshots []string
	for _, name := range names {
		if strings.HasSuffix(name, snapshotExt) {
			snapshots = append(snapshots, name)
		}
	}

	_, prune := Partition(snapshots, r.keep)

	pruned := 0
	var failures []error
	for _, name := range prune {
		if err := r.fs.Remove(filepath.Join(tableDir, name)); err != nil {
			failures = append(failures, err)
			continue
		}
		pruned++
	}
	return pruned, errors.Join(failures...)
}
