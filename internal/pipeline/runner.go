package pipeline

import (
	"context"
	"fmt"

	"github.com/m-ad/kita-nextcloud-automation/internal/config"
	"github.com/m-ad/kita-nextcloud-automation/internal/logging"
	"github.com/m-ad/kita-nextcloud-automation/pkg/types"
)

// Client is the part of the remote table client the pipeline uses.
type Client interface {
	FetchTableData(ctx context.Context, tableID int64, explode bool) (types.TableData, error)
	ReplaceRows(ctx context.Context, tableID int64, records []map[string]any) (deleted int, rowIDs []int64, err error)
}

// Runner executes one pipeline run: fetch both sources, transform, replace
// the destination. Nothing is written unless both fetches and the full
// transformation succeeded.
type Runner struct {
	client Client

	hoursTableID int64
	namesTableID int64
	destTableID  int64
	opts         Options
}

// New builds a runner from the loaded configuration. The configuration
// must already have passed ValidatePipeline.
func New(client Client, cfg config.Config) (*Runner, error) {
	policy, err := ParseJoinPolicy(cfg.JoinPolicy)
	if err != nil {
		return nil, err
	}
	return &Runner{
		client:       client,
		hoursTableID: cfg.HoursTableID,
		namesTableID: cfg.NamesTableID,
		destTableID:  cfg.FamilyHoursTableID,
		opts:         Options{Year: cfg.KitaYear, Policy: policy},
	}, nil
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID       string
	HoursRows   int
	NameRows    int
	Records     int
	Dropped     int
	RowsDeleted int
}

// Run executes the pipeline. The destination is only touched after both
// sources were fetched and every record staged.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	result := RunResult{RunID: logging.NewRunID()}
	log := logging.Logger().With().Str("run", result.RunID).Str("job", "pipeline").Logger()

	log.Info().Int64("hours_table", r.hoursTableID).Int64("names_table", r.namesTableID).
		Int("year", r.opts.Year).Str("join", string(r.opts.Policy)).
		Msg("fetching source tables")

	hours, err := r.client.FetchTableData(ctx, r.hoursTableID, true)
	if err != nil {
		return result, fmt.Errorf("fetch hours table: %w", err)
	}
	names, err := r.client.FetchTableData(ctx, r.namesTableID, false)
	if err != nil {
		return result, fmt.Errorf("fetch names table: %w", err)
	}
	result.HoursRows = len(hours.Rows)
	result.NameRows = len(names.Rows)

	transformed := BuildFamilyHours(hours, names, r.opts)
	result.Records = len(transformed.Records)
	result.Dropped = transformed.Dropped()

	log.Info().Int("hours_rows", result.HoursRows).Int("name_rows", result.NameRows).
		Int("records", result.Records).Int("dropped", result.Dropped).
		Int("outside_year", transformed.HoursOutsideYear).
		Msg("transformation complete")
	if result.Dropped > 0 {
		log.Warn().Int("dropped", result.Dropped).
			Int("hours_rows", transformed.DroppedHours).
			Int("families", transformed.DroppedFamilies).
			Msg("dropped unjoinable records")
	}

	deleted, rowIDs, err := r.client.ReplaceRows(ctx, r.destTableID, ToRows(transformed.Records))
	result.RowsDeleted = deleted
	if err != nil {
		return result, fmt.Errorf("write destination table: %w", err)
	}

	log.Info().Int64("table", r.destTableID).Int("deleted", deleted).Int("inserted", len(rowIDs)).
		Msg("destination table replaced")
	return result, nil
}
