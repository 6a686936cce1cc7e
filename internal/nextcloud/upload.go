package nextcloud

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownColumn marks records referencing columns the target table does
// not define.
var ErrUnknownColumn = errors.New("unknown target column")

// InsertRows writes records into a table, one row per record. Records map
// column title to cell value; nil cells are skipped. All records are
// checked against the target schema before the first write. Returns the
// created row IDs.
func (c *Client) InsertRows(ctx context.Context, tableID int64, records []map[string]any) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}

	columns, err := c.GetColumns(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("table %d: fetch columns: %w", tableID, err)
	}
	columnIDs := make(map[string]int64, len(columns))
	for _, col := range columns {
		columnIDs[col.Title] = col.ID
	}

	if unknown := unknownColumns(records, columnIDs); len(unknown) > 0 {
		return nil, fmt.Errorf("%w: table %d does not define: %s",
			ErrUnknownColumn, tableID, strings.Join(unknown, ", "))
	}

	rowIDs := make([]int64, 0, len(records))
	for _, record := range records {
		cells := make(map[int64]any, len(record))
		for title, value := range record {
			if value == nil {
				continue
			}
			cells[columnIDs[title]] = value
		}
		if len(cells) == 0 {
			continue
		}

		rowID, err := c.CreateRow(ctx, tableID, cells)
		if err != nil {
			return rowIDs, fmt.Errorf("table %d: insert row: %w", tableID, err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	return rowIDs, nil
}

// ReplaceRows clears the table and inserts the given records. The records
// are validated against the schema before anything is deleted, so a
// malformed record set never empties the destination.
func (c *Client) ReplaceRows(ctx context.Context, tableID int64, records []map[string]any) (deleted int, rowIDs []int64, err error) {
	columns, err := c.GetColumns(ctx, tableID)
	if err != nil {
		return 0, nil, fmt.Errorf("table %d: fetch columns: %w", tableID, err)
	}
	columnIDs := make(map[string]int64, len(columns))
	for _, col := range columns {
		columnIDs[col.Title] = col.ID
	}
	if unknown := unknownColumns(records, columnIDs); len(unknown) > 0 {
		return 0, nil, fmt.Errorf("%w: table %d does not define: %s",
			ErrUnknownColumn, tableID, strings.Join(unknown, ", "))
	}

	deleted, err = c.ClearTable(ctx, tableID)
	if err != nil {
		return deleted, nil, fmt.Errorf("table %d: clear: %w", tableID, err)
	}

	rowIDs, err = c.InsertRows(ctx, tableID, records)
	return deleted, rowIDs, err
}

// unknownColumns returns the sorted set of record column titles absent from
// the target schema.
func unknownColumns(records []map[string]any, columnIDs map[string]int64) []string {
	seen := map[string]bool{}
	var unknown []string
	for _, record := range records {
		for title := range record {
			if _, ok := columnIDs[title]; !ok && !seen[title] {
				seen[title] = true
				unknown = append(unknown, title)
			}
		}
	}
	sort.Strings(unknown)
	return unknown
}
