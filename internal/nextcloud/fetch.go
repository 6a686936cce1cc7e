package nextcloud

import (
	"context"
	"fmt"
	"sort"

	"github.com/m-ad/kita-nextcloud-automation/pkg/types"
)

// FetchTableData exports a full table: column titles in API order plus
// every row with decoded cells.
//
// With explode set, cells holding a list of objects (usergroup columns and
// the like) are expanded into one output row per list element, the object
// keys flattened into "<column>_<key>" cells. Flattened column titles are
// appended after the table's own columns, in order of first appearance.
func (c *Client) FetchTableData(ctx context.Context, tableID int64, explode bool) (types.TableData, error) {
	columns, err := c.GetColumns(ctx, tableID)
	if err != nil {
		return types.TableData{}, fmt.Errorf("table %d: fetch columns: %w", tableID, err)
	}
	wireRows, err := c.fetchRows(ctx, tableID)
	if err != nil {
		return types.TableData{}, fmt.Errorf("table %d: fetch rows: %w", tableID, err)
	}

	decoder := newRowDecoder(columns)
	titles := make([]string, len(columns))
	for i, col := range columns {
		titles[i] = col.Title
	}

	var (
		rows     []types.Row
		extra    []string
		extraSet = map[string]bool{}
	)
	for _, wire := range wireRows {
		cells, err := decoder.decode(wire.Data)
		if err != nil {
			return types.TableData{}, fmt.Errorf("table %d row %d: %w", tableID, wire.ID, err)
		}

		if !explode {
			rows = append(rows, types.Row{ID: wire.ID, Cells: cells})
			continue
		}

		base, nested := splitExplodable(cells, columns)
		if len(nested) == 0 {
			rows = append(rows, types.Row{ID: wire.ID, Cells: cells})
			continue
		}

		for _, title := range flattenedTitles(nested) {
			if !extraSet[title] && !containsTitle(titles, title) {
				extraSet[title] = true
				extra = append(extra, title)
			}
		}
		for _, exploded := range explodeRow(base, nested) {
			rows = append(rows, types.Row{ID: wire.ID, Cells: exploded})
		}
	}

	return types.TableData{Columns: append(titles, extra...), Rows: rows}, nil
}

// nestedColumn is one cell holding a list of objects, kept in column order
// so explosion output is deterministic.
type nestedColumn struct {
	title string
	items []any
}

// splitExplodable partitions cells into plain values and list-of-object
// values. Iteration follows the table's column order.
func splitExplodable(cells map[string]any, columns []types.Column) (map[string]any, []nestedColumn) {
	base := make(map[string]any, len(cells))
	var nested []nestedColumn

	for _, col := range columns {
		value, ok := cells[col.Title]
		if !ok {
			continue
		}
		if items, ok := value.([]any); ok && len(items) > 0 {
			if _, isObject := items[0].(map[string]any); isObject {
				nested = append(nested, nestedColumn{title: col.Title, items: items})
				continue
			}
		}
		base[col.Title] = value
	}
	return base, nested
}

// explodeRow produces one row per element of the longest nested list.
// Object elements are flattened into "<column>_<key>" cells; scalar
// elements keep the column title. Shorter lists leave their cells unset.
func explodeRow(base map[string]any, nested []nestedColumn) []map[string]any {
	maxItems := 0
	for _, col := range nested {
		if len(col.items) > maxItems {
			maxItems = len(col.items)
		}
	}

	out := make([]map[string]any, 0, maxItems)
	for i := 0; i < maxItems; i++ {
		row := make(map[string]any, len(base)+len(nested))
		for k, v := range base {
			row[k] = v
		}
		for _, col := range nested {
			if i >= len(col.items) {
				continue
			}
			switch item := col.items[i].(type) {
			case map[string]any:
				for key, val := range item {
					row[col.title+"_"+key] = val
				}
			default:
				row[col.title] = item
			}
		}
		out = append(out, row)
	}
	return out
}

// flattenedTitles returns the cell titles explosion will produce for the
// given nested columns, object keys sorted for deterministic ordering.
func flattenedTitles(nested []nestedColumn) []string {
	var titles []string
	for _, col := range nested {
		seen := map[string]bool{}
		var keys []string
		scalar := false
		for _, item := range col.items {
			object, ok := item.(map[string]any)
			if !ok {
				scalar = true
				continue
			}
			for key := range object {
				if !seen[key] {
					seen[key] = true
					keys = append(keys, key)
				}
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			titles = append(titles, col.title+"_"+key)
		}
		if scalar {
			titles = append(titles, col.title)
		}
	}
	return titles
}

func containsTitle(titles []string, title string) bool {
	for _, t := range titles {
		if t == title {
			return true
		}
	}
	return false
}
