package nextcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// pageSize is how many rows are fetched per request while paginating.
const pageSize = 100

// wireRow is a row as the Tables API returns it. Data comes in two shapes
// depending on the server version: a list of {columnId, value} objects or a
// map of column ID to value; decode.go handles both.
type wireRow struct {
	ID      int64           `json:"id"`
	TableID int64           `json:"tableId"`
	Data    json.RawMessage `json:"data"`
}

// fetchRows returns every row of a table, paginating until a short page.
func (c *Client) fetchRows(ctx context.Context, tableID int64) ([]wireRow, error) {
	var all []wireRow
	offset := 0
	for {
		page, err := c.fetchRowPage(ctx, tableID, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		offset += pageSize
	}
}

func (c *Client) fetchRowPage(ctx context.Context, tableID int64, limit, offset int) ([]wireRow, error) {
	var page []wireRow
	path := fmt.Sprintf("%s/tables/%d/rows?limit=%d&offset=%d", apiBase, tableID, limit, offset)
	if err := c.do(ctx, http.MethodGet, path, false, nil, &page); err != nil {
		return nil, err
	}
	return page, nil
}

// CreateRow inserts one row. cells maps column ID to cell value. Returns
// the platform-assigned row ID.
func (c *Client) CreateRow(ctx context.Context, tableID int64, cells map[int64]any) (int64, error) {
	data := make(map[string]any, len(cells))
	for columnID, value := range cells {
		data[fmt.Sprintf("%d", columnID)] = value
	}

	var created wireRow
	path := fmt.Sprintf("%s/tables/%d/rows", apiBase, tableID)
	if err := c.do(ctx, http.MethodPost, path, false, map[string]any{"data": data}, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// DeleteRow removes one row by its platform row ID.
func (c *Client) DeleteRow(ctx context.Context, rowID int64) error {
	path := fmt.Sprintf("%s/rows/%d", apiBase, rowID)
	return c.do(ctx, http.MethodDelete, path, false, nil, nil)
}

// ClearTable deletes every row of a table and returns how many rows were
// removed. Deletion is row by row; the API has no bulk delete.
func (c *Client) ClearTable(ctx context.Context, tableID int64) (int, error) {
	deleted := 0
	for {
		page, err := c.fetchRowPage(ctx, tableID, pageSize, 0)
		if err != nil {
			return deleted, err
		}
		if len(page) == 0 {
			return deleted, nil
		}
		for _, row := range page {
			if err := c.DeleteRow(ctx, row.ID); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
}
