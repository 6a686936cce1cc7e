package nextcloud

import (
	"context"
	"fmt"
	"net/http"

	"github.com/m-ad/kita-nextcloud-automation/pkg/types"
)

// ListTables returns every table the authenticated user can access.
func (c *Client) ListTables(ctx context.Context) ([]types.Table, error) {
	var tables []types.Table
	if err := c.do(ctx, http.MethodGet, apiBase+"/tables", false, nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// GetTable fetches metadata for a single table.
func (c *Client) GetTable(ctx context.Context, tableID int64) (types.Table, error) {
	var table types.Table
	path := fmt.Sprintf("%s/tables/%d", apiBase, tableID)
	if err := c.do(ctx, http.MethodGet, path, false, nil, &table); err != nil {
		return types.Table{}, err
	}
	return table, nil
}

// ocsEnvelope is the wrapper the OCS v2 API puts around payloads.
type ocsEnvelope struct {
	OCS struct {
		Data types.Table `json:"data"`
	} `json:"ocs"`
}

// UpdateTable updates selected table fields (title, description, emoji)
// through the OCS endpoint and returns the updated table.
func (c *Client) UpdateTable(ctx context.Context, tableID int64, properties map[string]any) (types.Table, error) {
	var envelope ocsEnvelope
	path := fmt.Sprintf("%s/tables/%d", ocsBase, tableID)
	if err := c.do(ctx, http.MethodPut, path, true, properties, &envelope); err != nil {
		return types.Table{}, err
	}
	return envelope.OCS.Data, nil
}

// GetColumns returns the column definitions of a table in API order.
func (c *Client) GetColumns(ctx context.Context, tableID int64) ([]types.Column, error) {
	var columns []types.Column
	path := fmt.Sprintf("%s/tables/%d/columns", apiBase, tableID)
	if err := c.do(ctx, http.MethodGet, path, false, nil, &columns); err != nil {
		return nil, err
	}
	return columns, nil
}
