package nextcloud

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/m-ad/kita-nextcloud-automation/pkg/types"
)

// rowDecoder turns wire rows into cells keyed by column title, resolving
// selection option IDs to labels and parsing embedded structured values.
type rowDecoder struct {
	columns []types.Column
	byID    map[int64]types.Column
}

func newRowDecoder(columns []types.Column) *rowDecoder {
	byID := make(map[int64]types.Column, len(columns))
	for _, col := range columns {
		byID[col.ID] = col
	}
	return &rowDecoder{columns: columns, byID: byID}
}

// decode returns the cells of one wire row keyed by column title. Cells
// referencing unknown columns are dropped.
func (d *rowDecoder) decode(data json.RawMessage) (map[string]any, error) {
	raw, err := decodeRowData(data)
	if err != nil {
		return nil, err
	}

	cells := make(map[string]any, len(raw))
	for columnID, value := range raw {
		col, ok := d.byID[columnID]
		if !ok {
			continue
		}
		cells[col.Title] = decodeCell(value, col)
	}
	return cells, nil
}

// decodeRowData handles both wire shapes of row.data: the list form
// [{columnId, value}, ...] and the map form {"<columnId>": value}. Map
// values may additionally be wrapped as {"value": ...}.
func decodeRowData(data json.RawMessage) (map[int64]any, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var list []struct {
		ColumnID int64 `json:"columnId"`
		Value    any   `json:"value"`
	}
	if err := json.Unmarshal(data, &list); err == nil {
		cells := make(map[int64]any, len(list))
		for _, item := range list {
			cells[item.ColumnID] = item.Value
		}
		return cells, nil
	}

	var dict map[string]any
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("unrecognized row data shape: %w", err)
	}
	cells := make(map[int64]any, len(dict))
	for key, value := range dict {
		columnID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row data key %q is not a column ID", key)
		}
		if wrapped, ok := value.(map[string]any); ok {
			if inner, ok := wrapped["value"]; ok {
				value = inner
			}
		}
		cells[columnID] = value
	}
	return cells, nil
}

// decodeCell parses structured string values and maps selection option IDs
// to their labels.
func decodeCell(value any, col types.Column) any {
	if s, ok := value.(string); ok {
		value = parseStructured(s)
	}
	if col.IsSelection() {
		if label, ok := selectionLabel(value, col); ok {
			return label
		}
	}
	return value
}

// parseStructured parses strings that carry an embedded JSON array or
// object, as the API produces for usergroup and similar columns. Strings
// that do not parse are returned unchanged. A second attempt swaps single
// quotes for double quotes, for values serialized Python-style.
func parseStructured(s string) any {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "{") {
		return s
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}
	if strings.Contains(trimmed, "'") {
		requoted := strings.ReplaceAll(trimmed, "'", `"`)
		if err := json.Unmarshal([]byte(requoted), &parsed); err == nil {
			return parsed
		}
	}
	return s
}

// selectionLabel resolves a selection cell (option ID as number or numeric
// string) to its label. Returns false when the value is not a known option.
func selectionLabel(value any, col types.Column) (string, bool) {
	var optionID int64
	switch v := value.(type) {
	case float64:
		optionID = int64(v)
	case int64:
		optionID = v
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return "", false
		}
		optionID = parsed
	default:
		return "", false
	}

	for _, opt := range col.SelectionOptions {
		if opt.ID == optionID {
			return opt.Label, true
		}
	}
	return "", false
}
