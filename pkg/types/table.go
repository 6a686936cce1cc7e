package types

// Table describes a remote table as returned by the Tables API.
type Table struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Emoji     string `json:"emoji,omitempty"`
	Ownership string `json:"ownership,omitempty"`
	RowsCount int    `json:"rowsCount,omitempty"`
}

// Column type names used by the Tables API.
const (
	ColumnText      = "text"
	ColumnNumber    = "number"
	ColumnDatetime  = "datetime"
	ColumnSelect    = "select"
	ColumnSelection = "selection"
	ColumnUserGroup = "usergroup"
)

// SelectionOption is one choice of a selection column. The API stores the
// option ID in row cells; the label is what humans see.
type SelectionOption struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Column describes one column of a remote table.
type Column struct {
	ID               int64             `json:"id"`
	Title            string            `json:"title"`
	Type             string            `json:"type"`
	Subtype          string            `json:"subtype,omitempty"`
	SelectionOptions []SelectionOption `json:"selectionOptions,omitempty"`
}

// IsSelection reports whether cells of this column hold selection option IDs.
func (c Column) IsSelection() bool {
	return c.Type == ColumnSelect || c.Type == ColumnSelection
}

// Row is one remote table row. Cells maps column title to the decoded cell
// value: string, float64, bool, nil, or a structured value ([]any /
// map[string]any) for columns that store embedded JSON.
type Row struct {
	ID    int64          `json:"id"`
	Cells map[string]any `json:"cells"`
}

// Cell returns the named cell value, or nil when the cell is absent.
func (r Row) Cell(column string) any {
	if r.Cells == nil {
		return nil
	}
	return r.Cells[column]
}

// TableData is a full export of one table: the column titles in API order
// plus every row. It is the unit a snapshot serializes and the pipeline
// consumes.
type TableData struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Empty reports whether the table holds no rows.
func (d TableData) Empty() bool {
	return len(d.Rows) == 0
}
