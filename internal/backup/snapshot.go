package backup

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/m-ad/kita-nextcloud-automation/pkg/types"
)

// timestampLayout orders snapshot file names chronologically.
const timestampLayout = "20060102_150405"

// snapshotExt is the snapshot file extension; rotation only considers
// files carrying it.
const snapshotExt = ".csv"

// SanitizeTitle strips a table title down to characters safe in file
// names: letters, digits, space, underscore, hyphen. Trailing spaces are
// trimmed. An empty result falls back to "table_<id>".
func SanitizeTitle(title string, tableID int64) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	sanitized := strings.TrimRight(b.String(), " ")
	if sanitized == "" {
		return fmt.Sprintf("table_%d", tableID)
	}
	return sanitized
}

// SnapshotDir returns the per-table snapshot directory name.
func SnapshotDir(tableID int64, title string) string {
	return fmt.Sprintf("table_%d_%s", tableID, SanitizeTitle(title, tableID))
}

// SnapshotName returns the snapshot file name for one table at one point
// in time. The timestamp prefix makes name order equal creation order.
func SnapshotName(ts time.Time, tableID int64, title string) string {
	return fmt.Sprintf("%s_%d_%s%s", ts.Format(timestampLayout), tableID, SanitizeTitle(title, tableID), snapshotExt)
}

// EncodeCSV serializes a table export to CSV: one header row of column
// titles, then one record per row in column order. A zero-row table still
// yields the header, so empty tables produce valid snapshots.
func EncodeCSV(data types.TableData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(data.Columns); err != nil {
		return nil, err
	}
	record := make([]string, len(data.Columns))
	for _, row := range data.Rows {
		for i, column := range data.Columns {
			record[i] = renderCell(row.Cell(column))
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderCell formats one cell for CSV output. Structured values are
// embedded as JSON so the snapshot stays one value per field.
func renderCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
