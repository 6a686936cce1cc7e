package nextcloud

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hoursTableHandler serves a small hours table: a datetime column, a
// number column, and a usergroup column whose cells hold lists of objects.
func hoursTableHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/columns"):
			fmt.Fprint(w, `[
				{"id":1,"title":"Datum","type":"datetime"},
				{"id":2,"title":"Stunden","type":"number"},
				{"id":3,"title":"wer?","type":"usergroup"}
			]`)
		case strings.HasSuffix(r.URL.Path, "/rows"):
			fmt.Fprint(w, `[
				{"id":201,"data":[
					{"columnId":1,"value":"2026-10-03 09:00"},
					{"columnId":2,"value":5},
					{"columnId":3,"value":"[{\"id\":\"m.meier\",\"type\":0},{\"id\":\"e.schmidt\",\"type\":0}]"}
				]},
				{"id":202,"data":[
					{"columnId":1,"value":"2026-10-04 09:00"},
					{"columnId":2,"value":2}
				]}
			]`)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	})
}

func TestFetchTableDataPlain(t *testing.T) {
	client := newTestClient(t, hoursTableHandler(t))

	data, err := client.FetchTableData(context.Background(), 13, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Datum", "Stunden", "wer?"}, data.Columns)
	require.Len(t, data.Rows, 2)

	// Structured cell stays one value on the single row.
	who, ok := data.Rows[0].Cell("wer?").([]any)
	require.True(t, ok)
	assert.Len(t, who, 2)
	assert.Equal(t, float64(5), data.Rows[0].Cell("Stunden"))
}

func TestFetchTableDataExplode(t *testing.T) {
	client := newTestClient(t, hoursTableHandler(t))

	data, err := client.FetchTableData(context.Background(), 13, true)
	require.NoError(t, err)

	// Row 201 explodes into two rows (two assignees); row 202 stays one.
	require.Len(t, data.Rows, 3)
	assert.Equal(t, []string{"Datum", "Stunden", "wer?", "wer?_id", "wer?_type"}, data.Columns)

	assert.Equal(t, "m.meier", data.Rows[0].Cell("wer?_id"))
	assert.Equal(t, "e.schmidt", data.Rows[1].Cell("wer?_id"))
	// Base cells are copied into every exploded row.
	assert.Equal(t, float64(5), data.Rows[0].Cell("Stunden"))
	assert.Equal(t, float64(5), data.Rows[1].Cell("Stunden"))
	// Exploded rows keep their source row ID.
	assert.Equal(t, int64(201), data.Rows[0].ID)
	assert.Equal(t, int64(201), data.Rows[1].ID)

	assert.Nil(t, data.Rows[2].Cell("wer?_id"))
	assert.Equal(t, float64(2), data.Rows[2].Cell("Stunden"))
}

func TestFetchTableDataEmptyTable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/columns") {
			fmt.Fprint(w, `[{"id":1,"title":"Datum","type":"datetime"}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	}))

	data, err := client.FetchTableData(context.Background(), 13, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Datum"}, data.Columns)
	assert.True(t, data.Empty())
}

func TestExplodeRowPadsShorterLists(t *testing.T) {
	base := map[string]any{"Stunden": 5.0}
	nested := []nestedColumn{
		{title: "wer?", items: []any{
			map[string]any{"id": "m.meier"},
			map[string]any{"id": "e.schmidt"},
		}},
		{title: "tags", items: []any{
			map[string]any{"name": "garten"},
		}},
	}

	rows := explodeRow(base, nested)
	require.Len(t, rows, 2)

	assert.Equal(t, "garten", rows[0]["tags_name"])
	_, present := rows[1]["tags_name"]
	assert.False(t, present, "shorter list leaves later cells unset")
	assert.Equal(t, "e.schmidt", rows[1]["wer?_id"])
}
