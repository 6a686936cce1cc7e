package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-ad/kita-nextcloud-automation/pkg/types"
)

// hoursRow builds one exploded hours-table row.
func hoursRow(date string, hours any, account string) types.Row {
	cells := map[string]any{ColDate: date, ColHours: hours}
	if account != "" {
		cells[ColAccount] = account
	}
	return types.Row{Cells: cells}
}

// nameRow builds one address-table row (one row per child).
func nameRow(child, motherLast, fatherLast, motherAcc, fatherAcc string) types.Row {
	return types.Row{Cells: map[string]any{
		ColChildFirstName: child,
		ColMotherLastName: motherLast,
		ColFatherLastName: fatherLast,
		ColMotherAccount:  motherAcc,
		ColFatherAccount:  fatherAcc,
	}}
}

func hoursTable(rows ...types.Row) types.TableData {
	return types.TableData{Columns: []string{ColDate, ColHours, ColAccount}, Rows: rows}
}

func namesTable(rows ...types.Row) types.TableData {
	return types.TableData{
		Columns: []string{ColChildFirstName, ColMotherLastName, ColFatherLastName, ColMotherAccount, ColFatherAccount},
		Rows:    rows,
	}
}

func TestParseJoinPolicy(t *testing.T) {
	for _, s := range []string{"left", "inner", "LEFT", "Inner"} {
		_, err := ParseJoinPolicy(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseJoinPolicy("outer")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownJoinPolicy)
}

func TestBuildFamilyHoursTwoParentFamily(t *testing.T) {
	hours := hoursTable(
		hoursRow("2026-10-03 09:00:00", 5.0, "m.meier"),
		hoursRow("2026-11-14 09:00:00", 2.5, "p.meier"),
		hoursRow("2027-02-01 09:00:00", 4.0, "m.meier"),
	)
	names := namesTable(
		nameRow("Mia", "Meier", "Meier", "m.meier", "p.meier"),
	)

	result := BuildFamilyHours(hours, names, Options{Year: 2026, Policy: JoinLeft})

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, "Meier", rec.Family)
	assert.Equal(t, float64(102), rec.TargetHours, "one child, two parents")
	assert.Equal(t, 11.5, rec.ActualHours, "hours of both parents are summed")
	assert.Equal(t, 11, rec.Progress)
	assert.Zero(t, result.Dropped())
}

func TestBuildFamilyHoursDifferentSurnames(t *testing.T) {
	names := namesTable(
		nameRow("Ben", "Schmidt", "Lehmann", "e.schmidt", "k.lehmann"),
	)

	result := BuildFamilyHours(hoursTable(), names, Options{Year: 2026, Policy: JoinLeft})

	require.Len(t, result.Records, 1)
	assert.Equal(t, "Schmidt & Lehmann", result.Records[0].Family)
	assert.Equal(t, float64(102), result.Records[0].TargetHours)
}

func TestBuildFamilyHoursSingleParent(t *testing.T) {
	names := namesTable(
		nameRow("Lina", "Otto", "", "c.otto", ""),
		nameRow("Paul", "Otto", "", "c.otto", ""),
	)
	hours := hoursTable(hoursRow("2026-12-01", 30.0, "c.otto"))

	result := BuildFamilyHours(hours, names, Options{Year: 2026, Policy: JoinLeft})

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, "Otto", rec.Family)
	assert.Equal(t, float64(60), rec.TargetHours, "single parent with two children")
	assert.Equal(t, float64(30), rec.ActualHours)
	assert.Equal(t, 50, rec.Progress)
}

func TestBuildFamilyHoursKitaYearWindow(t *testing.T) {
	hours := hoursTable(
		hoursRow("2026-08-31 09:00:00", 3.0, "m.meier"), // before the year
		hoursRow("2026-09-02 09:00:00", 5.0, "m.meier"),
		hoursRow("2027-08-30 09:00:00", 2.0, "m.meier"),
		hoursRow("2027-09-02 09:00:00", 7.0, "m.meier"), // after the year
	)
	names := namesTable(nameRow("Mia", "Meier", "Meier", "m.meier", ""))

	result := BuildFamilyHours(hours, names, Options{Year: 2026, Policy: JoinLeft})

	require.Len(t, result.Records, 1)
	assert.Equal(t, float64(7), result.Records[0].ActualHours)
	assert.Equal(t, 2, result.HoursOutsideYear)
	assert.Zero(t, result.Dropped(), "out-of-year rows are filtered, not dropped")
}

func TestBuildFamilyHoursJoinPolicies(t *testing.T) {
	// One family with hours, one without, one hours row for an account no
	// family declares.
	names := namesTable(
		nameRow("Mia", "Meier", "Meier", "m.meier", ""),
		nameRow("Ben", "Schmidt", "Schmidt", "e.schmidt", ""),
	)
	hours := hoursTable(
		hoursRow("2026-10-03", 5.0, "m.meier"),
		hoursRow("2026-10-04", 2.0, "x.unbekannt"),
	)

	t.Run("inner drops both orphans", func(t *testing.T) {
		result := BuildFamilyHours(hours, names, Options{Year: 2026, Policy: JoinInner})

		require.Len(t, result.Records, 1)
		assert.Equal(t, "Meier", result.Records[0].Family)
		assert.Equal(t, float64(5), result.Records[0].ActualHours)
		assert.Equal(t, 2, result.Dropped(), "family without hours plus unknown-account row")
		assert.Equal(t, 1, result.DroppedHours)
		assert.Equal(t, 1, result.DroppedFamilies)
	})

	t.Run("left keeps hourless family at zero", func(t *testing.T) {
		result := BuildFamilyHours(hours, names, Options{Year: 2026, Policy: JoinLeft})

		require.Len(t, result.Records, 2)
		assert.Equal(t, "Schmidt", result.Records[1].Family)
		assert.Zero(t, result.Records[1].ActualHours)
		assert.Equal(t, 1, result.Dropped(), "only the unknown-account row is dropped")
	})
}

func TestBuildFamilyHoursMalformedRows(t *testing.T) {
	hours := hoursTable(
		hoursRow("not a date", 5.0, "m.meier"),
		hoursRow("2026-10-03", "viele", "m.meier"),
		hoursRow("2026-10-04", 2.0, ""), // no account
		hoursRow("2026-10-05", 3.0, "m.meier"),
	)
	names := namesTable(nameRow("Mia", "Meier", "Meier", "m.meier", ""))

	result := BuildFamilyHours(hours, names, Options{Year: 2026, Policy: JoinLeft})

	require.Len(t, result.Records, 1)
	assert.Equal(t, float64(3), result.Records[0].ActualHours)
	assert.Equal(t, 3, result.DroppedHours)
}

func TestBuildFamilyHoursUnknownShapeDropped(t *testing.T) {
	// Four children: no obligation defined, the family is dropped.
	names := namesTable(
		nameRow("A", "Gross", "Gross", "m.gross", ""),
		nameRow("B", "Gross", "Gross", "m.gross", ""),
		nameRow("C", "Gross", "Gross", "m.gross", ""),
		nameRow("D", "Gross", "Gross", "m.gross", ""),
	)

	result := BuildFamilyHours(hoursTable(), names, Options{Year: 2026, Policy: JoinLeft})

	assert.Empty(t, result.Records)
	assert.Equal(t, 1, result.DroppedFamilies)
}

func TestBuildFamilyHoursProgressCappedAndSorted(t *testing.T) {
	names := namesTable(
		nameRow("Mia", "Meier", "Meier", "m.meier", ""),
		nameRow("Ben", "Schmidt", "Schmidt", "e.schmidt", ""),
		nameRow("Ida", "Arnold", "Arnold", "t.arnold", ""),
	)
	hours := hoursTable(
		hoursRow("2026-10-03", 250.0, "m.meier"), // far over the obligation
		hoursRow("2026-10-03", 51.0, "e.schmidt"),
	)

	result := BuildFamilyHours(hours, names, Options{Year: 2026, Policy: JoinLeft})

	require.Len(t, result.Records, 3)
	assert.Equal(t, []string{"Meier", "Schmidt", "Arnold"}, []string{
		result.Records[0].Family, result.Records[1].Family, result.Records[2].Family,
	}, "sorted by progress descending")
	assert.Equal(t, 100, result.Records[0].Progress, "progress is capped at 100")
	assert.Equal(t, 50, result.Records[1].Progress)
	assert.Zero(t, result.Records[2].Progress)
}

func TestBuildFamilyHoursDeterministic(t *testing.T) {
	names := namesTable(
		nameRow("Mia", "Meier", "Meier", "m.meier", ""),
		nameRow("Ben", "Schmidt", "Schmidt", "e.schmidt", ""),
	)
	hours := hoursTable(
		hoursRow("2026-10-03", 5.0, "m.meier"),
		hoursRow("2026-10-03", 5.0, "e.schmidt"),
	)

	first := BuildFamilyHours(hours, names, Options{Year: 2026, Policy: JoinLeft})
	for i := 0; i < 10; i++ {
		again := BuildFamilyHours(hours, names, Options{Year: 2026, Policy: JoinLeft})
		assert.Equal(t, first, again, "unchanged sources must produce identical output")
	}
}

func TestToRows(t *testing.T) {
	rows := ToRows([]FamilyRecord{
		{Family: "Meier", TargetHours: 102, ActualHours: 11.5, Progress: 11},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{
		ColFamily:   "Meier",
		ColTarget:   float64(102),
		ColActual:   11.5,
		ColProgress: 11,
	}, rows[0])
}
