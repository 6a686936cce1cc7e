// Package pipeline implements the family-hours pipeline: the work-hours
// table and the address table are fetched, joined per family, aggregated
// into target/actual hours with a progress percentage, and written over
// the destination table.
package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m-ad/kita-nextcloud-automation/pkg/types"
)

// Source column titles as configured in the Nextcloud tables. The hours
// table is fetched exploded, so the assignee usergroup column "wer?"
// arrives flattened as "wer?_id".
const (
	ColDate    = "Datum"
	ColHours   = "Stunden"
	ColAccount = "wer?_id"

	ColChildFirstName = "Vorname Kind"
	ColMotherLastName = "Nachname Mutter"
	ColFatherLastName = "Nachname Vater"
	ColMotherAccount  = "Nextcloudaccount Mutter"
	ColFatherAccount  = "Nextcloudaccount Vater"
)

// Destination column titles.
const (
	ColFamily   = "Familie"
	ColTarget   = "Stunden SOLL"
	ColActual   = "Stunden IST"
	ColProgress = "Fortschritt"
)

// JoinPolicy decides what happens to families without any booked hours.
type JoinPolicy string

const (
	// JoinLeft keeps every family; missing hours count as zero.
	JoinLeft JoinPolicy = "left"
	// JoinInner keeps only families with at least one matched hours row.
	JoinInner JoinPolicy = "inner"
)

// ErrUnknownJoinPolicy is returned for policies other than left and inner.
var ErrUnknownJoinPolicy = errors.New("unknown join policy")

// ParseJoinPolicy validates a configured policy string.
func ParseJoinPolicy(s string) (JoinPolicy, error) {
	switch JoinPolicy(strings.ToLower(s)) {
	case JoinLeft:
		return JoinLeft, nil
	case JoinInner:
		return JoinInner, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownJoinPolicy, s)
	}
}

// targetHours maps (single parent, children in the Kita) to the yearly
// work-hours obligation of a family.
var targetHours = map[familyShape]float64{
	{singleParent: false, children: 1}: 102,
	{singleParent: false, children: 2}: 132,
	{singleParent: false, children: 3}: 132,
	{singleParent: true, children: 1}:  50,
	{singleParent: true, children: 2}:  60,
}

type familyShape struct {
	singleParent bool
	children     int
}

// Options configures the transformation.
type Options struct {
	// Year is the Kita year; the hours window runs 1 September of Year
	// to 1 September of Year+1.
	Year int

	// Policy decides how families without hours are joined.
	Policy JoinPolicy
}

// FamilyRecord is one destination row: a family with its obligation,
// booked hours, and progress percentage.
type FamilyRecord struct {
	Family      string
	TargetHours float64
	ActualHours float64
	Progress    int
}

// Result is the outcome of one transformation.
type Result struct {
	Records []FamilyRecord

	// HoursOutsideYear counts hours rows filtered by the Kita-year window.
	HoursOutsideYear int
	// DroppedHours counts hours rows that were malformed or reference an
	// account no family declares.
	DroppedHours int
	// DroppedFamilies counts address rows or families excluded by the
	// join policy or lacking an hours obligation for their shape.
	DroppedFamilies int
}

// Dropped is the total number of dropped source records.
func (r Result) Dropped() int {
	return r.DroppedHours + r.DroppedFamilies
}

// BuildFamilyHours joins the exploded hours table with the address table
// into per-family records. Malformed or unjoinable rows are dropped and
// counted; they never abort the transformation.
func BuildFamilyHours(hours, names types.TableData, opts Options) Result {
	var result Result

	accountHours, accountRows := sumAccountHours(hours, opts.Year, &result)
	families := collectFamilies(names, &result)

	matched := map[string]bool{}
	for _, fam := range families {
		target, ok := targetHours[fam.shape]
		if !ok {
			// No obligation defined for this family shape.
			result.DroppedFamilies++
			continue
		}

		actual := 0.0
		hasHours := false
		for _, account := range fam.accounts {
			matched[account] = true
			if h, ok := accountHours[account]; ok {
				actual += h
				hasHours = true
			}
		}

		if opts.Policy == JoinInner && !hasHours {
			result.DroppedFamilies++
			continue
		}

		result.Records = append(result.Records, FamilyRecord{
			Family:      fam.name,
			TargetHours: target,
			ActualHours: actual,
			Progress:    progress(actual, target),
		})
	}

	// Hours booked under accounts no family declares are unjoinable.
	for account, rows := range accountRows {
		if !matched[account] {
			result.DroppedHours += rows
		}
	}

	sort.SliceStable(result.Records, func(i, j int) bool {
		a, b := result.Records[i], result.Records[j]
		if a.Progress != b.Progress {
			return a.Progress > b.Progress
		}
		return a.Family < b.Family
	})
	return result
}

// ToRows shapes the records for the destination table.
func ToRows(records []FamilyRecord) []map[string]any {
	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		rows[i] = map[string]any{
			ColFamily:   rec.Family,
			ColTarget:   rec.TargetHours,
			ColActual:   rec.ActualHours,
			ColProgress: rec.Progress,
		}
	}
	return rows
}

// progress is the truncated percentage of the obligation worked off,
// capped at 100.
func progress(actual, target float64) int {
	if target <= 0 {
		return 0
	}
	p := int(actual / target * 100)
	if p > 100 {
		return 100
	}
	return p
}

// sumAccountHours filters hours rows to the Kita year and sums them per
// account. It also returns how many rows contributed per account, so
// unjoinable rows can be counted later.
func sumAccountHours(hours types.TableData, year int, result *Result) (map[string]float64, map[string]int) {
	start := time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	perAccount := map[string]float64{}
	rowCount := map[string]int{}
	for _, row := range hours.Rows {
		date, ok := parseDate(row.Cell(ColDate))
		if !ok {
			result.DroppedHours++
			continue
		}
		if !date.After(start) || !date.Before(end) {
			result.HoursOutsideYear++
			continue
		}

		account := stringCell(row.Cell(ColAccount))
		worked, okHours := numberCell(row.Cell(ColHours))
		if account == "" || !okHours {
			result.DroppedHours++
			continue
		}

		perAccount[account] += worked
		rowCount[account]++
	}
	return perAccount, rowCount
}

// family is one aggregated address-table family.
type family struct {
	name     string
	shape    familyShape
	accounts []string
}

// collectFamilies aggregates address rows (one per child) into families.
// The family name is the mother's surname, or "<mother> & <father>" when
// the surnames differ; a missing father surname marks a single parent.
func collectFamilies(names types.TableData, result *Result) []*family {
	index := map[string]*family{}
	var ordered []*family

	for _, row := range names.Rows {
		mother := stringCell(row.Cell(ColMotherLastName))
		father := stringCell(row.Cell(ColFatherLastName))
		if mother == "" && father == "" {
			result.DroppedFamilies++
			continue
		}

		name := familyName(mother, father)
		fam, ok := index[name]
		if !ok {
			fam = &family{
				name:  name,
				shape: familyShape{singleParent: father == ""},
			}
			index[name] = fam
			ordered = append(ordered, fam)
		}

		if stringCell(row.Cell(ColChildFirstName)) != "" {
			fam.shape.children++
		}
		for _, account := range []string{
			stringCell(row.Cell(ColMotherAccount)),
			stringCell(row.Cell(ColFatherAccount)),
		} {
			if account != "" && !contains(fam.accounts, account) {
				fam.accounts = append(fam.accounts, account)
			}
		}
	}
	return ordered
}

func familyName(mother, father string) string {
	switch {
	case father == "" || father == mother:
		return mother
	case mother == "":
		return father
	default:
		return mother + " & " + father
	}
}

// parseDate accepts the date formats the Tables app emits.
func parseDate(value any) (time.Time, bool) {
	s := stringCell(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringCell(value any) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

// numberCell accepts JSON numbers and numeric strings.
func numberCell(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
