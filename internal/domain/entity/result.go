package entity

import (
	"math"
	"strconv"
	"strings"
)

// MaxSheetNameLength bounds result names so the downstream workbook
// renderer never has to truncate them itself.
const MaxSheetNameLength = 31

// SavingsColumn is the column name descriptors use to expose per-row
// estimated savings. Savings aggregation reads only this column.
const SavingsColumn = "Estimated Savings"

// ChartType hints how the rendering collaborator should visualize a table.
type ChartType string

const (
	ChartNone  ChartType = ""
	ChartBar   ChartType = "chart"
	ChartPivot ChartType = "pivot"
)

// ResultTable is an ordered set of rows over named columns.
type ResultTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Empty reports whether the table holds no rows.
func (t ResultTable) Empty() bool { return len(t.Rows) == 0 }

// Index returns the position of the named column, or -1 when absent.
func (t ResultTable) Index(name string) int { return t.columnIndex(name) }

// Column returns the values of the named column, or nil when absent.
func (t ResultTable) Column(name string) []string {
	idx := t.columnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		} else {
			out = append(out, "")
		}
	}
	return out
}

// Rename returns a copy of the table with the first column named from
// renamed to to. Rows are shared with the receiver.
func (t ResultTable) Rename(from, to string) ResultTable {
	out := ResultTable{Columns: append([]string(nil), t.Columns...), Rows: t.Rows}
	for i, c := range out.Columns {
		if c == from {
			out.Columns[i] = to
			break
		}
	}
	return out
}

// Normalize reshapes the table over the given column order. Columns
// missing from the source become empty-string cells; source columns not in
// the required list are dropped.
func (t ResultTable) Normalize(required []string) ResultTable {
	out := ResultTable{Columns: append([]string(nil), required...)}
	if len(t.Rows) == 0 {
		out.Rows = [][]string{}
		return out
	}

	indexes := make([]int, len(required))
	for i, name := range required {
		indexes[i] = t.columnIndex(name)
	}

	out.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(required))
		for i, idx := range indexes {
			if idx >= 0 && idx < len(row) {
				cells[i] = row[idx]
			}
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

func (t ResultTable) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// SheetName bounds a report name to the workbook sheet limit.
func SheetName(name string) string {
	if len(name) > MaxSheetNameLength {
		return name[:MaxSheetNameLength]
	}
	return name
}

// ReportResult is the rendering contract for one executed report: a
// sheet-bounded name, a table whose column order matches the descriptor's
// required columns, a chart hint, and whether potential savings should be
// surfaced.
type ReportResult struct {
	Name           string      `json:"name"`
	Table          ResultTable `json:"table"`
	Chart          ChartType   `json:"chart,omitempty"`
	DisplaySavings bool        `json:"display_savings"`
}

// EstimatedSavings sums the savings column of a table, rounded to cents.
// It returns 0 when the column is absent, the table is empty, or no cell
// parses as a number.
func EstimatedSavings(t ResultTable) float64 {
	idx := t.columnIndex(SavingsColumn)
	if idx < 0 {
		return 0
	}
	var total float64
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		cell := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(row[idx]), "$"))
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			continue
		}
		total += v
	}
	return math.Round(total*100) / 100
}
