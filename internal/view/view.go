// Package view reshapes the transformed county table into the forms the
// serving layer consumes: a category-grouped dict for display and a flat
// county-by-variable table for export.
package view

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/censusview/internal/transform"
)

// Dict groups the formatted rows by category. Each row is
// [variableName, value1, value2, ...] with values following f.Counties
// order. Every category maps to a sequence of rows, even when it holds a
// single row. Iterate with SortedCategories for deterministic output.
func Dict(f *transform.Formatted) map[string][][]any {
	out := make(map[string][][]any)
	for _, row := range f.Rows {
		cells := make([]any, 0, len(row.Values)+1)
		cells = append(cells, row.Name)
		for _, v := range row.Values {
			cells = append(cells, v)
		}
		out[row.Category] = append(out[row.Category], cells)
	}
	return out
}

// SortedCategories returns the dict's category names sorted. Category
// enumeration must never depend on map iteration order.
func SortedCategories(d map[string][][]any) []string {
	cats := make([]string, 0, len(d))
	for cat := range d {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// ColumnNames returns the display header: "Column Name" followed by the
// county labels in the caller's selection order, not re-sorted.
func ColumnNames(countyLabels []string) []string {
	out := make([]string, 0, len(countyLabels)+1)
	out = append(out, "Column Name")
	return append(out, countyLabels...)
}

// Flat is the transposed export form: one row per county, one column per
// derived variable.
type Flat struct {
	Header []string   // "county" followed by variable names
	Rows   [][]string // county label, then formatted values
}

// Flatten transposes the formatted table for tabular export.
func Flatten(f *transform.Formatted) *Flat {
	header := make([]string, 0, len(f.Rows)+1)
	header = append(header, "county")
	for _, row := range f.Rows {
		header = append(header, row.Name)
	}

	rows := make([][]string, 0, len(f.Counties))
	for i, county := range f.Counties {
		cells := make([]string, 0, len(f.Rows)+1)
		cells = append(cells, county)
		for _, row := range f.Rows {
			cells = append(cells, formatValue(row.Values[i]))
		}
		rows = append(rows, cells)
	}
	return &Flat{Header: header, Rows: rows}
}

// WriteCSV writes the flat form as CSV.
func WriteCSV(w io.Writer, f *transform.Formatted) error {
	flat := Flatten(f)
	cw := csv.NewWriter(w)
	if err := cw.Write(flat.Header); err != nil {
		return eris.Wrap(err, "view: write csv header")
	}
	for _, row := range flat.Rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "view: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "view: flush csv")
}

// WriteXLSX writes the flat form as a single-sheet workbook.
func WriteXLSX(w io.Writer, f *transform.Formatted) error {
	flat := Flatten(f)

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Census Data")
	if err != nil {
		return eris.Wrap(err, "view: add sheet")
	}

	headerRow := sheet.AddRow()
	for _, name := range flat.Header {
		headerRow.AddCell().SetString(name)
	}
	for _, row := range flat.Rows {
		xr := sheet.AddRow()
		xr.AddCell().SetString(row[0])
		for _, cell := range row[1:] {
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				xr.AddCell().SetFloat(v)
			} else {
				xr.AddCell().SetString(cell)
			}
		}
	}

	return eris.Wrap(file.Write(w), "view: write xlsx")
}

// EmptyDict is the documented placeholder shown when no counties are
// selected: a single-cell table rather than an empty one.
func EmptyDict() map[string][][]any {
	return map[string][][]any{"": {{"No row data!"}}}
}

// EmptyColumns is the header shown alongside EmptyDict.
func EmptyColumns() []string {
	return []string{"No column data!"}
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
