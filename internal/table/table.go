// Package table provides the wide, county-keyed tables that carry raw ACS
// data between the fetch and transform stages. A Table is request-scoped
// and not safe for concurrent mutation.
package table

// Table is a wide numeric table with insertion-ordered row keys and columns.
// Cells that were never set are treated as missing.
type Table struct {
	rowKeys []string
	cols    []string
	rowIdx  map[string]int
	colIdx  map[string]int
	cells   map[int]map[int]float64
}

// New creates an empty table with the given column order.
func New(cols ...string) *Table {
	t := &Table{
		rowIdx: make(map[string]int),
		colIdx: make(map[string]int),
		cells:  make(map[int]map[int]float64),
	}
	for _, c := range cols {
		t.ensureCol(c)
	}
	return t
}

func (t *Table) ensureCol(col string) int {
	if i, ok := t.colIdx[col]; ok {
		return i
	}
	i := len(t.cols)
	t.cols = append(t.cols, col)
	t.colIdx[col] = i
	return i
}

func (t *Table) ensureRow(key string) int {
	if i, ok := t.rowIdx[key]; ok {
		return i
	}
	i := len(t.rowKeys)
	t.rowKeys = append(t.rowKeys, key)
	t.rowIdx[key] = i
	t.cells[i] = make(map[int]float64)
	return i
}

// Set stores a cell value, creating the row and column as needed.
func (t *Table) Set(rowKey, col string, v float64) {
	r := t.ensureRow(rowKey)
	c := t.ensureCol(col)
	t.cells[r][c] = v
}

// Value returns a cell value; ok is false when the cell is missing.
func (t *Table) Value(rowKey, col string) (float64, bool) {
	r, okR := t.rowIdx[rowKey]
	c, okC := t.colIdx[col]
	if !okR || !okC {
		return 0, false
	}
	v, ok := t.cells[r][c]
	return v, ok
}

// Keys returns the row keys in insertion order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.rowKeys))
	copy(out, t.rowKeys)
	return out
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(col string) bool {
	_, ok := t.colIdx[col]
	return ok
}

// HasRow reports whether the row key exists.
func (t *Table) HasRow(key string) bool {
	_, ok := t.rowIdx[key]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rowKeys) }

// Merge outer-joins two tables on row key. The resulting row and column
// sets are the unions of the inputs; b wins on conflicting cells. Row and
// column order follow a then b, but the cell contents are the same
// regardless of argument order when the inputs do not overlap.
func Merge(a, b *Table) *Table {
	out := New()
	for _, t := range []*Table{a, b} {
		if t == nil {
			continue
		}
		for _, key := range t.rowKeys {
			out.ensureRow(key)
			for _, col := range t.cols {
				if v, ok := t.Value(key, col); ok {
					out.Set(key, col, v)
				} else {
					out.ensureCol(col)
				}
			}
		}
	}
	return out
}

// Append concatenates other's rows onto t. Rows with duplicate keys are
// merged cell-wise, with other winning conflicts.
func (t *Table) Append(other *Table) {
	if other == nil {
		return
	}
	for _, key := range other.rowKeys {
		t.ensureRow(key)
		for _, col := range other.cols {
			if v, ok := other.Value(key, col); ok {
				t.Set(key, col, v)
			} else {
				t.ensureCol(col)
			}
		}
	}
}

// Filter returns a new table holding only the requested row keys, in the
// requested order. Keys absent from t are silently skipped.
func (t *Table) Filter(keys []string) *Table {
	out := New(t.cols...)
	for _, key := range keys {
		if !t.HasRow(key) {
			continue
		}
		out.ensureRow(key)
		for _, col := range t.cols {
			if v, ok := t.Value(key, col); ok {
				out.Set(key, col, v)
			}
		}
	}
	return out
}
