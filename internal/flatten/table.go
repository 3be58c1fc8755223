package flatten

import "fmt"

// Table is an ordered set of named columns over rows of cells. Column names
// are not required to be unique; columns are addressed by position.
type Table struct {
	columns []string
	rows    [][]Cell
}

// NewTable copies columns and rows into a new Table. Every row must be as wide
// as columns.
func NewTable(columns []string, rows [][]Cell) (*Table, error) {
	t := &Table{
		columns: append(make([]string, 0, len(columns)), columns...),
		rows:    make([][]Cell, len(rows)),
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(columns))
		}
		t.rows[i] = copyRow(r)
	}
	return t, nil
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	return append(make([]string, 0, len(t.columns)), t.columns...)
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width is the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Row returns row i. Callers must not modify the returned slice.
func (t *Table) Row(i int) []Cell { return t.rows[i] }

// Index returns the position of the first column named name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) clone() *Table {
	c := &Table{
		columns: t.Columns(),
		rows:    make([][]Cell, len(t.rows)),
	}
	for i, r := range t.rows {
		c.rows[i] = copyRow(r)
	}
	return c
}

func copyRow(r []Cell) []Cell {
	out := make([]Cell, len(r))
	copy(out, r)
	return out
}
