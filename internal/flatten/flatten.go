package flatten

import (
	"io"
	"log/slog"
)

// Flattener runs the object/array expansion loop and logs each pass.
type Flattener struct {
	logger *slog.Logger
}

// New returns a Flattener that logs to logger. A nil logger discards records.
func New(logger *slog.Logger) *Flattener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Flattener{logger: logger}
}

// Flatten is New(nil).Flatten(t).
func Flatten(t *Table) *Table {
	return New(nil).Flatten(t)
}

// Flatten returns a new table in which no column holds objects in every row
// and no column holds arrays in every row. The input table is not modified.
//
// Each pass computes the eligible object and array columns of the table as it
// stood at the start of the pass, expands every eligible object column, then
// explodes every eligible array column. Passes repeat until nothing is
// eligible.
//
// Object expansion replaces column c with columns c.<key> (the union of keys in
// first-seen order, null where a row lacks the key) appended after the existing
// columns. Array explosion replaces each row with one row per element and
// moves c to the last position; a row whose array is empty disappears.
// Columns whose cells are of mixed kinds are left untouched.
func (f *Flattener) Flatten(t *Table) *Table {
	cur := t.clone()
	f.logger.Debug("flatten start", "rows", cur.Len(), "columns", cur.Width())

	for pass := 1; ; pass++ {
		objects, arrays := eligibleColumns(cur)
		if len(objects) == 0 && len(arrays) == 0 {
			break
		}
		f.logger.Debug("flatten pass", "pass", pass, "objects", objects, "arrays", arrays)

		for _, name := range objects {
			cur = expandObject(cur, name)
		}
		for _, name := range arrays {
			before := cur.Len()
			cur = explodeArray(cur, name)
			f.logger.Debug("exploded", "column", name, "rows_before", before, "rows_after", cur.Len())
		}
	}

	f.logger.Debug("flatten done", "rows", cur.Len(), "columns", cur.Width())
	return cur
}

// eligibleColumns returns, in column order, the names of columns that hold an
// Object in every row and those that hold an Array in every row. A table with
// no rows has no eligible columns.
func eligibleColumns(t *Table) (objects, arrays []string) {
	if t.Len() == 0 {
		return nil, nil
	}
	for ci, name := range t.columns {
		kind := t.rows[0][ci].kind
		if kind == KindScalar {
			continue
		}
		uniform := true
		for _, r := range t.rows[1:] {
			if r[ci].kind != kind {
				uniform = false
				break
			}
		}
		if !uniform {
			continue
		}
		if kind == KindObject {
			objects = append(objects, name)
		} else {
			arrays = append(arrays, name)
		}
	}
	return objects, arrays
}

// expandObject replaces the object column name with one column per nested
// key. Row order and count are unchanged.
func expandObject(t *Table, name string) *Table {
	idx := t.Index(name)
	if idx < 0 {
		return t
	}

	var keys []string
	seen := make(map[string]bool)
	for _, r := range t.rows {
		for _, fld := range r[idx].fields {
			if !seen[fld.Key] {
				seen[fld.Key] = true
				keys = append(keys, fld.Key)
			}
		}
	}

	out := &Table{
		columns: make([]string, 0, len(t.columns)-1+len(keys)),
		rows:    make([][]Cell, len(t.rows)),
	}
	out.columns = append(out.columns, t.columns[:idx]...)
	out.columns = append(out.columns, t.columns[idx+1:]...)
	for _, k := range keys {
		out.columns = append(out.columns, name+"."+k)
	}

	for i, r := range t.rows {
		row := make([]Cell, 0, len(out.columns))
		row = append(row, r[:idx]...)
		row = append(row, r[idx+1:]...)
		obj := r[idx]
		for _, k := range keys {
			v, _ := obj.Get(k)
			row = append(row, v)
		}
		out.rows[i] = row
	}
	return out
}

// explodeArray replaces each row with one row per element of its array in
// column name. The column moves to the end.
func explodeArray(t *Table, name string) *Table {
	idx := t.Index(name)
	if idx < 0 {
		return t
	}

	out := &Table{
		columns: make([]string, 0, len(t.columns)),
		rows:    make([][]Cell, 0, len(t.rows)),
	}
	out.columns = append(out.columns, t.columns[:idx]...)
	out.columns = append(out.columns, t.columns[idx+1:]...)
	out.columns = append(out.columns, name)

	for _, r := range t.rows {
		for _, item := range r[idx].items {
			row := make([]Cell, 0, len(r))
			row = append(row, r[:idx]...)
			row = append(row, r[idx+1:]...)
			row = append(row, item)
			out.rows = append(out.rows, row)
		}
	}
	return out
}
