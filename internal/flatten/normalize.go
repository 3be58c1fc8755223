package flatten

import "fmt"

// Normalize projects a list of object records into a table with one row per
// record. Nested objects become dotted columns (empty objects vanish), arrays
// and scalars are kept as single cells. Columns are the union of all record
// keys in first-seen order; a record missing a column gets null.
func Normalize(records []Cell) (*Table, error) {
	var columns []string
	index := make(map[string]int)
	flat := make([][]Field, len(records))

	for i, rec := range records {
		if rec.kind != KindObject {
			return nil, fmt.Errorf("record %d is a %s, want object", i, rec.kind)
		}
		flat[i] = flattenFields("", rec.fields, nil)
		for _, f := range flat[i] {
			if _, ok := index[f.Key]; !ok {
				index[f.Key] = len(columns)
				columns = append(columns, f.Key)
			}
		}
	}

	t := &Table{
		columns: append(make([]string, 0, len(columns)), columns...),
		rows:    make([][]Cell, len(records)),
	}
	for i, fields := range flat {
		row := make([]Cell, len(columns))
		for _, f := range fields {
			row[index[f.Key]] = f.Value
		}
		t.rows[i] = row
	}
	return t, nil
}

func flattenFields(prefix string, fields []Field, out []Field) []Field {
	for _, f := range fields {
		key := prefix + f.Key
		if f.Value.kind == KindObject {
			out = flattenFields(key+".", f.Value.fields, out)
			continue
		}
		out = append(out, Field{Key: key, Value: f.Value})
	}
	return out
}
