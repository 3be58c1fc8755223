// Package report writes the authorization detail artifacts: the JSON document
// and the spreadsheet derived from its UserDetailList.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pankaj-dahiya-devops/aadr/internal/flatten"
)

// UserDetailListKey is the top-level key projected into the spreadsheet.
const UserDetailListKey = "UserDetailList"

// WriteJSON writes v to path as 4-space indented JSON without HTML escaping.
// Missing parent directories are created.
func WriteJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ReadRecords reads the JSON document at path and returns the elements of the
// top-level array stored under key.
func ReadRecords(path, key string) ([]flatten.Cell, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := flatten.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if doc.Kind() != flatten.KindObject {
		return nil, fmt.Errorf("read %s: top-level value is a %s, want object", path, doc.Kind())
	}
	list, ok := doc.Get(key)
	if !ok {
		return nil, fmt.Errorf("read %s: key %q not found", path, key)
	}
	if list.Kind() != flatten.KindArray {
		return nil, fmt.Errorf("read %s: %q is a %s, want array", path, key, list.Kind())
	}
	return list.Items(), nil
}

// BuildUserTable projects records into one row per record and, when
// flattenNested is set, runs f over the projection.
func BuildUserTable(records []flatten.Cell, flattenNested bool, f *flatten.Flattener) (*flatten.Table, error) {
	tbl, err := flatten.Normalize(records)
	if err != nil {
		return nil, fmt.Errorf("project records: %w", err)
	}
	if !flattenNested {
		return tbl, nil
	}
	if f == nil {
		f = flatten.New(nil)
	}
	return f.Flatten(tbl), nil
}
