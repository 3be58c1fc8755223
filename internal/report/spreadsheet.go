package report

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/pankaj-dahiya-devops/aadr/internal/flatten"
)

// DefaultSheetName is the name of the single worksheet in the workbook.
const DefaultSheetName = "UserDetailList"

// defaultExcelizeSheet is the sheet excelize.NewFile creates.
const defaultExcelizeSheet = "Sheet1"

// WriteSpreadsheet writes tbl to path as a workbook with one sheet: a header
// row of column names followed by one row per table row. Scalars keep their
// native type; objects and arrays are written as compact JSON text. A cell
// whose text exceeds excelize.TotalCellChars is an error.
func WriteSpreadsheet(path, sheet string, tbl *flatten.Table) error {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if tbl.Width() > excelize.MaxColumns {
		return fmt.Errorf("write %s: %d columns exceeds the sheet limit of %d", path, tbl.Width(), excelize.MaxColumns)
	}
	if tbl.Len()+1 > excelize.TotalRows {
		return fmt.Errorf("write %s: %d rows exceeds the sheet limit of %d", path, tbl.Len(), excelize.TotalRows-1)
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheet != defaultExcelizeSheet {
		if err := f.SetSheetName(defaultExcelizeSheet, sheet); err != nil {
			return fmt.Errorf("name sheet %q: %w", sheet, err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open sheet %q: %w", sheet, err)
	}

	header := make([]interface{}, 0, tbl.Width())
	for _, c := range tbl.Columns() {
		header = append(header, c)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := 0; i < tbl.Len(); i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := tbl.Row(i)
		values := make([]interface{}, len(row))
		for j, c := range row {
			values[j] = cellValue(c)
			if text, ok := values[j].(string); ok && utf8.RuneCountInString(text) > excelize.TotalCellChars {
				return fmt.Errorf("write row %d column %q: %d characters exceeds the cell limit of %d",
					i+1, tbl.Columns()[j], utf8.RuneCountInString(text), excelize.TotalCellChars)
			}
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet %q: %w", sheet, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// cellValue converts a table cell to a value the stream writer understands.
// Null becomes an empty cell.
func cellValue(c flatten.Cell) interface{} {
	if c.Kind() != flatten.KindScalar {
		return c.String()
	}
	switch v := c.Value().(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}
